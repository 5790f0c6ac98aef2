package saf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/uai-repositorio/saf-api/internal/models"
)

// Bundle names used in the contents manifest.
const (
	BundleOriginal = "ORIGINAL"
	BundleLicense  = "LICENSE"
)

// SourceFile is one stored artifact resolved to its on-disk location.
type SourceFile struct {
	Type         models.FileType
	Path         string
	OriginalName string
}

// ItemInput carries everything needed to build one archive item.
type ItemInput struct {
	Record      *models.ThesisRecord
	Career      *models.CareerConfig
	Files       []SourceFile
	LicenseText string
	Year        string
	OutputRoot  string
}

// ItemOutput reports where the item landed and a short human-readable detail.
type ItemOutput struct {
	CareerFolder string
	FolderName   string
	Detail       string
}

// ItemBuilder assembles one SAF item directory per record.
type ItemBuilder struct {
	converter *Converter
}

// NewItemBuilder constructs a builder around the given converter.
func NewItemBuilder(converter *Converter) *ItemBuilder {
	return &ItemBuilder{converter: converter}
}

// ItemFolderName formats the item directory name for a sequence number.
func ItemFolderName(nro int) string {
	return fmt.Sprintf("item_%03d", nro)
}

// pickThesisSource prefers a stored PDF over a convertible DOCX.
func pickThesisSource(files []SourceFile) *SourceFile {
	for i := range files {
		if files[i].Type == models.FileTypeThesisPDF {
			return &files[i]
		}
	}
	for i := range files {
		if files[i].Type == models.FileTypeThesisDocx {
			return &files[i]
		}
	}
	return nil
}

func filesOfType(files []SourceFile, t models.FileType) []SourceFile {
	var out []SourceFile
	for _, f := range files {
		if f.Type == t {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OriginalName < out[j].OriginalName })
	return out
}

// Build creates the item directory with the normalized thesis, ancillary
// files, license, metadata XML files and the contents manifest. On error the
// partially written directory is left behind; reruns recreate it from scratch.
func (b *ItemBuilder) Build(ctx context.Context, in ItemInput) (*ItemOutput, error) {
	thesisSrc := pickThesisSource(in.Files)
	if thesisSrc == nil {
		return nil, fmt.Errorf("record has no thesis file in PDF or DOCX form")
	}
	if _, err := os.Stat(thesisSrc.Path); err != nil {
		return nil, fmt.Errorf("thesis file missing on disk: %s", thesisSrc.OriginalName)
	}

	careerCode := ""
	if in.Career != nil {
		careerCode = in.Career.NormalizedCode
	}
	careerFolder := CareerFolderName(careerCode)
	folderName := ItemFolderName(in.Record.Nro)
	itemDir := filepath.Join(in.OutputRoot, careerFolder, folderName)
	if err := os.MkdirAll(itemDir, 0o755); err != nil {
		return nil, fmt.Errorf("create item directory: %w", err)
	}

	thesisDst := filepath.Join(itemDir, "thesis.pdf")
	var conversionNote string
	if thesisSrc.Type == models.FileTypeThesisPDF {
		if err := CopyFile(thesisSrc.Path, thesisDst); err != nil {
			return nil, fmt.Errorf("copy thesis PDF: %w", err)
		}
		conversionNote = "OK (PDF copied)"
	} else {
		if err := b.converter.Convert(ctx, thesisSrc.Path, thesisDst); err != nil {
			return nil, fmt.Errorf("DOCX to PDF conversion: %w", err)
		}
		conversionNote = "OK (DOCX converted)"
	}

	var attached []string
	for i, f := range filesOfType(in.Files, models.FileTypeForm) {
		dstName := fmt.Sprintf("form_%d.pdf", i+1)
		if err := CopyFile(f.Path, filepath.Join(itemDir, dstName)); err != nil {
			return nil, fmt.Errorf("copy form %s: %w", f.OriginalName, err)
		}
		attached = append(attached, dstName)
	}

	turnitins := filesOfType(in.Files, models.FileTypeTurnitin)
	for i, f := range turnitins {
		dstName := "turnitin.pdf"
		if len(turnitins) > 1 {
			dstName = fmt.Sprintf("turnitin_%d.pdf", i+1)
		}
		if err := CopyFile(f.Path, filepath.Join(itemDir, dstName)); err != nil {
			return nil, fmt.Errorf("copy turnitin %s: %w", f.OriginalName, err)
		}
		attached = append(attached, dstName)
	}

	licensePath := filepath.Join(itemDir, "license.txt")
	if err := os.WriteFile(licensePath, []byte(in.LicenseText), 0o644); err != nil {
		return nil, fmt.Errorf("write license: %w", err)
	}

	metadata := DeriveMetadata(in.Record, in.Career, in.Year)
	if _, err := WriteMetadataFiles(itemDir, metadata); err != nil {
		return nil, err
	}

	contents := []string{
		ContentsLine("license.txt", BundleLicense, false),
		ContentsLine("thesis.pdf", BundleOriginal, true),
	}
	for _, name := range attached {
		contents = append(contents, ContentsLine(name, BundleOriginal, false))
	}
	if err := WriteContentsFile(itemDir, contents); err != nil {
		return nil, err
	}

	return &ItemOutput{
		CareerFolder: careerFolder,
		FolderName:   folderName,
		Detail:       fmt.Sprintf("%s | attachments=%d", conversionNote, len(attached)),
	}, nil
}
