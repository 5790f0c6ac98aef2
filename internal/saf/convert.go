package saf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrConverterNotFound means no soffice binary could be located. Distinct
// from a conversion failure so callers can report a setup problem.
var ErrConverterNotFound = errors.New("soffice binary not found")

var sofficeFallbackPaths = []string{
	`C:\Program Files\LibreOffice\program\soffice.exe`,
	`C:\Program Files (x86)\LibreOffice\program\soffice.exe`,
	"/usr/bin/soffice",
	"/usr/local/bin/soffice",
}

// Converter normalizes source documents to PDF using LibreOffice headless.
type Converter struct {
	// SofficePath overrides binary discovery when set.
	SofficePath string
	// Timeout bounds one external conversion call.
	Timeout time.Duration
}

// Resolve locates the soffice binary: configured path first, then the
// executable search path, then known install locations.
func (c *Converter) Resolve() (string, error) {
	candidates := make([]string, 0, 4)
	if c.SofficePath != "" {
		candidates = append(candidates, c.SofficePath)
	}
	for _, name := range []string{"soffice", "soffice.exe"} {
		if found, err := exec.LookPath(name); err == nil {
			candidates = append(candidates, found)
		}
	}
	candidates = append(candidates, sofficeFallbackPaths...)

	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", ErrConverterNotFound
}

// Convert runs soffice to turn a word-processor document into dstPath. On any
// failure the destination is left untouched.
func (c *Converter) Convert(ctx context.Context, srcPath, dstPath string) error {
	soffice, err := c.Resolve()
	if err != nil {
		return err
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outDir := filepath.Dir(dstPath)
	cmd := exec.CommandContext(ctx, soffice,
		"--headless",
		"--nologo",
		"--nofirststartwizard",
		"--convert-to", "pdf",
		"--outdir", outDir,
		srcPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("conversion timed out after %s", timeout)
		}
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = err.Error()
		}
		return fmt.Errorf("soffice conversion failed: %s", detail)
	}

	stem := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	generated := filepath.Join(outDir, stem+".pdf")
	if _, err := os.Stat(generated); err != nil {
		return fmt.Errorf("soffice produced no PDF output for %s", filepath.Base(srcPath))
	}
	if generated != dstPath {
		if err := os.Remove(dstPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("replace stale output: %w", err)
		}
		if err := os.Rename(generated, dstPath); err != nil {
			return fmt.Errorf("move converted PDF: %w", err)
		}
	}
	return nil
}

// CopyFile copies an already-PDF source byte for byte.
func CopyFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close() //nolint:errcheck

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	defer dst.Close() //nolint:errcheck

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy content: %w", err)
	}
	return nil
}
