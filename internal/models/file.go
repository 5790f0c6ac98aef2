package models

import "time"

// FileType tags an uploaded artifact. The two thesis types are exclusive:
// uploading a new one replaces the previous file of the same type.
type FileType string

const (
	FileTypeThesisDocx FileType = "thesis_docx"
	FileTypeThesisPDF  FileType = "thesis_pdf"
	FileTypeForm       FileType = "form"
	FileTypeTurnitin   FileType = "turnitin"
)

// IsExclusive reports whether at most one current file of this type may exist.
func (t FileType) IsExclusive() bool {
	return t == FileTypeThesisDocx || t == FileTypeThesisPDF
}

// Valid reports whether the type is one of the recognised categories.
func (t FileType) Valid() bool {
	switch t {
	case FileTypeThesisDocx, FileTypeThesisPDF, FileTypeForm, FileTypeTurnitin:
		return true
	}
	return false
}

// ThesisFile is an uploaded artifact attached to a record. Content hash, size
// and MIME type are derived after the bytes hit storage, not at upload time.
type ThesisFile struct {
	ID           string    `db:"id" json:"id"`
	RecordID     string    `db:"record_id" json:"recordId"`
	FileType     FileType  `db:"file_type" json:"fileType"`
	OriginalName string    `db:"original_name" json:"originalName"`
	StoredPath   string    `db:"stored_path" json:"storedPath"`
	MimeType     string    `db:"mime_type" json:"mimeType"`
	SizeBytes    int64     `db:"size_bytes" json:"sizeBytes"`
	SHA256       string    `db:"sha256" json:"sha256"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}
