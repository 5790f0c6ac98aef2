package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uai-repositorio/saf-api/internal/models"
	appErrors "github.com/uai-repositorio/saf-api/pkg/errors"
)

type fileStore interface {
	Create(ctx context.Context, file *models.ThesisFile) error
	GetByID(ctx context.Context, id string) (*models.ThesisFile, error)
	ListByRecord(ctx context.Context, recordID string) ([]models.ThesisFile, error)
	ListByRecordAndType(ctx context.Context, recordID string, fileType models.FileType) ([]models.ThesisFile, error)
	DeleteByRecordAndType(ctx context.Context, recordID string, fileType models.FileType) error
	Delete(ctx context.Context, id string) error
}

type recordReader interface {
	GetByID(ctx context.Context, id string) (*models.ThesisRecord, error)
}

type mediaStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
}

var allowedExtensions = map[models.FileType][]string{
	models.FileTypeThesisDocx: {".docx", ".doc"},
	models.FileTypeThesisPDF:  {".pdf"},
	models.FileTypeForm:       {".pdf"},
	models.FileTypeTurnitin:   {".pdf"},
}

// FileService manages the uploaded documents attached to records.
type FileService struct {
	files    fileStore
	records  recordReader
	storage  mediaStorage
	maxBytes int64
	logger   *zap.Logger
}

func NewFileService(files fileStore, records recordReader, storage mediaStorage, maxBytes int64, logger *zap.Logger) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{files: files, records: records, storage: storage, maxBytes: maxBytes, logger: logger}
}

// Upload stores a document for a record. Thesis categories hold a single
// file, so a new upload replaces the previous one; forms and similarity
// reports accumulate.
func (s *FileService) Upload(ctx context.Context, recordID string, fileType models.FileType, originalName string, size int64, r io.Reader, claims *models.JWTClaims) (*models.ThesisFile, error) {
	if !fileType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown file type")
	}
	record, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	if !record.CanEdit(claims.Role) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "files cannot be changed in status "+string(record.Status))
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if !extensionAllowed(fileType, ext) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("extension %s not allowed for %s", ext, fileType))
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.maxBytes))
	}

	storedPath := fmt.Sprintf("records/%s/%s_%s%s", recordID, fileType, uuid.NewString()[:8], ext)
	hasher := sha256.New()
	if _, err := s.storage.SaveStream(storedPath, io.TeeReader(r, hasher)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	if fileType.IsExclusive() {
		if err := s.removeExisting(ctx, recordID, fileType); err != nil {
			return nil, err
		}
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	file := &models.ThesisFile{
		RecordID:     recordID,
		FileType:     fileType,
		OriginalName: originalName,
		StoredPath:   storedPath,
		MimeType:     mimeType,
		SizeBytes:    size,
		SHA256:       hex.EncodeToString(hasher.Sum(nil)),
	}
	if err := s.files.Create(ctx, file); err != nil {
		if delErr := s.storage.Delete(storedPath); delErr != nil {
			s.logger.Sugar().Warnw("failed to remove orphaned upload", "path", storedPath, "error", delErr)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register file")
	}
	return file, nil
}

// List returns a record's files in upload order.
func (s *FileService) List(ctx context.Context, recordID string) ([]models.ThesisFile, error) {
	files, err := s.files.ListByRecord(ctx, recordID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list files")
	}
	return files, nil
}

// Delete removes one file, subject to the record's edit rules.
func (s *FileService) Delete(ctx context.Context, fileID string, claims *models.JWTClaims) error {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	record, err := s.records.GetByID(ctx, file.RecordID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	if !record.CanEdit(claims.Role) {
		return appErrors.Clone(appErrors.ErrInvalidStatus, "files cannot be changed in status "+string(record.Status))
	}
	if err := s.files.Delete(ctx, fileID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete file")
	}
	if err := s.storage.Delete(file.StoredPath); err != nil {
		s.logger.Sugar().Warnw("failed to remove stored file", "path", file.StoredPath, "error", err)
	}
	return nil
}

func (s *FileService) removeExisting(ctx context.Context, recordID string, fileType models.FileType) error {
	existing, err := s.files.ListByRecordAndType(ctx, recordID, fileType)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list existing files")
	}
	if len(existing) == 0 {
		return nil
	}
	if err := s.files.DeleteByRecordAndType(ctx, recordID, fileType); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace existing files")
	}
	for _, old := range existing {
		if err := s.storage.Delete(old.StoredPath); err != nil {
			s.logger.Sugar().Warnw("failed to remove replaced file", "path", old.StoredPath, "error", err)
		}
	}
	return nil
}

func extensionAllowed(fileType models.FileType, ext string) bool {
	for _, allowed := range allowedExtensions[fileType] {
		if ext == allowed {
			return true
		}
	}
	return false
}
