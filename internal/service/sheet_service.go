package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harmonia-mx/campus-api/internal/models"
	"github.com/harmonia-mx/campus-api/pkg/config"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
	"github.com/harmonia-mx/campus-api/pkg/storage"
)

type sheetStore interface {
	FindByID(ctx context.Context, id string) (*models.Sheet, error)
	List(ctx context.Context, search string) ([]models.Sheet, error)
	Create(ctx context.Context, sheet *models.Sheet) error
	Update(ctx context.Context, sheet *models.Sheet) error
	Archive(ctx context.Context, id string) error
}

// SheetUpload is the multipart payload for a catalogue entry.
type SheetUpload struct {
	Name     string `validate:"required"`
	Author   string `validate:"required"`
	Genre    string `validate:"required"`
	Filename string `validate:"required"`
	MIME     string
	Size     int64
	Content  io.Reader
}

// SheetDownload resolves a signed token into an open file handle.
type SheetDownload struct {
	File        *os.File
	Filename    string
	ContentType string
}

// SheetService manages the shared sheet-music catalogue. Files live on
// local storage and are served exclusively through short-lived signed
// URLs so the storage directory is never exposed directly.
type SheetService struct {
	sheets    sheetStore
	files     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.SheetsConfig
}

// NewSheetService constructs a SheetService.
func NewSheetService(sheets sheetStore, files *storage.LocalStorage, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger, cfg config.SheetsConfig) *SheetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SheetService{sheets: sheets, files: files, signer: signer, validator: validate, logger: logger, cfg: cfg}
}

// List returns catalogue entries, optionally filtered by search term.
func (s *SheetService) List(ctx context.Context, search string) ([]models.Sheet, error) {
	sheets, err := s.sheets.List(ctx, search)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sheets")
	}
	return sheets, nil
}

// Get returns a single catalogue entry.
func (s *SheetService) Get(ctx context.Context, id string) (*models.Sheet, error) {
	sheet, err := s.sheets.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sheet not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sheet")
	}
	return sheet, nil
}

// Upload stores the file and its catalogue entry.
func (s *SheetService) Upload(ctx context.Context, upload SheetUpload, actorID string) (*models.Sheet, error) {
	if err := s.validator.Struct(upload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sheet payload")
	}
	if upload.Size > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSizeBytes))
	}
	if !s.allowedMIME(upload.MIME) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %q is not allowed", upload.MIME))
	}

	stored := fmt.Sprintf("%s%s", uuid.NewString(), strings.ToLower(filepath.Ext(upload.Filename)))
	relPath, err := s.files.SaveStream(stored, upload.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	sheet := &models.Sheet{
		Name:      upload.Name,
		Author:    upload.Author,
		Genre:     upload.Genre,
		FilePath:  relPath,
		CreatedBy: actorID,
	}
	if err := s.sheets.Create(ctx, sheet); err != nil {
		if removeErr := s.files.Delete(relPath); removeErr != nil {
			s.logger.Warn("orphaned sheet file left behind", zap.Error(removeErr), zap.String("path", relPath))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create sheet")
	}
	return sheet, nil
}

// SignedURL issues a short-lived download token for the sheet file.
func (s *SheetService) SignedURL(ctx context.Context, id string) (string, time.Time, error) {
	sheet, err := s.Get(ctx, id)
	if err != nil {
		return "", time.Time{}, err
	}
	token, expiresAt, err := s.signer.Generate(sheet.ID, sheet.FilePath)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign url")
	}
	return token, expiresAt, nil
}

// Download validates a signed token and opens the underlying file.
func (s *SheetService) Download(ctx context.Context, token string) (*SheetDownload, error) {
	sheetID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}

	sheet, err := s.Get(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if sheet.Archived {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "sheet not found")
	}
	if sheet.FilePath != relPath {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "download token no longer matches the file")
	}

	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return &SheetDownload{
		File:        file,
		Filename:    fmt.Sprintf("%s%s", sheet.Name, filepath.Ext(relPath)),
		ContentType: mimeForExt(filepath.Ext(relPath)),
	}, nil
}

// Archive removes the entry from the catalogue. The file stays on disk
// but issued tokens stop resolving once the entry is archived.
func (s *SheetService) Archive(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.sheets.Archive(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive sheet")
	}
	return nil
}

func (s *SheetService) allowedMIME(mime string) bool {
	if len(s.cfg.AllowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedMIMEs {
		if strings.EqualFold(allowed, mime) {
			return true
		}
	}
	return false
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
