package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-tracker/internal/config"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util"
)

// AttachmentService stores uploaded files and hands back opaque references.
// The lifecycle engine never interprets the reference beyond its mime type.
type AttachmentService struct {
	dir        string
	publicBase string
	maxSize    int64
}

// NewAttachmentService constructs the service.
func NewAttachmentService(cfg config.AttachmentConfig) *AttachmentService {
	return &AttachmentService{
		dir:        cfg.Dir,
		publicBase: strings.TrimRight(cfg.PublicBase, "/"),
		maxSize:    cfg.MaxSizeBytes,
	}
}

// Store writes the payload under a generated key and returns its reference.
// Payloads over the configured limit are refused before any disk write.
func (s *AttachmentService) Store(_ context.Context, data []byte, originalName, mimeType string) (*domain.AttachmentReference, error) {
	if int64(len(data)) > s.maxSize {
		return nil, apperrors.NewFileTooLarge(s.maxSize)
	}
	if strings.TrimSpace(originalName) == "" {
		return nil, apperrors.NewValidationError("file", "file name required")
	}

	key := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0o644); err != nil {
		return nil, err
	}

	return &domain.AttachmentReference{
		URL:          s.publicBase + "/" + key,
		OriginalName: originalName,
		MimeType:     mimeType,
		SizeBytes:    int64(len(data)),
	}, nil
}

// MaxSizeBytes exposes the configured upload limit.
func (s *AttachmentService) MaxSizeBytes() int64 {
	return s.maxSize
}
