package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"messaging-lab/contract"
	"messaging-lab/domain"
	"messaging-lab/domain/mimetypes"
	apperrors "messaging-lab/errors"
)

// FileUpload is one file a participant wants to attach.
type FileUpload struct {
	UploaderID string
	FileName   string
	Data       []byte
}

// UploadResult reports the outcome for a single file of a batch. Err is one
// of ErrSizeExceeded, ErrTypeRejected or ErrUploadFailed; on success it is
// nil and Attachment points at the stored object.
type UploadResult struct {
	FileName   string
	Attachment *domain.Attachment
	Err        error
}

// AttachmentService validates and stores attachments. Failures are
// independent per file: one rejected or failed upload never aborts its
// siblings, so a user keeps partial progress.
type AttachmentService struct {
	blobs        contract.BlobStore
	log          *slog.Logger
	maxBytes     int64
	allowedKinds []string
}

func NewAttachmentService(blobs contract.BlobStore, log *slog.Logger, maxBytes int64, allowedKinds []string) *AttachmentService {
	return &AttachmentService{
		blobs:        blobs,
		log:          log,
		maxBytes:     maxBytes,
		allowedKinds: allowedKinds,
	}
}

// Validate checks the size ceiling and the type allow-list. The type is
// detected from content, never trusted from the file name.
func (s *AttachmentService) Validate(file FileUpload) (domain.AttachmentKind, error) {
	if int64(len(file.Data)) > s.maxBytes {
		return "", fmt.Errorf("%w: %s is %d bytes, ceiling is %d",
			apperrors.ErrSizeExceeded, file.FileName, len(file.Data), s.maxBytes)
	}

	detected, ok := mimetypes.Normalize(mimetype.Detect(file.Data).String())
	if !ok || !mimetypes.Allowed(detected, s.allowedKinds) {
		return "", fmt.Errorf("%w: %s detected as %s",
			apperrors.ErrTypeRejected, file.FileName, detected)
	}

	if mimetypes.IsImage(detected) {
		return domain.KindImage, nil
	}
	return domain.KindDocument, nil
}

// UploadAll attempts every file of the batch and reports each outcome
// individually, in input order.
func (s *AttachmentService) UploadAll(ctx context.Context, files []FileUpload) []UploadResult {
	results := make([]UploadResult, 0, len(files))
	for _, file := range files {
		results = append(results, s.uploadOne(ctx, file))
	}
	return results
}

func (s *AttachmentService) uploadOne(ctx context.Context, file FileUpload) UploadResult {
	kind, err := s.Validate(file)
	if err != nil {
		s.log.Debug("Attachment rejected", "file", file.FileName, "err", err)
		return UploadResult{FileName: file.FileName, Err: err}
	}

	// Objects are namespaced by uploader with a random name, preserving the
	// original extension. Retrieval is by the returned URL alone.
	key := fmt.Sprintf("%s/%s%s", file.UploaderID, uuid.NewString(), filepath.Ext(file.FileName))
	url, err := s.blobs.Put(ctx, key, bytes.NewReader(file.Data))
	if err != nil {
		s.log.Warn("Attachment upload failed", "file", file.FileName, "err", err)
		return UploadResult{
			FileName: file.FileName,
			Err:      fmt.Errorf("%w: %s: %v", apperrors.ErrUploadFailed, file.FileName, err),
		}
	}

	return UploadResult{
		FileName: file.FileName,
		Attachment: &domain.Attachment{
			URL:      url,
			FileName: file.FileName,
			Kind:     kind,
		},
	}
}
