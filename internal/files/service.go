package files

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/wondermap/wondermap-api/internal/travel"
)

// BlobStore persists raw file contents.
type BlobStore interface {
	PutBlob(ctx context.Context, key, contentType string, data []byte) error
	GetBlob(ctx context.Context, key string) (string, []byte, error)
}

// Service uploads images and resolves signed downloads.
type Service struct {
	blobs    BlobStore
	signer   *Signer
	maxBytes int64
	newID    func() uuid.UUID
}

// NewService returns a Service that rejects uploads larger than maxBytes.
func NewService(blobs BlobStore, signer *Signer, maxBytes int64) *Service {
	return &Service{blobs: blobs, signer: signer, maxBytes: maxBytes, newID: uuid.New}
}

// ProfileKey is the blob key of a user's profile photo.
func ProfileKey(email string, id uuid.UUID) string {
	return fmt.Sprintf("users/%s/profile_%s.jpg", email, id)
}

// SpotKey is the blob key of a spot photo.
func SpotKey(postID, spotID string, id uuid.UUID) string {
	return fmt.Sprintf("posts/%s/spots/%s/spot_%s.jpg", postID, spotID, id)
}

// UploadProfilePhoto stores a profile photo and returns its signed URL.
func (s *Service) UploadProfilePhoto(ctx context.Context, email string, r io.Reader) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", fmt.Errorf("email is required: %w", travel.ErrValidation)
	}
	return s.upload(ctx, ProfileKey(email, s.newID()), r)
}

// UploadSpotPhoto stores a spot photo and returns its signed URL.
func (s *Service) UploadSpotPhoto(ctx context.Context, postID, spotID string, r io.Reader) (string, error) {
	return s.upload(ctx, SpotKey(postID, spotID, s.newID()), r)
}

func (s *Service) upload(ctx context.Context, key string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty file: %w", travel.ErrValidation)
	}
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("file exceeds %d bytes: %w", s.maxBytes, travel.ErrValidation)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("unsupported content type %q: %w", contentType, travel.ErrValidation)
	}

	if err := s.blobs.PutBlob(ctx, key, contentType, data); err != nil {
		return "", err
	}
	return s.signer.URL(key), nil
}

// Open verifies a signed request and returns the blob's content type and a
// reader over its bytes.
func (s *Service) Open(ctx context.Context, key, expires, sig string) (string, io.ReadSeeker, error) {
	if err := s.signer.Verify(key, expires, sig); err != nil {
		return "", nil, err
	}
	contentType, data, err := s.blobs.GetBlob(ctx, key)
	if err != nil {
		return "", nil, err
	}
	return contentType, bytes.NewReader(data), nil
}
