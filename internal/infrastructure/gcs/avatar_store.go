// Package gcs adapts Google Cloud Storage to the application's avatar
// storage contract.
package gcs

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"

	"github.com/bapconnect/connect-api/internal/application"
	"github.com/bapconnect/connect-api/pkg/helpers"
)

type AvatarStore struct {
	client *storage.Client
	bucket string
}

func NewAvatarStore(client *storage.Client, bucket string) *AvatarStore {
	return &AvatarStore{client: client, bucket: bucket}
}

// Put streams the binary into the bucket under path, overwriting any object
// already stored at that key, and returns the path.
func (s *AvatarStore) Put(ctx context.Context, path string, r io.Reader, contentType string) (string, error) {
	if s.client == nil || s.bucket == "" {
		return "", errors.New("gcs not configured")
	}
	if err := helpers.UploadObject(ctx, s.client, s.bucket, path, contentType, r); err != nil {
		return "", err
	}
	return path, nil
}

// URL resolves a stored path to its externally servable URL.
func (s *AvatarStore) URL(path string) string {
	return helpers.PublicURL(s.bucket, path)
}

// Delete removes the object at path.
func (s *AvatarStore) Delete(ctx context.Context, path string) error {
	if s.client == nil || s.bucket == "" {
		return errors.New("gcs not configured")
	}
	return helpers.DeleteObject(ctx, s.client, s.bucket, path)
}

var _ application.AvatarStorage = (*AvatarStore)(nil)
