package domain

import (
	"context"
	"io"
)

// StorageService uploads files to a storage bucket.
type StorageService interface {
	Upload(ctx context.Context, bucket, path string, file io.Reader, contentType string) error
}
