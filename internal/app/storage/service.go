/*
Package storage stores donation photos and profile images in S3-compatible
object storage.
*/
package storage

import (
	"context"
	"io"
	"time"
)

// ServiceConfig holds the connection settings for the object store.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	// PublicAssetURL is prepended to object keys to build fetchable URLs.
	PublicAssetURL string
}

// StorageService is the object store used by the upload handlers.
type StorageService interface {
	// PresignUpload returns a URL the client can PUT the file to directly.
	PresignUpload(ctx context.Context, key, mimeType string, fileSize int64, duration time.Duration) (string, error)

	// Upload streams body to key.
	Upload(ctx context.Context, key, mimeType string, body io.Reader) error

	// Delete removes key.
	Delete(ctx context.Context, key string) error

	// PublicURL expands a stored key into a fetchable URL. Absolute URLs are returned unchanged.
	PublicURL(key string) string
}

// NewStorageService returns the S3 implementation.
func NewStorageService(ctx context.Context, cfg ServiceConfig) (StorageService, error) {
	return newS3Client(ctx, cfg)
}
