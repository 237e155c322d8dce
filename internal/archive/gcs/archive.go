// Package gcs provides a page archive backed by Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string `mapstructure:"bucket"`
}

// Archive uploads raw page bodies to a configured GCS bucket.
type Archive struct {
	client *storage.Client
	bucket string
}

// New creates a GCS-backed page archive.
func New(client *storage.Client, cfg Config) (*Archive, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Archive{client: client, bucket: cfg.Bucket}, nil
}

// PutPage uploads the page body and returns a gs:// URI.
func (a *Archive) PutPage(ctx context.Context, path string, body []byte) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	writer := a.client.Bucket(a.bucket).Object(path).NewWriter(ctx)
	writer.ContentType = "text/html"
	if _, err := io.Copy(writer, bytes.NewReader(body)); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("copy page: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy page: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", a.bucket, path), nil
}
