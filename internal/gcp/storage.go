package gcp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/storage"

	"github.com/bambooreports/securedelivery/internal/models"
)

// SignedURLTTL is the validity window of every signed access URL issued by
// this system.
const SignedURLTTL = 3600 * time.Second

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// SignedURLIssuer mints V4 signed GET URLs against private report buckets.
// A URL is requested fresh for every pipeline entry and never cached.
type SignedURLIssuer struct {
	client *storage.Client
	now    func() time.Time
}

func NewSignedURLIssuer(client *storage.Client) *SignedURLIssuer {
	return &SignedURLIssuer{client: client, now: time.Now}
}

// Issue returns a time-boxed read credential for gs://bucket/object.
func (s *SignedURLIssuer) Issue(ctx context.Context, bucket, object string) (models.SignedAccessURL, error) {
	expires := s.now().Add(SignedURLTTL)
	url, err := s.client.Bucket(bucket).SignedURL(object, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: expires,
	})
	if err != nil {
		return models.SignedAccessURL{}, fmt.Errorf("failed to sign URL for gs://%s/%s: %w", bucket, object, err)
	}
	return models.SignedAccessURL{URL: url, ExpiresAt: expires}, nil
}

// StreamObject copies a GCS object to a local file.
func StreamObject(ctx context.Context, client *storage.Client, bucket, object, destPath string) error {
	gcsReader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer gcsReader.Close()
	localFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file at %s: %w", destPath, err)
	}
	defer localFile.Close()
	if _, err := io.Copy(localFile, gcsReader); err != nil {
		return fmt.Errorf("failed to copy GCS object to local file: %w", err)
	}
	return nil
}
