package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/bambooreports/securedelivery/internal/gcp"
	"github.com/bambooreports/securedelivery/internal/models"
)

type ReportIngestorConfig struct {
	ReportsBucket     string
	CatalogCollection string
}

// ReportIngestorFunction reacts to report PDFs dropped into the staging
// bucket: it validates and optimizes them, dedupes on content hash, copies
// the optimized bytes into the serving bucket, and registers a catalog row.
type ReportIngestorFunction struct {
	storageClient *storage.Client
	catalog       *gcp.Catalog
	config        ReportIngestorConfig
}

type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

func NewReportIngestor(ctx context.Context) (*ReportIngestorFunction, error) {
	config := ReportIngestorConfig{
		ReportsBucket:     gcp.GetEnv("REPORTS_BUCKET", ""),
		CatalogCollection: gcp.GetEnv("CATALOG_COLLECTION", "plan_documents"),
	}
	if config.ReportsBucket == "" {
		return nil, fmt.Errorf("REPORTS_BUCKET environment variable must be set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}

	f := &ReportIngestorFunction{
		storageClient: storageClient,
		catalog:       gcp.NewCatalog(firestoreClient, config.CatalogCollection),
		config:        config,
	}
	slog.Info("Report ingestor logic initialized.", "reportsBucket", config.ReportsBucket)
	return f, nil
}

// Process handles one staged upload. Staging objects follow the
// <planName>/<filename>.pdf convention; anything else is skipped.
func (f *ReportIngestorFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new staged report.")

	planName, filename, ok := splitStagingPath(e.Name)
	if !ok {
		logCtx.Warn("Object does not match <plan>/<file>.pdf convention. Skipping.")
		return nil
	}

	tempDir, err := os.MkdirTemp("", "report-ingestor-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := gcp.StreamObject(ctx, f.storageClient, e.Bucket, e.Name, sourcePath); err != nil {
		logCtx.Error("Failed to download staged report", "error", err)
		return err
	}

	fileHash, err := calculateFileHash(sourcePath)
	if err != nil {
		logCtx.Error("Failed to calculate file hash", "error", err)
		return fmt.Errorf("failed to calculate file hash: %w", err)
	}
	logCtx = logCtx.With("fileHash", fileHash)

	existingID, duplicate, err := f.catalog.FindByHash(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if duplicate {
		logCtx.Info("Duplicate report detected. Skipping.", "existingDocId", existingID)
		return nil // Clean exit for a duplicate
	}

	optimizedPath := filepath.Join(tempDir, "optimized.pdf")
	if err := optimizePDF(sourcePath, optimizedPath); err != nil {
		logCtx.Error("Failed to validate/optimize report", "error", err)
		return fmt.Errorf("failed to validate/optimize report: %w", err)
	}
	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		logCtx.Error("Failed to get page count", "error", err)
		return fmt.Errorf("failed to get page count: %w", err)
	}

	destObject := fmt.Sprintf("reports/%s/%s", planName, filename)
	if err := f.uploadReport(ctx, optimizedPath, destObject); err != nil {
		logCtx.Error("Failed to upload optimized report", "error", err)
		return err
	}

	doc := models.PlanDocument{
		PlanName:      planName,
		DocumentType:  models.DocumentTypePDF,
		Title:         titleFromFilename(filename),
		FilePath:      destObject,
		StorageBucket: f.config.ReportsBucket,
		IsActive:      false, // published manually after review
		PageCount:     pageCount,
		FileHash:      fileHash,
		CreatedAt:     time.Now(),
	}
	docID, err := f.catalog.Create(ctx, doc)
	if err != nil {
		logCtx.Error("Failed to create catalog row", "error", err)
		return err
	}

	logCtx.Info("Report registered in catalog.", "documentId", docID, "pageCount", pageCount)
	return nil
}

func splitStagingPath(object string) (planName, filename string, ok bool) {
	planName, filename, found := strings.Cut(object, "/")
	if !found || planName == "" || filename == "" || strings.Contains(filename, "/") {
		return "", "", false
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return "", "", false
	}
	return planName, filename, true
}

func titleFromFilename(filename string) string {
	title := strings.TrimSuffix(filename, filepath.Ext(filename))
	title = strings.NewReplacer("_", " ", "-", " ").Replace(title)
	return strings.Join(strings.Fields(title), " ")
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}

func (f *ReportIngestorFunction) uploadReport(ctx context.Context, localPath, destObject string) error {
	const maxRetries = 4
	var backoff = 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := func() error {
			localFileReader, err := os.Open(localPath)
			if err != nil {
				return fmt.Errorf("could not open local file %s: %w", localPath, err)
			}
			defer localFileReader.Close()

			writeCtx, cancel := context.WithTimeout(ctx, time.Second*50)
			defer cancel()

			gcsWriter := f.storageClient.Bucket(f.config.ReportsBucket).Object(destObject).NewWriter(writeCtx)
			gcsWriter.ContentType = "application/pdf"

			if _, err := io.Copy(gcsWriter, localFileReader); err != nil {
				_ = gcsWriter.Close()
				return fmt.Errorf("io.Copy to GCS failed: %w", err)
			}

			if err := gcsWriter.Close(); err != nil {
				return fmt.Errorf("failed to close GCS writer (finalize upload): %w", err)
			}
			return nil
		}()

		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", destObject,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", destObject, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "gcsObject", destObject, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", destObject, lastErr)
}

func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
