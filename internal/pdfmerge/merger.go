// Package pdfmerge combines the generated cover page with the purchased
// report fetched from its signed URL, producing a single in-memory document
// that is either downloaded or handed to the secure viewer. Merged bytes are
// never persisted.
package pdfmerge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/bambooreports/securedelivery/internal/models"
)

// Merger fetches remote documents and prepends cover pages to them.
type Merger struct {
	httpClient *http.Client
	conf       *model.Configuration
}

func NewMerger() *Merger {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Merger{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		conf:       conf,
	}
}

// WithCoverPage fetches the document behind remoteURL and returns the bytes
// of [cover pages] + [original pages], order preserved on both sides. A
// failed or non-2xx fetch returns a DocumentFetchError; malformed bytes on
// either side return a DocumentMergeError. No partial output is returned.
func (m *Merger) WithCoverPage(ctx context.Context, coverBytes []byte, remoteURL string) ([]byte, error) {
	original, err := m.fetch(ctx, remoteURL)
	if err != nil {
		return nil, err
	}

	if err := api.Validate(bytes.NewReader(coverBytes), m.conf); err != nil {
		return nil, &models.DocumentMergeError{Err: fmt.Errorf("invalid cover page: %w", err)}
	}
	if err := api.Validate(bytes.NewReader(original), m.conf); err != nil {
		return nil, &models.DocumentMergeError{Err: fmt.Errorf("invalid source document: %w", err)}
	}

	var merged bytes.Buffer
	readers := []io.ReadSeeker{bytes.NewReader(coverBytes), bytes.NewReader(original)}
	if err := api.MergeRaw(readers, &merged, false, m.conf); err != nil {
		return nil, &models.DocumentMergeError{Err: fmt.Errorf("merge: %w", err)}
	}

	slog.Debug("Merged cover page with source document.", "mergedSize", merged.Len())
	return merged.Bytes(), nil
}

// PageCount reports the number of pages in a document held in memory.
func (m *Merger) PageCount(doc []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(doc), m.conf)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return n, nil
}

func (m *Merger) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &models.DocumentFetchError{Err: err}
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &models.DocumentFetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.DocumentFetchError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.DocumentFetchError{Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}
