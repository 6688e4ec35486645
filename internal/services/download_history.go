package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bambooreports/securedelivery/internal/gcp"
	"github.com/bambooreports/securedelivery/internal/history"
	"github.com/bambooreports/securedelivery/internal/models"
)

// DownloadHistoryFunction serves a user's download trail: filtered listing,
// aggregate stats, and the re-download shortcut back into the pipeline.
type DownloadHistoryFunction struct {
	svc    *history.Service
	access *DocumentAccessFunction
	now    func() time.Time
}

// NewDownloadHistory wires the history function against the download_logs
// collection, sharing the already-initialized access orchestrator for
// re-downloads.
func NewDownloadHistory(ctx context.Context, access *DocumentAccessFunction) (*DownloadHistoryFunction, error) {
	auditCollection := gcp.GetEnv("AUDIT_COLLECTION", "download_logs")

	firestoreClient, err := gcp.NewFirestoreClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	f := newDownloadHistory(gcp.NewAuditLog(firestoreClient, auditCollection), access)
	slog.Info("Download history logic initialized.", "auditCollection", auditCollection)
	return f, nil
}

func newDownloadHistory(store history.Store, access *DocumentAccessFunction) *DownloadHistoryFunction {
	return &DownloadHistoryFunction{
		svc:    history.NewService(store),
		access: access,
		now:    time.Now,
	}
}

// List returns the user's download history newest first, decorated with
// parsed device facts and relative timestamps, plus summary stats computed
// over the same filtered set.
func (f *DownloadHistoryFunction) List(ctx context.Context, user models.UserIdentity, filters history.Filters) (*models.HistoryResponse, error) {
	if user.ID == "" {
		return nil, fmt.Errorf("history requires an authenticated user")
	}

	entries, err := f.svc.List(ctx, user.ID, filters)
	if err != nil {
		return nil, err
	}

	now := f.now()
	decorated := make([]models.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		device := history.ParseUserAgent(e.UserAgent)
		decorated = append(decorated, models.HistoryEntry{
			DownloadLogEntry: e,
			Device:           device.Device,
			Browser:          device.Browser,
			OS:               device.OS,
			DownloadedAgo:    history.FormatDownloadedAgo(e.DownloadedAt, now),
		})
	}

	return &models.HistoryResponse{
		Downloads: decorated,
		Stats:     history.Summarize(entries),
	}, nil
}

// Redownload re-enters the download pipeline for a past entry's document.
// The run is indistinguishable from a first download: fresh signed URL,
// fresh cover timestamp, and a new audit row.
func (f *DownloadHistoryFunction) Redownload(ctx context.Context, user models.UserIdentity, documentID, userAgent, clientIP string) (*DownloadResult, error) {
	if documentID == "" {
		return nil, fmt.Errorf("history entry has no document reference")
	}
	return f.access.Download(ctx, user, documentID, userAgent, clientIP)
}
