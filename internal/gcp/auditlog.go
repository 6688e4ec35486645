package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/bambooreports/securedelivery/internal/models"
)

// AuditLog stores the append-only download_logs collection. Writes are
// insert-only; nothing in this system updates or deletes an entry.
type AuditLog struct {
	client     *firestore.Client
	collection string
}

func NewAuditLog(client *firestore.Client, collection string) *AuditLog {
	return &AuditLog{client: client, collection: collection}
}

// Insert appends one audit row. Callers treat failures as best-effort.
func (a *AuditLog) Insert(ctx context.Context, entry models.DownloadLogEntry) error {
	if _, _, err := a.client.Collection(a.collection).Add(ctx, entry); err != nil {
		return &models.AuditLogError{Err: fmt.Errorf("firestore insert: %w", err)}
	}
	return nil
}

// ListByUser returns a user's audit rows, newest first. A zero since means
// all-time; an empty planName matches every plan.
func (a *AuditLog) ListByUser(ctx context.Context, userID string, since time.Time, planName string) ([]models.DownloadLogEntry, error) {
	q := a.client.Collection(a.collection).
		Where("userId", "==", userID).
		OrderBy("downloadedAt", firestore.Desc)
	if !since.IsZero() {
		q = q.Where("downloadedAt", ">=", since)
	}
	if planName != "" {
		q = q.Where("planName", "==", planName)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var entries []models.DownloadLogEntry
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list download logs for %s: %w", userID, err)
		}
		var entry models.DownloadLogEntry
		if err := snap.DataTo(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode download log %s: %w", snap.Ref.ID, err)
		}
		entry.ID = snap.Ref.ID
		entries = append(entries, entry)
	}
	return entries, nil
}
