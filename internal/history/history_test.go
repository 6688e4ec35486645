package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bambooreports/securedelivery/internal/models"
)

type fakeStore struct {
	entries   []models.DownloadLogEntry
	gotSince  time.Time
	gotPlan   string
	gotUserID string
}

func (f *fakeStore) ListByUser(ctx context.Context, userID string, since time.Time, planName string) ([]models.DownloadLogEntry, error) {
	f.gotUserID = userID
	f.gotSince = since
	f.gotPlan = planName

	var out []models.DownloadLogEntry
	for _, e := range f.entries {
		if !since.IsZero() && e.DownloadedAt.Before(since) {
			continue
		}
		if planName != "" && e.PlanName != planName {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func entry(docID, title string, at time.Time) models.DownloadLogEntry {
	return models.DownloadLogEntry{
		UserID:        "user-1",
		DocumentID:    docID,
		DocumentTitle: title,
		PlanName:      "Explorer",
		DownloadedAt:  at,
	}
}

func TestList_RequiresUserID(t *testing.T) {
	svc := NewService(&fakeStore{})
	_, err := svc.List(context.Background(), "", Filters{})
	require.Error(t, err)
}

func TestList_DateRangeToday(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{entries: []models.DownloadLogEntry{
		entry("a", "Recent", now.Add(-time.Hour)),
		entry("b", "Stale", now.Add(-25*time.Hour)),
	}}
	svc := NewService(store)
	svc.now = func() time.Time { return now }

	got, err := svc.List(context.Background(), "user-1", Filters{DateRange: RangeToday})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].DocumentID)
	assert.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), store.gotSince)
}

func TestList_SearchFiltersByTitle(t *testing.T) {
	now := time.Now()
	store := &fakeStore{entries: []models.DownloadLogEntry{
		entry("a", "Q2 Snapshot", now),
		entry("b", "Market Overview", now),
		entry("c", "Q2 snapshot appendix", now),
	}}
	svc := NewService(store)

	got, err := svc.List(context.Background(), "user-1", Filters{Search: "q2 SNAP"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].DocumentID)
	assert.Equal(t, "c", got[1].DocumentID)
}

func TestList_PlanFilterPushesDown(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	_, err := svc.List(context.Background(), "user-1", Filters{PlanName: "Pro"})
	require.NoError(t, err)
	assert.Equal(t, "Pro", store.gotPlan)
	assert.True(t, store.gotSince.IsZero(), "all-time range sets no lower bound")
}

func TestSummarize_Empty(t *testing.T) {
	stats := Summarize(nil)
	assert.Zero(t, stats.TotalDownloads)
	assert.Zero(t, stats.UniqueDocuments)
	assert.Nil(t, stats.MostDownloaded)
}

func TestSummarize_CountsAndTopDocument(t *testing.T) {
	now := time.Now()
	stats := Summarize([]models.DownloadLogEntry{
		entry("a", "Q2 Snapshot", now),
		entry("b", "Market Overview", now),
		entry("b", "Market Overview", now),
		entry("c", "Appendix", now),
	})

	assert.Equal(t, 4, stats.TotalDownloads)
	assert.Equal(t, 3, stats.UniqueDocuments)
	require.NotNil(t, stats.MostDownloaded)
	assert.Equal(t, "b", stats.MostDownloaded.DocumentID)
	assert.Equal(t, "Market Overview", stats.MostDownloaded.Title)
	assert.Equal(t, 2, stats.MostDownloaded.Count)
}

func TestSummarize_TieBreaksToFirstSeen(t *testing.T) {
	now := time.Now()
	stats := Summarize([]models.DownloadLogEntry{
		entry("a", "First", now),
		entry("b", "Second", now),
	})

	require.NotNil(t, stats.MostDownloaded)
	assert.Equal(t, "a", stats.MostDownloaded.DocumentID)
}

func TestDateRange_Start(t *testing.T) {
	now := time.Date(2026, 8, 30, 15, 30, 0, 0, time.UTC)

	start, bounded := RangeToday.Start(now)
	assert.True(t, bounded)
	assert.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), start)

	start, bounded = Range7Days.Start(now)
	assert.True(t, bounded)
	assert.Equal(t, now.AddDate(0, 0, -7), start)

	start, bounded = Range30Days.Start(now)
	assert.True(t, bounded)
	assert.Equal(t, now.AddDate(0, 0, -30), start)

	_, bounded = RangeAll.Start(now)
	assert.False(t, bounded)
}

func TestFormatDownloadedAgo(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "Just now"},
		{now.Add(-time.Minute), "1 minute ago"},
		{now.Add(-5 * time.Minute), "5 minutes ago"},
		{now.Add(-time.Hour), "1 hour ago"},
		{now.Add(-7 * time.Hour), "7 hours ago"},
		{now.Add(-30 * time.Hour), "Yesterday"},
		{now.Add(-3 * 24 * time.Hour), "3 days ago"},
		{time.Date(2026, 7, 1, 9, 30, 0, 0, time.UTC), "Jul 1, 2026 09:30"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDownloadedAgo(tt.at, now))
	}
}
