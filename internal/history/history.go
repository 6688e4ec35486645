// Package history reads and summarizes the download audit trail.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bambooreports/securedelivery/internal/models"
)

// DateRange selects a relative window over the audit trail.
type DateRange string

const (
	RangeAll    DateRange = "all"
	RangeToday  DateRange = "today"
	Range7Days  DateRange = "7days"
	Range30Days DateRange = "30days"
)

// Start returns the inclusive lower bound of the range relative to now.
// "today" means local midnight to now; the day windows are rolling. The
// second return is false for the unbounded all-time range.
func (r DateRange) Start(now time.Time) (time.Time, bool) {
	switch r {
	case RangeToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), true
	case Range7Days:
		return now.AddDate(0, 0, -7), true
	case Range30Days:
		return now.AddDate(0, 0, -30), true
	default:
		return time.Time{}, false
	}
}

// Filters narrows a history listing. Zero values mean no filtering.
type Filters struct {
	Search    string
	DateRange DateRange
	PlanName  string
}

// Store is the audit-trail read contract.
type Store interface {
	ListByUser(ctx context.Context, userID string, since time.Time, planName string) ([]models.DownloadLogEntry, error)
}

// Service lists and filters a user's download history.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// List returns the user's audit rows matching the filters, newest first.
// Date-window and plan filters push down to the store query; the free-text
// title search is applied in memory.
func (s *Service) List(ctx context.Context, userID string, f Filters) ([]models.DownloadLogEntry, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID is required")
	}

	var since time.Time
	if start, bounded := f.DateRange.Start(s.now()); bounded {
		since = start
	}

	entries, err := s.store.ListByUser(ctx, userID, since, f.PlanName)
	if err != nil {
		return nil, fmt.Errorf("failed to load download history: %w", err)
	}

	if f.Search == "" {
		return entries, nil
	}
	needle := strings.ToLower(f.Search)
	filtered := entries[:0]
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.DocumentTitle), needle) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// Summarize computes the listing's headline stats. MostDownloaded is nil
// for an empty listing; ties break toward the first-encountered document.
func Summarize(entries []models.DownloadLogEntry) models.DownloadStats {
	stats := models.DownloadStats{TotalDownloads: len(entries)}
	if len(entries) == 0 {
		return stats
	}

	counts := make(map[string]int)
	titles := make(map[string]string)
	var order []string
	for _, e := range entries {
		if _, seen := counts[e.DocumentID]; !seen {
			order = append(order, e.DocumentID)
			titles[e.DocumentID] = e.DocumentTitle
		}
		counts[e.DocumentID]++
	}

	stats.UniqueDocuments = len(order)
	top := order[0]
	for _, id := range order[1:] {
		if counts[id] > counts[top] {
			top = id
		}
	}
	stats.MostDownloaded = &models.MostDownloaded{
		DocumentID: top,
		Title:      titles[top],
		Count:      counts[top],
	}
	return stats
}

// FormatDownloadedAgo renders a timestamp relative to now for the history
// listing, falling back to an absolute date past a week.
func FormatDownloadedAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "Yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("Jan 2, 2006 15:04")
	}
}
