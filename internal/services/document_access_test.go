package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bambooreports/securedelivery/internal/disclaimer"
	"github.com/bambooreports/securedelivery/internal/models"
)

type fakeCatalog struct {
	docs map[string]*models.PlanDocument
}

func (f *fakeCatalog) DocumentByID(ctx context.Context, id string) (*models.PlanDocument, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("plan document %s not found", id)
	}
	return doc, nil
}

func (f *fakeCatalog) DocumentsByPlan(ctx context.Context, planName string) ([]models.PlanDocument, error) {
	var out []models.PlanDocument
	for _, d := range f.docs {
		if d.PlanName == planName && d.IsActive {
			out = append(out, *d)
		}
	}
	return out, nil
}

type fakeIssuer struct {
	url    string
	issued atomic.Int32
}

func (f *fakeIssuer) Issue(ctx context.Context, bucket, object string) (models.SignedAccessURL, error) {
	f.issued.Add(1)
	return models.SignedAccessURL{URL: f.url, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []models.DownloadLogEntry
	failErr error
}

func (f *fakeAudit) Insert(ctx context.Context, entry models.DownloadLogEntry) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.mu.Lock()
	f.entries = append(f.entries, entry)
	f.mu.Unlock()
	return nil
}

type slowAudit struct {
	inner *fakeAudit
	delay time.Duration
}

func (s *slowAudit) Insert(ctx context.Context, entry models.DownloadLogEntry) error {
	time.Sleep(s.delay)
	return s.inner.Insert(ctx, entry)
}

type fakeGeo struct {
	mu       sync.Mutex
	askedFor []string
	info     *models.GeoInfo
	delay    time.Duration
}

func (g *fakeGeo) Lookup(ctx context.Context, ip string) *models.GeoInfo {
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	g.mu.Lock()
	g.askedFor = append(g.askedFor, ip)
	g.mu.Unlock()
	return g.info
}

func testUser() models.UserIdentity {
	return models.UserIdentity{ID: "user-1", Email: "ada@example.com", DisplayName: "Ada Lovelace"}
}

func testDocument() *models.PlanDocument {
	return &models.PlanDocument{
		ID:            "doc-1",
		PlanName:      "Explorer",
		DocumentType:  models.DocumentTypePDF,
		Title:         "Q2 Snapshot",
		FilePath:      "reports/Explorer/q2-snapshot.pdf",
		StorageBucket: "bamboo-reports",
		IsActive:      true,
	}
}

// reportServer serves a small valid PDF as the stand-in for the object
// behind a signed URL.
func reportServer(t *testing.T) *httptest.Server {
	t.Helper()
	pdf, err := disclaimer.Generate(models.DisclaimerRequest{
		ReportTitle:   "stand-in report body",
		GeneratedAt:   "January 2, 2026 3:04:05 PM UTC",
		LicenseeName:  "fixture",
		LicenseeEmail: "fixture@example.com",
	})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdf)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestAccess(t *testing.T, url string, audit *fakeAudit) (*DocumentAccessFunction, *fakeIssuer) {
	t.Helper()
	issuer := &fakeIssuer{url: url}
	f := newDocumentAccess(
		&fakeCatalog{docs: map[string]*models.PlanDocument{"doc-1": testDocument()}},
		issuer,
		audit,
		nil,
	)
	f.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	return f, issuer
}

func TestDownload_Success(t *testing.T) {
	srv := reportServer(t)
	audit := &fakeAudit{}
	f, issuer := newTestAccess(t, srv.URL, audit)

	result, err := f.Download(context.Background(), testUser(), "doc-1", "test-agent", "203.0.113.9")
	require.NoError(t, err)

	assert.Equal(t, "Q2_Snapshot_Explorer.pdf", result.Filename)
	count, err := f.merger.PageCount(result.PDF)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "cover page plus the one-page report")

	f.audits.Wait()
	require.Len(t, audit.entries, 1, "exactly one audit row per download")
	entry := audit.entries[0]
	assert.Equal(t, "user-1", entry.UserID)
	assert.Equal(t, "ada@example.com", entry.UserEmail)
	assert.Equal(t, "doc-1", entry.DocumentID)
	assert.Equal(t, "Q2 Snapshot", entry.DocumentTitle)
	assert.Equal(t, "Explorer", entry.PlanName)
	assert.Equal(t, "test-agent", entry.UserAgent)
	assert.Equal(t, "203.0.113.9", entry.IPAddress, "the audit row records the downloading client, not this host")
	assert.Equal(t, f.now(), entry.DownloadedAt)

	assert.Equal(t, int32(1), issuer.issued.Load())
	assert.Equal(t, StageIdle, f.Stage("doc-1"))
}

func TestDownload_RequiresIdentity(t *testing.T) {
	srv := reportServer(t)
	f, _ := newTestAccess(t, srv.URL, &fakeAudit{})

	_, err := f.Download(context.Background(), models.UserIdentity{}, "doc-1", "", "")
	require.Error(t, err)
}

func TestDownload_UnknownDocument(t *testing.T) {
	srv := reportServer(t)
	f, _ := newTestAccess(t, srv.URL, &fakeAudit{})

	_, err := f.Download(context.Background(), testUser(), "missing", "", "")
	require.Error(t, err)
	assert.Equal(t, StageIdle, f.Stage("missing"))
}

func TestDownload_TableDocumentRejected(t *testing.T) {
	srv := reportServer(t)
	audit := &fakeAudit{}
	f, _ := newTestAccess(t, srv.URL, audit)
	f.catalog.(*fakeCatalog).docs["tbl-1"] = &models.PlanDocument{
		ID:           "tbl-1",
		PlanName:     "Explorer",
		DocumentType: models.DocumentTypeTable,
		Title:        "Interactive Table",
		IsActive:     true,
	}

	_, err := f.Download(context.Background(), testUser(), "tbl-1", "", "")
	require.Error(t, err)
	assert.Empty(t, audit.entries)
}

func TestDownload_ExpiredURLRestartsWithFreshOne(t *testing.T) {
	pdf, err := disclaimer.Generate(models.DisclaimerRequest{
		ReportTitle:   "stand-in report body",
		GeneratedAt:   "January 2, 2026 3:04:05 PM UTC",
		LicenseeName:  "fixture",
		LicenseeEmail: "fixture@example.com",
	})
	require.NoError(t, err)

	var expired atomic.Bool
	expired.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if expired.Load() {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write(pdf)
	}))
	t.Cleanup(srv.Close)

	audit := &fakeAudit{}
	f, issuer := newTestAccess(t, srv.URL, audit)

	_, err = f.Download(context.Background(), testUser(), "doc-1", "", "")
	require.Error(t, err)
	var fetchErr *models.DocumentFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusForbidden, fetchErr.StatusCode)
	assert.Empty(t, audit.entries, "a failed pipeline writes no audit row")
	assert.Equal(t, StageIdle, f.Stage("doc-1"), "a failed download is retryable from idle")

	expired.Store(false)
	_, err = f.Download(context.Background(), testUser(), "doc-1", "", "")
	require.NoError(t, err)
	f.audits.Wait()
	assert.Equal(t, int32(2), issuer.issued.Load(), "retry issues a fresh signed URL")
	assert.Equal(t, StageIdle, f.Stage("doc-1"))
}

func TestDownload_AuditFailureDoesNotFailDownload(t *testing.T) {
	srv := reportServer(t)
	audit := &fakeAudit{failErr: &models.AuditLogError{Err: fmt.Errorf("firestore unavailable")}}
	f, _ := newTestAccess(t, srv.URL, audit)

	result, err := f.Download(context.Background(), testUser(), "doc-1", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.PDF)
	f.audits.Wait()
	assert.Equal(t, StageIdle, f.Stage("doc-1"))
}

func TestDownload_ReturnsBeforeAuditLegCompletes(t *testing.T) {
	srv := reportServer(t)
	audit := &fakeAudit{}
	f, _ := newTestAccess(t, srv.URL, audit)
	f.audit = &slowAudit{inner: audit, delay: 1500 * time.Millisecond}
	f.geo = &fakeGeo{delay: 1500 * time.Millisecond, info: &models.GeoInfo{City: "Lisbon", Country: "Portugal"}}

	start := time.Now()
	result, err := f.Download(context.Background(), testUser(), "doc-1", "test-agent", "203.0.113.9")
	require.NoError(t, err)
	assert.NotEmpty(t, result.PDF)
	assert.Less(t, time.Since(start), time.Second,
		"the bytes must not wait on the geo lookup or the audit insert")

	f.audits.Wait()
	require.Len(t, audit.entries, 1, "the detached audit write still lands")
	assert.Equal(t, "203.0.113.9", audit.entries[0].IPAddress)
	assert.Equal(t, StageIdle, f.Stage("doc-1"))
}

func TestDownload_GeoEnrichesAuditRowWithClientAddress(t *testing.T) {
	srv := reportServer(t)
	audit := &fakeAudit{}
	f, _ := newTestAccess(t, srv.URL, audit)
	geo := &fakeGeo{info: &models.GeoInfo{IP: "203.0.113.9", City: "Lisbon", Region: "Lisboa", Country: "Portugal"}}
	f.geo = geo

	_, err := f.Download(context.Background(), testUser(), "doc-1", "test-agent", "203.0.113.9")
	require.NoError(t, err)
	f.audits.Wait()

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "203.0.113.9", audit.entries[0].IPAddress)
	assert.Equal(t, "Lisbon, Lisboa, Portugal", audit.entries[0].Location)
	assert.Equal(t, []string{"203.0.113.9"}, geo.askedFor, "the lookup targets the client address, never this host's own")
}

func TestDownload_NoGeoLookupWithoutClientAddress(t *testing.T) {
	srv := reportServer(t)
	audit := &fakeAudit{}
	f, _ := newTestAccess(t, srv.URL, audit)
	geo := &fakeGeo{info: &models.GeoInfo{IP: "198.51.100.1"}}
	f.geo = geo

	_, err := f.Download(context.Background(), testUser(), "doc-1", "test-agent", "")
	require.NoError(t, err)
	f.audits.Wait()

	require.Len(t, audit.entries, 1)
	assert.Empty(t, audit.entries[0].IPAddress)
	assert.Empty(t, geo.askedFor, "an unknown client address stays unknown rather than recording this host")
}

func TestOpenViewer_Success(t *testing.T) {
	srv := reportServer(t)
	f, _ := newTestAccess(t, srv.URL, &fakeAudit{})

	sessionID, session, err := f.OpenViewer(context.Background(), testUser(), "doc-1")
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	assert.Equal(t, "ada@example.com", session.Watermark())
	assert.Equal(t, "Q2 Snapshot", session.Title())
	assert.Equal(t, 2, session.PageCount())
	assert.Equal(t, StageReady, f.Stage("doc-1"))

	got, err := f.Viewers().Get(sessionID)
	require.NoError(t, err)
	assert.Same(t, session, got)
}

func TestOpenViewer_FetchFailureParksInFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)
	f, _ := newTestAccess(t, srv.URL, &fakeAudit{})

	_, _, err := f.OpenViewer(context.Background(), testUser(), "doc-1")
	require.Error(t, err)
	assert.Equal(t, StageFailed, f.Stage("doc-1"))
}

func TestOpenViewer_DoesNotLogAccess(t *testing.T) {
	srv := reportServer(t)
	audit := &fakeAudit{}
	f, _ := newTestAccess(t, srv.URL, audit)

	_, _, err := f.OpenViewer(context.Background(), testUser(), "doc-1")
	require.NoError(t, err)
	assert.Empty(t, audit.entries, "viewing is not a download")
}

func TestDocumentsForPlan(t *testing.T) {
	srv := reportServer(t)
	f, _ := newTestAccess(t, srv.URL, &fakeAudit{})

	docs, err := f.DocumentsForPlan(context.Background(), "Explorer")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-1", docs[0].ID)
}
