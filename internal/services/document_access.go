package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/bambooreports/securedelivery/internal/disclaimer"
	"github.com/bambooreports/securedelivery/internal/gcp"
	"github.com/bambooreports/securedelivery/internal/history"
	"github.com/bambooreports/securedelivery/internal/models"
	"github.com/bambooreports/securedelivery/internal/pdfmerge"
	"github.com/bambooreports/securedelivery/internal/viewer"
)

// Stage is the observable position of a document pipeline. The view and
// download paths share the first three stages; view ends at Ready, download
// runs through TriggeringDownload and best-effort LoggingAccess back to Idle.
type Stage string

const (
	StageIdle               Stage = "idle"
	StageFetchingSignedURL  Stage = "fetching_signed_url"
	StageGeneratingCover    Stage = "generating_cover"
	StageMerging            Stage = "merging"
	StageReady              Stage = "ready"
	StageTriggeringDownload Stage = "triggering_download"
	StageLoggingAccess      Stage = "logging_access"
	StageFailed             Stage = "failed"
)

const timestampLayout = "January 2, 2006 3:04:05 PM MST"

// Catalog is the plan_documents read contract.
type Catalog interface {
	DocumentByID(ctx context.Context, id string) (*models.PlanDocument, error)
	DocumentsByPlan(ctx context.Context, planName string) ([]models.PlanDocument, error)
}

// SignedURLIssuer mints a fresh time-boxed URL per pipeline entry.
type SignedURLIssuer interface {
	Issue(ctx context.Context, bucket, object string) (models.SignedAccessURL, error)
}

// AuditStore accepts append-only download log inserts.
type AuditStore interface {
	Insert(ctx context.Context, entry models.DownloadLogEntry) error
}

// GeoLookup resolves an IP to coarse location facts best-effort; nil means
// unavailable.
type GeoLookup interface {
	Lookup(ctx context.Context, ip string) *models.GeoInfo
}

// DocumentAccessConfig holds the orchestrator's environment configuration.
type DocumentAccessConfig struct {
	CatalogCollection string
	AuditCollection   string
}

// DocumentAccessFunction orchestrates the secured-document pipeline:
// signed URL, cover page, merge, then download or viewer hand-off.
type DocumentAccessFunction struct {
	catalog Catalog
	urls    SignedURLIssuer
	audit   AuditStore
	geo     GeoLookup
	merger  *pdfmerge.Merger
	viewers *viewer.Registry

	// group collapses a burst of requests for the same user+document into
	// one pipeline run: one signed URL fetch, one audit row.
	group  singleflight.Group
	mu     sync.Mutex
	stages map[string]Stage

	// audits tracks the detached audit writes still in flight.
	audits sync.WaitGroup

	now func() time.Time
}

// NewDocumentAccess wires the orchestrator against Firestore and Cloud
// Storage using environment configuration.
func NewDocumentAccess(ctx context.Context) (*DocumentAccessFunction, error) {
	config := DocumentAccessConfig{
		CatalogCollection: gcp.GetEnv("CATALOG_COLLECTION", "plan_documents"),
		AuditCollection:   gcp.GetEnv("AUDIT_COLLECTION", "download_logs"),
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}

	f := newDocumentAccess(
		gcp.NewCatalog(firestoreClient, config.CatalogCollection),
		gcp.NewSignedURLIssuer(storageClient),
		gcp.NewAuditLog(firestoreClient, config.AuditCollection),
		history.NewGeoClient(gcp.GetEnv("GEO_ENDPOINT", "")),
	)
	slog.Info("Document access logic initialized.", "catalogCollection", config.CatalogCollection)
	return f, nil
}

func newDocumentAccess(catalog Catalog, urls SignedURLIssuer, audit AuditStore, geo GeoLookup) *DocumentAccessFunction {
	return &DocumentAccessFunction{
		catalog: catalog,
		urls:    urls,
		audit:   audit,
		geo:     geo,
		merger:  pdfmerge.NewMerger(),
		viewers: viewer.NewRegistry(),
		stages:  make(map[string]Stage),
		now:     time.Now,
	}
}

// Viewers exposes the registry of open viewer sessions.
func (f *DocumentAccessFunction) Viewers() *viewer.Registry { return f.viewers }

// DocumentsForPlan lists the active documents of a purchased plan.
func (f *DocumentAccessFunction) DocumentsForPlan(ctx context.Context, planName string) ([]models.PlanDocument, error) {
	return f.catalog.DocumentsByPlan(ctx, planName)
}

// Stage reports the pipeline stage last observed for a document ID.
func (f *DocumentAccessFunction) Stage(documentID string) Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.stages[documentID]; ok {
		return s
	}
	return StageIdle
}

func (f *DocumentAccessFunction) setStage(documentID string, s Stage) {
	f.mu.Lock()
	f.stages[documentID] = s
	f.mu.Unlock()
}

// DownloadResult is a merged document ready for the browser download
// trigger.
type DownloadResult struct {
	Filename string
	PDF      []byte
}

// Download runs the full download pipeline for one user action and returns
// the merged bytes plus the derived filename. Audit logging is dispatched as
// a detached task once the merge succeeds: it never delays the returned
// bytes, and its failure never surfaces here.
func (f *DocumentAccessFunction) Download(ctx context.Context, user models.UserIdentity, documentID, userAgent, clientIP string) (*DownloadResult, error) {
	if user.ID == "" || user.Email == "" {
		return nil, fmt.Errorf("download requires an authenticated user")
	}

	v, err, _ := f.group.Do(user.ID+"/"+documentID, func() (interface{}, error) {
		doc, merged, err := f.prepareMerged(ctx, user, documentID)
		if err != nil {
			// A failed download discards its in-flight state and is
			// immediately retryable from the top of the pipeline.
			f.setStage(documentID, StageIdle)
			return nil, err
		}

		f.setStage(documentID, StageTriggeringDownload)
		result := &DownloadResult{
			Filename: pdfmerge.DownloadFilename(doc.Title, doc.PlanName),
			PDF:      merged,
		}

		// The audit write outlives the request: it must finish even if
		// the caller disconnects the moment the bytes land.
		auditCtx := context.WithoutCancel(ctx)
		f.audits.Add(1)
		go func() {
			defer f.audits.Done()
			f.logAccess(auditCtx, user, doc, userAgent, clientIP)
			f.setStage(documentID, StageIdle)
		}()
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*DownloadResult), nil
}

// OpenViewer runs the view pipeline and hands the merged document to a new
// secure viewer session, returning the session ID.
func (f *DocumentAccessFunction) OpenViewer(ctx context.Context, user models.UserIdentity, documentID string) (string, *viewer.Session, error) {
	if user.ID == "" || user.Email == "" {
		return "", nil, fmt.Errorf("viewing requires an authenticated user")
	}

	type opened struct {
		id      string
		session *viewer.Session
	}
	v, err, _ := f.group.Do(user.ID+"/view/"+documentID, func() (interface{}, error) {
		doc, merged, err := f.prepareMerged(ctx, user, documentID)
		if err != nil {
			return nil, err
		}

		session, err := viewer.NewSession(user.Email, doc.Title)
		if err != nil {
			f.setStage(documentID, StageFailed)
			return nil, err
		}
		if err := session.Load(merged); err != nil {
			f.setStage(documentID, StageFailed)
			return nil, err
		}

		f.setStage(documentID, StageReady)
		return &opened{id: f.viewers.Add(session), session: session}, nil
	})
	if err != nil {
		return "", nil, err
	}
	o := v.(*opened)
	return o.id, o.session, nil
}

// prepareMerged is the shared front half of both pipelines: fresh signed
// URL, cover page, merge. The signed URL and the cover page are independent
// legs and run concurrently; the merge strictly follows both.
func (f *DocumentAccessFunction) prepareMerged(ctx context.Context, user models.UserIdentity, documentID string) (*models.PlanDocument, []byte, error) {
	logCtx := slog.With("documentId", documentID, "userId", user.ID)

	f.setStage(documentID, StageFetchingSignedURL)
	doc, err := f.catalog.DocumentByID(ctx, documentID)
	if err != nil {
		f.setStage(documentID, StageFailed)
		logCtx.Error("Failed to resolve plan document.", "error", err)
		return nil, nil, err
	}
	if !doc.Deliverable() {
		f.setStage(documentID, StageFailed)
		return nil, nil, fmt.Errorf("document %s does not route to the PDF pipeline", documentID)
	}

	var signed models.SignedAccessURL
	var cover []byte
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		signed, err = f.urls.Issue(gctx, doc.StorageBucket, doc.FilePath)
		return err
	})
	eg.Go(func() error {
		f.setStage(documentID, StageGeneratingCover)
		var err error
		cover, err = disclaimer.Generate(models.DisclaimerRequest{
			ReportTitle:   doc.Title,
			GeneratedAt:   f.now().Format(timestampLayout),
			PlanName:      doc.PlanName,
			DocumentID:    doc.ID,
			LicenseeName:  licenseeName(user),
			LicenseeEmail: user.Email,
		})
		return err
	})
	if err := eg.Wait(); err != nil {
		f.setStage(documentID, StageFailed)
		logCtx.Error("Pipeline preparation failed.", "error", err)
		return nil, nil, err
	}

	f.setStage(documentID, StageMerging)
	merged, err := f.merger.WithCoverPage(ctx, cover, signed.URL)
	if err != nil {
		f.setStage(documentID, StageFailed)
		logCtx.Error("Merge failed; pipeline must restart from a fresh signed URL.", "error", err)
		return nil, nil, err
	}
	return doc, merged, nil
}

// logAccess appends the audit row for a completed download. The row records
// the downloading client's address as seen by the request layer, enriched
// with a best-effort location lookup. Failures are reported to diagnostics
// only; they never undo or fail the download.
func (f *DocumentAccessFunction) logAccess(ctx context.Context, user models.UserIdentity, doc *models.PlanDocument, userAgent, clientIP string) {
	f.setStage(doc.ID, StageLoggingAccess)

	entry := models.DownloadLogEntry{
		UserID:        user.ID,
		UserEmail:     user.Email,
		DocumentID:    doc.ID,
		DocumentTitle: doc.Title,
		PlanName:      doc.PlanName,
		UserAgent:     userAgent,
		IPAddress:     clientIP,
		DownloadedAt:  f.now(),
	}
	if f.geo != nil && clientIP != "" {
		if info := f.geo.Lookup(ctx, clientIP); info != nil {
			entry.Location = history.FormatLocation(info.City, info.Region, info.Country)
		}
	}

	if err := f.audit.Insert(ctx, entry); err != nil {
		slog.Error("Failed to record download log entry.", "documentId", doc.ID, "error", err)
	}
}

func licenseeName(user models.UserIdentity) string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return "User"
}
