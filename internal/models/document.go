package models

import "time"

// DocumentType distinguishes downloadable PDF reports from documents that
// route to the interactive table view instead of the PDF pipeline.
type DocumentType string

const (
	DocumentTypePDF   DocumentType = "pdf"
	DocumentTypeTable DocumentType = "table"
)

// PlanDocument is a purchasable artifact in the plan_documents catalog.
// Catalog rows are read-only to the delivery pipeline; the report ingestor
// is the only writer.
type PlanDocument struct {
	ID            string       `firestore:"-"`
	PlanName      string       `firestore:"planName"`
	DocumentType  DocumentType `firestore:"documentType"`
	Title         string       `firestore:"title"`
	Description   string       `firestore:"description,omitempty"`
	FilePath      string       `firestore:"filePath,omitempty"`
	StorageBucket string       `firestore:"storageBucket,omitempty"`
	DisplayOrder  int          `firestore:"displayOrder"`
	IsActive      bool         `firestore:"isActive"`
	PageCount     int          `firestore:"pageCount,omitempty"`
	FileHash      string       `firestore:"fileHash,omitempty"`
	CreatedAt     time.Time    `firestore:"createdAt,omitempty"`
}

// Deliverable reports whether the document can enter the PDF pipeline.
// Table-type documents carry no storage coordinates.
func (d *PlanDocument) Deliverable() bool {
	return d.DocumentType == DocumentTypePDF && d.FilePath != "" && d.StorageBucket != ""
}

// DownloadLogEntry is the append-only audit record written after every
// successful download or re-download. Entries are never mutated or deleted.
type DownloadLogEntry struct {
	ID            string    `firestore:"-"`
	UserID        string    `firestore:"userId"`
	UserEmail     string    `firestore:"userEmail"`
	DocumentID    string    `firestore:"documentId"`
	DocumentTitle string    `firestore:"documentTitle"`
	PlanName      string    `firestore:"planName"`
	UserAgent     string    `firestore:"userAgent,omitempty"`
	IPAddress     string    `firestore:"ipAddress,omitempty"`
	Location      string    `firestore:"location,omitempty"`
	DownloadedAt  time.Time `firestore:"downloadedAt"`
}

// DisclaimerRequest carries the facts rendered onto the licensing cover
// page. PlanName and DocumentID are optional; absent fields produce no line
// in the output. The request is consumed once and discarded.
type DisclaimerRequest struct {
	ReportTitle   string
	GeneratedAt   string
	PlanName      string
	DocumentID    string
	LicenseeName  string
	LicenseeEmail string
}

// UserIdentity is the current user as supplied by the external auth layer.
type UserIdentity struct {
	ID          string
	Email       string
	DisplayName string
}

// SignedAccessURL is a time-boxed read credential issued per operation by
// the storage layer. It must never be cached or reused across pipelines.
type SignedAccessURL struct {
	URL       string
	ExpiresAt time.Time
}

// GeoInfo is a best-effort IP geolocation result.
type GeoInfo struct {
	IP      string `json:"ip"`
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
	Country string `json:"country,omitempty"`
}
