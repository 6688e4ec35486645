package models

// These structs define the JSON payloads exchanged between the delivery API
// function and its callers.

// DocumentListResponse is returned for the plan content list view.
type DocumentListResponse struct {
	PlanName  string         `json:"planName"`
	Documents []PlanDocument `json:"documents"`
}

// ViewerSessionResponse describes a freshly opened secure viewer session.
type ViewerSessionResponse struct {
	SessionID   string  `json:"sessionId"`
	DocumentID  string  `json:"documentId"`
	Title       string  `json:"title"`
	PageCount   int     `json:"pageCount"`
	CurrentPage int     `json:"currentPage"`
	ZoomScale   float64 `json:"zoomScale"`
	Theme       string  `json:"theme"`
	Watermark   string  `json:"watermark"`
}

// DownloadStats summarizes a filtered download history listing.
type DownloadStats struct {
	TotalDownloads  int             `json:"totalDownloads"`
	UniqueDocuments int             `json:"uniqueDocuments"`
	MostDownloaded  *MostDownloaded `json:"mostDownloaded"`
}

// MostDownloaded identifies the document with the highest entry count after
// filtering, ties broken by first-encountered order.
type MostDownloaded struct {
	DocumentID string `json:"documentId"`
	Title      string `json:"title"`
	Count      int    `json:"count"`
}

// HistoryEntry is a DownloadLogEntry decorated with parsed device facts for
// the history listing.
type HistoryEntry struct {
	DownloadLogEntry
	Device        string `json:"device"`
	Browser       string `json:"browser"`
	OS            string `json:"os"`
	DownloadedAgo string `json:"downloadedAgo"`
}

// HistoryResponse is the download-history listing plus its summary.
type HistoryResponse struct {
	Downloads []HistoryEntry `json:"downloads"`
	Stats     DownloadStats  `json:"stats"`
}

// ErrorResponse is the uniform JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
