package models

import "fmt"

// The delivery pipeline surfaces a small, fixed error taxonomy. Generation,
// fetch and merge failures abort the current pipeline and are retryable from
// an idle state; audit failures are reported to diagnostics only and never
// reach the user.

// DocumentGenerationError means the disclaimer cover page could not be built.
type DocumentGenerationError struct {
	Err error
}

func (e *DocumentGenerationError) Error() string {
	return fmt.Sprintf("failed to prepare document: %v", e.Err)
}

func (e *DocumentGenerationError) Unwrap() error { return e.Err }

// DocumentFetchError means the remote document could not be retrieved,
// typically because the signed URL expired or the network failed. The
// pipeline must restart from a fresh signed URL, never retry the stale one.
type DocumentFetchError struct {
	StatusCode int
	Err        error
}

func (e *DocumentFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch document: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch document: %v", e.Err)
}

func (e *DocumentFetchError) Unwrap() error { return e.Err }

// DocumentMergeError means malformed bytes on either side of the merge.
// No partial output is ever returned.
type DocumentMergeError struct {
	Err error
}

func (e *DocumentMergeError) Error() string {
	return fmt.Sprintf("failed to prepare document: %v", e.Err)
}

func (e *DocumentMergeError) Unwrap() error { return e.Err }

// AuditLogError means the durable download log write failed. It is always
// swallowed relative to the user-facing action.
type AuditLogError struct {
	Err error
}

func (e *AuditLogError) Error() string {
	return fmt.Sprintf("failed to write download log: %v", e.Err)
}

func (e *AuditLogError) Unwrap() error { return e.Err }

// ViewerLoadError is terminal for a viewer session; the only recovery is
// closing the viewer and restarting the pipeline.
type ViewerLoadError struct {
	Err error
}

func (e *ViewerLoadError) Error() string {
	return fmt.Sprintf("failed to load document: %v", e.Err)
}

func (e *ViewerLoadError) Unwrap() error { return e.Err }
