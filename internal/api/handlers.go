// Package api exposes the secured-document pipeline over HTTP: plan content
// listing, downloads, viewer sessions, and the download history.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bambooreports/securedelivery/internal/history"
	"github.com/bambooreports/securedelivery/internal/models"
	"github.com/bambooreports/securedelivery/internal/services"
	"github.com/bambooreports/securedelivery/internal/viewer"
)

// ViewMode is the content pane state, carried entirely in the request URL so
// navigation survives reloads and back/forward moves.
type ViewMode string

const (
	ViewModeList  ViewMode = "list"
	ViewModePDF   ViewMode = "pdf"
	ViewModeTable ViewMode = "table"
)

func parseViewMode(raw string) ViewMode {
	switch ViewMode(raw) {
	case ViewModePDF, ViewModeTable:
		return ViewMode(raw)
	default:
		return ViewModeList
	}
}

type handler struct {
	access  *services.DocumentAccessFunction
	history *services.DownloadHistoryFunction
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

// statusFor maps pipeline errors onto response codes. Expired signed URLs
// and upstream fetch failures are gateway errors; unknown catalog rows are
// not-founds; everything else is internal.
func statusFor(err error) int {
	var fetchErr *models.DocumentFetchError
	if errors.As(err, &fetchErr) {
		return http.StatusBadGateway
	}
	if status.Code(err) == codes.NotFound {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// content resolves the navigation state encoded in the URL query. A bare
// request lists the plan's documents; mode=pdf or mode=table plus doc=
// addresses one document directly.
func (h *handler) content(w http.ResponseWriter, r *http.Request) {
	planName := r.URL.Query().Get("plan")
	if planName == "" {
		writeError(w, http.StatusBadRequest, "plan query parameter is required")
		return
	}
	mode := parseViewMode(r.URL.Query().Get("mode"))
	documentID := r.URL.Query().Get("doc")
	if mode != ViewModeList && documentID == "" {
		mode = ViewModeList
	}

	docs, err := h.access.DocumentsForPlan(r.Context(), planName)
	if err != nil {
		slog.Error("Failed to list plan documents.", "planName", planName, "error", err)
		writeError(w, statusFor(err), "failed to list plan documents")
		return
	}
	if docs == nil {
		docs = []models.PlanDocument{}
	}

	writeJSON(w, http.StatusOK, struct {
		Mode       ViewMode `json:"mode"`
		DocumentID string   `json:"documentId,omitempty"`
		models.DocumentListResponse
	}{
		Mode:       mode,
		DocumentID: documentID,
		DocumentListResponse: models.DocumentListResponse{
			PlanName:  planName,
			Documents: docs,
		},
	})
}

func (h *handler) download(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")
	result, err := h.access.Download(r.Context(), identityFrom(r), documentID, r.UserAgent(), clientIP(r))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Write(result.PDF)
}

func (h *handler) stage(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, map[string]string{
		"documentId": documentID,
		"stage":      string(h.access.Stage(documentID)),
	})
}

func (h *handler) openViewer(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")
	sessionID, session, err := h.access.OpenViewer(r.Context(), identityFrom(r), documentID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse(sessionID, documentID, session))
}

func (h *handler) viewerState(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	session, err := h.access.Viewers().Get(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sessionID, "", session))
}

// viewerContent serves the stamped bytes for rendering. Inline disposition:
// the viewer is a view, not a download.
func (h *handler) viewerContent(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	session, err := h.access.Viewers().Get(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	doc, err := session.Bytes()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline")
	w.Write(doc)
}

func (h *handler) viewerAction(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	session, err := h.access.Viewers().Get(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := session.Err(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	switch path.Base(r.URL.Path) {
	case "next":
		session.NextPage()
	case "prev":
		session.PrevPage()
	case "zoom-in":
		session.ZoomIn()
	case "zoom-out":
		session.ZoomOut()
	case "theme":
		session.ToggleTheme()
	default:
		writeError(w, http.StatusNotFound, "unknown viewer action")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sessionID, "", session))
}

func (h *handler) closeViewer(w http.ResponseWriter, r *http.Request) {
	h.access.Viewers().Close(chi.URLParam(r, "sessionId"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := history.Filters{
		Search:    q.Get("search"),
		DateRange: parseDateRange(q.Get("range")),
		PlanName:  q.Get("plan"),
	}

	resp, err := h.history.List(r.Context(), identityFrom(r), filters)
	if err != nil {
		slog.Error("Failed to list download history.", "error", err)
		writeError(w, statusFor(err), "failed to list download history")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) redownload(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentId")
	result, err := h.history.Redownload(r.Context(), identityFrom(r), documentID, r.UserAgent(), clientIP(r))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Write(result.PDF)
}

func parseDateRange(raw string) history.DateRange {
	switch history.DateRange(raw) {
	case history.RangeToday, history.Range7Days, history.Range30Days:
		return history.DateRange(raw)
	default:
		return history.RangeAll
	}
}

func sessionResponse(sessionID, documentID string, s *viewer.Session) models.ViewerSessionResponse {
	return models.ViewerSessionResponse{
		SessionID:   sessionID,
		DocumentID:  documentID,
		Title:       s.Title(),
		PageCount:   s.PageCount(),
		CurrentPage: s.CurrentPage(),
		ZoomScale:   s.ZoomScale(),
		Theme:       string(s.Theme()),
		Watermark:   s.Watermark(),
	}
}
