// Package viewer implements the secure in-browser viewing session: paging
// and zoom state, the per-viewer identity watermark, and copy/print
// deterrence on the served bytes.
package viewer

import (
	"bytes"
	"fmt"
	"math"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/bambooreports/securedelivery/internal/models"
)

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

const (
	MinZoom  = 0.5
	MaxZoom  = 2.0
	ZoomStep = 0.2
)

// Session is one user's viewing session over a prepared document. All
// transitions are synchronous local state changes; the session owns the
// stamped document bytes and releases them on Close.
type Session struct {
	mu sync.Mutex

	userEmail     string
	documentTitle string

	doc         []byte
	currentPage int
	pageCount   int
	zoomScale   float64
	theme       Theme

	loadErr error
	closed  bool
}

// NewSession creates an empty session for the given viewer. A non-empty
// email is required because it is the watermark identity.
func NewSession(userEmail, documentTitle string) (*Session, error) {
	if userEmail == "" {
		return nil, fmt.Errorf("viewer requires a user email for watermarking")
	}
	return &Session{
		userEmail:     userEmail,
		documentTitle: documentTitle,
		currentPage:   1,
		zoomScale:     1.0,
		theme:         ThemeDark,
	}, nil
}

// Load stamps the watermark and permission restrictions onto doc and takes
// ownership of the result. A failure is terminal for the session: every
// later access reports the same ViewerLoadError and the only recovery is
// Close.
func (s *Session) Load(doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fail := func(err error) error {
		s.loadErr = &models.ViewerLoadError{Err: err}
		return s.loadErr
	}

	stamped, err := stampWatermark(doc, s.userEmail)
	if err != nil {
		return fail(err)
	}
	stamped, err = restrictPermissions(stamped)
	if err != nil {
		return fail(err)
	}
	pageCount, err := api.PageCount(bytes.NewReader(stamped), relaxedConf())
	if err != nil {
		return fail(err)
	}

	s.doc = stamped
	s.pageCount = pageCount
	return nil
}

// Bytes returns the stamped document for rendering.
func (s *Session) Bytes() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.closed || s.doc == nil {
		return nil, fmt.Errorf("viewer session is closed")
	}
	return s.doc, nil
}

func (s *Session) NextPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentPage < s.pageCount {
		s.currentPage++
	}
	return s.currentPage
}

func (s *Session) PrevPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentPage > 1 {
		s.currentPage--
	}
	return s.currentPage
}

func (s *Session) ZoomIn() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoomScale = clampZoom(s.zoomScale + ZoomStep)
	return s.zoomScale
}

func (s *Session) ZoomOut() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoomScale = clampZoom(s.zoomScale - ZoomStep)
	return s.zoomScale
}

func (s *Session) ToggleTheme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.theme == ThemeDark {
		s.theme = ThemeLight
	} else {
		s.theme = ThemeDark
	}
	return s.theme
}

func (s *Session) CurrentPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPage
}

func (s *Session) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageCount
}

func (s *Session) ZoomScale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoomScale
}

func (s *Session) Theme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// Watermark is the identity rendered across the page, independent of the
// current zoom or scroll position.
func (s *Session) Watermark() string { return s.userEmail }

func (s *Session) Title() string { return s.documentTitle }

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Close releases the document bytes, the only resource the session owns.
// Closing is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = nil
	s.closed = true
}

func clampZoom(z float64) float64 {
	// Round to one decimal so repeated 0.2 steps don't accumulate float
	// drift.
	z = math.Round(z*10) / 10
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}
