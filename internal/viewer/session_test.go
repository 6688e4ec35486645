package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bambooreports/securedelivery/internal/disclaimer"
	"github.com/bambooreports/securedelivery/internal/models"
)

func loadedSession(t *testing.T) *Session {
	t.Helper()
	pdf, err := disclaimer.Generate(models.DisclaimerRequest{
		ReportTitle:   "Q2 Snapshot",
		GeneratedAt:   "January 2, 2026 3:04:05 PM UTC",
		LicenseeName:  "Ada Lovelace",
		LicenseeEmail: "ada@example.com",
	})
	require.NoError(t, err)

	s, err := NewSession("ada@example.com", "Q2 Snapshot")
	require.NoError(t, err)
	require.NoError(t, s.Load(pdf))
	return s
}

func TestNewSession_RequiresEmail(t *testing.T) {
	_, err := NewSession("", "Q2 Snapshot")
	require.Error(t, err)
}

func TestSession_InitialState(t *testing.T) {
	s := loadedSession(t)

	assert.Equal(t, 1, s.CurrentPage())
	assert.Equal(t, 1, s.PageCount())
	assert.Equal(t, 1.0, s.ZoomScale())
	assert.Equal(t, ThemeDark, s.Theme())
}

func TestSession_PageClamping(t *testing.T) {
	s := loadedSession(t)

	assert.Equal(t, 1, s.PrevPage(), "cannot go below the first page")
	assert.Equal(t, 1, s.NextPage(), "cannot go past the last page")
}

func TestSession_ZoomClamping(t *testing.T) {
	s := loadedSession(t)

	for i := 0; i < 10; i++ {
		s.ZoomIn()
	}
	assert.Equal(t, MaxZoom, s.ZoomScale())

	for i := 0; i < 20; i++ {
		s.ZoomOut()
	}
	assert.Equal(t, MinZoom, s.ZoomScale())
}

func TestSession_ZoomSteps(t *testing.T) {
	s := loadedSession(t)

	assert.Equal(t, 1.2, s.ZoomIn())
	assert.Equal(t, 1.4, s.ZoomIn())
	assert.Equal(t, 1.2, s.ZoomOut())
}

func TestSession_ThemeToggle(t *testing.T) {
	s := loadedSession(t)

	assert.Equal(t, ThemeLight, s.ToggleTheme())
	assert.Equal(t, ThemeDark, s.ToggleTheme())
}

func TestSession_WatermarkIndependentOfZoom(t *testing.T) {
	s := loadedSession(t)

	for _, adjust := range []func() float64{s.ZoomOut, s.ZoomIn, s.ZoomIn, s.ZoomIn} {
		adjust()
		assert.Equal(t, "ada@example.com", s.Watermark())
	}
}

func TestSession_BytesCarryWatermarkIdentity(t *testing.T) {
	s := loadedSession(t)

	doc, err := s.Bytes()
	require.NoError(t, err)
	assert.NotEmpty(t, doc)
}

func TestSession_LoadFailureIsTerminal(t *testing.T) {
	s, err := NewSession("ada@example.com", "Q2 Snapshot")
	require.NoError(t, err)

	err = s.Load([]byte("not a pdf"))
	require.Error(t, err)

	var loadErr *models.ViewerLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorAs(t, s.Err(), &loadErr)

	_, err = s.Bytes()
	assert.ErrorAs(t, err, &loadErr, "every later access reports the same failure")
}

func TestSession_CloseReleasesDocument(t *testing.T) {
	s := loadedSession(t)
	s.Close()
	s.Close() // idempotent

	_, err := s.Bytes()
	require.Error(t, err)
}

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry()
	s := loadedSession(t)

	id := r.Add(s)
	require.NotEmpty(t, id)

	got, err := r.Get(id)
	require.NoError(t, err)
	assert.Same(t, s, got)

	r.Close(id)
	_, err = r.Get(id)
	require.Error(t, err)

	r.Close("unknown") // no-op
}
