package tracking

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/trackgate/internal/gate"
	"github.com/yanizio/trackgate/internal/requestinfo"
)

type disabledSet map[int64]bool

func (d disabledSet) IsDisabled(_ context.Context, id int64) (bool, error) {
	return d[id], nil
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, Event) error { return errors.New("sink down") }

func newPipeline(t *testing.T, disabled disabledSet) (http.Handler, *MemoryRecorder) {
	t.Helper()
	rec := NewMemoryRecorder(16)
	g := gate.New(disabled, nil, gate.Policy{})

	r := chi.NewRouter()
	r.With(gate.Middleware(g, gate.DefaultParam), requestinfo.Enrich).
		Handle("/track", Handler(rec, gate.DefaultParam))
	return r, rec
}

func TestPipeline_DisabledSiteRecordsNothing(t *testing.T) {
	h, rec := newPipeline(t, disabledSet{7: true})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/track?idsite=7", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	}
	assert.Zero(t, rec.Total())
}

func TestPipeline_EnabledAndUnknownSitesRecorded(t *testing.T) {
	h, rec := newPipeline(t, disabledSet{7: true})

	for _, target := range []string{"/track?idsite=8", "/track?idsite=999", "/track"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Accept-Language", "nl-BE")
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code, target)
	}

	require.Equal(t, 3, rec.Total())
	events := rec.Recent()
	assert.Equal(t, "8", events[0].SiteToken)
	assert.Equal(t, "999", events[1].SiteToken)
	assert.Equal(t, "", events[2].SiteToken)
	assert.Equal(t, "nl-be", events[0].UA.PrimaryLang)
	assert.Equal(t, "/track", events[0].Path)
}

func TestHandler_RecorderFailureStillAnswers(t *testing.T) {
	w := httptest.NewRecorder()
	Handler(failingRecorder{}, gate.DefaultParam).
		ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/track?idsite=1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
