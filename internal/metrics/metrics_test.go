package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveIngestion(t *testing.T) {
	success := testutil.ToFloat64(Ingestions.WithLabelValues(ModeFile, "success"))
	failure := testutil.ToFloat64(Ingestions.WithLabelValues(ModeURL, "failure"))
	channels := testutil.ToFloat64(ChannelsIngested)
	skipped := testutil.ToFloat64(EntriesSkipped)

	ObserveIngestion(ModeFile, 8, 2, nil)
	ObserveIngestion(ModeURL, 0, 0, errors.New("boom"))

	assert.Equal(t, success+1, testutil.ToFloat64(Ingestions.WithLabelValues(ModeFile, "success")))
	assert.Equal(t, failure+1, testutil.ToFloat64(Ingestions.WithLabelValues(ModeURL, "failure")))
	assert.Equal(t, channels+8, testutil.ToFloat64(ChannelsIngested))
	assert.Equal(t, skipped+2, testutil.ToFloat64(EntriesSkipped))
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Delete("/playlists/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("DELETE", "/playlists/{id}", "204"))
	req := httptest.NewRequest(http.MethodDelete, "/playlists/abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequests.WithLabelValues("DELETE", "/playlists/{id}", "204")))
}

func TestHandler(t *testing.T) {
	ObserveIngestion(ModeRefresh, 1, 0, nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "tvcatalog_ingestions_total"))
}
