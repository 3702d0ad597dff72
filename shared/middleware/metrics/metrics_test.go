package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/threads/{board}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/threads/{board}", "404"))
	for _, board := range []string{"a", "b", "c"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/threads/"+board, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/threads/{board}", "404"))

	assert.Equal(t, 3.0, after-before)
	assert.Equal(t, 0.0, testutil.ToFloat64(httpRequestsInFlight))
}

func TestRecordEvent(t *testing.T) {
	c := EventCounter(EntityReply, ActionDelete, OutcomeWrongPassword)
	before := testutil.ToFloat64(c)
	RecordEvent(EntityReply, ActionDelete, OutcomeWrongPassword)
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
