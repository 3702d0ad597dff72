package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itchan-dev/anonboard/backend/internal/setup"
	"github.com/itchan-dev/anonboard/backend/internal/storage/memory"
	"github.com/itchan-dev/anonboard/shared/config"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	deps := setup.NewDependencies(config.Default(), memory.New())
	return New(deps)
}

func do(t *testing.T, h http.Handler, method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, target, strings.NewReader(string(data)))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func parseTime(t *testing.T, v any) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339Nano, v.(string))
	require.NoError(t, err)
	return ts
}

func TestThreadLifecycle(t *testing.T) {
	h := newTestServer(t)

	rr := do(t, h, http.MethodPost, "/api/threads/b", map[string]string{"board": "b", "text": "hi", "delete_password": "p"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	thread := decode(t, rr)
	assert.Equal(t, "hi", thread["text"])
	assert.Equal(t, thread["created_on"], thread["bumped_on"])
	threadId := thread["_id"].(string)
	require.NotEmpty(t, threadId)

	rr = do(t, h, http.MethodPost, "/api/replies/b", map[string]string{"thread_id": threadId, "text": "r1", "delete_password": "q"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	reply := decode(t, rr)
	replyId := reply["_id"].(string)

	getThread := func() map[string]any {
		rr := do(t, h, http.MethodGet, "/api/replies/b?thread_id="+url.QueryEscape(threadId), nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		return decode(t, rr)
	}

	view := getThread()
	assert.Equal(t, parseTime(t, reply["created_on"]), parseTime(t, view["bumped_on"]))
	assert.False(t, parseTime(t, view["bumped_on"]).Before(parseTime(t, thread["created_on"])))
	assert.NotContains(t, view, "delete_password")
	assert.NotContains(t, view, "reported")
	replies := view["replies"].([]any)
	require.Len(t, replies, 1)
	first := replies[0].(map[string]any)
	assert.Equal(t, "r1", first["text"])
	assert.NotContains(t, first, "delete_password")
	assert.NotContains(t, first, "reported")

	rr = do(t, h, http.MethodDelete, "/api/replies/b", map[string]string{"thread_id": threadId, "reply_id": replyId, "delete_password": "x"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "incorrect password", rr.Body.String())
	assert.Equal(t, "r1", getThread()["replies"].([]any)[0].(map[string]any)["text"])

	rr = do(t, h, http.MethodDelete, "/api/replies/b", map[string]string{"thread_id": threadId, "reply_id": replyId, "delete_password": "q"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "success", rr.Body.String())
	assert.Equal(t, "[deleted]", getThread()["replies"].([]any)[0].(map[string]any)["text"])

	for i := 0; i < 2; i++ {
		rr = do(t, h, http.MethodPut, "/api/replies/b", map[string]string{"thread_id": threadId, "reply_id": replyId})
		assert.Equal(t, "reported", rr.Body.String())
		rr = do(t, h, http.MethodPut, "/api/threads/b", map[string]string{"thread_id": threadId})
		assert.Equal(t, "reported", rr.Body.String())
	}

	rr = do(t, h, http.MethodDelete, "/api/threads/b", map[string]string{"thread_id": threadId, "delete_password": "x"})
	assert.Equal(t, "incorrect password", rr.Body.String())
	rr = do(t, h, http.MethodDelete, "/api/threads/b", map[string]string{"thread_id": threadId, "delete_password": "p"})
	assert.Equal(t, "success", rr.Body.String())

	rr = do(t, h, http.MethodGet, "/api/replies/b?thread_id="+url.QueryEscape(threadId), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = do(t, h, http.MethodPost, "/api/replies/b", map[string]string{"thread_id": threadId, "text": "late", "delete_password": "q"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListThreadsIsCapped(t *testing.T) {
	h := newTestServer(t)

	var lastId string
	for i := 0; i < 12; i++ {
		rr := do(t, h, http.MethodPost, "/api/threads/b", map[string]string{"text": "t", "delete_password": "p"})
		require.Equal(t, http.StatusOK, rr.Code)
		lastId = decode(t, rr)["_id"].(string)
	}
	// replies must land on a later millisecond to bump past every other thread
	time.Sleep(5 * time.Millisecond)
	for i := 0; i < 5; i++ {
		rr := do(t, h, http.MethodPost, "/api/replies/b", map[string]string{"thread_id": lastId, "text": "r", "delete_password": "q"})
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := do(t, h, http.MethodGet, "/api/threads/b", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var threads []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &threads))
	require.Len(t, threads, 10)
	assert.Equal(t, lastId, threads[0]["_id"])
	assert.Len(t, threads[0]["replies"], 3)
	assert.EqualValues(t, 5, threads[0]["replycount"])
	for _, th := range threads {
		assert.NotContains(t, th, "delete_password")
		assert.NotContains(t, th, "reported")
	}

	rr = do(t, h, http.MethodGet, "/api/threads/other", nil)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

func TestMiddleware(t *testing.T) {
	h := newTestServer(t)

	t.Run("security headers", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "SAMEORIGIN", rr.Header().Get("X-Frame-Options"))
		assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
		assert.Empty(t, rr.Header().Get("Strict-Transport-Security"))
	})

	t.Run("cors", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/api/threads/b", nil, "Origin", "https://example.org")
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("gzip", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/api/threads/big", map[string]string{"text": strings.Repeat("a", 4000), "delete_password": "p"})
		require.Equal(t, http.StatusOK, rr.Code)

		rr = do(t, h, http.MethodGet, "/api/threads/big", nil, "Accept-Encoding", "gzip")
		assert.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
	})

	t.Run("metrics", func(t *testing.T) {
		do(t, h, http.MethodGet, "/health", nil)
		rr := do(t, h, http.MethodGet, "/metrics", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "http_requests_total")
	})

	t.Run("ready", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/ready", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/api/boards", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
