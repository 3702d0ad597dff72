package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/itchan-dev/anonboard/shared/domain"
	internal_errors "github.com/itchan-dev/anonboard/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	jsonType = "application/json"
	formType = "application/x-www-form-urlencoded"
)

var created = time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)

func TestCreateThreadHandler(t *testing.T) {
	t.Run("json body returns the full thread", func(t *testing.T) {
		var gotBoard, gotText, gotPassword string
		h := New(&MockThreadService{
			MockCreate: func(board domain.BoardName, text domain.Text, deletePassword domain.Password) (domain.Thread, error) {
				gotBoard, gotText, gotPassword = board, text, deletePassword
				return domain.NewThread(domain.ThreadCreationData{
					Id: "t1", Board: board, Text: text, DeletePassword: deletePassword, CreatedOn: created,
				}), nil
			},
		}, &MockReplyService{}, nil)

		rr := doRequest(newTestRouter(h), http.MethodPost, "/api/threads/b", jsonType, `{"text":"hi","delete_password":"p"}`)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "b", gotBoard)
		assert.Equal(t, "hi", gotText)
		assert.Equal(t, "p", gotPassword)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "t1", body["_id"])
		assert.Equal(t, "hi", body["text"])
		assert.Equal(t, "p", body["delete_password"], "creation response carries sensitive fields")
		assert.Equal(t, false, body["reported"])
		assert.Equal(t, []any{}, body["replies"])
		assert.Equal(t, "2024-02-03T04:05:06Z", body["created_on"])
	})

	t.Run("form body", func(t *testing.T) {
		h := New(&MockThreadService{
			MockCreate: func(board domain.BoardName, text domain.Text, deletePassword domain.Password) (domain.Thread, error) {
				assert.Equal(t, "hello world", text)
				return domain.Thread{Id: "t1", Text: text}, nil
			},
		}, &MockReplyService{}, nil)

		rr := doRequest(newTestRouter(h), http.MethodPost, "/api/threads/b", formType, "text=hello+world&delete_password=p")
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		called := false
		h := New(&MockThreadService{
			MockCreate: func(domain.BoardName, domain.Text, domain.Password) (domain.Thread, error) {
				called = true
				return domain.Thread{}, nil
			},
		}, &MockReplyService{}, nil)

		rr := doRequest(newTestRouter(h), http.MethodPost, "/api/threads/b", jsonType, `{"text":"hi"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "delete_password")
		assert.False(t, called)
	})

	t.Run("invalid json", func(t *testing.T) {
		h := New(&MockThreadService{}, &MockReplyService{}, nil)
		rr := doRequest(newTestRouter(h), http.MethodPost, "/api/threads/b", jsonType, `{ivalid json::}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("service error is hidden", func(t *testing.T) {
		h := New(&MockThreadService{
			MockCreate: func(domain.BoardName, domain.Text, domain.Password) (domain.Thread, error) {
				return domain.Thread{}, errors.New("pq: connection refused")
			},
		}, &MockReplyService{}, nil)

		rr := doRequest(newTestRouter(h), http.MethodPost, "/api/threads/b", jsonType, `{"text":"hi","delete_password":"p"}`)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "pq")
	})
}

func TestListThreadsHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := New(&MockThreadService{
			MockList: func(board domain.BoardName) ([]domain.ThreadView, error) {
				assert.Equal(t, "b", board)
				return []domain.ThreadView{{Id: "t1", Board: "b", Replies: []domain.ReplyView{{Id: "r1", Text: "x"}}, ReplyCount: 5}}, nil
			},
		}, &MockReplyService{}, nil)

		rr := doRequest(newTestRouter(h), http.MethodGet, "/api/threads/b", "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var body []map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		require.Len(t, body, 1)
		assert.Equal(t, float64(5), body[0]["replycount"])
		assert.NotContains(t, body[0], "delete_password")
		assert.NotContains(t, body[0], "reported")
	})

	t.Run("empty board is an empty array", func(t *testing.T) {
		h := New(&MockThreadService{}, &MockReplyService{}, nil)
		rr := doRequest(newTestRouter(h), http.MethodGet, "/api/threads/empty", "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})

	t.Run("storage fault", func(t *testing.T) {
		h := New(&MockThreadService{
			MockList: func(domain.BoardName) ([]domain.ThreadView, error) { return nil, errors.New("boom") },
		}, &MockReplyService{}, nil)
		rr := doRequest(newTestRouter(h), http.MethodGet, "/api/threads/b", "", "")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestReportThreadHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var reported string
		h := New(&MockThreadService{
			MockReport: func(id domain.ThreadId) error { reported = id; return nil },
		}, &MockReplyService{}, nil)

		rr := doRequest(newTestRouter(h), http.MethodPut, "/api/threads/b", formType, "thread_id=t1")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "reported", rr.Body.String())
		assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
		assert.Equal(t, "t1", reported)
	})

	t.Run("not found", func(t *testing.T) {
		h := New(&MockThreadService{
			MockReport: func(domain.ThreadId) error { return internal_errors.NotFound("Thread not found") },
		}, &MockReplyService{}, nil)

		rr := doRequest(newTestRouter(h), http.MethodPut, "/api/threads/b", jsonType, `{"thread_id":"nope"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("missing thread_id", func(t *testing.T) {
		h := New(&MockThreadService{}, &MockReplyService{}, nil)
		rr := doRequest(newTestRouter(h), http.MethodPut, "/api/threads/b", jsonType, `{}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestDeleteThreadHandler(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantCode   int
		wantBody   string
	}{
		{"success", nil, http.StatusOK, "success"},
		{"wrong password", internal_errors.ErrWrongPassword, http.StatusOK, "incorrect password"},
		{"not found", internal_errors.NotFound("Thread not found"), http.StatusNotFound, "Thread not found\n"},
		{"storage fault", errors.New("boom"), http.StatusInternalServerError, "Internal server error\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(&MockThreadService{
				MockDelete: func(id domain.ThreadId, deletePassword domain.Password) error {
					assert.Equal(t, "t1", id)
					assert.Equal(t, "p", deletePassword)
					return tt.serviceErr
				},
			}, &MockReplyService{}, nil)

			// form encoded DELETE bodies must be read too
			rr := doRequest(newTestRouter(h), http.MethodDelete, "/api/threads/b", formType, "thread_id=t1&delete_password=p")
			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Equal(t, tt.wantBody, rr.Body.String())
		})
	}
}
