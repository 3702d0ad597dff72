package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/itchan-dev/anonboard/shared/domain"
)

// --- Mocks ---

type MockThreadService struct {
	MockCreate func(board domain.BoardName, text domain.Text, deletePassword domain.Password) (domain.Thread, error)
	MockList   func(board domain.BoardName) ([]domain.ThreadView, error)
	MockReport func(id domain.ThreadId) error
	MockDelete func(id domain.ThreadId, deletePassword domain.Password) error
}

func (m *MockThreadService) Create(ctx context.Context, board domain.BoardName, text domain.Text, deletePassword domain.Password) (domain.Thread, error) {
	if m.MockCreate != nil {
		return m.MockCreate(board, text, deletePassword)
	}
	return domain.Thread{}, nil
}

func (m *MockThreadService) List(ctx context.Context, board domain.BoardName) ([]domain.ThreadView, error) {
	if m.MockList != nil {
		return m.MockList(board)
	}
	return []domain.ThreadView{}, nil
}

func (m *MockThreadService) Report(ctx context.Context, id domain.ThreadId) error {
	if m.MockReport != nil {
		return m.MockReport(id)
	}
	return nil
}

func (m *MockThreadService) Delete(ctx context.Context, id domain.ThreadId, deletePassword domain.Password) error {
	if m.MockDelete != nil {
		return m.MockDelete(id, deletePassword)
	}
	return nil
}

type MockReplyService struct {
	MockCreate    func(threadId domain.ThreadId, text domain.Text, deletePassword domain.Password) (domain.Reply, error)
	MockGetThread func(threadId domain.ThreadId) (domain.ThreadView, error)
	MockReport    func(threadId domain.ThreadId, replyId domain.ReplyId) error
	MockDelete    func(threadId domain.ThreadId, replyId domain.ReplyId, deletePassword domain.Password) error
}

func (m *MockReplyService) Create(ctx context.Context, threadId domain.ThreadId, text domain.Text, deletePassword domain.Password) (domain.Reply, error) {
	if m.MockCreate != nil {
		return m.MockCreate(threadId, text, deletePassword)
	}
	return domain.Reply{}, nil
}

func (m *MockReplyService) GetThread(ctx context.Context, threadId domain.ThreadId) (domain.ThreadView, error) {
	if m.MockGetThread != nil {
		return m.MockGetThread(threadId)
	}
	return domain.ThreadView{}, nil
}

func (m *MockReplyService) Report(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) error {
	if m.MockReport != nil {
		return m.MockReport(threadId, replyId)
	}
	return nil
}

func (m *MockReplyService) Delete(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId, deletePassword domain.Password) error {
	if m.MockDelete != nil {
		return m.MockDelete(threadId, replyId, deletePassword)
	}
	return nil
}

// --- Helpers ---

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/threads/{board}", func(r chi.Router) {
		r.Post("/", h.CreateThread)
		r.Get("/", h.ListThreads)
		r.Put("/", h.ReportThread)
		r.Delete("/", h.DeleteThread)
	})
	r.Route("/api/replies/{board}", func(r chi.Router) {
		r.Post("/", h.CreateReply)
		r.Get("/", h.GetThread)
		r.Put("/", h.ReportReply)
		r.Delete("/", h.DeleteReply)
	})
	return r
}

func doRequest(router http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}
