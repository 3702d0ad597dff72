package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/itchan-dev/anonboard/shared/api"
	internal_errors "github.com/itchan-dev/anonboard/shared/errors"
	"github.com/itchan-dev/anonboard/shared/utils"
)

func (h *Handler) CreateThread(w http.ResponseWriter, r *http.Request) {
	board := chi.URLParam(r, "board")

	var body api.CreateThreadRequest
	if err := utils.DecodeRequest(r, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	thread, err := h.thread.Create(r.Context(), board, body.Text, body.DeletePassword)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, thread)
}

func (h *Handler) ListThreads(w http.ResponseWriter, r *http.Request) {
	board := chi.URLParam(r, "board")

	threads, err := h.thread.List(r.Context(), board)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, threads)
}

func (h *Handler) ReportThread(w http.ResponseWriter, r *http.Request) {
	var body api.ReportThreadRequest
	if err := utils.DecodeRequest(r, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.thread.Report(r.Context(), body.ThreadId); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WritePlain(w, http.StatusOK, api.StatusReported)
}

func (h *Handler) DeleteThread(w http.ResponseWriter, r *http.Request) {
	var body api.DeleteThreadRequest
	if err := utils.DecodeRequest(r, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	err := h.thread.Delete(r.Context(), body.ThreadId, body.DeletePassword)
	writeDeleteResult(w, err)
}

// writeDeleteResult answers a delete. A wrong password is an expected outcome, not an error status.
func writeDeleteResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		utils.WritePlain(w, http.StatusOK, api.StatusSuccess)
	case errors.Is(err, internal_errors.ErrWrongPassword):
		utils.WritePlain(w, http.StatusOK, api.StatusIncorrectPassword)
	default:
		utils.WriteErrorAndStatusCode(w, err)
	}
}
