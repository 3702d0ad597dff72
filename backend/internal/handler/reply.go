package handler

import (
	"net/http"

	"github.com/itchan-dev/anonboard/shared/api"
	"github.com/itchan-dev/anonboard/shared/utils"
)

// The board path segment of reply routes is not consulted: thread ids are globally unique.

func (h *Handler) CreateReply(w http.ResponseWriter, r *http.Request) {
	var body api.CreateReplyRequest
	if err := utils.DecodeRequest(r, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	reply, err := h.reply.Create(r.Context(), body.ThreadId, body.Text, body.DeletePassword)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, reply)
}

func (h *Handler) GetThread(w http.ResponseWriter, r *http.Request) {
	var query api.GetThreadRequest
	if err := utils.DecodeQuery(r, &query); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	thread, err := h.reply.GetThread(r.Context(), query.ThreadId)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, thread)
}

func (h *Handler) ReportReply(w http.ResponseWriter, r *http.Request) {
	var body api.ReportReplyRequest
	if err := utils.DecodeRequest(r, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.reply.Report(r.Context(), body.ThreadId, body.ReplyId); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WritePlain(w, http.StatusOK, api.StatusReported)
}

func (h *Handler) DeleteReply(w http.ResponseWriter, r *http.Request) {
	var body api.DeleteReplyRequest
	if err := utils.DecodeRequest(r, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	err := h.reply.Delete(r.Context(), body.ThreadId, body.ReplyId, body.DeletePassword)
	writeDeleteResult(w, err)
}
