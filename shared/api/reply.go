package api

// Request DTOs

type CreateReplyRequest struct {
	ThreadId       string `json:"thread_id" form:"thread_id" validate:"required"`
	Text           string `json:"text" form:"text" validate:"required"`
	DeletePassword string `json:"delete_password" form:"delete_password" validate:"required"`
}

type ReportReplyRequest struct {
	ThreadId string `json:"thread_id" form:"thread_id" validate:"required"`
	ReplyId  string `json:"reply_id" form:"reply_id" validate:"required"`
}

type DeleteReplyRequest struct {
	ThreadId       string `json:"thread_id" form:"thread_id" validate:"required"`
	ReplyId        string `json:"reply_id" form:"reply_id" validate:"required"`
	DeletePassword string `json:"delete_password" form:"delete_password" validate:"required"`
}

// GetThreadRequest is read from the query string.
type GetThreadRequest struct {
	ThreadId string `json:"thread_id" form:"thread_id" validate:"required"`
}
