package api

// Request DTOs

type CreateThreadRequest struct {
	Text           string `json:"text" form:"text" validate:"required"`
	DeletePassword string `json:"delete_password" form:"delete_password" validate:"required"`
}

type ReportThreadRequest struct {
	ThreadId string `json:"thread_id" form:"thread_id" validate:"required"`
}

type DeleteThreadRequest struct {
	ThreadId       string `json:"thread_id" form:"thread_id" validate:"required"`
	DeletePassword string `json:"delete_password" form:"delete_password" validate:"required"`
}
