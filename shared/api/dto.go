package api

// Fixed plain-text status tokens returned by mutation endpoints
const (
	StatusReported          = "reported"
	StatusSuccess           = "success"
	StatusIncorrectPassword = "incorrect password"
)
