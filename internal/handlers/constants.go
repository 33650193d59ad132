package handlers

const (
	ErrInvalidRequestBody  = "Invalid request body"
	ErrInvalidDrillID      = "Invalid drill ID"
	ErrDrillNotFound       = "Drill not found"
	ErrSessionNotFound     = "Quiz session not found"
	ErrUnauthorized        = "Missing or invalid quiz token"
	ErrTooManyRequests     = "Too many requests, please try again later"
	ErrInternalServerError = "Internal server error"

	// defaultMaxUploadSize applies when the handler is built without a limit
	defaultMaxUploadSize = 5 << 20

	tsvContentType = "text/tab-separated-values; charset=utf-8"
)
