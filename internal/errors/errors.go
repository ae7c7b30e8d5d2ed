package errors

import "errors"

// Sentinel errors let the service layer say what went wrong without knowing
// about HTTP. The api package maps them to status codes with errors.Is/As.

var (
	// ErrValidation signifies that the request body failed validation.
	// Mapped to 422 Unprocessable Entity.
	ErrValidation = errors.New("validation failed")

	// ErrInternal signifies an unexpected server-side error.
	// Mapped to 500 Internal Server Error.
	ErrInternal = errors.New("internal server error")
)

// GenerationFailure covers every way a reply could not be produced: missing
// credentials, unreachable backend, backend-side error or a malformed backend
// response. Its text is the underlying error's text, unchanged, so the HTTP
// layer can surface it as is.
type GenerationFailure struct {
	Err error
}

func (e *GenerationFailure) Error() string { return e.Err.Error() }
func (e *GenerationFailure) Unwrap() error { return e.Err }
