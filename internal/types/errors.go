package types

import (
	"errors"
	"fmt"
)

// Per-request errors. All of them are caught at the dispatcher boundary
// and converted to a user-facing message.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnidentifiedMode     = errors.New("unidentified mode")
	ErrUnableDetectLanguage = errors.New("unable to detect language")
	ErrEmptyContent         = errors.New("empty content")
	ErrTimeout              = errors.New("timeout")
	ErrAccessDenied         = errors.New("access denied")
	ErrUnknownState         = errors.New("unknown state")
)

// NotFoundHandlerError means a state has no handler and no default is registered.
type NotFoundHandlerError struct {
	State string
}

func (e *NotFoundHandlerError) Error() string {
	return fmt.Sprintf("no handler registered for state %q and no default handler", e.State)
}

// APIError is a non-2xx response from a backend REST API.
type APIError struct {
	Service string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Service, e.Status, e.Message)
}

// UserMessage returns the text shown to the user for err.
func UserMessage(err error) string {
	var nf *NotFoundHandlerError
	var api *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "Request timed out. Please try again."
	case errors.Is(err, ErrAccessDenied):
		return "Access denied. Ask an administrator to grant you access."
	case errors.Is(err, ErrEmptyContent):
		return "The backend returned an empty answer. Try rephrasing."
	case errors.Is(err, ErrUnableDetectLanguage):
		return "Could not detect the language of the message."
	case errors.Is(err, ErrUnidentifiedMode):
		return "Unknown mode. Choose one with /mode."
	case errors.Is(err, ErrInvalidInput):
		return "Invalid input. Pick one of the suggested options."
	case errors.As(err, &nf), errors.Is(err, ErrUnknownState):
		return "Internal configuration error. Use /reset."
	case errors.As(err, &api):
		return fmt.Sprintf("Backend error: %s", api.Error())
	}
	return fmt.Sprintf("Error: %s", err.Error())
}
