package worldview

import "errors"

const (
	// Target state.
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrFull          = "E_FULL"
	ErrEmpty         = "E_EMPTY"

	// Acting agent state.
	ErrOutOfRange   = "E_OUT_OF_RANGE"
	ErrNoResource   = "E_NO_RESOURCE"
	ErrBusy         = "E_BUSY"
	ErrBlocked      = "E_BLOCKED"
	ErrUnknownAgent = "E_UNKNOWN_AGENT"
)

// ActionError is a structured rejection from the world's action layer.
type ActionError struct {
	Code    string
	Message string
}

func (e *ActionError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

func Reject(code, message string) error {
	return &ActionError{Code: code, Message: message}
}

// Code extracts the rejection code from an action error, or "" for nil
// and non-action errors.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func IsCode(err error, code string) bool {
	return Code(err) == code
}
