package domain

import (
	"errors"
	"strings"
)

var (
	ErrUpstream          = errors.New("conversational backend unavailable")
	ErrSessionNotFound   = errors.New("session not found")
	ErrBusy              = errors.New("a request is already in flight")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrWidgetClosed      = errors.New("chat widget is closed")
	ErrUnmounted         = errors.New("chat widget unmounted")
	ErrNoQuickQuestion   = errors.New("quick question not available")
	ErrStreamUnsupported = errors.New("streaming not supported")
)

// ValidationError reports an inbound chat request without a usable message.
type ValidationError struct {
	Message      string
	ReceivedKeys []string
}

func (e *ValidationError) Error() string {
	if len(e.ReceivedKeys) == 0 {
		return e.Message
	}
	return e.Message + " (received keys: " + strings.Join(e.ReceivedKeys, ", ") + ")"
}

// AsValidation unwraps the *ValidationError in err's chain, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
