package catalog

import (
	"errors"
	"fmt"
)

// ErrIngestInFlight is returned when an ingestion is submitted while another
// one from the same session is still running.
var ErrIngestInFlight = errors.New("an ingestion is already in progress")

// ValidationError reports input rejected before any request is made.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Message)
}

// TransportError reports a failed call to the catalog service: the request
// never completed, or the service answered with a non-2xx status.
type TransportError struct {
	Op     string
	Status int    // 0 when no response was received
	Detail string // server-provided detail, if any
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Detail != "":
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, e.Detail)
	case e.Status != 0:
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.Status)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// genericFailure is shown when a failure carries no server detail.
const genericFailure = "Something went wrong. Please try again."

// UserMessage returns the text to show for err: the server detail when
// there is one, otherwise a generic message.
func UserMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	var terr *TransportError
	if errors.As(err, &terr) && terr.Detail != "" {
		return terr.Detail
	}
	if errors.Is(err, ErrIngestInFlight) {
		return err.Error()
	}
	return genericFailure
}
