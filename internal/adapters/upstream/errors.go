package upstream

import (
	"errors"
	"fmt"
)

// Sentinel kinds for upstream fetch failures.
var (
	ErrInvalidBaseURL = errors.New("invalid upstream base url")
	ErrConnection     = errors.New("upstream connection failed")
	ErrStatus         = errors.New("upstream returned non-success status")
	ErrDecode         = errors.New("upstream response decode failed")
)

// FetchError describes a failed FetchRooms call. Kind is one of
// ErrConnection, ErrStatus or ErrDecode.
type FetchError struct {
	Kind       error
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%v: GET %s: status %d: %s", e.Kind, e.URL, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%v: GET %s: status %d", e.Kind, e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%v: GET %s: %v", e.Kind, e.URL, e.Err)
	default:
		return fmt.Sprintf("%v: GET %s", e.Kind, e.URL)
	}
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName returns a short label for err's failure kind, suitable for
// metric labels. Unknown errors map to "unknown".
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrConnection):
		return "connection"
	case errors.Is(err, ErrStatus):
		return "status"
	case errors.Is(err, ErrDecode):
		return "decode"
	default:
		return "unknown"
	}
}
