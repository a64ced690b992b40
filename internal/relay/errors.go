package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigMissing means the trigger id is unknown or has no URL. No request was made.
	ErrConfigMissing = errors.New("trigger not configured")
	// ErrTransport means the request could not be sent or the connection failed.
	ErrTransport = errors.New("trigger transport failed")
	// ErrRemoteRejected means the automation service answered outside 2xx.
	ErrRemoteRejected = errors.New("trigger rejected by remote")
)

// Error carries the failure kind together with the trigger and, for remote
// rejections, the upstream status code. Match kinds with errors.Is.
type Error struct {
	Kind       error
	TriggerID  string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrConfigMissing:
		return fmt.Sprintf("trigger %q is not configured", e.TriggerID)
	case ErrRemoteRejected:
		return fmt.Sprintf("trigger %q rejected with status %d", e.TriggerID, e.StatusCode)
	default:
		return fmt.Sprintf("failed to send trigger %q: %v", e.TriggerID, e.Err)
	}
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
