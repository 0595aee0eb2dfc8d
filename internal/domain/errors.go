package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a by-id lookup has no matching record.
	ErrNotFound = errors.New("media not found")

	// ErrFiltered is returned when a by-id lookup matched a record excluded by the safety policy.
	ErrFiltered = errors.New("media excluded by safety filter")

	// ErrInvalidArgument is returned for out-of-range pages, page sizes, kinds and modes.
	ErrInvalidArgument = errors.New("invalid argument")
)

// RemoteFetchError reports a non-success HTTP status, an API error payload
// or a transport failure while talking to the external catalog.
type RemoteFetchError struct {
	StatusCode int    // 0 when the request never got a response
	Message    string
	Err        error
}

func (e *RemoteFetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("remote fetch failed: HTTP %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("remote fetch failed: HTTP %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("remote fetch failed: %s: %v", e.Message, e.Err)
	default:
		return "remote fetch failed: " + e.Message
	}
}

func (e *RemoteFetchError) Unwrap() error {
	return e.Err
}

// IsRemoteFetchError reports whether err is or wraps a *RemoteFetchError.
func IsRemoteFetchError(err error) bool {
	var rfe *RemoteFetchError
	return errors.As(err, &rfe)
}
