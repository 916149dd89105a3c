package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrMarkerTimeout = errors.New("marker element did not appear before timeout")
	ErrEmptyBody     = errors.New("empty response body")
	ErrInvalidURL    = errors.New("invalid URL")
	ErrRunCancelled  = errors.New("run cancelled")
	ErrSinkClosed    = errors.New("sink is closed")
	ErrSinkNotOpen   = errors.New("sink has not been opened")
)

// FetchError wraps errors that occur while obtaining a page.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NavigationError wraps errors that occur while advancing to the next page.
type NavigationError struct {
	Selector string
	Err      error
}

func (e *NavigationError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("navigation error (selector=%q): %v", e.Selector, e.Err)
	}
	return fmt.Sprintf("navigation error: %v", e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// SinkError wraps errors that occur while persisting records.
type SinkError struct {
	Backend string
	Err     error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink error (%s): %v", e.Backend, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }
