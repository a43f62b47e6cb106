package internal

import "fmt"

// ConfigError represents a missing or invalid piece of user configuration.
// It names the offending field and suggests a remediation.
type ConfigError struct {
	Field string
	Hint  string
}

func (e *ConfigError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("configuration error: %s (%s)", e.Field, e.Hint)
	}
	return fmt.Sprintf("configuration error: %s", e.Field)
}

// ReaderError represents a per-file extraction failure, including the
// missing-capability case where no reader is registered for a format.
type ReaderError struct {
	Path   string
	Format string
	Err    error
}

func (e *ReaderError) Error() string {
	return fmt.Sprintf("reader error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ReaderError) Unwrap() error {
	return e.Err
}

// StateError represents errors persisting or loading incremental sync state.
type StateError struct {
	Path string
	Op   string // "load", "save"
	Err  error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// FetchError represents a remote request failure. Retryable fetch errors
// (rate limits) are handled inside the fetch loop; the rest abort it.
type FetchError struct {
	URL    string
	Status int
	Err    error

	// RateLimitReset carries the epoch-seconds x-rate-limit-reset header
	// when the server returned 429.
	RateLimitReset int64
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch error [%d] %s: %v", e.Status, e.URL, e.Err)
	}
	return fmt.Sprintf("fetch error %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
