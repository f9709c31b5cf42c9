package content

import (
	"errors"
	"fmt"
)

var (
	ErrRunInProgress = errors.New("an ingestion run is already in progress")
	ErrNotFound      = errors.New("content not found")
	ErrTypeChanged   = errors.New("stored content type differs from incoming type")
)

// FetchError reports a transport failure or a non-success response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError reports a malformed document or a single unusable entry.
type ParseError struct {
	Source string
	Link   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "failed to parse " + e.Source
	if e.Link != "" {
		msg += " entry " + e.Link
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// PersistenceError reports which write step failed for an item.
type PersistenceError struct {
	Step string
	Link string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %s at step %s: %v", e.Link, e.Step, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports a missing credential or an invalid setting.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
}

// FatalIngestionError aborts a run. The watermark is not advanced.
type FatalIngestionError struct {
	Reason string
	Err    error
}

func (e *FatalIngestionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingestion aborted: %s: %v", e.Reason, e.Err)
	}
	return "ingestion aborted: " + e.Reason
}

func (e *FatalIngestionError) Unwrap() error {
	return e.Err
}
