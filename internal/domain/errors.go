package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFileIdentityMissing indicates the decoded message stream never
	// produced a file-identity message, so nothing could be persisted.
	ErrFileIdentityMissing = errors.New("activity file did not contain a file-identity message")
	// ErrFileNotFound is returned when a fingerprint does not match any imported file.
	ErrFileNotFound = errors.New("file not found")
)

// DuplicateFileError is returned when importing bytes whose fingerprint
// already exists. It is an expected condition, not a defect: batch callers
// may downgrade it to a warning and continue.
type DuplicateFileError struct {
	Fingerprint string
}

func (e *DuplicateFileError) Error() string {
	return fmt.Sprintf("file already imported, fingerprint=%s", e.Fingerprint)
}

// ServiceError carries a provider-supplied status code and message from the
// elevation or map services. It aborts only the operation in progress.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service request failed with code %d: %s", e.StatusCode, e.Message)
}

// EncodingError is returned when the polyline encoder cannot map a chunk to a
// printable character. It is fatal to that single encode call only.
type EncodingError struct {
	Value int32
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode value %d as a printable polyline character", e.Value)
}
