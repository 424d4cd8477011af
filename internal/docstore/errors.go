package docstore

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict indicates a transition found the document in a
	// different status than the caller expected.
	ErrStatusConflict = errors.New("document status conflict")
	// ErrInvalidTransition indicates a transition the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)
