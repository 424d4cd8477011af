package storage

import "errors"

var (
	// ErrPathEscape indicates a relative path that would resolve outside its zone.
	ErrPathEscape = errors.New("path escapes storage zone")
	// ErrPathConflict indicates the destination exists with different content.
	ErrPathConflict = errors.New("destination exists with different content")
	// ErrUnknownZone indicates a zone this layout does not manage.
	ErrUnknownZone = errors.New("unknown storage zone")
)
