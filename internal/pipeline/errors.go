package pipeline

import "errors"

var (
	// ErrDuplicate marks content that already has a route record.
	ErrDuplicate = errors.New("duplicate content")
	// ErrUnsupportedFormat marks intake files the pipeline does not accept.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrUnclassified wraps unexpected failures, including recovered panics.
	ErrUnclassified = errors.New("unclassified failure")
)
