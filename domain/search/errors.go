package search

import "errors"

var (
	// ErrNoReference is returned when detect runs before a session exists.
	ErrNoReference = errors.New("search: no reference image")
	// ErrEmptyProbe is returned for nil or zero-sized probes.
	ErrEmptyProbe = errors.New("search: empty probe")
	// ErrEmptyReference is returned when a session is started with an empty image.
	ErrEmptyReference = errors.New("search: empty reference image")
	// ErrConcurrentDetect is returned when detect is re-entered before the
	// previous call finished.
	ErrConcurrentDetect = errors.New("search: concurrent detect call")
	// ErrMissingCollaborator is returned by New when a required dependency is nil.
	ErrMissingCollaborator = errors.New("search: missing collaborator")
)
