package pack

import "errors"

// Sentinel errors for the pack package.
var (
	// ErrInvalidSpec is returned for malformed plugin specifications.
	// It is raised before any subprocess is spawned.
	ErrInvalidSpec = errors.New("invalid plugin spec")

	// ErrResolution is returned when a version constraint cannot be
	// satisfied, e.g. no tag matches a semantic-version range.
	ErrResolution = errors.New("version resolution failed")

	// ErrNotInstalled is returned when an operation requires a plugin
	// directory that does not exist on disk.
	ErrNotInstalled = errors.New("plugin not installed")
)
