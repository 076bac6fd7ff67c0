package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrInvalidConfig indicates invalid or missing configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrRemoteCommand indicates a remote command exited with a non-zero status
	ErrRemoteCommand = errors.New("remote command failed")

	// ErrLocked indicates another run already holds the lock
	ErrLocked = errors.New("another run is in progress")

	// ErrNoAPIKey indicates the render API key is missing or still the placeholder
	ErrNoAPIKey = errors.New("render API key not configured")

	// ErrRenderFailed indicates the render service reported a failed render
	ErrRenderFailed = errors.New("render failed")

	// ErrRenderTimeout indicates the render did not finish within the poll budget
	ErrRenderTimeout = errors.New("timed out waiting for render")

	// ErrUnexpectedStatus indicates an HTTP endpoint answered with a non-success status
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)
