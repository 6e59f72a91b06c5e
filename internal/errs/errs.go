// Package errs defines the error kinds the core reports across its boundary.
// Origin-library and subprocess failures are always wrapped into one of these
// sentinels; their internals never cross into callers.
package errs

import "errors"

// Reference and discovery errors.
var (
	// ErrInvalidReference indicates a malformed or unsupported content URL.
	ErrInvalidReference = errors.New("invalid media reference")
	// ErrDiscovery indicates that the origin metadata query failed.
	ErrDiscovery = errors.New("discovery failed")
	// ErrStaleFormat indicates that a previously offered format id no longer
	// resolves against the origin.
	ErrStaleFormat = errors.New("format no longer available")
)

// Fetch errors.
var (
	// ErrTransferFailed indicates the transfer failed after exhausting the
	// retry budget.
	ErrTransferFailed = errors.New("transfer failed")
	// ErrDependencyUnavailable indicates the external transcoding tool is
	// missing or broken. Retrying cannot help; it is never retried.
	ErrDependencyUnavailable = errors.New("transcoding tool unavailable")
	// ErrOutputMissing indicates no output file was found under any expected
	// extension after the transfer completed.
	ErrOutputMissing = errors.New("output file missing")
	// ErrTooLarge indicates a deliverable exceeds the hard size ceiling.
	ErrTooLarge = errors.New("artifact exceeds size ceiling")
)

// Segmenter errors.
var (
	// ErrNoSegmentsProduced indicates the split tool exited cleanly but left
	// no segments behind.
	ErrNoSegmentsProduced = errors.New("no segments produced")
	// ErrToolFailed indicates a nonzero subprocess exit.
	ErrToolFailed = errors.New("tool exited with failure")
)

// Service errors.
var (
	// ErrBusy indicates all pipeline workers are occupied.
	ErrBusy = errors.New("all workers busy")
)
