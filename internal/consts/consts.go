// Package consts defines application-wide constants.
package consts

import "time"

const (
	// DefaultHandlerTimeout is the default timeout for HTTP handlers.
	DefaultHandlerTimeout = 30 * time.Second
	// DefaultFetchHandlerTimeout bounds the fetch endpoint, which blocks for
	// the whole transfer plus normalization and splitting.
	DefaultFetchHandlerTimeout = 45 * time.Minute
	// DefaultDiscoverHandlerTimeout bounds the formats endpoint; it must
	// outlast the origin metadata deadline.
	DefaultDiscoverHandlerTimeout = time.Minute
)

// HTTP response messages.
const (
	// RespInvalidRequestBody is returned when the request body is invalid.
	RespInvalidRequestBody = "invalid request body"
	// RespUnprocessableEntity is returned when the request cannot be processed.
	RespUnprocessableEntity = "unprocessable entity"
	// RespFormatsRetrieved is returned with a non-empty format list.
	RespFormatsRetrieved = "formats retrieved"
	// RespNothingPlayable is returned when discovery succeeds but no format
	// survives filtering.
	RespNothingPlayable = "nothing playable"
	// RespDiscoveryFailed is returned when the origin metadata query fails.
	RespDiscoveryFailed = "discovery failed"
	// RespFetchDone is returned when a fetch pipeline finishes.
	RespFetchDone = "fetch finished"
	// RespFetchFailed is returned when a fetch pipeline fails.
	RespFetchFailed = "fetch failed"
	// RespStaleFormat is returned when the chosen format id no longer resolves.
	RespStaleFormat = "format no longer available"
	// RespDependencyMissing is returned when the transcoding tool is absent.
	RespDependencyMissing = "transcoding tool unavailable, try again later"
	// RespBusy is returned when all workers are occupied.
	RespBusy = "all workers busy, retry later"
	// RespTooLarge is returned when a deliverable exceeds the size ceiling.
	RespTooLarge = "artifact exceeds size ceiling"
	// RespCleanupDone is returned after artifact cleanup.
	RespCleanupDone = "cleanup done"
	// RespPathOutsideWorkDir is returned when a cleanup path escapes the
	// working directory.
	RespPathOutsideWorkDir = "path outside working directory"
)

// Canonical output containers.
const (
	// ExtVideo is the canonical video container extension.
	ExtVideo = ".mp4"
	// ExtAudio is the canonical audio extension.
	ExtAudio = ".mp3"
)
