package recorder

import "errors"

// ErrRecorderBusy is returned by Start when the Recording Lease is held by
// another operation and has not exceeded its hard expiration.
var ErrRecorderBusy = errors.New("recorder: busy")

// ErrMicUnavailable is returned (and surfaced as the MicUnavailable error
// kind) when the capture source is missing or is lost mid-session.
var ErrMicUnavailable = errors.New("recorder: microphone unavailable")

// ErrDecodeFailed wraps a decode failure of captured raw frames.
var ErrDecodeFailed = errors.New("recorder: decode failed")
