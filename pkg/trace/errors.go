package trace

import "errors"

// Decode errors.
var (
	// ErrMalformedLog reports a tracefile whose root element is missing
	// or wrong, or a malformed nested structure inside a match or apply
	// block. Fatal to the decode session.
	ErrMalformedLog = errors.New("malformed tracefile")

	// ErrUnknownElement reports a top-level element name the decoder has
	// no mapping for. Unrecognized elements nested inside match/apply
	// blocks are skipped instead, since they carry no replay payload.
	ErrUnknownElement = errors.New("unknown tracefile element")
)

// Navigation errors. Stepping when the matching availability predicate
// is false is a precondition violation: fatal to the call, not to the
// session.
var (
	ErrNoForwardStep  = errors.New("no forward step available")
	ErrNoBackwardStep = errors.New("no backward step available")
)
