package midi

import "fmt"

// ParseErrorKind classifies why a MIDI byte stream was rejected.
type ParseErrorKind int

const (
	// MalformedHeader means the stream doesn't start with a valid MThd chunk.
	MalformedHeader ParseErrorKind = iota
	// UnsupportedFormat means the file parsed but uses a time division we
	// don't play (SMPTE timecode).
	UnsupportedFormat
	// TruncatedStream means the stream ended before its declared length.
	TruncatedStream
	// InvalidEvent means an event inside a track chunk couldn't be decoded.
	InvalidEvent
)

func (k ParseErrorKind) String() string {
	switch k {
	case MalformedHeader:
		return "malformed header"
	case UnsupportedFormat:
		return "unsupported format"
	case TruncatedStream:
		return "truncated stream"
	case InvalidEvent:
		return "invalid event"
	}
	return "unknown"
}

// ParseError is fatal to the file being parsed but recoverable at the
// process level. It always surfaces before any device I/O happens.
type ParseError struct {
	Kind  ParseErrorKind
	cause error
}

func (e *ParseError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("midi: %v", e.Kind)
	}
	return fmt.Sprintf("midi: %v: %v", e.Kind, e.cause)
}

func (e *ParseError) Unwrap() error {
	return e.cause
}

func newParseError(kind ParseErrorKind, cause error) *ParseError {
	return &ParseError{Kind: kind, cause: cause}
}
