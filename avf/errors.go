package avf

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFormat    = errors.New("avf: invalid format")
	ErrTruncatedHeader  = errors.New("avf: truncated header")
	ErrTruncatedIndex   = errors.New("avf: truncated chunk index")
	ErrTruncatedChunk   = errors.New("avf: chunk extends past end of file")
	ErrUnknownOpcode    = errors.New("avf: unknown opcode")
	ErrIncompleteOpcode = errors.New("avf: repeated pixel group opcode is not fully understood")
	ErrTruncatedOperand = errors.New("avf: opcode operands run past end of stream")
	ErrOutOfFrame       = errors.New("avf: opcode writes outside the frame")
	ErrSizeMismatch     = errors.New("avf: decompressed size does not match index")
	ErrSink             = errors.New("avf: sink failed")
)

// FormatError reports a container field that is missing or holds an unexpected value.
// Kind is one of the Err* sentinels and is what errors.Is matches against.
type FormatError struct {
	Kind   error
	Field  string
	Offset int
	Want   any
	Got    any
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%v: %s at %#x: want %v, got %v", e.Kind, e.Field, e.Offset, e.Want, e.Got)
}

func (e *FormatError) Unwrap() error { return e.Kind }

// OpcodeError describes an anomaly met while interpreting a frame's opcode stream.
type OpcodeError struct {
	Op     byte
	Pos    int
	Detail string
	Err    error
}

func (e *OpcodeError) Error() string {
	s := fmt.Sprintf("%v: op %#02x at %#x", e.Err, e.Op, e.Pos)
	if e.Detail != "" {
		s += " (" + e.Detail + ")"
	}
	return s
}

func (e *OpcodeError) Unwrap() error { return e.Err }

// ChunkError ties an error to the chunk it happened in.
type ChunkError struct {
	Chunk int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Chunk, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// SinkError wraps a failure returned by a Sink. It matches both ErrSink and the sink's own error.
type SinkError struct {
	Chunk int
	Err   error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%v: chunk %d: %v", ErrSink, e.Chunk, e.Err)
}

func (e *SinkError) Unwrap() []error { return []error{ErrSink, e.Err} }
