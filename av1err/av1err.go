/*
DESCRIPTION
  av1err defines the typed error kinds surfaced by the AV1 film-grain
  parser and rewriter.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package av1err provides the typed error kinds used across the av1grain
// parser, rewriter, and collaborators.
package av1err

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies the category of a parse or container failure.
type Kind int

const (
	// UnexpectedEOF indicates the bit cursor or byte cursor ran out of
	// input before a syntax element finished.
	UnexpectedEOF Kind = iota
	// InvalidEnumTag indicates a field took a value outside its defined
	// enumeration.
	InvalidEnumTag
	// UnsupportedFeature indicates a syntactically valid but unimplemented
	// bitstream feature (e.g. a bit depth outside 8..=16).
	UnsupportedFeature
	// SequenceHeaderMissing indicates a Frame or FrameHeader OBU arrived
	// before any SequenceHeader OBU was parsed.
	SequenceHeaderMissing
	// LengthMismatch indicates an OBU's parsed extent disagreed with its
	// declared payload size by more than the permitted LEB128 slack.
	LengthMismatch
	// ContainerIOError wraps a failure reported by the container demux/mux
	// collaborator.
	ContainerIOError
	// GrainTableSyntax indicates malformed grain table text.
	GrainTableSyntax
)

func (k Kind) String() string {
	switch k {
	case UnexpectedEOF:
		return "unexpected EOF"
	case InvalidEnumTag:
		return "invalid enum tag"
	case UnsupportedFeature:
		return "unsupported feature"
	case SequenceHeaderMissing:
		return "sequence header missing"
	case LengthMismatch:
		return "length mismatch"
	case ContainerIOError:
		return "container I/O error"
	case GrainTableSyntax:
		return "grain table syntax error"
	default:
		return "unknown error"
	}
}

// Error is the concrete error value returned for all av1grain failures. It
// carries the Kind so callers can branch with errors.As, plus the field or
// OBU name relevant to the failure and an optional packet index for
// user-visible diagnostics.
type Error struct {
	Kind   Kind
	Field  string // Field or OBU type name relevant to the error, if any.
	Packet int    // Packet index, -1 if not applicable.
	cause  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Field)
	}
	if e.Packet >= 0 {
		msg = fmt.Sprintf("%s (packet %d)", msg, e.Packet)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// New returns an Error of the given kind with no field or packet context.
func New(kind Kind) *Error {
	return &Error{Kind: kind, Packet: -1}
}

// WithField returns a copy of e with Field set.
func (e *Error) WithField(field string) *Error {
	c := *e
	c.Field = field
	return &c
}

// WithPacket returns a copy of e with Packet set.
func (e *Error) WithPacket(i int) *Error {
	c := *e
	c.Packet = i
	return &c
}

// Wrap attaches cause to e, preserving e's stack-trace-free kind while
// letting errors.Unwrap reach the underlying error produced by
// github.com/pkg/errors elsewhere in the call stack. Error has no Cause
// method, so errors.Cause stops at e itself.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.cause = errors.WithStack(cause)
	return &c
}
