/*
DESCRIPTION
  av1err_test.go provides testing for the typed error values.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package av1err

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{
			err:  New(UnexpectedEOF),
			want: "unexpected EOF",
		},
		{
			err:  New(InvalidEnumTag).WithField("frame_type"),
			want: "invalid enum tag: frame_type",
		},
		{
			err:  New(SequenceHeaderMissing).WithPacket(4),
			want: "sequence header missing (packet 4)",
		},
		{
			err:  New(GrainTableSyntax).WithField("sY").Wrap(errors.New("short line")),
			want: "grain table syntax error: sY: short line",
		},
	}

	for i, test := range tests {
		got := test.err.Error()
		if !strings.HasPrefix(got, test.want) {
			t.Errorf("did not get expected message for test %d\nGot: %v\nWant prefix: %v\n", i, got, test.want)
		}
	}
}

func TestErrorsAsThroughWrapping(t *testing.T) {
	base := New(LengthMismatch).WithField("frame").WithPacket(2)
	wrapped := errors.Wrap(base, "rewriting packet")

	var got *Error
	if !stderrors.As(wrapped, &got) {
		t.Fatalf("errors.As failed through pkg/errors wrapping: %v", wrapped)
	}
	if got.Kind != LengthMismatch || got.Field != "frame" || got.Packet != 2 {
		t.Errorf("unexpected unwrapped error: %+v", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("underlying")
	err := New(ContainerIOError).Wrap(cause)

	if got := errors.Cause(err.Unwrap()); got.Error() != "underlying" {
		t.Errorf("unexpected cause: %v", got)
	}
}

func TestWithFieldCopies(t *testing.T) {
	base := New(UnsupportedFeature)
	derived := base.WithField("bit_depth")
	if base.Field != "" {
		t.Error("WithField mutated the receiver")
	}
	if derived.Field != "bit_depth" {
		t.Errorf("unexpected derived field: %v", derived.Field)
	}
}

func TestKindString(t *testing.T) {
	if got := Kind(99).String(); got != "unknown error" {
		t.Errorf("unexpected String for out-of-range kind: %v", got)
	}
}
