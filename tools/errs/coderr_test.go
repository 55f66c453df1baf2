package errs

import (
	"strings"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := ErrNotJoined.WrapMsg("join check", "room", "trip-42")
	if !ErrNotJoined.Is(err) {
		t.Fatal("wrapped error must match by code")
	}
	if ErrNotAuthorized.Is(err) {
		t.Fatal("different code must not match")
	}
}

func TestWrapMsgKeepsCodeAndAppendsDetail(t *testing.T) {
	err := ErrPersistFailed.WrapMsg("insert", "conv", "conv-1")

	inner := Unwrap(err)
	ce, ok := inner.(*CodeError)
	if !ok {
		t.Fatalf("innermost should be *CodeError, got %T", inner)
	}
	if ce.Code != CodePersistFailed {
		t.Fatalf("code = %d", ce.Code)
	}
	if !strings.Contains(ce.Detail, "conv=conv-1") {
		t.Fatalf("detail = %q", ce.Detail)
	}
	// 原型不被污染
	if ErrPersistFailed.Detail != "" {
		t.Fatalf("prototype mutated: %q", ErrPersistFailed.Detail)
	}
}

func TestWithDetailChains(t *testing.T) {
	e := ErrArgs.WithDetail("first").WithDetail("second")
	if !strings.Contains(e.Detail, "first") || !strings.Contains(e.Detail, "second") {
		t.Fatalf("detail = %q", e.Detail)
	}
	if e.Code != CodeArgs {
		t.Fatalf("code = %d", e.Code)
	}
}

func TestUnwrapWalksToInnermost(t *testing.T) {
	err := WrapMsg(ErrRoomNotFound.Wrap(), "outer layer")
	inner := Unwrap(err)
	ce, ok := inner.(*CodeError)
	if !ok || ce.Code != CodeRoomNotFound {
		t.Fatalf("innermost = %#v", inner)
	}
}

func TestWrapNilIsNil(t *testing.T) {
	if Wrap(nil) != nil {
		t.Fatal("Wrap(nil) must be nil")
	}
	if WrapMsg(nil, "x") != nil {
		t.Fatal("WrapMsg(nil) must be nil")
	}
}

func TestNewFormatsKeyValues(t *testing.T) {
	err := New("bad frame", "type", "join_room", "size", 12)
	for _, want := range []string{"bad frame", "type=join_room", "size=12"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err.Error(), want)
		}
	}
}
