package logger

import (
	"errors"
	"testing"
)

func TestNewBuildsBothModes(t *testing.T) {
	for _, dev := range []bool{false, true} {
		l, err := New(dev)
		if err != nil {
			t.Fatalf("New(%v): %v", dev, err)
		}
		if l == nil {
			t.Fatalf("New(%v) returned nil logger", dev)
		}
	}
}

func TestNamedNilBaseReturnsNop(t *testing.T) {
	l := Named(nil, "svc.quoting")
	if l == nil {
		t.Fatalf("Named(nil) returned nil")
	}
	l.Info("dropped")
}

func TestMustPanicsOnError(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	Must(nil, errors.New("boom"))
}
