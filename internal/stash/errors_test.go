package stash

import (
	"errors"
	"fmt"
	"testing"
)

func TestFault(t *testing.T) {
	cause := errors.New("disk full")
	f := NewFault(OpCreateFile, cause)

	if !errors.Is(f, cause) {
		t.Error("errors.Is(fault, cause) = false")
	}
	if !IsFault(f) {
		t.Error("IsFault() = false for a fault")
	}
	if !IsFault(fmt.Errorf("wrapped: %w", f)) {
		t.Error("IsFault() = false for a wrapped fault")
	}
	if IsFault(ErrNotFound) {
		t.Error("IsFault() = true for a sentinel")
	}
	if got := f.Error(); got != "cannot create file: disk full" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCheckCompatible(t *testing.T) {
	s := fakeStorage{provider: "local"}

	if err := CheckCompatible(s, &Entity{Provider: "local"}); err != nil {
		t.Errorf("CheckCompatible(matching) = %v, want nil", err)
	}
	err := CheckCompatible(s, &Entity{Provider: "s3"})
	if !errors.Is(err, ErrIncompatibleProvider) {
		t.Errorf("CheckCompatible(mismatched) = %v, want ErrIncompatibleProvider", err)
	}
	if err := CheckCompatible(s, nil); !errors.Is(err, ErrIncompatibleProvider) {
		t.Errorf("CheckCompatible(nil) = %v, want ErrIncompatibleProvider", err)
	}
}

// fakeStorage implements just enough of Storage for compatibility checks.
type fakeStorage struct {
	Storage
	provider string
}

func (f fakeStorage) Provider() string { return f.provider }
