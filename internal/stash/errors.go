package stash

import (
	"errors"
	"fmt"
)

// Recoverable validation outcomes. Callers branch on these with errors.Is;
// everything else escaping the package is an infrastructure fault.
var (
	// ErrUnsupportedType is returned when content sniffing yields no match
	// or a type absent from the allow-list. Both cases share this sentinel
	// and differ only in message.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrNotFound is returned when a file's backing bytes are missing or
	// the entity's path has already been cleared.
	ErrNotFound = errors.New("file not found")

	// ErrInvalidSignature is returned for malformed or tampered tokens.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrExpiredSignature is returned for well-formed tokens past their
	// embedded expiry.
	ErrExpiredSignature = errors.New("signature expired")

	// ErrIncompatibleProvider indicates caller misrouting: the entity was
	// created by a different storage provider.
	ErrIncompatibleProvider = errors.New("incompatible storage provider")
)

// FaultOp identifies the infrastructure operation that failed.
type FaultOp string

const (
	OpCreateDir  FaultOp = "create directory"
	OpCreateFile FaultOp = "create file"
	OpEncrypt    FaultOp = "encrypt file"
	OpDecrypt    FaultOp = "decrypt file"
	OpSign       FaultOp = "sign url"
	OpVerify     FaultOp = "evaluate signature"
	OpUpload     FaultOp = "upload file"
)

// Fault is an infrastructure failure: disk, crypto library, or transport.
// Unlike the sentinel errors above it is not a business condition; callers
// are expected to propagate it rather than branch on it.
type Fault struct {
	Op  FaultOp
	Err error
}

// NewFault wraps err as an infrastructure fault for op.
func NewFault(op FaultOp, err error) *Fault {
	return &Fault{Op: op, Err: err}
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("cannot %s", f.Op)
	}
	return fmt.Sprintf("cannot %s: %v", f.Op, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// IsFault reports whether err is (or wraps) an infrastructure fault.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}
