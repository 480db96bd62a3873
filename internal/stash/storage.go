package stash

import (
	"context"
	"fmt"
	"io"
	"time"
)

// UploadOptions selects optional pipeline stages and caller-facing flags
// for a single ingestion.
type UploadOptions struct {
	Compress bool
	Encrypt  bool
	Caption  string
	Public   bool
}

// UploadMeta is the ephemeral result of one ingestion. It is created once
// per successful upload and handed to the caller to persist as a new file
// entity; this package never mutates it afterward.
type UploadMeta struct {
	Name      string
	Extension string
	Mimetype  string
	Hash      string
	Size      int64
	Filepath  string
	Meta      []MetadataValue
}

// UploadResult carries the ingestion outcome plus the provider context the
// caller needs to build a file entity.
type UploadResult struct {
	BucketName string
	Provider   string
	Filename   string
	Metadata   UploadMeta
	Options    UploadOptions
}

// Download is a plain byte stream for a stored file, already decrypted and
// decompressed. The caller owns closing Stream.
type Download struct {
	Stream   io.ReadCloser
	Filename string
	Mimetype string
}

// SignedURL is the pair of time-limited URLs issued for one entity.
type SignedURL struct {
	Download string
	View     string
}

// Storage is the provider contract. Each implementation owns one named
// bucket in one backing technology and holds no per-call mutable state, so
// a single instance is safe for concurrent use.
type Storage interface {
	// Provider returns the identifier recorded on entities this storage
	// creates ("local", "s3", ...).
	Provider() string

	// Upload ingests src in a single pass: classification, hashing,
	// optional compression and encryption, then the sink. Sniffing and
	// allow-list violations surface ErrUnsupportedType; everything else
	// is a *Fault.
	Upload(ctx context.Context, src io.Reader, filename string, opts UploadOptions) (*UploadResult, error)

	// Download opens a read stream for the entity, decrypting and
	// decompressing as the entity describes. Missing bytes surface
	// ErrNotFound.
	Download(ctx context.Context, file *Entity) (*Download, error)

	// Delete removes the backing bytes, best-effort. A nil AbsolutePath
	// no-ops with (false, nil); removal and afterUnlink failures degrade
	// to (false, nil) rather than propagate. The error is non-nil only
	// for an incompatible provider.
	Delete(ctx context.Context, file *Entity, afterUnlink func(*Entity) error) (bool, error)

	// Sign issues the download/view URL pair under base, valid for ttl.
	Sign(file *Entity, base string, ttl time.Duration) (*SignedURL, error)

	// CheckSignature validates a previously issued token against the
	// entity's current identity and the wall clock. It returns nil,
	// ErrInvalidSignature, ErrExpiredSignature, or a *Fault for crypto
	// library failures.
	CheckSignature(file *Entity, token string) error

	// IsCompatible reports whether the entity was created by this
	// storage's provider.
	IsCompatible(file *Entity) bool
}

// Compatible is the shared provider check every implementation uses for
// IsCompatible.
func Compatible(s Storage, file *Entity) bool {
	return file != nil && file.Provider == s.Provider()
}

// CheckCompatible fails fast with ErrIncompatibleProvider before any I/O
// when the entity belongs to another provider.
func CheckCompatible(s Storage, file *Entity) error {
	if !Compatible(s, file) {
		return fmt.Errorf("%w: entity belongs to %q, storage is %q",
			ErrIncompatibleProvider, entityProvider(file), s.Provider())
	}
	return nil
}

func entityProvider(file *Entity) string {
	if file == nil {
		return ""
	}
	return file.Provider
}
