// Package store contains the storage provider implementations and the
// registry that resolves one per entity. Every implementation shares the
// same ingestion pipeline and URL signing; only the backing technology
// differs.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"stash-go/internal/signer"
	"stash-go/internal/stash"
)

// ProviderLocal is the provider identifier for local filesystem storage.
const ProviderLocal = "local"

// Options configures the ingestion pipeline shared by every provider.
type Options struct {
	// AllowedTypes is the MIME allow-list enforced by the sniffer.
	AllowedTypes []string

	// SniffMinBytes is the minimum classification sample; zero selects
	// pipeline.DefaultSniffBytes.
	SniffMinBytes int

	// ChunkSize is the read-buffer hint for the single-pass copy; zero
	// selects pipeline.DefaultChunkSize.
	ChunkSize int
}

// Local stores file content under a hierarchical path keyed by year and
// month: <root>/<bucket>/<YYYY>/<MM>/<name>.<ext>. It holds only its
// configuration and collaborator references, so one instance serves
// concurrent callers.
type Local struct {
	root    string
	bucket  string
	opts    Options
	secrets stash.KeyManager
	signer  *signer.Signer
	logger  stash.Logger
	clock   stash.Clock
	idgen   stash.IDGenerator
}

var _ stash.Storage = (*Local)(nil)

// NewLocal creates a local filesystem storage provider rooted at root.
func NewLocal(root, bucket string, opts Options, keys stash.KeyManager, sg *signer.Signer,
	logger stash.Logger, clock stash.Clock, idgen stash.IDGenerator) *Local {
	return &Local{
		root:    root,
		bucket:  bucket,
		opts:    opts,
		secrets: keys,
		signer:  sg,
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
	}
}

func (l *Local) Provider() string { return ProviderLocal }

// IsCompatible reports whether the entity was created by this provider.
func (l *Local) IsCompatible(file *stash.Entity) bool { return stash.Compatible(l, file) }

// Upload ingests src in a single pass and writes the transformed bytes to
// this month's partition. The generated name is produced before any bytes
// are read; a failed pipeline never leaves a partial file behind.
func (l *Local) Upload(ctx context.Context, src io.Reader, filename string, opts stash.UploadOptions) (*stash.UploadResult, error) {
	dir := filepath.Join(l.root, l.bucket, datePartition(l.clock.Now()))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, stash.NewFault(stash.OpCreateDir, err)
	}

	name := l.idgen.New()
	dest := filepath.Join(dir, name+"."+stash.FileExtension(filename))

	sink, err := os.Create(dest)
	if err != nil {
		return nil, stash.NewFault(stash.OpCreateFile, err)
	}

	ingested, err := runIngestion(src, sink, l.opts, opts, l.secrets)
	if err != nil {
		sink.Close()
		if rmErr := os.Remove(dest); rmErr != nil {
			l.logger.Warn("removing partial upload failed", "path", dest, "error", rmErr)
		}
		if errors.Is(err, stash.ErrUnsupportedType) {
			return nil, err
		}
		l.logger.Error("upload pipeline failed", "path", dest, "error", err)
		if stash.IsFault(err) {
			return nil, err
		}
		return nil, stash.NewFault(stash.OpUpload, err)
	}

	ingested.Name = name
	ingested.Filepath = dest
	return &stash.UploadResult{
		BucketName: l.bucket,
		Provider:   l.Provider(),
		Filename:   filename,
		Metadata:   *ingested,
		Options:    opts,
	}, nil
}

// Download opens the entity's bytes, reversing the at-rest transforms.
func (l *Local) Download(ctx context.Context, file *stash.Entity) (*stash.Download, error) {
	if err := stash.CheckCompatible(l, file); err != nil {
		return nil, err
	}

	path, err := l.resolvePath(file)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		l.logger.Warn("opening stored file failed", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %s", stash.ErrNotFound, file.FileID)
	}

	stream, err := openStream(f, file, l.secrets)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &stash.Download{
		Stream:   stream,
		Filename: file.OriginalFilename + "." + file.Extension,
		Mimetype: file.Mimetype,
	}, nil
}

// Delete removes the backing bytes, best-effort. See stash.Storage.
func (l *Local) Delete(ctx context.Context, file *stash.Entity, afterUnlink func(*stash.Entity) error) (bool, error) {
	if err := stash.CheckCompatible(l, file); err != nil {
		return false, err
	}
	if file.AbsolutePath == nil {
		return false, nil
	}

	if err := os.Remove(*file.AbsolutePath); err != nil && !os.IsNotExist(err) {
		l.logger.Warn("unlink failed", "path", *file.AbsolutePath, "error", err)
		return false, nil
	}

	if afterUnlink != nil {
		if err := afterUnlink(file); err != nil {
			l.logger.Warn("after-unlink callback failed", "fileid", file.FileID, "error", err)
			return false, nil
		}
	}
	return true, nil
}

// Sign issues the download/view URL pair for the entity.
func (l *Local) Sign(file *stash.Entity, base string, ttl time.Duration) (*stash.SignedURL, error) {
	return signEntity(l, l.signer, file, base, ttl)
}

// CheckSignature validates a previously issued token for the entity.
func (l *Local) CheckSignature(file *stash.Entity, token string) error {
	return checkEntitySignature(l, l.signer, file, token)
}

// resolvePath maps the entity to an on-disk file, treating a nil path,
// a stat failure, or a non-regular file as not found.
func (l *Local) resolvePath(file *stash.Entity) (string, error) {
	if file.AbsolutePath == nil {
		return "", fmt.Errorf("%w: %s", stash.ErrNotFound, file.FileID)
	}
	info, err := os.Stat(*file.AbsolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Warn("stat failed", "path", *file.AbsolutePath, "error", err)
		}
		return "", fmt.Errorf("%w: %s", stash.ErrNotFound, file.FileID)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", stash.ErrNotFound, file.FileID)
	}
	return *file.AbsolutePath, nil
}

// datePartition formats the year/zero-padded-month path segment.
func datePartition(now time.Time) string {
	return filepath.Join(fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())))
}
