package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"stash-go/internal/config"
	"stash-go/internal/secrets"
	"stash-go/internal/signer"
	"stash-go/internal/stash"
	"stash-go/internal/store"
)

// App is the application layer between the CLI and the storage providers.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the log file lifecycle on Close.
type App struct {
	cfg      *config.Config
	registry *store.Registry
	logger   stash.Logger
	clock    stash.Clock
	idgen    stash.IDGenerator
	logFile  *os.File
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "Upload", "Sign"). passphrase
// unlocks protected key files and may be empty otherwise. The caller must
// call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation, passphrase string) (*App, error) {
	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	secretKeys, err := secrets.Load(cfg.Keys.Dir, cfg.Keys.SecretsName, passphrase)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("loading secret keys: %w", err)
	}
	signingKeys, err := secrets.Load(cfg.Keys.Dir, cfg.Keys.SigningName, passphrase)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("loading signing keys: %w", err)
	}

	clock := stash.RealClock{}
	idgen := stash.UUIDGenerator{}
	sg := signer.New(signingKeys, clock)

	storage, err := store.NewStorageFromConfig(ctx, cfg, secretKeys, sg, logger, clock, idgen)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating storage: %w", err)
	}
	registry, err := store.NewRegistry(storage)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating storage registry: %w", err)
	}

	logger.Debug("app initialized", "operation", operation, "provider", storage.Provider())

	return &App{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		logFile:  logFile,
	}, nil
}

// UploadFile ingests the file at rawPath through the default provider and
// returns the entity the caller should persist.
func (a *App) UploadFile(ctx context.Context, rawPath string, opts stash.UploadOptions) (*stash.Entity, error) {
	f, err := os.Open(rawPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", rawPath, err)
	}
	defer f.Close()

	filename := stash.SanitizeFilename(filepath.Base(rawPath))
	res, err := a.registry.Default().Upload(ctx, f, filename, opts)
	if err != nil {
		return nil, err
	}

	entity := a.entityFromResult(res)
	a.logger.Info("file uploaded",
		"fileid", entity.FileID, "name", entity.Filename, "size", entity.Filesize)
	return entity, nil
}

// entityFromResult builds the file entity for a fresh upload result.
func (a *App) entityFromResult(res *stash.UploadResult) *stash.Entity {
	now := a.clock.Now()
	path := res.Metadata.Filepath
	entity := &stash.Entity{
		FileID:           a.idgen.New(),
		Filename:         res.Metadata.Name,
		OriginalFilename: stash.TrimExtension(res.Filename),
		Extension:        res.Metadata.Extension,
		Mimetype:         res.Metadata.Mimetype,
		Hash:             res.Metadata.Hash,
		Filesize:         res.Metadata.Size,
		BucketName:       res.BucketName,
		Provider:         res.Provider,
		AbsolutePath:     &path,
		Encrypted:        res.Options.Encrypt,
		Compressed:       res.Options.Compress,
		URIPath:          "/" + res.BucketName,
		Public:           res.Options.Public,
		Caption:          res.Options.Caption,
		SchemaVersion:    1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for _, m := range res.Metadata.Meta {
		entity.AddMeta(m)
	}
	return entity
}

// DownloadFile streams the entity's content to outPath. An empty outPath
// writes the download filename into the current directory. Returns the
// written path.
func (a *App) DownloadFile(ctx context.Context, entity *stash.Entity, outPath string) (string, error) {
	storage, err := a.registry.ByFile(entity)
	if err != nil {
		return "", err
	}

	dl, err := storage.Download(ctx, entity)
	if err != nil {
		return "", err
	}
	defer dl.Stream.Close()

	if outPath == "" {
		outPath = dl.Filename
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, dl.Stream); err != nil {
		return "", fmt.Errorf("writing %s: %w", outPath, err)
	}
	return outPath, nil
}

// DeleteFile removes the entity's backing bytes. The boolean result mirrors
// the provider contract: false means the bytes were already gone or cleanup
// degraded, never a hard failure.
func (a *App) DeleteFile(ctx context.Context, entity *stash.Entity) (bool, error) {
	storage, err := a.registry.ByFile(entity)
	if err != nil {
		return false, err
	}
	return storage.Delete(ctx, entity, nil)
}

// SignFile issues the download/view URL pair. Empty base and zero ttl fall
// back to the configured defaults.
func (a *App) SignFile(entity *stash.Entity, base string, ttl time.Duration) (*stash.SignedURL, error) {
	storage, err := a.registry.ByFile(entity)
	if err != nil {
		return nil, err
	}
	if base == "" {
		base = a.cfg.URLs.Base
	}
	if ttl == 0 {
		ttl = time.Duration(a.cfg.URLs.DefaultTTLSeconds) * time.Second
	}
	return storage.Sign(entity, base, ttl)
}

// VerifyFile checks a previously issued token against the entity.
func (a *App) VerifyFile(entity *stash.Entity, token string) error {
	storage, err := a.registry.ByFile(entity)
	if err != nil {
		return err
	}
	return storage.CheckSignature(entity, token)
}

// Close releases the log file.
func (a *App) Close() error {
	if a.logFile != nil {
		return a.logFile.Close()
	}
	return nil
}
