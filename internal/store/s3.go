package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"stash-go/internal/signer"
	"stash-go/internal/stash"
)

// ProviderS3 is the provider identifier for S3-backed storage.
const ProviderS3 = "s3"

// s3API is the subset of the S3 client used by this provider.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// s3Uploader is the subset of the upload manager used by this provider.
type s3Uploader interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3 stores file content as objects keyed by
// <prefix>/<bucket>/<YYYY>/<MM>/<name>.<ext> inside one backing S3
// bucket. Ingestion stages the transformed bytes into a local scratch
// file first so the pipeline stays a single synchronous pass, then ships
// the staged content through the upload manager.
type S3 struct {
	client   s3API
	uploader s3Uploader
	s3Bucket string
	prefix   string
	bucket   string
	staging  string
	opts     Options
	secrets  stash.KeyManager
	signer   *signer.Signer
	logger   stash.Logger
	clock    stash.Clock
	idgen    stash.IDGenerator
}

var _ stash.Storage = (*S3)(nil)

// S3Config identifies the backing bucket and staging area.
type S3Config struct {
	// Bucket is the backing S3 bucket name.
	Bucket string

	// Prefix is prepended to every object key. Optional.
	Prefix string

	// StagingDir receives scratch files during ingestion. Empty selects
	// the system temp directory.
	StagingDir string
}

// NewS3 creates an S3 storage provider for the named logical bucket.
func NewS3(client s3API, uploader s3Uploader, cfg S3Config, bucket string, opts Options,
	keys stash.KeyManager, sg *signer.Signer, logger stash.Logger, clock stash.Clock, idgen stash.IDGenerator) *S3 {
	staging := cfg.StagingDir
	if staging == "" {
		staging = os.TempDir()
	}
	return &S3{
		client:   client,
		uploader: uploader,
		s3Bucket: cfg.Bucket,
		prefix:   cfg.Prefix,
		bucket:   bucket,
		staging:  staging,
		opts:     opts,
		secrets:  keys,
		signer:   sg,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
	}
}

func (s *S3) Provider() string { return ProviderS3 }

// IsCompatible reports whether the entity was created by this provider.
func (s *S3) IsCompatible(file *stash.Entity) bool { return stash.Compatible(s, file) }

// Upload ingests src through the shared pipeline into a staged scratch
// file, then puts the staged bytes under this month's object key. The
// scratch file never survives the call.
func (s *S3) Upload(ctx context.Context, src io.Reader, filename string, opts stash.UploadOptions) (*stash.UploadResult, error) {
	scratch, err := os.CreateTemp(s.staging, "stash-upload-*")
	if err != nil {
		return nil, stash.NewFault(stash.OpCreateFile, err)
	}
	scratchPath := scratch.Name()
	defer func() {
		if err := os.Remove(scratchPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("removing staged upload failed", "path", scratchPath, "error", err)
		}
	}()

	ingested, err := runIngestion(src, scratch, s.opts, opts, s.secrets)
	if err != nil {
		if errors.Is(err, stash.ErrUnsupportedType) {
			return nil, err
		}
		s.logger.Error("upload pipeline failed", "staging", scratchPath, "error", err)
		if stash.IsFault(err) {
			return nil, err
		}
		return nil, stash.NewFault(stash.OpUpload, err)
	}

	name := s.idgen.New()
	key := s.objectKey(name + "." + stash.FileExtension(filename))

	staged, err := os.Open(scratchPath)
	if err != nil {
		return nil, stash.NewFault(stash.OpUpload, err)
	}
	defer staged.Close()

	if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Bucket),
		Key:         aws.String(key),
		Body:        staged,
		ContentType: aws.String(ingested.Mimetype),
	}); err != nil {
		s.logger.Error("putting object failed", "key", key, "error", err)
		return nil, stash.NewFault(stash.OpUpload, err)
	}

	ingested.Name = name
	ingested.Filepath = key
	return &stash.UploadResult{
		BucketName: s.bucket,
		Provider:   s.Provider(),
		Filename:   filename,
		Metadata:   *ingested,
		Options:    opts,
	}, nil
}

// Download fetches the entity's object and reverses the at-rest
// transforms. A missing object surfaces ErrNotFound.
func (s *S3) Download(ctx context.Context, file *stash.Entity) (*stash.Download, error) {
	if err := stash.CheckCompatible(s, file); err != nil {
		return nil, err
	}
	if file.AbsolutePath == nil {
		return nil, fmt.Errorf("%w: %s", stash.ErrNotFound, file.FileID)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.s3Bucket),
		Key:    aws.String(*file.AbsolutePath),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", stash.ErrNotFound, file.FileID)
		}
		s.logger.Warn("getting object failed", "key", *file.AbsolutePath, "error", err)
		return nil, fmt.Errorf("%w: %s", stash.ErrNotFound, file.FileID)
	}

	stream, err := openStream(out.Body, file, s.secrets)
	if err != nil {
		out.Body.Close()
		return nil, err
	}

	return &stash.Download{
		Stream:   stream,
		Filename: file.OriginalFilename + "." + file.Extension,
		Mimetype: file.Mimetype,
	}, nil
}

// Delete removes the entity's object, best-effort. See stash.Storage.
func (s *S3) Delete(ctx context.Context, file *stash.Entity, afterUnlink func(*stash.Entity) error) (bool, error) {
	if err := stash.CheckCompatible(s, file); err != nil {
		return false, err
	}
	if file.AbsolutePath == nil {
		return false, nil
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.s3Bucket),
		Key:    aws.String(*file.AbsolutePath),
	}); err != nil {
		s.logger.Warn("deleting object failed", "key", *file.AbsolutePath, "error", err)
		return false, nil
	}

	if afterUnlink != nil {
		if err := afterUnlink(file); err != nil {
			s.logger.Warn("after-unlink callback failed", "fileid", file.FileID, "error", err)
			return false, nil
		}
	}
	return true, nil
}

// Sign issues the download/view URL pair for the entity.
func (s *S3) Sign(file *stash.Entity, base string, ttl time.Duration) (*stash.SignedURL, error) {
	return signEntity(s, s.signer, file, base, ttl)
}

// CheckSignature validates a previously issued token for the entity.
func (s *S3) CheckSignature(file *stash.Entity, token string) error {
	return checkEntitySignature(s, s.signer, file, token)
}

func (s *S3) objectKey(name string) string {
	return path.Join(s.prefix, s.bucket, datePartitionSlash(s.clock.Now()), name)
}

// datePartitionSlash is the object-key variant of datePartition: always
// forward slashes, independent of the host separator.
func datePartitionSlash(now time.Time) string {
	return fmt.Sprintf("%04d/%02d", now.Year(), int(now.Month()))
}
