package store

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"stash-go/internal/config"
	"stash-go/internal/signer"
	"stash-go/internal/stash"
)

// NewStorageFromConfig creates a Storage implementation based on the storage config type.
func NewStorageFromConfig(ctx context.Context, cfg *config.Config, keys stash.KeyManager, sg *signer.Signer,
	logger stash.Logger, clock stash.Clock, idgen stash.IDGenerator) (stash.Storage, error) {

	opts := Options{
		AllowedTypes:  cfg.Upload.AllowedMimetypes,
		SniffMinBytes: cfg.Upload.SniffMinBytes,
		ChunkSize:     cfg.Upload.ChunkSize,
	}

	switch cfg.Storage.Type {
	case "local":
		if cfg.Storage.Root == "" {
			return nil, fmt.Errorf("local storage requires root to be set")
		}
		return NewLocal(cfg.Storage.Root, cfg.Storage.Bucket, opts, keys, sg, logger, clock, idgen), nil
	case "s3":
		if cfg.Storage.S3Bucket == "" {
			return nil, fmt.Errorf("s3 storage requires s3_bucket to be set")
		}
		client, err := newS3Client(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("creating s3 client: %w", err)
		}
		s3cfg := S3Config{
			Bucket:     cfg.Storage.S3Bucket,
			Prefix:     cfg.Storage.S3Prefix,
			StagingDir: cfg.Storage.StagingDir,
		}
		return NewS3(client, manager.NewUploader(client), s3cfg, cfg.Storage.Bucket, opts,
			keys, sg, logger, clock, idgen), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}

// newS3Client builds an S3 client from the storage config. Credentials
// fall back to the default AWS chain when not set explicitly.
func newS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = &cfg.S3Endpoint
		}
		o.UsePathStyle = cfg.S3PathStyle
	}), nil
}
