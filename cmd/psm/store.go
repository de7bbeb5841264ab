package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/hupe1980/psmgo/blobstore"
	miniostore "github.com/hupe1980/psmgo/blobstore/minio"
	s3store "github.com/hupe1980/psmgo/blobstore/s3"
	"github.com/hupe1980/psmgo/config"
)

// openStore opens the blob store named by cfg.URI. s3:// and minio:// take
// their bucket from the host and their key prefix from the path.
func openStore(ctx context.Context, cfg config.StorageConfig) (blobstore.BlobStore, error) {
	if !strings.Contains(cfg.URI, "://") {
		return blobstore.FromURI(cfg.URI)
	}
	u, err := url.Parse(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("invalid store uri %q: %w", cfg.URI, err)
	}

	bucket := u.Host
	prefix := strings.Trim(u.Path, "/")

	switch u.Scheme {
	case "s3":
		if bucket == "" {
			return nil, fmt.Errorf("store uri %q has no bucket", cfg.URI)
		}
		return openS3(ctx, cfg, bucket, prefix)
	case "minio":
		if bucket == "" {
			return nil, fmt.Errorf("store uri %q has no bucket", cfg.URI)
		}
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("minio store requires storage.endpoint")
		}
		return miniostore.New(cfg.Endpoint, bucket, miniostore.Options{
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Secure:    cfg.Secure,
			Region:    cfg.Region,
			Prefix:    prefix,
		})
	default:
		return blobstore.FromURI(cfg.URI)
	}
}

func openS3(ctx context.Context, cfg config.StorageConfig, bucket, prefix string) (blobstore.BlobStore, error) {
	st, err := s3store.New(ctx, bucket, func(o *s3store.Options) {
		o.Prefix = prefix
		o.Region = cfg.Region
		o.Endpoint = cfg.Endpoint
		o.UsePathStyle = cfg.UsePathStyle
	})
	if err != nil {
		return nil, err
	}
	if cfg.CommitTable == "" {
		return st, nil
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	baseURI := "s3://" + bucket
	if prefix != "" {
		baseURI += "/" + prefix
	}
	return s3store.NewDDBCommitStore(st, dynamodb.NewFromConfig(awsCfg), cfg.CommitTable, baseURI), nil
}
