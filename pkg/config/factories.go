package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/regionfs/pkg/snapshot"
)

// CreateSnapshotStore creates a snapshot store from configuration.
//
// The Type field selects the implementation; the matching type-specific
// map is decoded into that store's own config struct and handed to its
// constructor. Type "none" yields a nil store — the daemon then skips
// snapshotting entirely.
func CreateSnapshotStore(ctx context.Context, cfg *SnapshotConfig) (snapshot.Store, error) {
	switch cfg.Type {
	case "none":
		return nil, nil
	case "file":
		return createFileSnapshotStore(cfg.File)
	case "s3":
		return createS3SnapshotStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown snapshot store type: %q", cfg.Type)
	}
}

// createFileSnapshotStore creates a local-directory snapshot store.
func createFileSnapshotStore(options map[string]any) (snapshot.Store, error) {
	type FileSnapshotStoreConfig struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg FileSnapshotStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode file snapshot store config: %w", err)
	}
	if storeCfg.Path == "" {
		return nil, fmt.Errorf("file snapshot store: path is required")
	}

	store, err := snapshot.NewFileStore(storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file snapshot store: %w", err)
	}
	return store, nil
}

// createS3SnapshotStore creates an S3-backed snapshot store.
func createS3SnapshotStore(ctx context.Context, options map[string]any) (snapshot.Store, error) {
	type S3SnapshotStoreConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
	}

	var storeCfg S3SnapshotStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 snapshot store config: %w", err)
	}
	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 snapshot store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 snapshot store: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Static credentials are optional; without them the default AWS
	// credential chain (environment, shared config, IMDS) applies.
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(storeCfg.AccessKeyID, storeCfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Custom endpoint supports S3-compatible stores (MinIO,
		// Localstack) which usually need path-style addressing.
		if storeCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return snapshot.NewS3Store(client, storeCfg.Bucket, storeCfg.KeyPrefix)
}
