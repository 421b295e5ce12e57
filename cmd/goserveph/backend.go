package main

import (
	"context"
	"fmt"
	"time"

	"goserveph/internal/db"
	"goserveph/internal/forms"
	"goserveph/internal/review"
	"goserveph/internal/storage"
	"goserveph/internal/store"
	"goserveph/pkg/types"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

type applicationRepository interface {
	forms.ApplicationCreator
	review.ApplicationStore
}

// backend holds the persistence chosen by configuration. Without
// DATABASE_URL and REDIS_URL everything lives in memory.
type backend struct {
	apps      applicationRepository
	events    review.EventLog
	overrides review.OverrideStore
	files     storage.Storage

	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, config *types.Config, logger *logrus.Logger) (*backend, error) {
	b := new(backend)

	if config.DatabaseURL != "" {
		pool, err := db.Connect(ctx, config)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)

		b.apps = store.NewApplicationRepository(pool)
		b.events = store.NewReviewEventRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set, applications are kept in memory")
		b.apps = store.NewMemoryApplicationRepository()
		b.events = store.NewMemoryReviewEventRepository()
	}

	if config.RedisURL != "" {
		client, err := store.NewRedisClient(ctx, config.RedisURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Close() })

		b.overrides = store.NewTODAOverrideRepository(client)
	} else {
		b.overrides = store.NewMemoryTODAOverrideRepository()
	}

	files, err := openStorage(ctx, config)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.files = files

	return b, nil
}

func openStorage(ctx context.Context, config *types.Config) (storage.Storage, error) {
	if config.StorageBackend != "s3" {
		return storage.NewDiskStorage(config.UploadDir, "/uploads")
	}

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}

	ttl := time.Duration(config.S3PresignTTLSec) * time.Second
	return storage.NewS3Storage(s3.NewFromConfig(awsConfig), config.S3BucketName, config.S3KeyPrefix, ttl), nil
}

func (b *backend) intake(logger *logrus.Logger) (*forms.Intake, error) {
	registry, err := forms.LoadRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load form schemas: %w", err)
	}
	return forms.NewIntake(logger, registry, b.apps, b.files), nil
}

func (b *backend) workflow(logger *logrus.Logger) *review.Workflow {
	return review.NewWorkflow(logger, b.apps, b.events, b.overrides)
}
