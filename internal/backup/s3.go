// Package backup ships the SQLite database file to an S3-compatible
// bucket on a schedule, adapted from the teacher's R2 backup service
// (internal/reliability/r2_backup_service.go) to this domain's single
// database file rather than that service's multi-file ledger backup.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Config controls where backups are shipped.
type Config struct {
	Enabled         bool
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// Service uploads the database file to object storage.
type Service struct {
	cfg      Config
	uploader *manager.Uploader
	log      zerolog.Logger
}

// New builds a Service. If cfg.Enabled is false, New returns a Service
// whose Run is a no-op — callers do not need to branch on enablement.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Service, error) {
	svc := &Service{cfg: cfg, log: log.With().Str("component", "backup").Logger()}
	if !cfg.Enabled {
		return svc, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})
	svc.uploader = manager.NewUploader(client)
	return svc, nil
}

// Run uploads dbPath under a timestamped key. No-op if the service was
// constructed with Enabled=false.
func (s *Service) Run(ctx context.Context, dbPath string) error {
	if !s.cfg.Enabled {
		return nil
	}

	f, err := os.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db file for backup: %w", err)
	}
	defer f.Close()

	key := fmt.Sprintf("backups/%s-%s", time.Now().UTC().Format("20060102T150405Z"), filepath.Base(dbPath))
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("upload backup: %w", err)
	}
	s.log.Info().Str("key", key).Msg("database backup uploaded")
	return nil
}
