// Package session acquires the execution context for a run: AWS
// configuration and clients when an object store is involved, and the
// storage backend for each input and output location.
package session

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/BartekS5/lake-etl/internal/config"
	"github.com/BartekS5/lake-etl/pkg/logger"
	"github.com/BartekS5/lake-etl/pkg/storage"
)

// Session is created once per run and shared by both transform branches.
type Session struct {
	cfg    *config.Config
	aws    *aws.Config
	local  *storage.LocalStore
	remote *storage.S3Store
}

// New acquires the session. There are no retries: any failure is fatal
// for the run.
func New(ctx context.Context, cfg *config.Config) (*Session, error) {
	s := &Session{cfg: cfg, local: storage.NewLocalStore()}

	if !needsAWS(cfg) {
		logger.Debugf("No object store locations configured, skipping AWS setup")
		return s, nil
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}
	s.aws = &awsCfg

	if cfg.AWS.VerifyCredentials {
		if err := verifyCredentials(ctx, awsCfg); err != nil {
			return nil, err
		}
	}

	s.remote = storage.NewS3Store(s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
			o.UsePathStyle = true
		}
	}))
	return s, nil
}

func needsAWS(cfg *config.Config) bool {
	return storage.IsObjectStore(cfg.CatalogInput) ||
		storage.IsObjectStore(cfg.EventInput) ||
		storage.IsObjectStore(cfg.OutputRoot) ||
		cfg.Ledger.Backend == config.LedgerDynamoDB
}

func loadAWSConfig(ctx context.Context, c config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(c.Region),
	}

	key, secret := os.Getenv(config.EnvAccessKeyID), os.Getenv(config.EnvSecretAccessKey)
	if key != "" && secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, secret, os.Getenv("AWS_SESSION_TOKEN")),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

func verifyCredentials(ctx context.Context, awsCfg aws.Config) error {
	out, err := sts.NewFromConfig(awsCfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("verify aws credentials: %w", err)
	}
	logger.Infof("Using AWS identity %s", aws.ToString(out.Arn))
	return nil
}

// Store returns the storage backend that serves uri.
func (s *Session) Store(uri string) (storage.Store, error) {
	if !storage.IsObjectStore(uri) {
		return s.local, nil
	}
	if s.remote == nil {
		return nil, fmt.Errorf("no object store client for %s", uri)
	}
	return s.remote, nil
}

// DynamoDB returns a client for the remote run ledger.
func (s *Session) DynamoDB() (*dynamodb.Client, error) {
	if s.aws == nil {
		return nil, fmt.Errorf("aws is not configured for this session")
	}
	return dynamodb.NewFromConfig(*s.aws), nil
}

// Close releases session resources. AWS clients hold no open handles.
func (s *Session) Close() error {
	return nil
}
