package afs

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscredentials "github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3fs "github.com/looplj/afero-s3"
	"github.com/samber/lo"
	"github.com/spf13/afero"
)

const (
	ModeFs     = "fs"
	ModeMemory = "memory"
	ModeS3     = "s3"
)

type S3Config struct {
	Bucket    string `conf:"bucket" yaml:"bucket" json:"bucket"`
	Region    string `conf:"region" yaml:"region" json:"region"`
	Endpoint  string `conf:"endpoint" yaml:"endpoint" json:"endpoint"`
	AccessKey string `conf:"access_key" yaml:"access_key" json:"access_key"`
	SecretKey string `conf:"secret_key" yaml:"secret_key" json:"-"`
}

// Config selects the filesystem behind the backend.
type Config struct {
	Mode      string   `conf:"mode" yaml:"mode" json:"mode"`
	Directory string   `conf:"directory" yaml:"directory" json:"directory"`
	BaseURL   string   `conf:"base_url" yaml:"base_url" json:"base_url"`
	S3        S3Config `conf:"s3" yaml:"s3" json:"s3"`

	// ReadCache keeps read files in memory for this long. Zero disables it.
	ReadCache time.Duration `conf:"read_cache" yaml:"read_cache" json:"read_cache"`
}

// NewFs builds the filesystem described by cfg.
func NewFs(ctx context.Context, cfg Config) (afero.Fs, error) {
	var base afero.Fs

	switch cfg.Mode {
	case ModeMemory:
		base = afero.NewMemMapFs()
	case ModeFs:
		if cfg.Directory == "" {
			return nil, fmt.Errorf("directory not configured for fs storage")
		}

		base = afero.NewBasePathFs(afero.NewOsFs(), cfg.Directory)
	case ModeS3:
		fs, err := newS3Fs(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 filesystem: %w", err)
		}

		base = fs
	default:
		return nil, fmt.Errorf("unsupported storage mode: %q", cfg.Mode)
	}

	if cfg.ReadCache > 0 {
		return afero.NewCacheOnReadFs(base, afero.NewMemMapFs(), cfg.ReadCache), nil
	}

	return base, nil
}

func newS3Fs(ctx context.Context, cfg S3Config) (afero.Fs, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket not configured")
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.AccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			awscredentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = lo.ToPtr(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return s3fs.NewFsFromClient(cfg.Bucket, client), nil
}
