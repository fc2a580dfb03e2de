// Package archive copies a day's ledger to an S3-compatible object store.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/okian/rollcall/internal/adapters/ledger"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

const (
	defaultRegion = "us-east-1"
	contentType   = "text/csv; charset=utf-8"
)

// ObjectPutter is the slice of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds S3 connection parameters. Empty credentials fall back to
// the default AWS chain (env, shared config, instance role).
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, for MinIO and friends
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// Uploader writes ledgers as CSV objects.
type Uploader struct {
	client ObjectPutter
	bucket string
	prefix string
	loc    *time.Location
	log    logger.Logger
}

// New builds an S3 client from cfg and returns an Uploader on top of it.
func New(ctx context.Context, cfg Config, opts ...Option) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithClient(client, cfg.Bucket, opts...), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client ObjectPutter, bucket string, opts ...Option) *Uploader {
	u := &Uploader{
		client: client,
		bucket: bucket,
		loc:    time.Local,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Key returns the object key for date, mirroring the csv ledger file name.
func (u *Uploader) Key(date model.DateKey) string {
	return u.prefix + "attendance_" + date.String() + ".csv"
}

// Upload reads date from r and stores it as one CSV object. It returns the
// object key. Re-uploading a date overwrites the previous copy.
func (u *Uploader) Upload(ctx context.Context, r ledger.Reader, date model.DateKey) (string, error) {
	recs, err := r.Records(ctx, date)
	if err != nil {
		metrics.RecordArchiveUpload("read_error")
		return "", fmt.Errorf("archive %s: %w", date, err)
	}
	if len(recs) == 0 {
		metrics.RecordArchiveUpload("empty")
		return "", fmt.Errorf("archive %s: %w", date, ErrEmptyLedger)
	}

	var buf bytes.Buffer
	if err := ledger.EncodeCSV(&buf, recs, u.loc); err != nil {
		metrics.RecordArchiveUpload("encode_error")
		return "", fmt.Errorf("archive %s: encode: %w", date, err)
	}

	key := u.Key(date)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String(contentType),
		Metadata:      map[string]string{"attendance-date": date.String()},
	})
	if err != nil {
		metrics.RecordArchiveUpload("error")
		return "", fmt.Errorf("%w: s3://%s/%s: %w", ErrUpload, u.bucket, key, err)
	}
	metrics.RecordArchiveUpload("ok")
	u.log.Info(ctx, "ledger archived",
		logger.String("date", date.String()),
		logger.String("bucket", u.bucket),
		logger.String("key", key),
		logger.Int("records", len(recs)))
	return key, nil
}
