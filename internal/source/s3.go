package source

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"runtime"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/county-aqi-risk/internal/dashboard"
	"github.com/couchcryptid/county-aqi-risk/internal/domain"
)

// ObjectStore is the subset of the S3 API the loader uses.
type ObjectStore interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Loader aggregates annual files stored under a bucket prefix.
type S3Loader struct {
	client ObjectStore
	bucket string
	prefix string
	glob   string
	logger *slog.Logger
}

// NewS3Client builds an S3 client from the default AWS credential chain.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// NewS3Loader creates an S3Loader. Object base names are matched against glob.
func NewS3Loader(client ObjectStore, bucket, prefix, glob string, logger *slog.Logger) *S3Loader {
	if glob == "" {
		glob = DefaultGlob
	}
	return &S3Loader{client: client, bucket: bucket, prefix: prefix, glob: glob, logger: logger}
}

// Keys lists the matching object keys in order.
func (l *S3Loader) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	pages := s3.NewListObjectsV2Paginator(l.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(l.bucket),
		Prefix: aws.String(l.prefix),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("S3 ListObjectsV2 %s/%s: %w", l.bucket, l.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if ok, _ := path.Match(l.glob, path.Base(key)); ok {
				keys = append(keys, key)
			}
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Load implements dashboard.Loader.
func (l *S3Loader) Load(ctx context.Context) (dashboard.Input, error) {
	keys, err := l.Keys(ctx)
	if err != nil {
		return dashboard.Input{}, err
	}
	if len(keys) == 0 {
		return dashboard.Input{}, fmt.Errorf("no objects matching %s under s3://%s/%s", l.glob, l.bucket, l.prefix)
	}

	parts := make([]*domain.Accumulator, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, key := range keys {
		g.Go(func() error {
			acc, err := l.readObject(ctx, key)
			if err != nil {
				return err
			}
			parts[i] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return dashboard.Input{}, err
	}

	l.logger.Info("annual objects aggregated", "bucket", l.bucket, "objects", len(keys))
	return dashboard.Input{Origin: dashboard.OriginAnnual, Tally: mergeAll(parts)}, nil
}

func (l *S3Loader) readObject(ctx context.Context, key string) (*domain.Accumulator, error) {
	resp, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("S3 GetObject %s/%s: %w", l.bucket, key, err)
	}
	defer resp.Body.Close()

	acc := domain.NewAccumulator()
	rows, err := ReadAnnualCSV(resp.Body, acc)
	if err != nil {
		return nil, fmt.Errorf("s3://%s/%s: %w", l.bucket, key, err)
	}
	l.logger.Debug("annual object parsed", "key", key, "rows", rows, "counties", acc.Len())
	return acc, nil
}
