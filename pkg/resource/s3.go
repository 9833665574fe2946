package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/animbridge/internal/logger"
)

const s3Scheme = "s3://"

// S3Config configures the S3 client.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string

	// MaxClipSize bounds the object size read for one clip.
	MaxClipSize int64
}

// S3API is the subset of the S3 client used by S3Loader.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// NewS3Client builds a client from cfg. A custom endpoint switches to
// path-style addressing, as Localstack and MinIO require.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.Endpoint == "" {
		return s3.NewFromConfig(awsCfg), nil
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	}), nil
}

// IsS3URI reports whether ref is an s3:// URL.
func IsS3URI(ref string) bool {
	return strings.HasPrefix(ref, s3Scheme)
}

// ParseS3URI splits s3://bucket/key.
func ParseS3URI(ref string) (bucket, key string, err error) {
	if !IsS3URI(ref) {
		return "", "", fmt.Errorf("not an s3 url: %q", ref)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", "", fmt.Errorf("parse %q: %w", ref, err)
	}
	bucket, key = u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("missing bucket in %q", ref)
	}
	return bucket, key, nil
}

// S3Loader loads clips from S3 objects.
type S3Loader struct {
	client      S3API
	maxClipSize int64
}

// NewS3Loader creates a loader over client.
func NewS3Loader(client S3API, maxClipSize int64) *S3Loader {
	if maxClipSize <= 0 {
		maxClipSize = 64 << 20
	}
	return &S3Loader{client: client, maxClipSize: maxClipSize}
}

// Load fetches and decodes s3://bucket/key.
func (l *S3Loader) Load(ctx context.Context, ref string) (*Clip, error) {
	bucket, key, err := ParseS3URI(ref)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("missing key in %q", ref)
	}

	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(out.Body, l.maxClipSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	if int64(len(data)) > l.maxClipSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidClip, ref, l.maxClipSize)
	}

	clip, err := DecodeClip(data, FormatOf(key))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	logger.Debug("Clip loaded from S3", logger.KeyBucket, bucket, logger.KeyKey, key)
	return clip, nil
}

// ObjectInfo describes one listed clip object.
type ObjectInfo struct {
	URI  string
	Key  string
	Size int64
}

// List returns every clip object under s3://bucket/prefix.
func (l *S3Loader) List(ctx context.Context, ref string) ([]ObjectInfo, error) {
	bucket, prefix, err := ParseS3URI(ref)
	if err != nil {
		return nil, err
	}

	var out []ObjectInfo
	p := s3.NewListObjectsV2Paginator(l.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", ref, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !IsClipFile(key) {
				continue
			}
			out = append(out, ObjectInfo{
				URI:  s3Scheme + bucket + "/" + key,
				Key:  key,
				Size: aws.ToInt64(obj.Size),
			})
		}
	}
	return out, nil
}
