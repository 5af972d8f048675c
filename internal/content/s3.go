// ABOUTME: S3-compatible object store implementation of Repository
// ABOUTME: Uses aws-sdk-go-v2 with static credentials and an optional custom endpoint

package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/2389/press-gateway/internal/config"
)

// s3API is the subset of *s3.Client used by S3Repository.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// S3Repository stores files as objects under an optional key prefix.
type S3Repository struct {
	client s3API
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Repository builds an S3 client from cfg. Static credentials are used
// when AccessKey is set; otherwise the default AWS credential chain applies.
func NewS3Repository(ctx context.Context, cfg config.S3Config, httpClient *http.Client) (*S3Repository, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithHTTPClient(httpClient),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// MinIO and most self-hosted stores do not support virtual-host addressing
			o.UsePathStyle = true
		}
	})

	return newS3Repository(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Repository(client s3API, bucket, prefix string) *S3Repository {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Repository{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: slog.Default().With("component", "content.s3"),
	}
}

func (r *S3Repository) key(path string) string {
	return r.prefix + strings.Trim(path, "/")
}

// PutFile writes the object with If-None-Match so an existing key fails
// with ErrExists. The message is kept as object metadata.
func (r *S3Repository) PutFile(ctx context.Context, path string, content []byte, message string) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(r.key(path)),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String("application/json"),
		IfNoneMatch:   aws.String("*"),
		Metadata:      map[string]string{"commit-message": asciiOnly(message)},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
		return fmt.Errorf("s3 put %s: %w", path, err)
	}

	r.logger.Debug("object written", "key", r.key(path), "bytes", len(content))
	return nil
}

// ListDir lists objects directly under dir, sorted by name.
func (r *S3Repository) ListDir(ctx context.Context, dir string) ([]Entry, error) {
	dirPrefix := r.key(dir) + "/"
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(r.bucket),
		Prefix:    aws.String(dirPrefix),
		Delimiter: aws.String("/"),
	})

	var entries []Entry
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list %s: %w", dir, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := strings.TrimPrefix(key, dirPrefix)
			if name == "" {
				continue
			}
			entries = append(entries, Entry{
				Name: name,
				Path: strings.TrimPrefix(key, r.prefix),
				Size: aws.ToInt64(obj.Size),
			})
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// GetFile reads the object at path.
func (r *S3Repository) GetFile(ctx context.Context, path string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(path)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("s3 get %s: %w", path, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// asciiOnly replaces characters S3 rejects in user metadata headers.
func asciiOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '?'
		}
		return r
	}, s)
}

// Ensure S3Repository implements Repository.
var _ Repository = (*S3Repository)(nil)
