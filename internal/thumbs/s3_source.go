package thumbs

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/folio-media/folio/internal/config"
)

// S3Source probes thumbnails stored in an S3 bucket.
type S3Source struct {
	client *s3.Client
	bucket string
}

// NewS3Source loads AWS configuration and creates an S3 client that shares httpClient.
// Static keys from cfg win over the default credential chain.
func NewS3Source(ctx context.Context, cfg config.ThumbnailConfig, httpClient *nethttp.Client) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, config.ErrMissingThumbTarget
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if httpClient != nil {
		opts = append(opts, awsconfig.WithHTTPClient(httpClient))
	}
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		static := awscreds.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.NewCredentialsCache(static, func(o *aws.CredentialsCacheOptions) {
			o.ExpiryWindow = 5 * time.Minute
		})))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Source{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
	}, nil
}

func (s *S3Source) Name() string { return "s3" }

func (s *S3Source) Stat(ctx context.Context, key string) (Info, error) {
	resp, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) || strings.Contains(err.Error(), "StatusCode: 404") {
			return Info{}, fmt.Errorf("%s: %w", key, ErrThumbnailMissing)
		}
		return Info{}, err
	}

	info := Info{Key: key}
	if resp.ContentLength != nil {
		info.Size = *resp.ContentLength
	}
	if resp.ETag != nil {
		info.ETag = strings.Trim(*resp.ETag, `"`)
	}
	return info, nil
}
