package blob

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"zeepdrone/internal/drone"
)

// S3Options configures an S3Store.
type S3Options struct {
	Bucket  string
	Region  string
	BaseURL string
	Keys    Keys

	// Endpoint overrides the AWS endpoint, for S3-compatible stores.
	Endpoint string

	// AccessKey/SecretKey switch the client to static credentials. When
	// empty, the default credential chain applies.
	AccessKey string
	SecretKey string
}

// S3Store publishes objects to an S3 bucket. The bucket is expected to be
// served publicly under BaseURL with the object key as the path.
type S3Store struct {
	bucket   string
	baseURL  string
	keys     Keys
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Store creates an S3-backed store.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 store requires a bucket")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		bucket:   opts.Bucket,
		baseURL:  strings.TrimSuffix(opts.BaseURL, "/"),
		keys:     opts.Keys,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// UploadLevel stores a level archive and returns its public URL.
func (s *S3Store) UploadLevel(ctx context.Context, id string, data []byte) (string, error) {
	return s.put(ctx, s.keys.LevelKey(id), data, "application/zip")
}

// UploadThumbnail stores a thumbnail image and returns its public URL.
func (s *S3Store) UploadThumbnail(ctx context.Context, id string, data []byte) (string, error) {
	return s.put(ctx, s.keys.ThumbnailKey(id), data, "image/jpeg")
}

// ValidateSetup verifies the bucket exists and is reachable with the
// configured credentials.
func (s *S3Store) ValidateSetup(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", s.bucket, err)
	}
	return nil
}

func (s *S3Store) put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}

// Compile-time check that S3Store implements drone.BlobStore
var _ drone.BlobStore = (*S3Store)(nil)
