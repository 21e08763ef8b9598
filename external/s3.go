package external

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client wraps the AWS SDK's S3 client for the small set of
// bucket/object operations the submitter needs (spec.md §4.H):
// head_bucket, get/put_bucket_policy, list_objects.
type S3Client struct {
	svc    *s3.Client
	bucket string
}

// S3Config configures an S3Client against a CSC-hosted, S3-compatible
// endpoint.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

// NewS3Client builds an S3Client from static credentials and a custom
// endpoint (CSC's object store, not AWS proper).
func NewS3Client(ctx context.Context, cfg S3Config) (*S3Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("external: s3: load config: %w", err)
	}

	svc := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Client{svc: svc, bucket: cfg.Bucket}, nil
}

// HeadBucket checks the configured bucket exists and is reachable.
func (c *S3Client) HeadBucket(ctx context.Context) error {
	_, err := c.svc.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		return fmt.Errorf("external: s3: head bucket %q: %w", c.bucket, err)
	}
	return nil
}

// GetBucketPolicy returns the bucket's current policy document.
func (c *S3Client) GetBucketPolicy(ctx context.Context) (string, error) {
	out, err := c.svc.GetBucketPolicy(ctx, &s3.GetBucketPolicyInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		return "", fmt.Errorf("external: s3: get bucket policy %q: %w", c.bucket, err)
	}
	return aws.ToString(out.Policy), nil
}

// PutBucketPolicy replaces the bucket's policy document.
func (c *S3Client) PutBucketPolicy(ctx context.Context, policy string) error {
	_, err := c.svc.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(c.bucket),
		Policy: aws.String(policy),
	})
	if err != nil {
		return fmt.Errorf("external: s3: put bucket policy %q: %w", c.bucket, err)
	}
	return nil
}

// ListObjects lists every object under prefix.
func (c *S3Client) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(c.svc, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("external: s3: list objects under %q: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}
