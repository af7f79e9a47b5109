package assets

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vango-dev/ssrpages/internal/errors"
)

// S3API is the part of the S3 client S3Fetcher uses.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher fetches assets from an S3 bucket. Missing keys are stale.
//
// Example:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	fetcher := assets.NewS3Fetcher(s3.NewFromConfig(cfg), "my-bucket", "dist/client/")
type S3Fetcher struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Client creates an S3 client for region. Credentials come from
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN; without
// them requests are anonymous, which suits public asset buckets.
func NewS3Client(region string) *s3.Client {
	return s3.New(s3.Options{
		Region:      region,
		Credentials: envCredentials(),
	})
}

func envCredentials() aws.CredentialsProvider {
	id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.AnonymousCredentials{}
	}
	creds := aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}
	return aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return creds, nil
	}))
}

// NewS3Fetcher creates a fetcher reading bucket/prefix+path.
func NewS3Fetcher(client S3API, bucket, prefix string) *S3Fetcher {
	return &S3Fetcher{client: client, bucket: bucket, prefix: prefix}
}

// Fetch implements Fetcher.
func (f *S3Fetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	key := f.prefix + strings.TrimPrefix(path, "/")
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if stderrors.As(err, &noKey) {
			return nil, staleError(path, err)
		}
		return nil, errors.New("E260").WithDetailf("s3://%s/%s", f.bucket, key).Wrap(err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.New("E260").WithDetailf("s3://%s/%s", f.bucket, key).Wrap(err)
	}
	return body, nil
}
