package datastore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/danthegoodman1/tablesplit/utils"
	"github.com/rs/zerolog"
)

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var ErrNoBucket = utils.PermError("S3_BUCKET_NAME is not set")

type (
	S3DataStore struct {
		bucket   string
		prefix   string
		uploader *s3manager.Uploader
	}
)

// NewS3DataStore uploads under prefix in the bucket configured by S3_BUCKET_NAME.
func NewS3DataStore(prefix string) (*S3DataStore, error) {
	if utils.S3_BUCKET_NAME == "" {
		return nil, ErrNoBucket
	}

	s3Config := &aws.Config{
		Region:      aws.String(utils.AWS_DEFAULT_REGION),
		Credentials: credentials.NewEnvCredentials(),
	}
	if utils.S3_ENDPOINT != "" {
		s3Config.Endpoint = aws.String(utils.S3_ENDPOINT)
		s3Config.S3ForcePathStyle = aws.Bool(true)
	}

	s3Session, err := session.NewSession(s3Config)
	if err != nil {
		return nil, fmt.Errorf("error making new session: %w", err)
	}

	return &S3DataStore{
		bucket:   utils.S3_BUCKET_NAME,
		prefix:   strings.Trim(prefix, "/"),
		uploader: s3manager.NewUploader(s3Session),
	}, nil
}

func (sds *S3DataStore) key(name string) string {
	if sds.prefix == "" {
		return name
	}
	return path.Join(sds.prefix, name)
}

func (sds *S3DataStore) WriteFile(ctx context.Context, name string, r io.Reader) (string, error) {
	logger := zerolog.Ctx(ctx)

	key := sds.key(name)
	input := &s3manager.UploadInput{
		Bucket:      aws.String(sds.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(XLSXContentType),
	}

	s := time.Now()
	_, err := sds.uploader.UploadWithContext(ctx, input)
	if err != nil {
		return "", fmt.Errorf("error uploading to s3: %w", err)
	}

	d := time.Since(s)
	logger.Debug().Str("key", key).Int64("durationNS", d.Nanoseconds()).Str("durationHuman", d.String()).Msg("uploaded file to s3")

	return fmt.Sprintf("s3://%s/%s", sds.bucket, key), nil
}

func (sds *S3DataStore) Describe() string {
	return fmt.Sprintf("s3://%s/%s", sds.bucket, sds.prefix)
}

func (sds *S3DataStore) Shutdown(_ context.Context) error {
	return nil
}
