package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"fridge/models"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive keeps a copy of every bulk upload in an S3 bucket.
type S3Archive struct {
	client putObjectAPI
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Archive builds an archive from static credentials, or from the default
// AWS credential chain when accessKey is empty.
func NewS3Archive(ctx context.Context, region, accessKey, secretKey, bucket, prefix string) (*S3Archive, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3Archive(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func newS3Archive(client putObjectAPI, bucket, prefix string) *S3Archive {
	return &S3Archive{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}
}

// ArchiveMedia uploads file under <prefix>/<household>/<yyyy/mm/dd>/<uuid><ext> and returns the key.
func (a *S3Archive) ArchiveMedia(ctx context.Context, householdID string, file models.MediaFile) (string, error) {
	key := path.Join(a.prefix, householdID, a.now().UTC().Format("2006/01/02"), uuid.NewString()+extensionFor(file))
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file.Data),
		ContentType: aws.String(file.MIMEType),
		Metadata: map[string]string{
			"original-name": file.Name,
			"household-id":  householdID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("put s3 object %s: %w", key, err)
	}
	return key, nil
}

func extensionFor(file models.MediaFile) string {
	if ext := strings.ToLower(path.Ext(file.Name)); ext != "" {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(file.MIMEType); len(exts) > 0 {
		return exts[0]
	}
	return ""
}
