package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store keeps snapshots as objects in an S3 (or S3-compatible) bucket.
// The object key is <prefix>/<name>.region, so a bucket can hold the
// snapshots of several filesystems under different prefixes. Region
// images are uploaded whole; they are bounded by the mount's fixed
// region size, which keeps single-part uploads within S3 limits for any
// realistic configuration.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store returns a store over the given bucket. prefix may be empty.
func NewS3Store(client *s3.Client, bucket, prefix string) (*S3Store, error) {
	if client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}
	return &S3Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name + fileSuffix
	}
	return s.prefix + "/" + name + fileSuffix
}

// Save uploads image as one object. S3 object replacement is atomic, so
// a failed upload leaves any previous snapshot intact.
func (s *S3Store) Save(ctx context.Context, name string, image []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   bytes.NewReader(image),
	})
	if err != nil {
		return fmt.Errorf("uploading snapshot %s: %w", name, err)
	}
	return nil
}

// Load downloads the snapshot named name.
func (s *S3Store) Load(ctx context.Context, name string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("snapshot %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("downloading snapshot %s: %w", name, err)
	}
	defer result.Body.Close()

	image, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s body: %w", name, err)
	}
	return image, nil
}

// List pages through the prefix and returns the snapshot names, sorted.
func (s *S3Store) List(ctx context.Context) ([]string, error) {
	var names []string
	prefix := ""
	if s.prefix != "" {
		prefix = s.prefix + "/"
	}
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing snapshots: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, fileSuffix) {
				continue
			}
			name := strings.TrimSuffix(strings.TrimPrefix(key, prefix), fileSuffix)
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
