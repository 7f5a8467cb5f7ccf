package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultMultipartThreshold is the payload size above which uploads go
// through the transfer manager instead of a single PutObject.
const DefaultMultipartThreshold = 8 << 20

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type uploadAPI interface {
	PutObject(ctx context.Context, input *transfermanager.PutObjectInput, opts ...func(*transfermanager.Options)) (*transfermanager.PutObjectOutput, error)
}

// ObjectSink writes encoded datasets to one bucket under an optional key
// prefix. Large payloads take the multipart path when an uploader is set.
type ObjectSink struct {
	client    s3API
	uploader  uploadAPI
	bucket    string
	prefix    string
	threshold int
}

func NewObjectSink(client s3API, bucket, prefix string) (*ObjectSink, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client is nil")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket is empty")
	}
	return &ObjectSink{
		client:    client,
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
		threshold: DefaultMultipartThreshold,
	}, nil
}

// WithUploader enables multipart uploads for payloads of threshold bytes or
// more. A threshold <= 0 keeps the default.
func (s *ObjectSink) WithUploader(u uploadAPI, threshold int) *ObjectSink {
	s.uploader = u
	if threshold > 0 {
		s.threshold = threshold
	}
	return s
}

func (s *ObjectSink) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	key = strings.TrimLeft(key, "/")
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}

	if s.uploader != nil && len(data) >= s.threshold {
		_, err := s.uploader.PutObject(ctx, &transfermanager.PutObjectInput{
			Bucket:      s.bucket,
			Key:         key,
			Body:        bytes.NewReader(data),
			ContentType: contentType,
		})
		if err != nil {
			return fmt.Errorf("multipart upload key=%q: %w", key, err)
		}
		return nil
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object key=%q: %w", key, err)
	}
	return nil
}
