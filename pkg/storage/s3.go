package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3API is the slice of the S3 API the store calls. [s3.Client]
// satisfies it; tests substitute a fake.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3 is the object-store FileStore that managed devices pull trained
// wake-word models from. It works against Amazon S3 or any compatible
// endpoint (MinIO, R2). The client carries credentials and region.
type S3 struct {
	api    S3API
	bucket string
	prefix string
}

// NewS3 creates an S3-backed FileStore. Keys are placed under prefix;
// pass "" to write at the bucket root.
func NewS3(api S3API, bucket, prefix string) *S3 {
	return &S3{api: api, bucket: bucket, prefix: prefix}
}

func (s *S3) object(name string) *string {
	return aws.String(path.Join(s.prefix, name))
}

func (s *S3) Read(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.object(name),
	})
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("storage: read %s: %w", name, os.ErrNotExist)
		}
		return nil, err
	}
	return out.Body, nil
}

// Write streams to a PutObject call running in a goroutine, fed through
// an io.Pipe. Close blocks until the upload finishes and reports its
// error.
func (s *S3) Write(ctx context.Context, name string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	result := make(chan error, 1)
	go func() {
		_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    s.object(name),
			Body:   pr,
		})
		// A failed upload must also unblock writers stuck on the pipe.
		pr.CloseWithError(err)
		result <- err
	}()
	return &uploadWriter{pw: pw, result: result}, nil
}

// Delete removes the object. S3 treats missing keys as success already.
func (s *S3) Delete(ctx context.Context, name string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.object(name),
	})
	return err
}

func (s *S3) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.object(name),
	})
	switch {
	case err == nil:
		return true, nil
	case notFound(err):
		return false, nil
	default:
		return false, err
	}
}

type uploadWriter struct {
	pw     *io.PipeWriter
	result chan error
}

func (w *uploadWriter) Write(p []byte) (int, error) { return w.pw.Write(p) }

func (w *uploadWriter) Close() error {
	w.pw.Close() // EOF lets PutObject finish reading
	return <-w.result
}

func notFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	code := apiErr.ErrorCode()
	return code == "NotFound" || code == "NoSuchKey"
}

var _ FileStore = (*S3)(nil)
