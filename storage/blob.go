// Package storage persists estimated meals and loads configuration documents such as
// the daily target table.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"mealagent/nutrient"
)

// Blob is a document that can be read in full.
type Blob interface {
	Load(ctx context.Context) ([]byte, error)
}

type FileBlob struct {
	FilePath string
}

func NewFileBlob(filePath string) *FileBlob {
	return &FileBlob{FilePath: filePath}
}

func (f *FileBlob) Load(ctx context.Context) ([]byte, error) {
	return os.ReadFile(f.FilePath)
}

type s3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Blob implements Blob backed by one S3 object.
type S3Blob struct {
	bucket string
	key    string
	s3     s3GetObjectAPI
}

func NewS3Blob(s3Client s3GetObjectAPI, bucket, key string) *S3Blob {
	return &S3Blob{
		bucket: bucket,
		key:    key,
		s3:     s3Client,
	}
}

func (s *S3Blob) Load(ctx context.Context) ([]byte, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// TestBlob is a simple in-memory implementation for testing
type TestBlob struct {
	data []byte
	err  error
}

func NewTestBlob(data []byte) *TestBlob {
	return &TestBlob{data: data}
}

func NewTestBlobWithError() *TestBlob {
	return &TestBlob{err: errors.New("not found")}
}

func (t *TestBlob) Load(ctx context.Context) ([]byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.data, nil
}

// LoadTargets reads a target table document from b. A nil blob yields the default table.
func LoadTargets(ctx context.Context, b Blob) (nutrient.Targets, error) {
	if b == nil {
		return nutrient.DefaultTargets(), nil
	}
	data, err := b.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load targets: %w", err)
	}
	targets, err := nutrient.ParseTargets(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse targets: %w", err)
	}
	return targets, nil
}
