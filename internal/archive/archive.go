// Package archive writes records that are about to be pruned to S3.
//
// Each prune produces one JSONL object:
//
//	s3://<bucket>/<prefix>/<collection>/<cutoff>/<run-id>.jsonl
//
// with one active record per line, identifiers included.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/steveyegge/tasksync/internal/store"
)

// Batch is a set of documents removed by one prune.
type Batch struct {
	RunID      string
	Collection string
	Cutoff     string
	Docs       []store.Document
}

// Archiver persists a batch before it is deleted.
type Archiver interface {
	Archive(ctx context.Context, batch Batch) (location string, err error)
}

// S3API is the subset of the S3 client this package uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads batches as JSONL objects.
type S3Archiver struct {
	api    S3API
	bucket string
	prefix string
	logger *slog.Logger
}

var _ Archiver = (*S3Archiver)(nil)

// NewS3 wraps an existing S3 client.
func NewS3(api S3API, bucket, prefix string, logger *slog.Logger) (*S3Archiver, error) {
	if api == nil {
		return nil, fmt.Errorf("s3 client cannot be nil")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Archiver{
		api:    api,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With("component", "archive"),
	}, nil
}

// NewS3FromEnv builds an S3Archiver from the default AWS configuration.
func NewS3FromEnv(ctx context.Context, region, bucket, prefix string, logger *slog.Logger) (*S3Archiver, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewS3(s3.NewFromConfig(cfg), bucket, prefix, logger)
}

// Key returns the object key for a batch.
func (a *S3Archiver) Key(b Batch) string {
	return path.Join(a.prefix, b.Collection, b.Cutoff, b.RunID+".jsonl")
}

// Archive implements Archiver. An empty batch uploads nothing.
func (a *S3Archiver) Archive(ctx context.Context, b Batch) (string, error) {
	if len(b.Docs) == 0 {
		return "", nil
	}
	if b.RunID == "" || b.Cutoff == "" {
		return "", fmt.Errorf("batch needs a run id and cutoff")
	}

	var buf bytes.Buffer
	if err := WriteJSONL(&buf, b.Docs); err != nil {
		return "", err
	}

	key := a.Key(b)
	_, err := a.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload archive s3://%s/%s: %w", a.bucket, key, err)
	}

	location := fmt.Sprintf("s3://%s/%s", a.bucket, key)
	a.logger.Info("archived expiring records", "location", location, "count", len(b.Docs))
	return location, nil
}

// WriteJSONL encodes docs one relaxed Extended JSON object per line, so
// ObjectIDs, dates and embedded documents survive a mongoimport.
func WriteJSONL(w io.Writer, docs []store.Document) error {
	for i, doc := range docs {
		line, err := bson.MarshalExtJSON(map[string]any(doc), false, false)
		if err != nil {
			return fmt.Errorf("failed to encode document %d: %w", i, err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("failed to write document %d: %w", i, err)
		}
	}
	return nil
}
