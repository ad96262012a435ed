// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/chatforge/modelfleet/pkg/artifacts"
)

func init() {
	artifacts.Providers.Register("s3", func(ctx context.Context, params map[string]string) (artifacts.Store, error) {
		return New(ctx, Options{
			Bucket:   params["bucket"],
			Region:   params["region"],
			Prefix:   params["prefix"],
			Endpoint: params["endpoint"],
		})
	})
}

// compile-time check
var _ artifacts.Store = (*Store)(nil)

// Options configures the S3 backend.
type Options struct {
	Bucket   string // required
	Region   string // e.g. "us-east-1"
	Prefix   string // key prefix, e.g. "artifacts/"
	Endpoint string // custom endpoint for MinIO compatibility
}

// artifactMetadata is the JSON sidecar stored alongside each archive in S3.
type artifactMetadata struct {
	ID        string    `json:"id"`
	ModelID   string    `json:"model_id"`
	Filename  string    `json:"filename"`
	Bytes     int64     `json:"bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Store implements artifacts.Store backed by S3 (or MinIO).
//
// Object layout:
//
//	<prefix><artifact_id>/model.tar.gz
//	<prefix><artifact_id>/metadata.json
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an S3-backed Store.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 artifact store: bucket is required")
	}

	optFns := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if opts.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true // required for MinIO
		})
	}

	client := s3.NewFromConfig(cfg, s3Opts...)

	return &Store{
		client: client,
		bucket: opts.Bucket,
		prefix: opts.Prefix,
	}, nil
}

func (s *Store) archiveKey(artifactID string) string {
	return s.prefix + artifactID + "/model.tar.gz"
}

func (s *Store) metadataKey(artifactID string) string {
	return s.prefix + artifactID + "/metadata.json"
}

// PutArtifact uploads both the archive and metadata.json to S3.
func (s *Store) PutArtifact(ctx context.Context, artifact *artifacts.Artifact) error {
	meta := artifactMetadata{
		ID:        artifact.ID,
		ModelID:   artifact.ModelID,
		Filename:  artifact.Filename,
		Bytes:     artifact.Bytes,
		CreatedAt: artifact.CreatedAt,
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.archiveKey(artifact.ID)),
		Body:        bytes.NewReader(artifact.Content),
		ContentType: aws.String("application/gzip"),
	})
	if err != nil {
		return fmt.Errorf("put archive: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.metadataKey(artifact.ID)),
		Body:        bytes.NewReader(metaBytes),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put metadata: %w", err)
	}

	return nil
}

// GetArtifact returns artifact metadata (Content is nil).
func (s *Store) GetArtifact(ctx context.Context, artifactID string) (*artifacts.Artifact, error) {
	meta, err := s.readMetadata(ctx, artifactID)
	if err != nil {
		return nil, err
	}

	return &artifacts.Artifact{
		ID:        meta.ID,
		ModelID:   meta.ModelID,
		Filename:  meta.Filename,
		Bytes:     meta.Bytes,
		CreatedAt: meta.CreatedAt,
	}, nil
}

// GetArtifactContent returns the raw archive bytes from S3.
func (s *Store) GetArtifactContent(ctx context.Context, artifactID string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.archiveKey(artifactID)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("artifact %s: %w", artifactID, artifacts.ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("get archive: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read archive body: %w", err)
	}
	return data, nil
}

// DeleteArtifact removes both the archive and metadata objects.
func (s *Store) DeleteArtifact(ctx context.Context, artifactID string) error {
	// Check existence first
	if _, err := s.readMetadata(ctx, artifactID); err != nil {
		return err
	}

	_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &s3types.Delete{
			Objects: []s3types.ObjectIdentifier{
				{Key: aws.String(s.archiveKey(artifactID))},
				{Key: aws.String(s.metadataKey(artifactID))},
			},
			Quiet: aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("delete objects: %w", err)
	}
	return nil
}

// ListArtifacts lists all staged artifacts sorted by ID.
func (s *Store) ListArtifacts(ctx context.Context) ([]*artifacts.Artifact, error) {
	delimiter := "/"
	var ids []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(s.prefix),
		Delimiter: aws.String(delimiter),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, cp := range page.CommonPrefixes {
			// Extract artifact ID from prefix: "<prefix><artifact_id>/"
			dir := aws.ToString(cp.Prefix)
			dir = strings.TrimPrefix(dir, s.prefix)
			dir = strings.TrimSuffix(dir, "/")
			if dir != "" {
				ids = append(ids, dir)
			}
		}
	}

	out := make([]*artifacts.Artifact, 0, len(ids))
	for _, id := range ids {
		artifact, err := s.GetArtifact(ctx, id)
		if err != nil {
			if errors.Is(err, artifacts.ErrArtifactNotFound) {
				continue // sidecar deleted between list and get
			}
			return nil, err
		}
		out = append(out, artifact)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Location returns the s3:// URL an endpoint container fetches the archive
// from (the ModelDataUrl of the endpoint's model).
func (s *Store) Location(artifactID string) string {
	return "s3://" + s.bucket + "/" + s.archiveKey(artifactID)
}

// Close is a no-op; the underlying client holds no connections.
func (s *Store) Close(_ context.Context) error { return nil }

func (s *Store) readMetadata(ctx context.Context, artifactID string) (*artifactMetadata, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.metadataKey(artifactID)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("artifact %s: %w", artifactID, artifacts.ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	defer out.Body.Close()

	var meta artifactMetadata
	if err := json.NewDecoder(out.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}

func isNotFound(err error) bool {
	var noKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}
