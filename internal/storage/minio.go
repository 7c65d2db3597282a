package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// MinioStore targets a self-hosted MinIO bucket.
type MinioStore struct {
	client *minio.Client
	opts   Options
}

func NewMinioStore(ctx context.Context, mopts MinioOptions, opts Options) (*MinioStore, error) {
	client, err := minio.New(mopts.Endpoint, &minio.Options{
		Creds:  miniocreds.NewStaticV4(mopts.AccessKey, mopts.SecretKey, ""),
		Secure: mopts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	if opts.PublicBaseURL == "" {
		scheme := "http"
		if mopts.UseSSL {
			scheme = "https"
		}
		opts.PublicBaseURL = scheme + "://" + mopts.Endpoint
	}

	return &MinioStore{client: client, opts: opts}, nil
}

func (s *MinioStore) Put(ctx context.Context, objectPath string, r io.Reader) (PutResult, error) {
	// MinIO has no create-only precondition; stat first
	if !s.opts.AllowOverwrite {
		ok, err := s.Exists(ctx, objectPath)
		if err != nil {
			return PutResult{}, err
		}
		if ok {
			return PutResult{}, errExists(objectPath)
		}
	}

	// a known length keeps small objects on a single PUT
	data, err := io.ReadAll(r)
	if err != nil {
		return PutResult{}, errUpload(err)
	}

	info, err := s.client.PutObject(ctx, s.opts.Bucket, objectPath, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentTypeFor(objectPath),
	})
	if err != nil {
		return PutResult{}, errUpload(err)
	}

	return PutResult{Path: objectPath, URL: s.URL(objectPath), Size: info.Size}, nil
}

func (s *MinioStore) Get(ctx context.Context, objectPath string) ([]byte, error) {
	ok, err := s.Exists(ctx, objectPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotFound(objectPath)
	}

	obj, err := s.client.GetObject(ctx, s.opts.Bucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		return nil, errRead("storage.get", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errRead("storage.get", err)
	}
	return data, nil
}

func (s *MinioStore) Exists(ctx context.Context, objectPath string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.opts.Bucket, objectPath, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, errRead("storage.exists", err)
}

func (s *MinioStore) URL(objectPath string) string {
	return PublicURL(s.opts.PublicBaseURL, s.opts.Bucket, objectPath)
}

var _ Store = (*MinioStore)(nil)
