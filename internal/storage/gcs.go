package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

const gcsPublicBase = "https://storage.googleapis.com"

// GCSStore writes to a Cloud Storage bucket obtained from the Firebase
// Admin SDK storage client.
type GCSStore struct {
	bucket *gcs.BucketHandle
	opts   Options
}

func NewGCSStore(bucket *gcs.BucketHandle, opts Options) *GCSStore {
	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = gcsPublicBase
	}
	return &GCSStore{bucket: bucket, opts: opts}
}

func (s *GCSStore) Put(ctx context.Context, objectPath string, r io.Reader) (PutResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	obj := s.bucket.Object(objectPath)
	if !s.opts.AllowOverwrite {
		obj = obj.If(gcs.Conditions{DoesNotExist: true})
	}

	w := obj.NewWriter(ctx)
	w.ContentType = contentTypeFor(objectPath)

	n, err := io.Copy(w, r)
	if err != nil {
		// cancelling the context aborts the upload before Close commits it
		cancel()
		_ = w.Close()
		return PutResult{}, errUpload(fmt.Errorf("stream object: %w", err))
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return PutResult{}, errExists(objectPath)
		}
		return PutResult{}, errUpload(err)
	}

	return PutResult{Path: objectPath, URL: s.URL(objectPath), Size: n}, nil
}

func (s *GCSStore) Get(ctx context.Context, objectPath string) ([]byte, error) {
	ok, err := s.Exists(ctx, objectPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotFound(objectPath)
	}

	rd, err := s.bucket.Object(objectPath).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, errNotFound(objectPath)
		}
		return nil, errRead("storage.get", err)
	}
	defer rd.Close()

	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, errRead("storage.get", err)
	}
	return data, nil
}

func (s *GCSStore) Exists(ctx context.Context, objectPath string) (bool, error) {
	_, err := s.bucket.Object(objectPath).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errRead("storage.exists", err)
	}
	return true, nil
}

func (s *GCSStore) URL(objectPath string) string {
	return PublicURL(s.opts.PublicBaseURL, s.opts.Bucket, objectPath)
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

var _ Store = (*GCSStore)(nil)
