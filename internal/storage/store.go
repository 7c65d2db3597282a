package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrObjectExists   = errors.New("object already exists")
)

// PutResult is the single outcome of a completed write.
type PutResult struct {
	Path string `json:"path"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Store is the object store gateway used by ingestion and file serving.
type Store interface {
	// Put writes r to objectPath and returns once the write has finished
	// or failed.
	Put(ctx context.Context, objectPath string, r io.Reader) (PutResult, error)
	// Get returns the full object, or an error wrapping ErrObjectNotFound.
	Get(ctx context.Context, objectPath string) ([]byte, error)
	Exists(ctx context.Context, objectPath string) (bool, error)
	// URL is the public retrieval address for objectPath.
	URL(objectPath string) string
}

// Options are shared by every driver.
type Options struct {
	Bucket         string
	PublicBaseURL  string
	AllowOverwrite bool
}

// PublicURL joins base, bucket and object path into a retrieval URL.
func PublicURL(base, bucket, objectPath string) string {
	base = strings.TrimRight(base, "/")
	objectPath = strings.TrimLeft(objectPath, "/")
	if bucket == "" {
		return base + "/" + objectPath
	}
	return base + "/" + bucket + "/" + objectPath
}

// ObjectPath builds the deterministic "{projectID}/{filename}" layout.
func ObjectPath(projectID, filename string) string {
	return projectID + "/" + filename
}

func contentTypeFor(objectPath string) string {
	ext := strings.ToLower(path.Ext(objectPath))
	if ext == ".zip" {
		return "application/zip"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
