package storage

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/novacode/novacode-backend/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	big := make([]byte, 10<<20)
	_, err := rand.Read(big)
	require.NoError(t, err)

	cases := map[string][]byte{
		"empty":    {},
		"one byte": {0x7f},
		"10MB":     big,
	}

	ctx := context.Background()
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			s := NewMemoryStore(Options{Bucket: "novacode", AllowOverwrite: true})
			objectPath := ObjectPath("abc123", "repository.zip")

			res, err := s.Put(ctx, objectPath, bytes.NewReader(payload))
			require.NoError(t, err)
			assert.Equal(t, int64(len(payload)), res.Size)
			assert.Equal(t, objectPath, res.Path)
			assert.True(t, strings.HasSuffix(res.URL, "/novacode/abc123/repository.zip"))

			got, err := s.Get(ctx, objectPath)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(payload, got))
		})
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore(Options{})

	_, err := s.Get(context.Background(), "nope/file.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrObjectNotFound))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	ok, err := s.Exists(context.Background(), "nope/file.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreOverwritePolicy(t *testing.T) {
	ctx := context.Background()

	deny := NewMemoryStore(Options{AllowOverwrite: false})
	_, err := deny.Put(ctx, "p/a.zip", strings.NewReader("first"))
	require.NoError(t, err)
	_, err = deny.Put(ctx, "p/a.zip", strings.NewReader("second"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrObjectExists))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	got, _ := deny.Get(ctx, "p/a.zip")
	assert.Equal(t, "first", string(got))

	allow := NewMemoryStore(Options{AllowOverwrite: true})
	_, err = allow.Put(ctx, "p/a.zip", strings.NewReader("first"))
	require.NoError(t, err)
	_, err = allow.Put(ctx, "p/a.zip", strings.NewReader("second"))
	require.NoError(t, err)
	got, _ = allow.Get(ctx, "p/a.zip")
	assert.Equal(t, "second", string(got))
}

func TestMemoryStorePutReadError(t *testing.T) {
	s := NewMemoryStore(Options{AllowOverwrite: true})

	_, err := s.Put(context.Background(), "p/broken.zip", iotest.ErrReader(errors.New("client went away")))
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.Equal(t, 0, s.Len())
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t,
		"https://storage.googleapis.com/novacode/id1/repository.zip",
		PublicURL("https://storage.googleapis.com/", "novacode", "/id1/repository.zip"))
	assert.Equal(t, "http://cdn.local/id1/a.txt", PublicURL("http://cdn.local", "", "id1/a.txt"))
}

func TestGCSStoreURL(t *testing.T) {
	s := NewGCSStore(nil, Options{Bucket: "novacode"})
	assert.Equal(t, "https://storage.googleapis.com/novacode/xyz/repository.zip", s.URL("xyz/repository.zip"))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/zip", contentTypeFor("id/repository.zip"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("id/Makefile"))
}
