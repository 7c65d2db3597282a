package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/novacode/novacode-backend/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(maxBytes int64) *Fetcher {
	return New(Options{AllowedHosts: []string{"127.0.0.1"}, MaxBytes: maxBytes})
}

func TestFetchPlainBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gzip, identity", r.Header.Get("Accept-Encoding"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte("PK\x03\x04 archive bytes"))
	}))
	defer server.Close()

	data, err := newTestFetcher(0).Fetch(context.Background(), server.URL+"/owner/repo/zip/refs/heads/main")
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04 archive bytes", string(data))
}

func TestFetchDecompressesGzipMarkedResponses(t *testing.T) {
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, _ = zw.Write([]byte("hello from gzip"))
	require.NoError(t, zw.Close())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(gz.Bytes())
	}))
	defer server.Close()

	data, err := newTestFetcher(0).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "hello from gzip", string(data))
}

func TestFetchDoesNotSniffUnmarkedGzip(t *testing.T) {
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, _ = zw.Write([]byte("still compressed"))
	require.NoError(t, zw.Close())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(gz.Bytes())
	}))
	defer server.Close()

	data, err := newTestFetcher(0).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, gz.Bytes(), data)
}

func TestFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-2xx status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "not here", http.StatusNotFound)
			},
		},
		{
			name: "broken gzip",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", "gzip")
				w.Write([]byte("definitely not gzip"))
			},
		},
		{
			name: "oversized body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(strings.Repeat("x", 64)))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := newTestFetcher(32).Fetch(context.Background(), server.URL)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFetchFailed))
			assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
		})
	}
}

func TestFetchTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	_, err := newTestFetcher(0).Fetch(context.Background(), addr)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchFailed))
}

func TestFetchRejectsDisallowedHostsWithoutNetwork(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	f := New(Options{AllowedHosts: []string{"github.com"}})
	_, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))

	assert.Error(t, f.Check("file:///etc/passwd"))
	assert.NoError(t, f.Check("https://codeload.github.com/owner/repo/zip/refs/heads/main"))
}

func TestAllowList(t *testing.T) {
	al := NewAllowList([]string{"github.com", " .githubusercontent.com "})

	for _, ok := range []string{
		"https://github.com/owner/repo",
		"https://codeload.github.com/owner/repo/zip/refs/heads/main",
		"https://raw.githubusercontent.com/owner/repo/main/README.md",
		"http://GITHUB.com:8080/x",
	} {
		_, err := al.Check(ok)
		assert.NoError(t, err, ok)
	}

	for _, bad := range []string{
		"https://evilgithub.com/x",
		"https://github.com.evil.io/x",
		"ftp://github.com/x",
		"https:///nohost",
		"://broken",
	} {
		_, err := al.Check(bad)
		assert.ErrorIs(t, err, ErrURLNotAllowed, bad)
	}

	_, err := NewAllowList([]string{"*"}).Check("http://10.0.0.1/anything")
	assert.NoError(t, err)
}

func TestFetchRejectsRedirectToDisallowedHost(t *testing.T) {
	var leaked int32
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&leaked, 1)
		w.Write([]byte("internal-secret"))
	}))
	defer internal.Close()

	target := strings.Replace(internal.URL, "127.0.0.1", "localhost", 1) + "/metadata"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}))
	defer server.Close()

	f := newTestFetcher(0)
	require.Error(t, f.Check(target))

	data, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Nil(t, data)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&leaked))
}

func TestFetchFollowsRedirectWithinAllowList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/owner/repo/archive/main.zip" {
			http.Redirect(w, r, "/owner/repo/zip/refs/heads/main", http.StatusFound)
			return
		}
		w.Write([]byte("zip bytes"))
	}))
	defer server.Close()

	data, err := newTestFetcher(0).Fetch(context.Background(), server.URL+"/owner/repo/archive/main.zip")
	require.NoError(t, err)
	assert.Equal(t, "zip bytes", string(data))
}

func TestFetchRedirectHookWrapsCallerClient(t *testing.T) {
	var calls int32
	caller := &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		atomic.AddInt32(&calls, 1)
		return http.ErrUseLastResponse
	}}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://localhost:1/elsewhere", http.StatusFound)
	}))
	defer server.Close()

	f := New(Options{AllowedHosts: []string{"127.0.0.1"}, HTTPClient: caller})
	_, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
