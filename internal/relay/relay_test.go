package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novacode/novacode-backend/internal/apperr"
	"github.com/novacode/novacode-backend/internal/fetch"
)

func upstream(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/x-go")
		_, _ = w.Write([]byte("package main\n"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testFetcher() *fetch.Fetcher {
	return fetch.New(fetch.Options{AllowedHosts: []string{"127.0.0.1"}})
}

func TestRelayCachesInRedis(t *testing.T) {
	var hits int32
	srv := upstream(t, &hits)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	r := New(testFetcher(), NewRedisCache(rdb, time.Minute), 0)
	ctx := context.Background()

	first, err := r.Relay(ctx, srv.URL+"/main.go")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, "package main\n", string(first.Body))

	second, err := r.Relay(ctx, srv.URL+"/main.go")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "text/x-go", second.ContentType)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	key := cacheKey(srv.URL + "/main.go")
	assert.True(t, mr.Exists(key))
	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists(key))
}

func TestRelayBypassesBrokenCache(t *testing.T) {
	var hits int32
	srv := upstream(t, &hits)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	r := New(testFetcher(), NewRedisCache(rdb, time.Minute), 0)
	c, err := r.Relay(context.Background(), srv.URL+"/main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(c.Body))
}

func TestRelayErrors(t *testing.T) {
	var hits int32
	srv := upstream(t, &hits)
	r := New(testFetcher(), nil, 0)

	_, err := r.Relay(context.Background(), "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = r.Relay(context.Background(), "http://169.254.169.254/latest/meta-data")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = r.Relay(context.Background(), srv.URL+"/missing")
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.ErrorIs(t, err, fetch.ErrFetchFailed)
}
