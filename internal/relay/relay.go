package relay

import (
	"context"
	"strings"

	"github.com/novacode/novacode-backend/internal/apperr"
	"github.com/novacode/novacode-backend/internal/fetch"
	"github.com/novacode/novacode-backend/internal/logging"
)

// Content is a relayed response body.
type Content struct {
	Body        []byte
	ContentType string
	Cached      bool
}

// Getter performs the allow-listed outbound GET.
type Getter interface {
	Get(ctx context.Context, raw string) (*fetch.Response, error)
}

// Relay fetches third-party files server-side so the browser avoids
// cross-origin restrictions. Responses are cached when a cache is set.
type Relay struct {
	getter  Getter
	cache   Cache
	maxItem int
}

// New builds a relay. cache may be nil. Bodies larger than maxItem bytes
// are served but not cached.
func New(getter Getter, cache Cache, maxItem int) *Relay {
	if maxItem <= 0 {
		maxItem = 1 << 20
	}
	return &Relay{getter: getter, cache: cache, maxItem: maxItem}
}

func (r *Relay) Relay(ctx context.Context, url string) (*Content, error) {
	logger := logging.NewLogger(ctx)

	url = strings.TrimSpace(url)
	if url == "" {
		return nil, apperr.Validation("relay", "URL parameter is required")
	}

	if r.cache != nil {
		c, ok, err := r.cache.Get(ctx, url)
		if err != nil {
			logger.LogWarnf("relay.cache", "cache read bypassed: %v", err)
		} else if ok {
			return c, nil
		}
	}

	resp, err := r.getter.Get(ctx, url)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindValidation {
			return nil, err
		}
		return nil, apperr.Upstream("relay", "Error fetching file content", err)
	}

	c := &Content{Body: resp.Body, ContentType: resp.ContentType}
	if r.cache != nil && len(c.Body) <= r.maxItem {
		if err := r.cache.Set(ctx, url, c); err != nil {
			logger.LogWarnf("relay.cache", "cache write skipped: %v", err)
		}
	}
	return c, nil
}
