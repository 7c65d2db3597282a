package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/novacode/novacode-backend/config"
	httpapi "github.com/novacode/novacode-backend/internal/api/http"
	"github.com/novacode/novacode-backend/internal/assistant"
	assistanthttp "github.com/novacode/novacode-backend/internal/assistant/http"
	chatshttp "github.com/novacode/novacode-backend/internal/chats/http"
	chatservice "github.com/novacode/novacode-backend/internal/chats/service"
	"github.com/novacode/novacode-backend/internal/fetch"
	"github.com/novacode/novacode-backend/internal/ingest"
	projectshttp "github.com/novacode/novacode-backend/internal/projects/http"
	"github.com/novacode/novacode-backend/internal/relay"
	relayhttp "github.com/novacode/novacode-backend/internal/relay/http"
	"github.com/novacode/novacode-backend/internal/storage"
)

const serviceName = "novacode-backend"

// App holds the wired process: the HTTP engine plus the resources that
// need closing on shutdown.
type App struct {
	Engine     *gin.Engine
	Reconciler *ingest.Reconciler

	repos *Repositories
	redis *redis.Client
	model *assistant.GeminiModel
}

// Build opens every external dependency named by cfg and wires handlers.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	app := &App{}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open object store: %w", err)
	}

	app.repos, err = OpenRepositories(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	app.redis, err = OpenRedis(ctx, cfg.Redis)
	if err != nil {
		// the relay works uncached
		log.Warn("redis unavailable, relay cache disabled", zap.Error(err))
	}

	fetcher := fetch.New(fetch.Options{
		AllowedHosts: cfg.Fetch.AllowedHosts,
		Timeout:      cfg.Fetch.Timeout,
		MaxBytes:     cfg.Fetch.MaxBytes,
		RateLimit:    cfg.Fetch.RateLimit,
		RateBurst:    cfg.Fetch.RateBurst,
		UserAgent:    cfg.Fetch.UserAgent,
	})

	metrics := ingest.NewMetrics(prometheus.DefaultRegisterer)
	ingestSvc := ingest.NewService(app.repos.Projects, store, fetcher,
		ingest.NewIndexer(cfg.Ingest.IndexMaxEntries), metrics,
		ingest.Options{UploadMaxBytes: cfg.Ingest.UploadMaxBytes})
	app.Reconciler = ingest.NewReconciler(app.repos.Projects, cfg.Reconcile.After, metrics, log)

	var cache relay.Cache
	if app.redis != nil {
		cache = relay.NewRedisCache(app.redis, cfg.Redis.RelayTTL)
	}

	var model assistant.Model = assistant.Unconfigured{}
	if cfg.AI.APIKey != "" {
		app.model, err = assistant.NewGeminiModel(ctx, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			return nil, err
		}
		model = app.model
	} else {
		log.Warn("GEMINI_API_KEY not set, /vertex will fail")
	}

	app.Engine = BuildRouter(RouterDeps{
		Log:            log,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		MaxUploadBytes: cfg.Ingest.UploadMaxBytes,
		Health:         httpapi.NewHealthHandler(serviceName, cfg.App.Version, app.probes(store)),
		Projects:       projectshttp.New(ingestSvc, app.repos.Projects, store),
		Chats:          chatshttp.New(chatservice.New(app.repos.Chats)),
		Relay:          relayhttp.New(relay.New(fetcher, cache, 0)),
		Assistant:      assistanthttp.New(assistant.NewService(model)),
	})

	return app, nil
}

func (a *App) probes(store storage.Store) map[string]httpapi.Probe {
	probes := map[string]httpapi.Probe{
		"storage": func(ctx context.Context) error {
			_, err := store.Exists(ctx, "healthz")
			return err
		},
		"redis": nil,
	}
	if a.redis != nil {
		probes["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	return probes
}

// Close releases clients opened by Build.
func (a *App) Close() error {
	var errs []error
	if a.Reconciler != nil {
		a.Reconciler.Stop()
	}
	if a.model != nil {
		errs = append(errs, a.model.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.repos != nil {
		errs = append(errs, a.repos.Close())
	}
	return errors.Join(errs...)
}
