package bootstrap

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/novacode/novacode-backend/internal/api/http"
	"github.com/novacode/novacode-backend/internal/api/http/middleware"
	assistanthttp "github.com/novacode/novacode-backend/internal/assistant/http"
	chatshttp "github.com/novacode/novacode-backend/internal/chats/http"
	projectshttp "github.com/novacode/novacode-backend/internal/projects/http"
	relayhttp "github.com/novacode/novacode-backend/internal/relay/http"
)

type RouterDeps struct {
	Log            *zap.Logger
	AllowedOrigins []string
	MaxUploadBytes int64

	Health    *httpapi.HealthHandler
	Projects  *projectshttp.Handler
	Chats     *chatshttp.Handler
	Relay     *relayhttp.Handler
	Assistant *assistanthttp.Handler
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	if dep.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = dep.MaxUploadBytes + (1 << 20)
	}

	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(dep.Log))
	r.Use(middleware.Recovery())
	r.Use(cors.New(corsConfig(dep.AllowedOrigins)))

	dep.Health.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	dep.Projects.Register(r)
	dep.Chats.Register(r)
	dep.Relay.Register(r)
	dep.Assistant.Register(r)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:  []string{"Content-Type", middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
