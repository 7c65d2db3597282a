package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/novacode/novacode-backend/internal/api/http/respond"
	"github.com/novacode/novacode-backend/internal/relay"
)

const defaultContentType = "text/plain; charset=utf-8"

type Handler struct {
	relay *relay.Relay
}

func New(r *relay.Relay) *Handler {
	return &Handler{relay: r}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/api/fetch-file-content", h.fetchFileContent)
}

func (h *Handler) fetchFileContent(c *gin.Context) {
	content, err := h.relay.Relay(c.Request.Context(), c.Query("url"))
	if err != nil {
		respond.Error(c, err)
		return
	}

	ct := content.ContentType
	if ct == "" {
		ct = defaultContentType
	}
	if content.Cached {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.Data(http.StatusOK, ct, content.Body)
}
