package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/novacode/novacode-backend/internal/api/http/respond"
	"github.com/novacode/novacode-backend/internal/apperr"
	"github.com/novacode/novacode-backend/internal/assistant"
)

type Handler struct {
	svc *assistant.Service
}

func New(svc *assistant.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r gin.IRouter) {
	r.POST("/vertex", h.reply)
}

type replyReq struct {
	Message string `json:"message"`
}

func (h *Handler) reply(c *gin.Context) {
	var req replyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, apperr.Validation("assistant.reply", "Message is required"))
		return
	}

	out, err := h.svc.Reply(c.Request.Context(), req.Message)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": out})
}
