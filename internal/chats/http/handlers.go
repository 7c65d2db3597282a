package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/novacode/novacode-backend/internal/api/http/respond"
	"github.com/novacode/novacode-backend/internal/apperr"
	"github.com/novacode/novacode-backend/internal/chats/domain"
	"github.com/novacode/novacode-backend/internal/chats/service"
)

// isoMillis matches the millisecond ISO-8601 form browsers produce.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register attaches the chat transcript routes.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/saveChat", h.save)
	r.POST("/updateChat", h.update)
	r.POST("/retrieveChats", h.retrieve)
}

type chatView struct {
	ID        string           `json:"id"`
	UID       string           `json:"uid"`
	ProjectID string           `json:"projectID"`
	Title     string           `json:"title"`
	Messages  []domain.Message `json:"messages"`
	Timestamp string           `json:"timestamp"`
}

func viewOf(c domain.Chat) chatView {
	msgs := c.Messages
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return chatView{
		ID:        c.ID,
		UID:       c.UID,
		ProjectID: c.ProjectID,
		Title:     c.Title,
		Messages:  msgs,
		Timestamp: formatTimestamp(c.Timestamp),
	}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

type saveReq struct {
	UID       string           `json:"uid"`
	ProjectID string           `json:"projectID"`
	Title     string           `json:"title"`
	Messages  []domain.Message `json:"messages"`
}

func (h *Handler) save(c *gin.Context) {
	var req saveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, apperr.Validation("chats.save", "invalid body"))
		return
	}

	chat, err := h.svc.Save(c.Request.Context(), domain.NewChat{
		UID:       req.UID,
		ProjectID: req.ProjectID,
		Title:     req.Title,
		Messages:  req.Messages,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	v := viewOf(*chat)
	c.JSON(http.StatusOK, gin.H{
		"chatId":    v.ID,
		"uid":       v.UID,
		"projectID": v.ProjectID,
		"title":     v.Title,
		"messages":  v.Messages,
		"timestamp": v.Timestamp,
		"message":   "Chat message saved successfully.",
	})
}

type updateReq struct {
	ChatID     string         `json:"chatId"`
	NewMessage domain.Message `json:"newMessage"`
}

func (h *Handler) update(c *gin.Context) {
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, apperr.Validation("chats.update", "chatId and newMessage are required"))
		return
	}

	if err := h.svc.Append(c.Request.Context(), req.ChatID, req.NewMessage); err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Chat updated successfully."})
}

type retrieveReq struct {
	UID       string `json:"uid"`
	ProjectID string `json:"projectID"`
}

func (h *Handler) retrieve(c *gin.Context) {
	var req retrieveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, apperr.Validation("chats.list", "Both uid and projectID are required"))
		return
	}

	items, err := h.svc.List(c.Request.Context(), req.UID, req.ProjectID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	out := make([]chatView, 0, len(items))
	for _, it := range items {
		out = append(out, viewOf(it))
	}
	c.JSON(http.StatusOK, out)
}
