package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/novacode/novacode-backend/internal/assistant"
)

type cannedModel string

func (m cannedModel) Generate(context.Context, string) (string, error) { return string(m), nil }

func TestVertex(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	New(assistant.NewService(cannedModel("It prints hello."))).Register(r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/vertex", strings.NewReader(`{"message":"what does it do?"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"It prints hello."}`, w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/vertex", strings.NewReader(`{"message":""}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
