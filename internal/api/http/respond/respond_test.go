package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novacode/novacode-backend/internal/apperr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func render(t *testing.T, err error, extra ...gin.H) (int, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Error(c, err, extra...)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestErrorBody(t *testing.T) {
	code, body := render(t, apperr.Upstream("ingest.store", "error uploading file", errors.New("503 backend error")), gin.H{"projectId": "abc"})

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "error uploading file", body["message"])
	assert.Equal(t, "503 backend error", body["error"])
	assert.Equal(t, "upstream", body["kind"])
	assert.Equal(t, "abc", body["projectId"])
}

func TestErrorValidationWithoutCause(t *testing.T) {
	code, body := render(t, apperr.Validation("upload", "No file uploaded."))

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No file uploaded.", body["error"])
}

func TestErrorForeign(t *testing.T) {
	code, body := render(t, errors.New("nil map"))

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "unhandled", body["kind"])
	assert.Equal(t, "nil map", body["error"])
}
