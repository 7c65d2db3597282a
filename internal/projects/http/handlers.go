package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/novacode/novacode-backend/internal/api/http/respond"
	"github.com/novacode/novacode-backend/internal/apperr"
	"github.com/novacode/novacode-backend/internal/ingest"
	"github.com/novacode/novacode-backend/internal/projects/domain"
	"github.com/novacode/novacode-backend/internal/projects/repository"
	"github.com/novacode/novacode-backend/internal/storage"
)

const (
	uploadedMessage = "File uploaded and project added successfully."
	// multipartOverhead covers form fields and boundaries around the file.
	multipartOverhead = 1 << 20
)

// Handler bundles the dependencies for project endpoints.
type Handler struct {
	ingest   *ingest.Service
	projects repository.Repository
	store    storage.Store
}

func New(svc *ingest.Service, projects repository.Repository, store storage.Store) *Handler {
	return &Handler{ingest: svc, projects: projects, store: store}
}

// Register attaches upload, file and project routes.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/uploadGithub", h.uploadGithub)
	r.POST("/uploadLocal", h.uploadLocal)
	r.GET("/file/:projectId/:filename", h.getFile)
	r.GET("/projects/:projectId", h.getProject)
}

type uploadGithubReq struct {
	GithubURL    string `json:"githubUrl" form:"githubUrl"`
	Name         string `json:"name" form:"name"`
	Description  string `json:"description" form:"description"`
	Organization string `json:"organization" form:"organization"`
}

func (h *Handler) uploadGithub(c *gin.Context) {
	var req uploadGithubReq
	if err := c.ShouldBind(&req); err != nil {
		respond.Error(c, apperr.Validation("upload.github", "invalid body"))
		return
	}

	res, err := h.ingest.IngestGitHub(c.Request.Context(), ingest.GitHubRequest{
		URL:          req.GithubURL,
		Name:         req.Name,
		Description:  req.Description,
		Organization: req.Organization,
	})
	h.writeResult(c, res, err)
}

func (h *Handler) uploadLocal(c *gin.Context) {
	limit := h.ingest.UploadMaxBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respond.Error(c, apperr.Validation("upload.local", "File too large."))
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			respond.Error(c, apperr.Validation("upload.local", "No file uploaded."))
		default:
			respond.Error(c, apperr.Validation("upload.local", "invalid multipart body"))
		}
		return
	}
	if fh.Size > limit {
		respond.Error(c, apperr.Validation("upload.local", "File too large."))
		return
	}

	f, err := fh.Open()
	if err != nil {
		respond.Error(c, apperr.Unhandled("upload.local", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		respond.Error(c, apperr.Unhandled("upload.local", err))
		return
	}

	res, err := h.ingest.IngestLocal(c.Request.Context(), ingest.LocalRequest{
		Filename:     fh.Filename,
		Data:         data,
		Name:         c.PostForm("name"),
		Description:  c.PostForm("description"),
		Organization: c.PostForm("organization"),
	})
	h.writeResult(c, res, err)
}

func (h *Handler) writeResult(c *gin.Context, res *ingest.Result, err error) {
	if err != nil {
		extra := gin.H{}
		if res != nil && res.ProjectID != "" {
			extra["projectId"] = res.ProjectID
			extra["stage"] = res.Stage
		}
		respond.Error(c, err, extra)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   uploadedMessage,
		"url":       res.URL,
		"projectId": res.ProjectID,
		"status":    res.Status,
	})
}

func (h *Handler) getFile(c *gin.Context) {
	projectID := strings.TrimSpace(c.Param("projectId"))
	filename, err := ingest.CleanFilename(c.Param("filename"))
	if projectID == "" || err != nil {
		respond.Error(c, apperr.Validation("file.get", "projectId and filename are required"))
		return
	}

	data, err := h.store.Get(c.Request.Context(), storage.ObjectPath(projectID, filename))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain", data)
}

func (h *Handler) getProject(c *gin.Context) {
	p, err := h.projects.Get(c.Request.Context(), strings.TrimSpace(c.Param("projectId")))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respond.Error(c, apperr.NotFound("projects.get", "Project not found", err))
			return
		}
		respond.Error(c, apperr.Upstream("projects.get", "Error fetching project", err))
		return
	}
	c.JSON(http.StatusOK, p)
}
