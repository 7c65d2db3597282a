package ingest

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/novacode/novacode-backend/internal/apperr"
	"github.com/novacode/novacode-backend/internal/logging"
	"github.com/novacode/novacode-backend/internal/projects/domain"
	"github.com/novacode/novacode-backend/internal/projects/repository"
	"github.com/novacode/novacode-backend/internal/storage"
)

const (
	// GitHubArchiveName is the object name used for downloaded archives.
	GitHubArchiveName = "repository.zip"

	DefaultUploadMaxBytes = 10 << 20

	markFailedTimeout = 10 * time.Second
)

// Fetcher downloads remote archives.
type Fetcher interface {
	Check(raw string) error
	Fetch(ctx context.Context, raw string) ([]byte, error)
}

type GitHubRequest struct {
	URL          string
	Name         string
	Description  string
	Organization string
}

type LocalRequest struct {
	Filename     string
	Data         []byte
	Name         string
	Description  string
	Organization string
}

// Result describes where an ingestion ended. ProjectID is set as soon as
// the record exists, so failed results can still name their orphan.
type Result struct {
	ProjectID string        `json:"projectId,omitempty"`
	URL       string        `json:"url,omitempty"`
	Status    domain.Status `json:"status,omitempty"`
	Stage     Stage         `json:"stage"`
}

type Options struct {
	UploadMaxBytes int64
}

// Service drives one ingestion from validation to the metadata patch.
// Steps run strictly in order: create record, obtain bytes, store, patch.
type Service struct {
	projects repository.Repository
	store    storage.Store
	fetcher  Fetcher
	indexer  *Indexer
	metrics  *Metrics
	opts     Options
}

func NewService(projects repository.Repository, store storage.Store, fetcher Fetcher, indexer *Indexer, metrics *Metrics, opts Options) *Service {
	if opts.UploadMaxBytes <= 0 {
		opts.UploadMaxBytes = DefaultUploadMaxBytes
	}
	return &Service{
		projects: projects,
		store:    store,
		fetcher:  fetcher,
		indexer:  indexer,
		metrics:  metrics,
		opts:     opts,
	}
}

// UploadMaxBytes is the largest accepted local upload.
func (s *Service) UploadMaxBytes() int64 {
	return s.opts.UploadMaxBytes
}

// IngestGitHub downloads req.URL and stores it as {id}/repository.zip.
func (s *Service) IngestGitHub(ctx context.Context, req GitHubRequest) (*Result, error) {
	started := time.Now()
	res := &Result{Stage: StageStart}
	defer func() { s.metrics.observe(string(domain.SourceGitHub), res.Stage, started) }()

	req.URL = strings.TrimSpace(req.URL)
	req.Name = strings.TrimSpace(req.Name)
	if req.URL == "" {
		return res, apperr.Validation("ingest.github", "GitHub URL is required.")
	}
	if req.Name == "" {
		return res, apperr.Validation("ingest.github", "name is required.")
	}
	if err := s.fetcher.Check(req.URL); err != nil {
		return res, err
	}

	p, err := s.create(ctx, res, domain.NewProject{
		Name:         req.Name,
		Description:  req.Description,
		Organization: req.Organization,
		Source:       domain.SourceGitHub,
		SourceURL:    req.URL,
	})
	if err != nil {
		return res, err
	}

	s.transition(ctx, res, StageFetching)
	data, err := s.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		s.transition(ctx, res, StageFetchFailed)
		s.markFailed(ctx, p.ID, err)
		return res, err
	}

	return s.storeAndLink(ctx, res, domain.SourceGitHub, GitHubArchiveName, data)
}

// IngestLocal stores an already buffered upload as {id}/{filename}.
func (s *Service) IngestLocal(ctx context.Context, req LocalRequest) (*Result, error) {
	started := time.Now()
	res := &Result{Stage: StageStart}
	defer func() { s.metrics.observe(string(domain.SourceLocal), res.Stage, started) }()

	req.Name = strings.TrimSpace(req.Name)
	if req.Data == nil {
		return res, apperr.Validation("ingest.local", "No file uploaded.")
	}
	filename, err := CleanFilename(req.Filename)
	if err != nil {
		return res, err
	}
	if int64(len(req.Data)) > s.opts.UploadMaxBytes {
		return res, apperr.Validation("ingest.local", fmt.Sprintf("file exceeds the %d byte upload limit", s.opts.UploadMaxBytes))
	}
	if req.Name == "" {
		return res, apperr.Validation("ingest.local", "name is required.")
	}

	if _, err := s.create(ctx, res, domain.NewProject{
		Name:         req.Name,
		Description:  req.Description,
		Organization: req.Organization,
		Source:       domain.SourceLocal,
	}); err != nil {
		return res, err
	}

	s.transition(ctx, res, StageBuffered)
	return s.storeAndLink(ctx, res, domain.SourceLocal, filename, req.Data)
}

func (s *Service) create(ctx context.Context, res *Result, in domain.NewProject) (*domain.Project, error) {
	p, err := s.projects.Create(ctx, in)
	if err != nil {
		s.transition(ctx, res, StageCreateFailed)
		return nil, apperr.Upstream("ingest.create", "Error creating project in database.", err)
	}
	res.ProjectID = p.ID
	res.Status = p.Status
	s.transition(ctx, res, StageMetadataCreated)
	return p, nil
}

func (s *Service) storeAndLink(ctx context.Context, res *Result, source domain.Source, filename string, data []byte) (*Result, error) {
	logger := logging.NewLogger(ctx)
	objectPath := storage.ObjectPath(res.ProjectID, filename)

	s.transition(ctx, res, StageStoring)
	put, err := s.store.Put(ctx, objectPath, bytes.NewReader(data))
	if err != nil {
		s.transition(ctx, res, StageStoreFailed)
		s.markFailed(ctx, res.ProjectID, err)
		return res, err
	}
	res.URL = put.URL
	s.transition(ctx, res, StageStored)
	s.metrics.observeStored(string(source), put.Size)

	err = s.projects.AttachFile(ctx, res.ProjectID, domain.FileRef{URL: put.URL, Path: put.Path, Size: put.Size})
	if err != nil {
		// the object is in the bucket but the record is still pending;
		// the reconciliation sweep will mark it failed
		s.transition(ctx, res, StagePatchFailed)
		logger.LogErrorf("ingest.patch", "orphaned object project=%s path=%s: %v", res.ProjectID, put.Path, err)
		return res, apperr.Upstream("ingest.patch", "Error updating project in database.", err)
	}
	res.Status = domain.StatusStored
	s.transition(ctx, res, StageMetadataPatched)

	s.index(ctx, res, filename, data)
	return res, nil
}

// index records the archive manifest. Failures leave the project stored.
func (s *Service) index(ctx context.Context, res *Result, filename string, data []byte) {
	if s.indexer == nil {
		return
	}
	logger := logging.NewLogger(ctx)

	m, err := s.indexer.Index(ctx, filename, data)
	if err != nil {
		logger.LogWarnf("ingest.index", "project=%s: %v", res.ProjectID, err)
		return
	}
	if err := s.projects.MarkIndexed(ctx, res.ProjectID, m); err != nil {
		logger.LogWarnf("ingest.index", "project=%s: mark indexed: %v", res.ProjectID, err)
		return
	}
	res.Status = domain.StatusIndexed
	s.transition(ctx, res, StageIndexed)
}

func (s *Service) markFailed(ctx context.Context, projectID string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markFailedTimeout)
	defer cancel()

	if err := s.projects.MarkFailed(ctx, projectID, cause.Error()); err != nil {
		logging.NewLogger(ctx).LogWarnf("ingest.mark_failed", "project=%s: %v", projectID, err)
	}
}

func (s *Service) transition(ctx context.Context, res *Result, next Stage) {
	logging.NewLogger(ctx).LogInfof("ingest", "project=%s stage %s -> %s", res.ProjectID, res.Stage, next)
	res.Stage = next
	if next == StageFetchFailed || next == StageStoreFailed {
		res.Status = domain.StatusFailed
	}
}

// CleanFilename reduces an uploaded file name to a single safe path element.
func CleanFilename(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	base := path.Base(name)
	if name == "" || base == "." || base == ".." || base == "/" {
		return "", apperr.Validation("ingest.local", "a file name is required.")
	}
	return base, nil
}

