package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/novacode/novacode-backend/internal/projects/domain"
)

// MemoryRepository keeps projects in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	projects map[string]domain.Project
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		projects: make(map[string]domain.Project),
		now:      time.Now,
	}
}

// WithClock replaces the timestamp source.
func (r *MemoryRepository) WithClock(now func() time.Time) *MemoryRepository {
	r.now = now
	return r
}

func (r *MemoryRepository) Create(_ context.Context, in domain.NewProject) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var id string
	for {
		var err error
		id, err = domain.NewDocID()
		if err != nil {
			return nil, err
		}
		if _, taken := r.projects[id]; !taken {
			break
		}
	}

	now := r.now().UTC()
	p := domain.Project{
		ID:           id,
		Name:         in.Name,
		Description:  in.Description,
		Organization: in.Organization,
		Source:       in.Source,
		SourceURL:    in.SourceURL,
		Status:       domain.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.projects[id] = p
	return clone(p), nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(p), nil
}

func (r *MemoryRepository) AttachFile(_ context.Context, id string, ref domain.FileRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.FileURL != "" {
		return domain.ErrFileAttached
	}
	p.FileURL = ref.URL
	p.FilePath = ref.Path
	p.SizeBytes = ref.Size
	p.Status = domain.StatusStored
	p.Error = ""
	p.UpdatedAt = r.now().UTC()
	r.projects[id] = p
	return nil
}

func (r *MemoryRepository) MarkIndexed(_ context.Context, id string, m domain.Manifest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = domain.StatusIndexed
	p.FileCount = m.FileCount
	p.Files = append([]string(nil), m.Files...)
	p.UpdatedAt = r.now().UTC()
	r.projects[id] = p
	return nil
}

func (r *MemoryRepository) MarkFailed(_ context.Context, id string, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Status != domain.StatusPending {
		return domain.ErrInvalidTransition
	}
	p.Status = domain.StatusFailed
	p.Error = reason
	p.UpdatedAt = r.now().UTC()
	r.projects[id] = p
	return nil
}

func (r *MemoryRepository) ListStale(_ context.Context, st domain.Status, olderThan time.Time, limit int) ([]domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Project, 0, 16)
	for _, p := range r.projects {
		if p.Status == st && p.CreatedAt.Before(olderThan) {
			out = append(out, *clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count reports the number of stored records.
func (r *MemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.projects)
}

func clone(p domain.Project) *domain.Project {
	p.Files = append([]string(nil), p.Files...)
	return &p
}

var _ Repository = (*MemoryRepository)(nil)
