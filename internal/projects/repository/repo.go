package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/novacode/novacode-backend/internal/projects/domain"
)

// Repository persists project records.
type Repository interface {
	// Create stores a pending record and returns it with its generated id.
	Create(ctx context.Context, in domain.NewProject) (*domain.Project, error)
	Get(ctx context.Context, id string) (*domain.Project, error)
	// AttachFile links the stored object and moves the record to stored.
	// It fails with domain.ErrFileAttached when a file is already linked.
	AttachFile(ctx context.Context, id string, ref domain.FileRef) error
	MarkIndexed(ctx context.Context, id string, m domain.Manifest) error
	// MarkFailed moves a pending record to failed.
	MarkFailed(ctx context.Context, id string, reason string) error
	// ListStale returns records in st created before olderThan.
	ListStale(ctx context.Context, st domain.Status, olderThan time.Time, limit int) ([]domain.Project, error)
}

// FirestoreRepository stores projects as documents of one collection.
type FirestoreRepository struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreRepository(client *firestore.Client, collection string) *FirestoreRepository {
	return &FirestoreRepository{client: client, collection: collection}
}

func (r *FirestoreRepository) col() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

func (r *FirestoreRepository) Create(ctx context.Context, in domain.NewProject) (*domain.Project, error) {
	ref := r.col().NewDoc()

	data := map[string]interface{}{
		"name":         in.Name,
		"description":  in.Description,
		"organization": in.Organization,
		"source":       string(in.Source),
		"status":       string(domain.StatusPending),
		"createdAt":    firestore.ServerTimestamp,
		"updatedAt":    firestore.ServerTimestamp,
	}
	if in.SourceURL != "" {
		data["sourceUrl"] = in.SourceURL
	}

	wr, err := ref.Create(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	return &domain.Project{
		ID:           ref.ID,
		Name:         in.Name,
		Description:  in.Description,
		Organization: in.Organization,
		Source:       in.Source,
		SourceURL:    in.SourceURL,
		Status:       domain.StatusPending,
		CreatedAt:    wr.UpdateTime,
		UpdatedAt:    wr.UpdateTime,
	}, nil
}

func (r *FirestoreRepository) Get(ctx context.Context, id string) (*domain.Project, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return decode(snap)
}

func (r *FirestoreRepository) AttachFile(ctx context.Context, id string, ref domain.FileRef) error {
	doc := r.col().Doc(id)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(doc)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get project: %w", err)
		}
		if url, _ := snap.DataAt("fileUrl"); url != nil && url != "" {
			return domain.ErrFileAttached
		}
		return tx.Update(doc, []firestore.Update{
			{Path: "fileUrl", Value: ref.URL},
			{Path: "filePath", Value: ref.Path},
			{Path: "sizeBytes", Value: ref.Size},
			{Path: "status", Value: string(domain.StatusStored)},
			{Path: "error", Value: firestore.Delete},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
	})
}

func (r *FirestoreRepository) MarkIndexed(ctx context.Context, id string, m domain.Manifest) error {
	_, err := r.col().Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(domain.StatusIndexed)},
		{Path: "fileCount", Value: m.FileCount},
		{Path: "files", Value: m.Files},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.ErrNotFound
		}
		return fmt.Errorf("mark project indexed: %w", err)
	}
	return nil
}

func (r *FirestoreRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	doc := r.col().Doc(id)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(doc)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get project: %w", err)
		}
		if st, _ := snap.DataAt("status"); st != string(domain.StatusPending) {
			return domain.ErrInvalidTransition
		}
		return tx.Update(doc, []firestore.Update{
			{Path: "status", Value: string(domain.StatusFailed)},
			{Path: "error", Value: reason},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
	})
}

func (r *FirestoreRepository) ListStale(ctx context.Context, st domain.Status, olderThan time.Time, limit int) ([]domain.Project, error) {
	q := r.col().
		Where("status", "==", string(st)).
		Where("createdAt", "<", olderThan).
		OrderBy("createdAt", firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	out := make([]domain.Project, 0, 16)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list stale projects: %w", err)
		}
		p, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func decode(snap *firestore.DocumentSnapshot) (*domain.Project, error) {
	var p domain.Project
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode project %s: %w", snap.Ref.ID, err)
	}
	p.ID = snap.Ref.ID
	return &p, nil
}

var _ Repository = (*FirestoreRepository)(nil)
