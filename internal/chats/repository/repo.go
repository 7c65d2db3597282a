package repository

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/novacode/novacode-backend/internal/chats/domain"
)

// Repository persists chat transcripts.
type Repository interface {
	// Save stores c under id and returns it with the assigned timestamp.
	Save(ctx context.Context, id string, c domain.NewChat) (*domain.Chat, error)
	// Append adds msg to the end of the transcript. Identical messages are
	// appended again, so every successful call grows the transcript by one.
	Append(ctx context.Context, id string, msg domain.Message) error
	// List returns the chats of uid on projectID, newest first.
	List(ctx context.Context, uid, projectID string) ([]domain.Chat, error)
}

type FirestoreRepository struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreRepository(client *firestore.Client, collection string) *FirestoreRepository {
	return &FirestoreRepository{client: client, collection: collection}
}

func (r *FirestoreRepository) Save(ctx context.Context, id string, c domain.NewChat) (*domain.Chat, error) {
	msgs := c.Messages
	if msgs == nil {
		msgs = []domain.Message{}
	}

	wr, err := r.client.Collection(r.collection).Doc(id).Create(ctx, map[string]interface{}{
		"uid":       c.UID,
		"projectID": c.ProjectID,
		"title":     c.Title,
		"messages":  msgs,
		"timestamp": firestore.ServerTimestamp,
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, domain.ErrExists
		}
		return nil, fmt.Errorf("save chat: %w", err)
	}

	return &domain.Chat{
		ID:        id,
		UID:       c.UID,
		ProjectID: c.ProjectID,
		Title:     c.Title,
		Messages:  msgs,
		Timestamp: wr.UpdateTime,
	}, nil
}

func (r *FirestoreRepository) Append(ctx context.Context, id string, msg domain.Message) error {
	doc := r.client.Collection(r.collection).Doc(id)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(doc)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get chat: %w", err)
		}

		var c domain.Chat
		if err := snap.DataTo(&c); err != nil {
			return fmt.Errorf("decode chat %s: %w", id, err)
		}
		return tx.Update(doc, []firestore.Update{
			{Path: "messages", Value: append(c.Messages, msg)},
		})
	})
}

func (r *FirestoreRepository) List(ctx context.Context, uid, projectID string) ([]domain.Chat, error) {
	iter := r.client.Collection(r.collection).
		Where("uid", "==", uid).
		Where("projectID", "==", projectID).
		OrderBy("timestamp", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	out := make([]domain.Chat, 0, 8)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list chats: %w", err)
		}

		var c domain.Chat
		if err := snap.DataTo(&c); err != nil {
			return nil, fmt.Errorf("decode chat %s: %w", snap.Ref.ID, err)
		}
		c.ID = snap.Ref.ID
		out = append(out, c)
	}
	return out, nil
}

var _ Repository = (*FirestoreRepository)(nil)
