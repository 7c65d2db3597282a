package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novacode/novacode-backend/internal/apperr"
	"github.com/novacode/novacode-backend/internal/chats/domain"
	"github.com/novacode/novacode-backend/internal/chats/repository"
)

func tickingClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestSaveBuildsCompositeID(t *testing.T) {
	svc := New(repository.NewMemoryRepository())
	at := time.UnixMilli(1700000000123)
	svc.now = func() time.Time { return at }

	c, err := svc.Save(context.Background(), domain.NewChat{UID: "u1", ProjectID: "p1", Title: "first"})
	require.NoError(t, err)
	assert.Equal(t, "u1-p1-1700000000123", c.ID)
	assert.Empty(t, c.Messages)

	// same millisecond is moved forward rather than overwritten
	c2, err := svc.Save(context.Background(), domain.NewChat{UID: "u1", ProjectID: "p1", Title: "second"})
	require.NoError(t, err)
	assert.Equal(t, "u1-p1-1700000000124", c2.ID)
}

func TestSaveRequiresFields(t *testing.T) {
	svc := New(repository.NewMemoryRepository())

	for _, in := range []domain.NewChat{
		{ProjectID: "p", Title: "t"},
		{UID: "u", Title: "t"},
		{UID: "u", ProjectID: "p", Title: "  "},
	} {
		_, err := svc.Save(context.Background(), in)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}
}

func TestAppendIsMonotonic(t *testing.T) {
	repo := repository.NewMemoryRepository()
	svc := New(repo)
	ctx := context.Background()

	c, err := svc.Save(ctx, domain.NewChat{
		UID: "u", ProjectID: "p", Title: "t",
		Messages: []domain.Message{map[string]interface{}{"role": "user", "text": "hi"}},
	})
	require.NoError(t, err)

	msg := map[string]interface{}{"role": "model", "text": "hello"}
	require.NoError(t, svc.Append(ctx, c.ID, msg))
	require.NoError(t, svc.Append(ctx, c.ID, msg))

	items, err := svc.List(ctx, "u", "p")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Len(t, items[0].Messages, 3)
	assert.Equal(t, "hi", items[0].Messages[0].(map[string]interface{})["text"])
	assert.Equal(t, "hello", items[0].Messages[2].(map[string]interface{})["text"])
}

func TestAppendErrors(t *testing.T) {
	svc := New(repository.NewMemoryRepository())

	err := svc.Append(context.Background(), "missing", map[string]interface{}{"text": "x"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = svc.Append(context.Background(), "", map[string]interface{}{"text": "x"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = svc.Append(context.Background(), "id", nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = svc.Append(context.Background(), "id", "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestAppendAcceptsAnyJSONValue(t *testing.T) {
	svc := New(repository.NewMemoryRepository())
	ctx := context.Background()

	c, err := svc.Save(ctx, domain.NewChat{UID: "u", ProjectID: "p", Title: "t"})
	require.NoError(t, err)

	require.NoError(t, svc.Append(ctx, c.ID, "plain text reply"))
	require.NoError(t, svc.Append(ctx, c.ID, 42.0))

	items, err := svc.List(ctx, "u", "p")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []domain.Message{"plain text reply", 42.0}, items[0].Messages)
}

func TestListNewestFirst(t *testing.T) {
	repo := repository.NewMemoryRepository().WithClock(tickingClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	svc := New(repo)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		_, err := svc.Save(ctx, domain.NewChat{UID: "u", ProjectID: "p", Title: title})
		require.NoError(t, err)
	}
	_, err := svc.Save(ctx, domain.NewChat{UID: "u", ProjectID: "other", Title: "elsewhere"})
	require.NoError(t, err)

	items, err := svc.List(ctx, "u", "p")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "three", items[0].Title)
	assert.Equal(t, "one", items[2].Title)
	for i := 1; i < len(items); i++ {
		assert.True(t, items[i-1].Timestamp.After(items[i].Timestamp))
	}

	_, err = svc.List(ctx, "", "p")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
