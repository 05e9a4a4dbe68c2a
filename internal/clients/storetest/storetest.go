// Package storetest holds the behavior every notes.Store implementation must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/ldelvillar/snap-notes-sub000/internal/services/notes"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) notes.Store

func document(creator string, updated time.Time, pinned *time.Time) notes.Document {
	doc := notes.Document{
		notes.FieldTitle:     gofakeit.Sentence(3),
		notes.FieldText:      gofakeit.Paragraph(1, 2, 12, " "),
		notes.FieldCreator:   creator,
		notes.FieldUpdatedAt: updated.UTC(),
		notes.FieldPinnedAt:  nil,
	}
	if pinned != nil {
		doc[notes.FieldPinnedAt] = pinned.UTC()
	}
	return doc
}

// Run exercises the notes.Store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("insert_then_get", func(t *testing.T) {
		s := newStore(t)
		doc := document("u1@example.com", base, nil)

		id, err := s.Insert(ctx, doc)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		n, err := notes.ParseDocument(got)
		require.NoError(t, err)
		assert.Equal(t, id, n.ID)
		assert.Equal(t, doc[notes.FieldTitle], n.Title)
		assert.Equal(t, "u1@example.com", n.Creator)
		assert.True(t, base.Equal(n.UpdatedAt))
		assert.Nil(t, n.PinnedAt)
	})

	t.Run("get_missing", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Insert(ctx, document("u1@example.com", base, nil))
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, id))

		_, err = s.Get(ctx, id)
		assert.ErrorIs(t, err, notes.ErrNoDocument)
	})

	t.Run("query_filters_and_sorts_descending", func(t *testing.T) {
		s := newStore(t)
		oldest, err := s.Insert(ctx, document("u1@example.com", base, nil))
		require.NoError(t, err)
		newest, err := s.Insert(ctx, document("u1@example.com", base.Add(2*time.Hour), nil))
		require.NoError(t, err)
		middle, err := s.Insert(ctx, document("u1@example.com", base.Add(time.Hour), nil))
		require.NoError(t, err)
		_, err = s.Insert(ctx, document("u2@example.com", base.Add(3*time.Hour), nil))
		require.NoError(t, err)

		docs, err := s.Query(ctx, notes.QuerySpec{
			Field:      notes.FieldCreator,
			Equals:     "u1@example.com",
			OrderBy:    notes.FieldUpdatedAt,
			Descending: true,
		})
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, []any{newest, middle, oldest}, []any{
			docs[0][notes.FieldID], docs[1][notes.FieldID], docs[2][notes.FieldID],
		})
	})

	t.Run("merge_overwrites_given_fields", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Insert(ctx, document("u1@example.com", base, nil))
		require.NoError(t, err)

		pinned := base.Add(time.Minute)
		require.NoError(t, s.Merge(ctx, id, notes.Document{
			notes.FieldTitle:     "Renamed",
			notes.FieldUpdatedAt: base.Add(time.Minute),
			notes.FieldPinnedAt:  pinned,
		}))

		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		n, err := notes.ParseDocument(got)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", n.Title)
		require.NotNil(t, n.PinnedAt)
		assert.True(t, pinned.Equal(*n.PinnedAt))

		require.NoError(t, s.Merge(ctx, id, notes.Document{notes.FieldPinnedAt: nil}))
		got, err = s.Get(ctx, id)
		require.NoError(t, err)
		n, err = notes.ParseDocument(got)
		require.NoError(t, err)
		assert.Nil(t, n.PinnedAt)
	})

	t.Run("merge_missing", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Insert(ctx, document("u1@example.com", base, nil))
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, id))

		err = s.Merge(ctx, id, notes.Document{notes.FieldTitle: "x"})
		assert.ErrorIs(t, err, notes.ErrNoDocument)
	})

	t.Run("delete_twice", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Insert(ctx, document("u1@example.com", base, nil))
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, id))
		assert.ErrorIs(t, s.Delete(ctx, id), notes.ErrNoDocument)
	})
}
