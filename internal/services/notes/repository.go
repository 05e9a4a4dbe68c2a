package notes

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Repository is the only component that reads or writes the note store. Every
// operation is scoped to a principal and normalizes store documents into Notes.
type Repository struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// Option customizes a Repository.
type Option func(*Repository)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// NewRepository creates a note repository on top of store.
func NewRepository(store Store, log *slog.Logger, opts ...Option) *Repository {
	r := &Repository{
		store: store,
		log:   log,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) clock() time.Time {
	return r.now().UTC()
}

func owner(p *Principal) (string, error) {
	if p == nil || p.Email == "" {
		return "", ErrNotAuthenticated
	}
	return p.Email, nil
}

// Create stores a new note for p. A blank title becomes DefaultTitle.
func (r *Repository) Create(ctx context.Context, p *Principal, title, text string) (*Note, error) {
	email, err := owner(p)
	if err != nil {
		return nil, err
	}

	note := Note{
		Title:     TitleOrDefault(title),
		Text:      text,
		Creator:   email,
		UpdatedAt: r.clock(),
	}

	id, err := r.store.Insert(ctx, toDocument(note))
	if err != nil {
		r.log.Error("failed to create note", "error", err, "creator", email)
		return nil, storageErr("create", err)
	}
	note.ID = id

	return &note, nil
}

// List returns every note owned by p in display order.
func (r *Repository) List(ctx context.Context, p *Principal) ([]Note, error) {
	email, err := owner(p)
	if err != nil {
		return nil, err
	}

	docs, err := r.store.Query(ctx, QuerySpec{
		Field:      FieldCreator,
		Equals:     email,
		OrderBy:    FieldUpdatedAt,
		Descending: true,
	})
	if err != nil {
		r.log.Error("failed to list notes", "error", err, "creator", email)
		return nil, storageErr("list", err)
	}

	out := make([]Note, 0, len(docs))
	for _, doc := range docs {
		n, err := ParseDocument(doc)
		if err != nil {
			r.log.Error("malformed note document", "error", err, "creator", email, "note_id", doc[FieldID])
			return nil, storageErr("list", err)
		}
		if n.Creator != email {
			// the query is scoped; a mismatch means the store ignored the predicate
			continue
		}
		out = append(out, n)
	}

	return Order(out), nil
}

// GetByID returns the note with id when p owns it. Missing and foreign notes
// both yield ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, p *Principal, id string) (*Note, error) {
	email, err := owner(p)
	if err != nil {
		return nil, err
	}
	return r.fetchOwned(ctx, "get", email, id)
}

func (r *Repository) fetchOwned(ctx context.Context, op, email, id string) (*Note, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	doc, err := r.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNoDocument) {
			return nil, ErrNotFound
		}
		r.log.Error("failed to fetch note", "op", op, "error", err, "creator", email, "note_id", id)
		return nil, storageErr(op, err)
	}

	n, err := ParseDocument(doc)
	if err != nil {
		r.log.Error("malformed note document", "op", op, "error", err, "creator", email, "note_id", id)
		return nil, storageErr(op, err)
	}
	if n.Creator != email {
		r.log.Info("note owned by another principal", "op", op, "creator", email, "note_id", id)
		return nil, ErrNotFound
	}

	return &n, nil
}

// Update merges note into the stored document with the same id. Creator is
// always rewritten to p and UpdatedAt to the current time, whatever the input
// carries. The target must already belong to p.
func (r *Repository) Update(ctx context.Context, p *Principal, note Note) (*Note, error) {
	email, err := owner(p)
	if err != nil {
		return nil, err
	}

	current, err := r.fetchOwned(ctx, "update", email, note.ID)
	if err != nil {
		return nil, err
	}

	note.Creator = email
	note.UpdatedAt = r.clock()
	if note.UpdatedAt.Before(current.UpdatedAt) {
		note.UpdatedAt = current.UpdatedAt
	}

	if err := r.store.Merge(ctx, note.ID, toDocument(note)); err != nil {
		if errors.Is(err, ErrNoDocument) {
			return nil, ErrNotFound
		}
		r.log.Error("failed to update note", "error", err, "creator", email, "note_id", note.ID)
		return nil, storageErr("update", err)
	}

	return &note, nil
}

// Delete removes the note with id after checking p owns it. Deleting the same
// note twice yields ErrNotFound the second time.
func (r *Repository) Delete(ctx context.Context, p *Principal, id string) error {
	email, err := owner(p)
	if err != nil {
		return err
	}

	if _, err := r.fetchOwned(ctx, "delete", email, id); err != nil {
		return err
	}

	if err := r.store.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNoDocument) {
			return ErrNotFound
		}
		r.log.Error("failed to delete note", "error", err, "creator", email, "note_id", id)
		return storageErr("delete", err)
	}

	return nil
}

// TogglePin unpins a pinned note and pins an unpinned one, then saves it
// through Update, which also bumps UpdatedAt.
func (r *Repository) TogglePin(ctx context.Context, p *Principal, note Note) (*Note, error) {
	if note.PinnedAt != nil {
		note.PinnedAt = nil
	} else {
		now := r.clock()
		note.PinnedAt = &now
	}
	return r.Update(ctx, p, note)
}
