// Package postgres implements notes.Store on a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ldelvillar/snap-notes-sub000/internal/clients/postgres/migrations"
	"github.com/ldelvillar/snap-notes-sub000/internal/services/notes"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const opTimeout = 5 * time.Second

// columns maps document fields to table columns; nothing else reaches SQL.
var columns = map[string]string{
	notes.FieldID:        "id",
	notes.FieldTitle:     "title",
	notes.FieldText:      "text",
	notes.FieldCreator:   "creator",
	notes.FieldUpdatedAt: "updated_at",
	notes.FieldPinnedAt:  "pinned_at",
}

const selectColumns = "id, title, text, creator, updated_at, pinned_at"

// NotesStore stores notes as rows. Timestamps come back as plain time.Time.
type NotesStore struct {
	db *sql.DB
}

// Open connects with the pgx driver and applies pending migrations.
func Open(ctx context.Context, dsn string) (*NotesStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	s := &NotesStore{db: db}
	if err := s.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return s, nil
}

// NewNotesStore wraps an already open database.
func NewNotesStore(db *sql.DB) *NotesStore {
	return &NotesStore{db: db}
}

// RunMigrations brings the schema up to date.
func (s *NotesStore) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, ".")
}

// Close releases the connection pool.
func (s *NotesStore) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *NotesStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Insert stores doc under a new UUID.
func (s *NotesStore) Insert(ctx context.Context, doc notes.Document) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	id := uuid.New()
	query := `INSERT INTO notes (id, title, text, creator, updated_at, pinned_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query, id,
		stringOr(doc[notes.FieldTitle]),
		stringOr(doc[notes.FieldText]),
		doc[notes.FieldCreator],
		doc[notes.FieldUpdatedAt],
		doc[notes.FieldPinnedAt],
	)
	if err != nil {
		return "", fmt.Errorf("error performing sql request: %w", err)
	}
	return id.String(), nil
}

// Query runs an equality filter with a single-column sort (ties broken by id).
func (s *NotesStore) Query(ctx context.Context, q notes.QuerySpec) ([]notes.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var sb strings.Builder
	var args []any
	sb.WriteString("SELECT " + selectColumns + " FROM notes")

	if q.Field != "" {
		col, ok := columns[q.Field]
		if !ok {
			return nil, fmt.Errorf("unknown query field %q", q.Field)
		}
		sb.WriteString(" WHERE " + col + " = $1")
		args = append(args, q.Equals)
	}
	if q.OrderBy != "" {
		col, ok := columns[q.OrderBy]
		if !ok {
			return nil, fmt.Errorf("unknown order field %q", q.OrderBy)
		}
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s, id %s", col, dir, dir)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var out []notes.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get looks a row up by id.
func (s *NotesStore) Get(ctx context.Context, id string) (notes.Document, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, notes.ErrNoDocument
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM notes WHERE id = $1", uid)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notes.ErrNoDocument
	}
	return doc, err
}

// Merge updates the given columns of the row with id.
func (s *NotesStore) Merge(ctx context.Context, id string, fields notes.Document) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return notes.ErrNoDocument
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == notes.FieldID {
			continue
		}
		if _, ok := columns[k]; !ok {
			return fmt.Errorf("unknown merge field %q", k)
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil
	}
	slices.Sort(keys)

	sets := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		sets = append(sets, fmt.Sprintf("%s = $%d", columns[k], i+1))
		args = append(args, fields[k])
	}
	args = append(args, uid)
	query := fmt.Sprintf("UPDATE notes SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notes.ErrNoDocument
	}
	return nil
}

// Delete removes the row with id.
func (s *NotesStore) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return notes.ErrNoDocument
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE id = $1", uid)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notes.ErrNoDocument
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (notes.Document, error) {
	var (
		id                   uuid.UUID
		title, text, creator string
		updatedAt            time.Time
		pinnedAt             sql.NullTime
	)
	if err := row.Scan(&id, &title, &text, &creator, &updatedAt, &pinnedAt); err != nil {
		return nil, err
	}

	doc := notes.Document{
		notes.FieldID:        id.String(),
		notes.FieldTitle:     title,
		notes.FieldText:      text,
		notes.FieldCreator:   creator,
		notes.FieldUpdatedAt: updatedAt,
		notes.FieldPinnedAt:  nil,
	}
	if pinnedAt.Valid {
		doc[notes.FieldPinnedAt] = pinnedAt.Time
	}
	return doc, nil
}

func stringOr(v any) string {
	s, _ := v.(string)
	return s
}
