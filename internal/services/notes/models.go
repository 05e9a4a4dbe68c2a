package notes

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ldelvillar/snap-notes-sub000/internal/utils/sanitize"
)

// DefaultTitle is stored when a note is created with a blank title.
const DefaultTitle = "Untitled"

// TitleOrDefault returns DefaultTitle for a blank or whitespace-only title.
func TitleOrDefault(title string) string {
	if strings.TrimSpace(title) == "" {
		return DefaultTitle
	}
	return title
}

// Principal is the authenticated user a note operation runs on behalf of.
type Principal struct {
	Email string `json:"email" example:"u1@example.com"`
}

// Note represents a user-owned note
type Note struct {
	ID        string     `json:"id" example:"683cdb8aa96ad71e8e075bd1"`
	Title     string     `json:"title" example:"Groceries"`
	Text      string     `json:"text" example:"milk, eggs, coffee"`
	Creator   string     `json:"creator" example:"u1@example.com"`
	UpdatedAt time.Time  `json:"updated_at" example:"2025-06-01T23:00:26.005703677Z"`
	PinnedAt  *time.Time `json:"pinned_at" example:"2025-06-01T23:00:26.005703677Z"`
}

// Pinned reports whether the note is currently pinned.
func (n Note) Pinned() bool {
	return n.PinnedAt != nil
}

// MarshalJSON adds the derived pinned flag clients render instead of the raw timestamp.
func (n Note) MarshalJSON() ([]byte, error) {
	type plain Note
	return json.Marshal(struct {
		plain
		IsPinned bool `json:"pinned"`
	}{plain: plain(n), IsPinned: n.Pinned()})
}

// CreateNoteRequest represents a note creation request
type CreateNoteRequest struct {
	Title string `json:"title" validate:"max=100" example:"Groceries"`
	Text  string `json:"text" validate:"required,max=10000" example:"milk, eggs, coffee"`
}

// UpdateNoteRequest represents a note update request
type UpdateNoteRequest struct {
	Title string `json:"title" validate:"max=100" example:"Groceries for Sunday"`
	Text  string `json:"text" validate:"required,max=10000" example:"milk, eggs, coffee, bread"`
}

// Sanitize strips markup from the request in place.
func (r *CreateNoteRequest) Sanitize() {
	r.Title = sanitize.Title(r.Title)
	r.Text = sanitize.Text(r.Text)
}

// Sanitize strips markup from the request in place.
func (r *UpdateNoteRequest) Sanitize() {
	r.Title = sanitize.Title(r.Title)
	r.Text = sanitize.Text(r.Text)
}

// NoteResponse represents a single note response
type NoteResponse struct {
	Note *Note `json:"note"`
}

// ListNotesResponse represents the ordered notes of one principal
type ListNotesResponse struct {
	Notes []Note `json:"notes"`
}
