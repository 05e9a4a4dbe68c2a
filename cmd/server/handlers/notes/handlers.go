package notes

import (
	"context"

	"github.com/ldelvillar/snap-notes-sub000/cmd/server/handlers/handlerutil"
	"github.com/ldelvillar/snap-notes-sub000/internal/services/notes"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Repository is the part of notes.Repository the HTTP handlers use.
type Repository interface {
	Create(ctx context.Context, p *notes.Principal, title, text string) (*notes.Note, error)
	List(ctx context.Context, p *notes.Principal) ([]notes.Note, error)
	GetByID(ctx context.Context, p *notes.Principal, id string) (*notes.Note, error)
	Update(ctx context.Context, p *notes.Principal, note notes.Note) (*notes.Note, error)
	TogglePin(ctx context.Context, p *notes.Principal, note notes.Note) (*notes.Note, error)
	Delete(ctx context.Context, p *notes.Principal, id string) error
}

// Handlers contains the notes HTTP handlers
type Handlers struct {
	repo      Repository
	notifier  notes.Notifier
	validator *validator.Validate
}

// NewHandlers creates new notes handlers. Every successful mutation is
// followed by notifier.Notify.
func NewHandlers(repo Repository, notifier notes.Notifier, validator *validator.Validate) *Handlers {
	return &Handlers{
		repo:      repo,
		notifier:  notifier,
		validator: validator,
	}
}

func (h *Handlers) changed(c *fiber.Ctx) {
	h.notifier.Notify(c.UserContext())
}

// Create handles note creation
// @Summary Create a new note
// @Description A blank title is stored as "Untitled".
// @Tags notes
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body notes.CreateNoteRequest true "Create note request"
// @Success 201 {object} notes.NoteResponse
// @Failure 400 {object} httperr.E
// @Failure 401 {object} httperr.E
// @Failure 500 {object} httperr.E
// @Router /notes [post]
func (h *Handlers) Create(c *fiber.Ctx) error {
	p, err := handlerutil.GetPrincipal(c)
	if err != nil {
		return err
	}

	var req notes.CreateNoteRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Create"); err != nil {
		return err
	}

	note, err := h.repo.Create(c.UserContext(), p, req.Title, req.Text)
	if err != nil {
		return handlerutil.HandleServiceError(c, err, "Create", "")
	}
	h.changed(c)

	return c.Status(fiber.StatusCreated).JSON(notes.NoteResponse{Note: note})
}

// List handles note listing
// @Summary List notes
// @Description All notes of the caller, pinned first (most recently pinned leading), then by last update.
// @Tags notes
// @Accept json
// @Produce json
// @Security Bearer
// @Success 200 {object} notes.ListNotesResponse
// @Failure 401 {object} httperr.E
// @Failure 500 {object} httperr.E
// @Router /notes [get]
func (h *Handlers) List(c *fiber.Ctx) error {
	p, err := handlerutil.GetPrincipal(c)
	if err != nil {
		return err
	}

	list, err := h.repo.List(c.UserContext(), p)
	if err != nil {
		return handlerutil.HandleServiceError(c, err, "List", "")
	}
	if list == nil {
		list = []notes.Note{}
	}

	return c.JSON(notes.ListNotesResponse{Notes: list})
}

// Get handles fetching one note
// @Summary Get a note
// @Tags notes
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Note ID"
// @Success 200 {object} notes.NoteResponse
// @Failure 401 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/{id} [get]
func (h *Handlers) Get(c *fiber.Ctx) error {
	p, err := handlerutil.GetPrincipal(c)
	if err != nil {
		return err
	}

	id, err := handlerutil.NoteID(c, "Get")
	if err != nil {
		return err
	}

	note, err := h.repo.GetByID(c.UserContext(), p, id)
	if err != nil {
		return handlerutil.HandleServiceError(c, err, "Get", id)
	}

	return c.JSON(notes.NoteResponse{Note: note})
}

// Update handles note updates
// @Summary Update a note
// @Description Replaces title and text. The pin state is kept.
// @Tags notes
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Note ID"
// @Param request body notes.UpdateNoteRequest true "Update note request"
// @Success 200 {object} notes.NoteResponse
// @Failure 400 {object} httperr.E
// @Failure 401 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/{id} [put]
func (h *Handlers) Update(c *fiber.Ctx) error {
	p, err := handlerutil.GetPrincipal(c)
	if err != nil {
		return err
	}

	id, err := handlerutil.NoteID(c, "Update")
	if err != nil {
		return err
	}

	var req notes.UpdateNoteRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Update"); err != nil {
		return err
	}

	current, err := h.repo.GetByID(c.UserContext(), p, id)
	if err != nil {
		return handlerutil.HandleServiceError(c, err, "Update", id)
	}

	current.Title = notes.TitleOrDefault(req.Title)
	current.Text = req.Text

	note, err := h.repo.Update(c.UserContext(), p, *current)
	if err != nil {
		return handlerutil.HandleServiceError(c, err, "Update", id)
	}
	h.changed(c)

	return c.JSON(notes.NoteResponse{Note: note})
}

// TogglePin pins an unpinned note and unpins a pinned one
// @Summary Toggle the pin of a note
// @Tags notes
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Note ID"
// @Success 200 {object} notes.NoteResponse
// @Failure 401 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/{id}/pin [post]
func (h *Handlers) TogglePin(c *fiber.Ctx) error {
	p, err := handlerutil.GetPrincipal(c)
	if err != nil {
		return err
	}

	id, err := handlerutil.NoteID(c, "TogglePin")
	if err != nil {
		return err
	}

	current, err := h.repo.GetByID(c.UserContext(), p, id)
	if err != nil {
		return handlerutil.HandleServiceError(c, err, "TogglePin", id)
	}

	note, err := h.repo.TogglePin(c.UserContext(), p, *current)
	if err != nil {
		return handlerutil.HandleServiceError(c, err, "TogglePin", id)
	}
	h.changed(c)

	return c.JSON(notes.NoteResponse{Note: note})
}

// Delete handles note deletion
// @Summary Delete a note
// @Description Deleting an already deleted note returns 404.
// @Tags notes
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Note ID"
// @Success 204
// @Failure 401 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/{id} [delete]
func (h *Handlers) Delete(c *fiber.Ctx) error {
	p, err := handlerutil.GetPrincipal(c)
	if err != nil {
		return err
	}

	id, err := handlerutil.NoteID(c, "Delete")
	if err != nil {
		return err
	}

	if err := h.repo.Delete(c.UserContext(), p, id); err != nil {
		return handlerutil.HandleServiceError(c, err, "Delete", id)
	}
	h.changed(c)

	return c.SendStatus(fiber.StatusNoContent)
}
