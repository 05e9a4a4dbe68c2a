package notes

import (
	"context"
	"log/slog"
	"sync"
)

// Lister is the read side of Repository a View depends on.
type Lister interface {
	List(ctx context.Context, p *Principal) ([]Note, error)
}

// Registrar accepts refetch callbacks. *Registry implements it.
type Registrar interface {
	Register(cb RefetchFunc) func()
}

// View is one consumer's local copy of its principal's ordered notes. It
// refetches the whole collection on every notification and drops responses
// that were overtaken by a newer fetch or arrived after Close.
type View struct {
	lister   Lister
	log      *slog.Logger
	onChange func([]Note)

	mu       sync.Mutex
	session  Session
	notes    []Note
	loaded   bool
	gen      uint64
	closed   bool
	detachFn func()
}

// NewView creates a view in the pending state. onChange, when set, receives a
// copy of the list after every applied refetch. It runs with the view locked,
// so it must not block or call back into the view.
func NewView(lister Lister, log *slog.Logger, onChange func([]Note)) *View {
	return &View{
		lister:   lister,
		log:      log,
		onChange: onChange,
		session:  PendingSession(),
	}
}

// SetSession switches the view to s. Local state from a previous principal is
// cleared and any fetch still in flight for it will be ignored.
func (v *View) SetSession(s Session) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.session = s
	v.gen++
	v.notes = nil
	v.loaded = false
}

// Refresh reloads the notes for the current session. A pending session is a
// no-op; a settled session without a principal returns ErrNotAuthenticated
// without touching the store. A failed fetch leaves the previous list intact.
func (v *View) Refresh(ctx context.Context) error {
	v.mu.Lock()
	if v.closed || v.session.Pending {
		v.mu.Unlock()
		return nil
	}
	if !v.session.Ready() {
		v.mu.Unlock()
		return ErrNotAuthenticated
	}
	v.gen++
	gen := v.gen
	principal := *v.session.Principal
	v.mu.Unlock()

	fetched, err := v.lister.List(ctx, &principal)
	if err != nil {
		return err
	}

	v.mu.Lock()
	if v.closed || gen != v.gen {
		v.mu.Unlock()
		v.log.Debug("discarding stale notes response", "creator", principal.Email)
		return nil
	}
	defer v.mu.Unlock()
	v.notes = fetched
	v.loaded = true

	// delivered under the lock so snapshots leave in the order they were applied
	if v.onChange != nil {
		v.onChange(cloneNotes(fetched))
	}
	return nil
}

// Notes returns a copy of the current list and whether a fetch has completed.
func (v *View) Notes() ([]Note, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return cloneNotes(v.notes), v.loaded
}

// Attach registers the view's Refresh with reg. Close undoes it.
func (v *View) Attach(reg Registrar) {
	unregister := reg.Register(v.Refresh)

	v.mu.Lock()
	prev := v.detachFn
	v.detachFn = unregister
	v.mu.Unlock()

	if prev != nil {
		prev()
	}
}

// Close unregisters the view and makes it ignore any fetch still running.
func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	detach := v.detachFn
	v.detachFn = nil
	v.mu.Unlock()

	if detach != nil {
		detach()
	}
}

func cloneNotes(in []Note) []Note {
	if in == nil {
		return nil
	}
	out := make([]Note, len(in))
	copy(out, in)
	return out
}
