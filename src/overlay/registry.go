package overlay

import (
	"sort"
	"sync"

	"screen-translate-overlay/src/messages"
)

// Registry is the single owner of every live WindowState. Each operation
// holds the lock only for its own critical section; cross-window effects are
// expressed as sequential calls, never nested ones.
type Registry struct {
	mu      sync.Mutex
	windows map[messages.WindowID]*WindowState
	next    messages.WindowID
}

func NewRegistry() *Registry {
	return &Registry{windows: make(map[messages.WindowID]*WindowState)}
}

// NextID allocates a fresh window identity.
func (r *Registry) NextID() messages.WindowID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	return r.next
}

// Insert stores the state for id, replacing nothing: inserting an existing id
// returns false.
func (r *Registry) Insert(id messages.WindowID, st WindowState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.windows[id]; exists {
		return false
	}
	r.windows[id] = &st
	return true
}

// Remove deletes id and returns its last state.
func (r *Registry) Remove(id messages.WindowID) (WindowState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.windows[id]
	if !ok {
		return WindowState{}, false
	}
	delete(r.windows, id)
	return *st, true
}

// Get returns a detached snapshot of id's state.
func (r *Registry) Get(id messages.WindowID) (WindowState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.windows[id]
	if !ok {
		return WindowState{}, false
	}
	return st.Clone(), true
}

// Exists reports whether id is live.
func (r *Registry) Exists(id messages.WindowID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.windows[id]
	return ok
}

// Mutate runs fn on id's state under the lock. It returns false, without
// calling fn, when id is gone. fn must not call back into the registry.
func (r *Registry) Mutate(id messages.WindowID, fn func(*WindowState)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.windows[id]
	if !ok {
		return false
	}
	fn(st)
	return true
}

// Link pairs two windows symmetrically. Both must exist. A previous partner
// of either window is unlinked.
func (r *Registry) Link(a, b messages.WindowID) bool {
	if a == b || !r.Exists(a) || !r.Exists(b) {
		return false
	}
	var oldA, oldB messages.WindowID
	okA := r.Mutate(a, func(s *WindowState) { oldA, s.Linked = s.Linked, b })
	okB := r.Mutate(b, func(s *WindowState) { oldB, s.Linked = s.Linked, a })
	r.unlinkFrom(oldA, a, b)
	r.unlinkFrom(oldB, b, a)
	return okA && okB
}

// unlinkFrom clears old's link when it still points at id.
func (r *Registry) unlinkFrom(old, id, keep messages.WindowID) {
	if old == messages.NoWindow || old == keep {
		return
	}
	r.Mutate(old, func(s *WindowState) {
		if s.Linked == id {
			s.Linked = messages.NoWindow
		}
	})
}

// IDs returns the live window ids in creation order.
func (r *Registry) IDs() []messages.WindowID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]messages.WindowID, 0, len(r.windows))
	for id := range r.windows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of live windows.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows)
}
