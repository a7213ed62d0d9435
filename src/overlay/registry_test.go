package overlay

import (
	"image"
	"testing"

	"screen-translate-overlay/src/messages"
	"screen-translate-overlay/src/placement"
)

func newTestState() WindowState {
	return NewWindowState(placement.RolePrimary, image.Rect(0, 0, 300, 200), WindowRequest{})
}

func TestRegistryStaleIDIsNoop(t *testing.T) {
	r := NewRegistry()
	called := false
	if r.Mutate(42, func(*WindowState) { called = true }) {
		t.Fatal("Expected Mutate on unknown id to return false")
	}
	if called {
		t.Fatal("Expected Mutate not to run the callback for an unknown id")
	}
	if _, ok := r.Get(42); ok {
		t.Fatal("Expected Get on unknown id to fail")
	}
	if _, ok := r.Remove(42); ok {
		t.Fatal("Expected Remove on unknown id to fail")
	}
}

func TestRegistryInsertRemove(t *testing.T) {
	r := NewRegistry()
	id := r.NextID()
	if !r.Insert(id, newTestState()) {
		t.Fatal("Expected first insert to succeed")
	}
	if r.Insert(id, newTestState()) {
		t.Fatal("Expected duplicate insert to fail")
	}
	if r.Len() != 1 {
		t.Fatalf("Expected 1 window, got %d", r.Len())
	}
	if _, ok := r.Remove(id); !ok {
		t.Fatal("Expected remove to succeed")
	}
	if r.Exists(id) {
		t.Fatal("Expected window gone after remove")
	}
}

func TestRegistryGetIsDetached(t *testing.T) {
	r := NewRegistry()
	id := r.NextID()
	st := newTestState()
	st.TextHistory = []string{"a"}
	r.Insert(id, st)

	snap, _ := r.Get(id)
	snap.TextHistory[0] = "changed"
	snap.Alpha = 1

	again, _ := r.Get(id)
	if again.TextHistory[0] != "a" || again.Alpha != initialAlpha {
		t.Fatalf("Expected snapshot mutation not to leak, got %+v", again)
	}
}

func TestRegistryLink(t *testing.T) {
	r := NewRegistry()
	a, b := r.NextID(), r.NextID()
	r.Insert(a, newTestState())
	r.Insert(b, newTestState())

	if !r.Link(a, b) {
		t.Fatal("Expected link to succeed")
	}
	sa, _ := r.Get(a)
	sb, _ := r.Get(b)
	if sa.Linked != b || sb.Linked != a {
		t.Fatalf("Expected symmetric link, got %s and %s", sa.Linked, sb.Linked)
	}

	if r.Link(a, a) {
		t.Fatal("Expected self link to fail")
	}
	if r.Link(a, messages.WindowID(99)) {
		t.Fatal("Expected link to a missing window to fail")
	}
}

func TestRegistryIDsOrdered(t *testing.T) {
	r := NewRegistry()
	var want []messages.WindowID
	for i := 0; i < 5; i++ {
		id := r.NextID()
		want = append(want, id)
		r.Insert(id, newTestState())
	}
	got := r.IDs()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected ids %v, got %v", want, got)
		}
	}
}

func TestUndoOnEmptyHistoryIsNoop(t *testing.T) {
	st := newTestState()
	st.FullText = "keep"
	st.DisplayText = "keep"
	if st.undo() {
		t.Fatal("Expected undo on empty history to report false")
	}
	if st.FullText != "keep" || st.DisplayText != "keep" {
		t.Fatalf("Expected text unchanged, got %q / %q", st.FullText, st.DisplayText)
	}
}

func TestPushHistoryThenUndoRestores(t *testing.T) {
	st := newTestState()
	st.setText("original")
	prev := st.pushHistory()
	if prev != "original" {
		t.Fatalf("Expected captured text %q, got %q", "original", prev)
	}
	if !st.IsRefining || st.FullText != "" {
		t.Fatalf("Expected refining with cleared text, got refining=%v text=%q", st.IsRefining, st.FullText)
	}
	st.setText("refined")
	if !st.undo() {
		t.Fatal("Expected undo to succeed")
	}
	if st.FullText != "original" || len(st.TextHistory) != 0 {
		t.Fatalf("Expected original text and empty history, got %q %v", st.FullText, st.TextHistory)
	}
	if st.HasPending {
		t.Fatal("Expected undo to discard pending text")
	}
}

func TestRegistryRelinkClearsPreviousPartner(t *testing.T) {
	r := NewRegistry()
	a, b, c := r.NextID(), r.NextID(), r.NextID()
	for _, id := range []messages.WindowID{a, b, c} {
		r.Insert(id, newTestState())
	}

	r.Link(a, b)
	if !r.Link(a, c) {
		t.Fatal("Expected relink to succeed")
	}
	sa, _ := r.Get(a)
	sb, _ := r.Get(b)
	sc, _ := r.Get(c)
	if sa.Linked != c || sc.Linked != a {
		t.Fatalf("Expected a and c linked, got %s and %s", sa.Linked, sc.Linked)
	}
	if sb.Linked != messages.NoWindow {
		t.Fatalf("Expected old partner unlinked, got %s", sb.Linked)
	}
}

func TestResizeEdgeString(t *testing.T) {
	if got := EdgeTopRight.String(); got != "top-right" {
		t.Fatalf("Expected top-right, got %q", got)
	}
	if got := ResizeEdge(42).String(); got != "unknown" {
		t.Fatalf("Expected unknown, got %q", got)
	}
}
