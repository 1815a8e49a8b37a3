package registry

import (
	"testing"

	"github.com/amuxd/amuxd/internal/session"
)

func newTestSession(id string) *session.Session {
	return session.New(id, session.ClaudeCode, "/tmp", nil)
}

func TestAdd_SelectsNewSession(t *testing.T) {
	r := New()
	r.Add(newTestSession("a"))
	r.Add(newTestSession("b"))

	sel, ok := r.Selected()
	if !ok || sel.LocalID != "b" {
		t.Fatalf("Selected() = %+v, %v, want local id %q", sel, ok, "b")
	}
}

func TestGetByID(t *testing.T) {
	r := New()
	r.Add(newTestSession("a"))

	s, ok := r.GetByID("a")
	if !ok || s.LocalID != "a" {
		t.Fatalf("GetByID(a) = %+v, %v", s, ok)
	}
	if _, ok := r.GetByID("missing"); ok {
		t.Error("GetByID(missing) = true, want false")
	}
}

func TestRemoveByID_ClampsSelectionWhenSelectedIsRemoved(t *testing.T) {
	r := New()
	r.Add(newTestSession("a"))
	r.Add(newTestSession("b"))
	r.Add(newTestSession("c")) // selected = c, index 2

	if ok := r.RemoveByID("c"); !ok {
		t.Fatal("RemoveByID(c) = false, want true")
	}

	sel, ok := r.Selected()
	if !ok || sel.LocalID != "b" {
		t.Fatalf("Selected() = %+v, want %q", sel, "b")
	}
}

func TestRemoveByID_UnknownIDReturnsFalse(t *testing.T) {
	r := New()
	r.Add(newTestSession("a"))
	if ok := r.RemoveByID("missing"); ok {
		t.Error("RemoveByID(missing) = true, want false")
	}
}

func TestRemoveByID_LastSessionResetsSelectionToZero(t *testing.T) {
	r := New()
	r.Add(newTestSession("a"))
	r.RemoveByID("a")

	if _, ok := r.Selected(); ok {
		t.Error("Selected() should report nothing once registry is empty")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if r.selected != 0 {
		t.Errorf("selected = %d, want 0", r.selected)
	}
}

func TestSelectNext_Wraps(t *testing.T) {
	r := New()
	r.Add(newTestSession("a"))
	r.Add(newTestSession("b"))
	r.SelectIndex(0)

	r.SelectNext()
	sel, _ := r.Selected()
	if sel.LocalID != "b" {
		t.Fatalf("Selected() = %q, want %q", sel.LocalID, "b")
	}

	r.SelectNext()
	sel, _ = r.Selected()
	if sel.LocalID != "a" {
		t.Fatalf("Selected() = %q, want %q (should wrap)", sel.LocalID, "a")
	}
}

func TestSelectPrev_Wraps(t *testing.T) {
	r := New()
	r.Add(newTestSession("a"))
	r.Add(newTestSession("b"))
	r.SelectIndex(0)

	r.SelectPrev()
	sel, _ := r.Selected()
	if sel.LocalID != "b" {
		t.Fatalf("Selected() = %q, want %q (should wrap backward)", sel.LocalID, "b")
	}
}

func TestSelectByID(t *testing.T) {
	r := New()
	r.Add(newTestSession("a"))
	r.Add(newTestSession("b"))

	if ok := r.SelectByID("a"); !ok {
		t.Fatal("SelectByID(a) = false, want true")
	}
	sel, _ := r.Selected()
	if sel.LocalID != "a" {
		t.Errorf("Selected() = %q, want %q", sel.LocalID, "a")
	}
	if ok := r.SelectByID("missing"); ok {
		t.Error("SelectByID(missing) = true, want false")
	}
}

func TestAll_ReturnsSnapshotCopy(t *testing.T) {
	r := New()
	r.Add(newTestSession("a"))

	all := r.All()
	all[0] = nil

	s, ok := r.GetByID("a")
	if !ok || s == nil {
		t.Error("mutating the All() slice must not affect the registry's internal state")
	}
}
