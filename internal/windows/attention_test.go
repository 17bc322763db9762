package windows

import "testing"

func TestAttentionRegistry(t *testing.T) {
	var changes []bool
	a := NewAttentionRegistry(func(active bool) { changes = append(changes, active) })

	releaseA := a.Acquire("a")
	releaseB := a.Acquire("b")
	releaseA2 := a.Acquire("a")

	if !a.Active() {
		t.Fatalf("expected registry to be active")
	}
	if got := a.Holders(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Holders() = %v, want [a b]", got)
	}

	releaseA()
	releaseA()
	releaseB()
	if !a.Active() {
		t.Fatalf("expected registry to stay active while a holder remains")
	}

	releaseA2()
	if a.Active() {
		t.Fatalf("expected registry to be inactive after the last release")
	}
	if len(changes) != 2 || changes[0] != true || changes[1] != false {
		t.Fatalf("changes = %v, want [true false]", changes)
	}
}

func TestAttentionRegistry_NilCallback(t *testing.T) {
	a := NewAttentionRegistry(nil)
	release := a.Acquire("w")
	release()
	if a.Active() {
		t.Fatalf("expected inactive registry")
	}
}
