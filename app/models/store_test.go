package models

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestStoreAdd(t *testing.T) {
	store := NewStore()
	if err := store.Add(nil); !errors.Is(err, ErrIllegalArgument) {
		t.Fatalf("nil add: got %v", err)
	}

	task := mustBuild(t, store.NewBuilder().NewID().Name("a").Description(""))
	if err := store.Add(task); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 1 {
		t.Fatalf("duplicate add must be a no-op, len = %d", store.Len())
	}
}

func TestStoreFindByID(t *testing.T) {
	store := NewStore()
	task := mustBuild(t, store.NewBuilder().NewID().Name("a").Description(""))

	got, err := store.FindByID(task.ID())
	if err != nil {
		t.Fatal(err)
	}
	if got != task {
		t.Fatal("FindByID must return the shared task")
	}
	got.SetName("renamed")
	if task.Name() != "renamed" {
		t.Fatal("mutation through one holder must be visible to all")
	}

	if _, err := store.FindByID(uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id: got %v", err)
	}
}

func TestStoreRemove(t *testing.T) {
	store, root, child := newPair(t)

	if err := store.RemoveByID(root.ID()); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("remove parent: got %v", err)
	}
	if err := store.RemoveByID(uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("remove unknown: got %v", err)
	}
	if err := store.RemoveByID(child.ID()); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 1 {
		t.Fatalf("len = %d, want 1", store.Len())
	}
}

func TestStoreRemoveBranch(t *testing.T) {
	store, root, _ := newPair(t)
	if err := store.RemoveBranchAtID(uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown branch: got %v", err)
	}
	if err := store.RemoveBranchAtID(root.ID()); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 0 {
		t.Fatalf("len = %d, want 0", store.Len())
	}
}

func TestStoreAllOrderAndRestart(t *testing.T) {
	store := NewStore()
	var want []string
	for _, name := range []string{"one", "two", "three"} {
		mustBuild(t, store.NewBuilder().NewID().Name(name).Description(""))
		want = append(want, name)
	}

	for pass := 0; pass < 2; pass++ {
		var got []string
		for task := range store.All() {
			got = append(got, task.Name())
		}
		if len(got) != len(want) {
			t.Fatalf("pass %d: got %v", pass, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("pass %d: got %v, want %v", pass, got, want)
			}
		}
	}
}

func TestStoreAllSurvivesRemoval(t *testing.T) {
	store := NewStore()
	for _, name := range []string{"a", "b", "c"} {
		mustBuild(t, store.NewBuilder().NewID().Name(name).Description(""))
	}

	visited := 0
	for task := range store.All() {
		visited++
		if err := task.Destroy(); err != nil {
			t.Fatal(err)
		}
	}
	if visited != 3 || store.Len() != 0 {
		t.Fatalf("visited %d, len %d", visited, store.Len())
	}
}

func TestStoreRoots(t *testing.T) {
	store, root, _ := newPair(t)
	other := mustBuild(t, store.NewBuilder().NewID().Name("other").Description(""))

	roots := store.Roots()
	if len(roots) != 2 || roots[0] != root || roots[1] != other {
		t.Fatalf("roots = %v", roots)
	}
}
