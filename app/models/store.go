package models

import (
	"fmt"
	"iter"
	"slices"

	"github.com/google/uuid"
)

// Store owns every task of one forest and resolves tasks by ID.
//
// A Store is not safe for concurrent use; callers that share one across
// goroutines must serialize access themselves.
type Store struct {
	tasks []*Task
	index map[uuid.UUID]*Task
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{index: make(map[uuid.UUID]*Task)}
}

// NewBuilder returns a builder that inserts the tasks it builds into s.
func (s *Store) NewBuilder() *Builder {
	return &Builder{store: s}
}

// Add inserts task unless a task with the same ID is already present.
func (s *Store) Add(task *Task) error {
	if task == nil {
		return fmt.Errorf("%w: added todo cannot be nil", ErrIllegalArgument)
	}
	if _, ok := s.index[task.id]; ok {
		return nil
	}

	s.index[task.id] = task
	s.tasks = append(s.tasks, task)
	return nil
}

// FindByID returns the task with the given ID.
func (s *Store) FindByID(id uuid.UUID) (*Task, error) {
	task, ok := s.index[id]
	if !ok {
		return nil, notFound(id)
	}
	return task, nil
}

// RemoveByID destroys the childless task with the given ID.
func (s *Store) RemoveByID(id uuid.UUID) error {
	task, err := s.FindByID(id)
	if err != nil {
		return err
	}
	return task.Destroy()
}

// RemoveBranchAtID destroys the task with the given ID together with all of
// its descendants. No invariant is checked.
func (s *Store) RemoveBranchAtID(id uuid.UUID) error {
	task, err := s.FindByID(id)
	if err != nil {
		return err
	}
	task.DestroyTree()
	return nil
}

// unlink drops task from the store. Only a task's own destroy paths call it.
func (s *Store) unlink(task *Task) {
	if _, ok := s.index[task.id]; !ok {
		return
	}
	delete(s.index, task.id)
	s.tasks = slices.DeleteFunc(s.tasks, func(t *Task) bool {
		return t.id == task.id
	})
}

// All yields every task in insertion order. The sequence reflects the store
// at the moment iteration starts and can be ranged over any number of times.
func (s *Store) All() iter.Seq[*Task] {
	return func(yield func(*Task) bool) {
		for _, task := range slices.Clone(s.tasks) {
			if !yield(task) {
				return
			}
		}
	}
}

// Len returns the number of tasks in the store.
func (s *Store) Len() int {
	return len(s.tasks)
}

// Roots returns the top-level tasks in insertion order. A task whose parent
// is no longer in the store is treated as a root.
func (s *Store) Roots() []*Task {
	var roots []*Task
	for _, task := range s.tasks {
		if task.parentID == nil {
			roots = append(roots, task)
			continue
		}
		if _, ok := s.index[*task.parentID]; !ok {
			roots = append(roots, task)
		}
	}
	return roots
}
