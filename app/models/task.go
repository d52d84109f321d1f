package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Task represents a todo with an optional parent ID.
//
// Parent and children are held as IDs and resolved through the owning
// Store; a Task never points at another Task directly. Tasks are created
// only through a Builder and are shared as *Task by every holder.
type Task struct {
	id          uuid.UUID
	name        string
	description string
	completed   bool
	dueDate     *time.Time
	dueTime     *TimeOfDay
	parentID    *uuid.UUID
	children    []uuid.UUID

	store *Store
}

// ID returns the task's identifier.
func (t *Task) ID() uuid.UUID { return t.id }

// Name returns the task's name.
func (t *Task) Name() string { return t.name }

// Description returns the task's description.
func (t *Task) Description() string { return t.description }

// Completed reports whether the task is completed.
func (t *Task) Completed() bool { return t.completed }

// DueDate returns the due date, or nil if none is set.
func (t *Task) DueDate() *time.Time {
	if t.dueDate == nil {
		return nil
	}
	d := *t.dueDate
	return &d
}

// DueTime returns the due time of day, or nil if none is set.
func (t *Task) DueTime() *TimeOfDay {
	if t.dueTime == nil {
		return nil
	}
	tod := *t.dueTime
	return &tod
}

// ParentID returns the parent's ID, or nil for a root task.
func (t *Task) ParentID() *uuid.UUID {
	if t.parentID == nil {
		return nil
	}
	id := *t.parentID
	return &id
}

// Children returns the IDs of the task's children in insertion order.
func (t *Task) Children() []uuid.UUID {
	return slices.Clone(t.children)
}

// IsRoot reports whether the task has no parent.
func (t *Task) IsRoot() bool { return t.parentID == nil }

// Equal reports whether t and other have the same ID.
func (t *Task) Equal(other *Task) bool {
	return other != nil && t.id == other.id
}

func (t *Task) String() string { return t.name }

// Parent resolves the parent through the store. A root task has no parent
// and returns nil, nil.
func (t *Task) Parent() (*Task, error) {
	if t.parentID == nil {
		return nil, nil
	}
	return t.store.FindByID(*t.parentID)
}

// Trail returns the names of the task's ancestors, nearest first. The walk
// stops at the first parent that does not resolve.
func (t *Task) Trail() []string {
	var trail []string
	seen := map[uuid.UUID]bool{t.id: true}
	for cur := t; cur.parentID != nil; {
		parent, err := cur.store.FindByID(*cur.parentID)
		if err != nil || seen[parent.id] {
			break
		}
		seen[parent.id] = true
		trail = append(trail, parent.name)
		cur = parent
	}
	return trail
}

// SetName replaces the task's name.
func (t *Task) SetName(name string) { t.name = name }

// SetDescription replaces the task's description.
func (t *Task) SetDescription(description string) { t.description = description }

// SetCompleted marks the task completed or incomplete. A task can only be
// completed when all of its children are, and only reopened when its parent
// is not completed.
func (t *Task) SetCompleted(completed bool) error {
	if completed {
		for _, cid := range t.children {
			child, err := t.store.FindByID(cid)
			if err != nil {
				return err
			}
			if !child.completed {
				return newBadOperation(t, "children's completeness is not appropriate")
			}
		}
	} else {
		parent, err := t.Parent()
		if err != nil {
			return err
		}
		if parent != nil && parent.completed {
			return newBadOperation(t, "parent's completeness is not appropriate")
		}
	}

	t.completed = completed
	return nil
}

// SetDueDate sets or, with nil, unsets the due date. The date cannot be
// unset while a due time is set.
func (t *Task) SetDueDate(date *time.Time) error {
	if date == nil {
		if t.dueTime != nil {
			return newBadOperation(t, "due date can not be unset if due time is set")
		}
		t.dueDate = nil
		return nil
	}

	d := truncateDate(*date)
	t.dueDate = &d
	return nil
}

// SetDueDateString parses yyyy-MM-dd text and sets the due date. Empty text
// unsets it.
func (t *Task) SetDueDateString(text string) error {
	if text == "" {
		return t.SetDueDate(nil)
	}
	date, err := ParseDate(text)
	if err != nil {
		return err
	}
	return t.SetDueDate(&date)
}

// SetDueTime sets or, with nil, unsets the due time of day. A time can only
// be set once a due date is present.
func (t *Task) SetDueTime(tod *TimeOfDay) error {
	if tod == nil {
		t.dueTime = nil
		return nil
	}
	if t.dueDate == nil {
		return newBadOperation(t, "due time can only be set after a due date has been set")
	}

	v := *tod
	t.dueTime = &v
	return nil
}

// SetDueTimeString parses ISO time text and sets the due time. Empty text
// unsets it.
func (t *Task) SetDueTimeString(text string) error {
	if text == "" {
		return t.SetDueTime(nil)
	}
	if t.dueDate == nil {
		return newBadOperation(t, "due time can only be set after a due date has been set")
	}
	tod, err := ParseTimeOfDay(text)
	if err != nil {
		return err
	}
	return t.SetDueTime(&tod)
}

// AddChild makes child a child of t.
func (t *Task) AddChild(child *Task) error {
	if child == nil {
		return fmt.Errorf("%w: child todo cannot be nil", ErrIllegalArgument)
	}
	if t.Equal(child) {
		return fmt.Errorf("%w: todo cannot be parent of itself", ErrIllegalArgument)
	}

	parentID := t.id
	child.parentID = &parentID
	t.children = append(t.children, child.id)
	return nil
}

// AddChildID resolves id through the store and makes it a child of t.
func (t *Task) AddChildID(id uuid.UUID) error {
	child, err := t.store.FindByID(id)
	if err != nil {
		return err
	}
	return t.AddChild(child)
}

// Destroy removes a childless task from the store and from its parent's
// children.
func (t *Task) Destroy() error {
	if len(t.children) > 0 {
		return newBadOperation(t, "cannot destroy todo with children")
	}
	parent, err := t.Parent()
	if err != nil {
		return err
	}

	t.store.unlink(t)
	if parent != nil {
		parent.removeChild(t.id)
	}
	return nil
}

// DestroyTree removes the task and all of its descendants from the store,
// children before parents. The task is also detached from its parent.
func (t *Task) DestroyTree() {
	if parent, err := t.Parent(); err == nil && parent != nil {
		parent.removeChild(t.id)
	}
	t.destroyTree(map[uuid.UUID]bool{})
}

func (t *Task) destroyTree(seen map[uuid.UUID]bool) {
	seen[t.id] = true
	for _, cid := range slices.Clone(t.children) {
		if seen[cid] {
			continue
		}
		child, err := t.store.FindByID(cid)
		if err != nil {
			continue
		}
		child.destroyTree(seen)
	}
	t.store.unlink(t)
}

func (t *Task) removeChild(id uuid.UUID) {
	if i := slices.Index(t.children, id); i >= 0 {
		t.children = slices.Delete(t.children, i, i+1)
	}
}
