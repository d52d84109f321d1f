package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Builder stages the fields of a new task and inserts it into its store on
// Build. It is the only way to create a Task.
//
// A builder keeps its accumulated values after Build, so it can be reused as
// a prototype for the next task.
type Builder struct {
	store *Store

	id          *uuid.UUID
	name        *string
	description *string
	completed   bool
	dueDate     *time.Time
	dueTime     *TimeOfDay
	children    []uuid.UUID
}

// ID sets the ID of the task to build.
func (b *Builder) ID(id uuid.UUID) *Builder {
	b.id = &id
	return b
}

// NewID sets a freshly generated random ID.
func (b *Builder) NewID() *Builder {
	return b.ID(uuid.New())
}

// Name sets the task's name.
func (b *Builder) Name(name string) *Builder {
	b.name = &name
	return b
}

// Description sets the task's description.
func (b *Builder) Description(description string) *Builder {
	b.description = &description
	return b
}

// Completed sets the task's completion flag.
func (b *Builder) Completed(completed bool) *Builder {
	b.completed = completed
	return b
}

// DueDate sets the due date; nil clears it.
func (b *Builder) DueDate(date *time.Time) *Builder {
	if date == nil {
		b.dueDate = nil
		return b
	}
	d := *date
	b.dueDate = &d
	return b
}

// DueTime sets the due time of day; nil clears it.
func (b *Builder) DueTime(tod *TimeOfDay) *Builder {
	if tod == nil {
		b.dueTime = nil
		return b
	}
	v := *tod
	b.dueTime = &v
	return b
}

// AddChild stages an existing task's ID as a child of the task to build.
func (b *Builder) AddChild(id uuid.UUID) *Builder {
	b.children = append(b.children, id)
	return b
}

// Build creates the task, inserts it into the store and attaches the staged
// children. ID, name and description are required and the ID must not be
// taken in the store yet. When an error is returned the store is left
// unchanged.
func (b *Builder) Build() (*Task, error) {
	if b.id == nil || b.name == nil || b.description == nil {
		return nil, fmt.Errorf("%w: required setters have not been called", ErrIllegalArgument)
	}
	if _, err := b.store.FindByID(*b.id); err == nil {
		return nil, fmt.Errorf("%w: todo %s already exists", ErrIllegalArgument, *b.id)
	}

	task := &Task{
		id:          *b.id,
		name:        *b.name,
		description: *b.description,
		completed:   b.completed,
		store:       b.store,
	}
	if err := task.SetDueDate(b.dueDate); err != nil {
		return nil, err
	}
	if err := task.SetDueTime(b.dueTime); err != nil {
		return nil, err
	}

	children := make([]*Task, 0, len(b.children))
	for _, cid := range b.children {
		if cid == task.id {
			return nil, fmt.Errorf("%w: todo cannot be parent of itself", ErrIllegalArgument)
		}
		child, err := b.store.FindByID(cid)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	if err := b.store.Add(task); err != nil {
		return nil, err
	}
	for _, child := range children {
		if err := task.AddChild(child); err != nil {
			return nil, err
		}
	}
	return task, nil
}
