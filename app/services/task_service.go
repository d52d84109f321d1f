package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"nought/app/codec"
	"nought/app/config"
	"nought/app/models"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

var (
	// ErrAmbiguousID indicates an ID prefix matches more than one todo.
	ErrAmbiguousID = errors.New("ambiguous todo id prefix")
	// ErrNoPath is returned by Save when the service has no document path.
	ErrNoPath = errors.New("no todo document path configured")
)

// TaskView is a point-in-time copy of a task, safe to hand out of the lock.
type TaskView struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Completed   bool        `json:"completed"`
	DueDate     string      `json:"due_date,omitempty"`
	DueTime     string      `json:"due_time,omitempty"`
	ParentID    *uuid.UUID  `json:"parent_id"`
	Children    []uuid.UUID `json:"children"`
}

// NewTask describes a task to create. DueDate is yyyy-MM-dd and DueTime an
// ISO time of day; both are optional.
type NewTask struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Completed   bool        `json:"completed"`
	DueDate     string      `json:"due_date"`
	DueTime     string      `json:"due_time"`
	ParentID    *uuid.UUID  `json:"parent_id"`
	Children    []uuid.UUID `json:"children"`
}

// TaskUpdate lists the fields to change; nil fields are left alone. An empty
// DueDate or DueTime unsets the field.
type TaskUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
	DueDate     *string `json:"due_date"`
	DueTime     *string `json:"due_time"`
}

// TaskService handles task-related operations on one todo document.
type TaskService struct {
	mu       sync.Mutex
	store    *models.Store
	path     string
	autoSave bool
	dirty    bool
	logger   *log.Logger
}

// Open loads the document at cfg.Path, or starts an empty store when the
// file does not exist yet.
func Open(ctx context.Context, cfg config.Store, logger *log.Logger) (*TaskService, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &TaskService{path: cfg.Path, autoSave: cfg.AutoSave, logger: logger}
	if cfg.Path == "" {
		s.store = models.NewStore()
		return s, nil
	}

	store, err := codec.LoadFile(cfg.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("starting with an empty todo document", "path", cfg.Path)
		store = models.NewStore()
	case err != nil:
		return nil, err
	default:
		logger.Info("loaded todo document", "path", cfg.Path, "todos", store.Len())
	}
	s.store = store
	return s, nil
}

// Path returns the document path, which may be empty.
func (s *TaskService) Path() string { return s.path }

// GetTasks returns every task in store order.
func (s *TaskService) GetTasks(ctx context.Context) ([]TaskView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]TaskView, 0, s.store.Len())
	for task := range s.store.All() {
		tasks = append(tasks, view(task))
	}
	return tasks, nil
}

// Roots returns the top-level tasks.
func (s *TaskService) Roots(ctx context.Context) ([]TaskView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	roots := s.store.Roots()
	views := make([]TaskView, 0, len(roots))
	for _, task := range roots {
		views = append(views, view(task))
	}
	return views, nil
}

// GetTaskByID returns a single task.
func (s *TaskService) GetTaskByID(ctx context.Context, id uuid.UUID) (TaskView, error) {
	if err := ctx.Err(); err != nil {
		return TaskView{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.store.FindByID(id)
	if err != nil {
		return TaskView{}, err
	}
	return view(task), nil
}

// Resolve turns a full ID or a unique case-insensitive prefix of one into
// the matching task's ID.
func (s *TaskService) Resolve(ctx context.Context, input string) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	needle := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(input), "_"))
	if needle == "" {
		return uuid.Nil, fmt.Errorf("%w: empty todo id", models.ErrIllegalArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, err := uuid.Parse(needle); err == nil {
		if _, err := s.store.FindByID(id); err != nil {
			return uuid.Nil, err
		}
		return id, nil
	}

	var match *uuid.UUID
	for task := range s.store.All() {
		id := task.ID()
		if !strings.HasPrefix(id.String(), needle) {
			continue
		}
		if match != nil {
			return uuid.Nil, fmt.Errorf("%w: %s", ErrAmbiguousID, input)
		}
		match = &id
	}
	if match == nil {
		return uuid.Nil, fmt.Errorf("%w: %s", models.ErrNotFound, input)
	}
	return *match, nil
}

// CreateTask builds a new task with a fresh ID. The parent and children must
// already exist. Nothing is changed when an error is returned.
func (s *TaskService) CreateTask(ctx context.Context, req NewTask) (TaskView, error) {
	if err := ctx.Err(); err != nil {
		return TaskView{}, err
	}
	if err := models.ValidateDueInput(req.DueDate, req.DueTime); err != nil {
		return TaskView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	builder := s.store.NewBuilder().NewID().
		Name(req.Name).
		Description(req.Description).
		Completed(req.Completed)

	if req.DueDate != "" {
		date, err := models.ParseDate(req.DueDate)
		if err != nil {
			return TaskView{}, err
		}
		builder.DueDate(&date)
	}
	if req.DueTime != "" {
		tod, err := models.ParseTimeOfDay(req.DueTime)
		if err != nil {
			return TaskView{}, err
		}
		builder.DueTime(&tod)
	}

	for _, cid := range req.Children {
		child, err := s.store.FindByID(cid)
		if err != nil {
			return TaskView{}, err
		}
		if !child.IsRoot() {
			return TaskView{}, fmt.Errorf("%w: todo %q already has a parent", models.ErrIllegalArgument, child.Name())
		}
		if req.Completed && !child.Completed() {
			return TaskView{}, fmt.Errorf("%w: cannot create a completed todo over incomplete child %q", models.ErrInvariantViolation, child.Name())
		}
		builder.AddChild(cid)
	}

	var parent *models.Task
	if req.ParentID != nil {
		p, err := s.store.FindByID(*req.ParentID)
		if err != nil {
			return TaskView{}, err
		}
		if p.Completed() && !req.Completed {
			return TaskView{}, fmt.Errorf("%w: cannot add an incomplete todo under completed %q", models.ErrInvariantViolation, p.Name())
		}
		for anc := p; anc != nil; anc, _ = anc.Parent() {
			if slices.Contains(req.Children, anc.ID()) {
				return TaskView{}, fmt.Errorf("%w: todo %q cannot be both an ancestor and a child", models.ErrIllegalArgument, anc.Name())
			}
		}
		parent = p
	}

	task, err := builder.Build()
	if err != nil {
		return TaskView{}, err
	}
	if parent != nil {
		if err := parent.AddChild(task); err != nil {
			return TaskView{}, err
		}
	}

	s.dirty = true
	s.logger.Info("created todo", "id", task.ID(), "name", task.Name())
	return view(task), nil
}

// UpdateTask applies the requested changes to one task. The update is all
// or nothing: if any field is rejected, the fields already changed are
// restored.
func (s *TaskService) UpdateTask(ctx context.Context, id uuid.UUID, u TaskUpdate) (TaskView, error) {
	if err := ctx.Err(); err != nil {
		return TaskView{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.store.FindByID(id)
	if err != nil {
		return TaskView{}, err
	}

	before := snapshot(task)
	if err := applyUpdate(task, u); err != nil {
		before.restore(task)
		s.logger.Debug("rejected todo update", "id", id, "err", err)
		return TaskView{}, err
	}

	s.dirty = true
	s.logger.Info("updated todo", "id", id)
	return view(task), nil
}

func applyUpdate(task *models.Task, u TaskUpdate) error {
	if u.Name != nil {
		task.SetName(*u.Name)
	}
	if u.Description != nil {
		task.SetDescription(*u.Description)
	}

	// Clearing the time has to precede clearing the date, and setting the
	// date has to precede setting the time.
	if u.DueTime != nil && *u.DueTime == "" {
		if err := task.SetDueTime(nil); err != nil {
			return err
		}
	}
	if u.DueDate != nil {
		if err := task.SetDueDateString(*u.DueDate); err != nil {
			return err
		}
	}
	if u.DueTime != nil && *u.DueTime != "" {
		if err := task.SetDueTimeString(*u.DueTime); err != nil {
			return err
		}
	}

	if u.Completed != nil {
		if err := task.SetCompleted(*u.Completed); err != nil {
			return err
		}
	}
	return nil
}

type fields struct {
	name        string
	description string
	completed   bool
	dueDate     *time.Time
	dueTime     *models.TimeOfDay
}

func snapshot(task *models.Task) fields {
	return fields{
		name:        task.Name(),
		description: task.Description(),
		completed:   task.Completed(),
		dueDate:     task.DueDate(),
		dueTime:     task.DueTime(),
	}
}

// restore puts back a state the task held before, which satisfied every
// invariant, so the setters cannot fail here.
func (f fields) restore(task *models.Task) {
	task.SetName(f.name)
	task.SetDescription(f.description)
	_ = task.SetDueTime(nil)
	_ = task.SetDueDate(f.dueDate)
	_ = task.SetDueTime(f.dueTime)
	_ = task.SetCompleted(f.completed)
}

// DeleteTask removes a task that has no children.
func (s *TaskService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.RemoveByID(id); err != nil {
		return err
	}
	s.dirty = true
	s.logger.Info("deleted todo", "id", id)
	return nil
}

// DeleteTree removes a task together with all of its descendants and
// returns how many tasks were removed.
func (s *TaskService) DeleteTree(ctx context.Context, id uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.store.Len()
	if err := s.store.RemoveBranchAtID(id); err != nil {
		return 0, err
	}
	removed := before - s.store.Len()
	s.dirty = true
	s.logger.Info("deleted todo tree", "id", id, "removed", removed)
	return removed, nil
}

// Export writes the whole store as a nought document.
func (s *TaskService) Export(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return codec.NewExporter(s.store).Export(w)
}

// Import replaces the store with the document read from r. The current
// store is kept when the document does not import cleanly.
func (s *TaskService) Import(ctx context.Context, r io.Reader) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	store, err := codec.Load(r)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.store = store
	s.dirty = true
	s.logger.Info("imported todo document", "todos", store.Len())
	return store.Len(), nil
}

// Save writes the store to the document path.
func (s *TaskService) Save(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save()
}

func (s *TaskService) save() error {
	if s.path == "" {
		return ErrNoPath
	}
	if err := codec.SaveFile(s.store, s.path); err != nil {
		return err
	}
	s.dirty = false
	s.logger.Info("saved todo document", "path", s.path, "todos", s.store.Len())
	return nil
}

// Dirty reports whether the store has changes that were not saved.
func (s *TaskService) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Close saves unsaved changes when auto-save is enabled. The save runs even
// when ctx is already done.
func (s *TaskService) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	if !s.autoSave {
		s.logger.Warn("discarding unsaved changes", "path", s.path)
		return nil
	}
	return s.save()
}

func view(task *models.Task) TaskView {
	v := TaskView{
		ID:          task.ID(),
		Name:        task.Name(),
		Description: task.Description(),
		Completed:   task.Completed(),
		ParentID:    task.ParentID(),
		Children:    task.Children(),
	}
	if v.Children == nil {
		v.Children = []uuid.UUID{}
	}
	if date := task.DueDate(); date != nil {
		v.DueDate = models.FormatDate(*date)
	}
	if tod := task.DueTime(); tod != nil {
		v.DueTime = tod.String()
	}
	return v
}
