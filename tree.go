package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"nought/app/models"
	"nought/app/services"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CB19E")).Strikethrough(true)
	overdueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75")).Bold(true)
	idStyle        = lipgloss.NewStyle().Faint(true)
)

func (a *app) treeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the todos as a forest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := a.service.GetTasks(cmd.Context())
			if err != nil {
				return err
			}
			roots, err := a.service.Roots(cmd.Context())
			if err != nil {
				return err
			}
			printForest(a.stdout, tasks, roots, time.Now())
			return nil
		},
	}
}

func printForest(w io.Writer, tasks, roots []services.TaskView, now time.Time) {
	byID := make(map[uuid.UUID]services.TaskView, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}

	seen := make(map[uuid.UUID]bool)
	var walk func(task services.TaskView, prefix string, last, top bool)
	walk = func(task services.TaskView, prefix string, last, top bool) {
		if seen[task.ID] {
			return
		}
		seen[task.ID] = true

		branch, indent := "", ""
		if !top {
			branch, indent = "├── ", "│   "
			if last {
				branch, indent = "└── ", "    "
			}
		}
		fmt.Fprintf(w, "%s%s%s %s\n", prefix, branch, idStyle.Render(shortID(task.ID)), treeLabel(task, now))

		var children []services.TaskView
		for _, cid := range task.Children {
			if child, ok := byID[cid]; ok {
				children = append(children, child)
			}
		}
		for i, child := range children {
			walk(child, prefix+indent, i == len(children)-1, false)
		}
	}

	for _, root := range roots {
		walk(root, "", true, true)
	}
}

func treeLabel(task services.TaskView, now time.Time) string {
	label := task.Name
	if due := dueText(task); due != "" {
		label += " (due " + due + ")"
	}
	switch {
	case task.Completed:
		return completedStyle.Render(label)
	case overdue(task, now):
		return overdueStyle.Render(label)
	default:
		return label
	}
}

// overdue reports whether an incomplete task's deadline has passed. Due
// dates and times are wall-clock values, compared against now's wall clock.
// A task due on a date without a time is overdue once that day is over.
func overdue(task services.TaskView, now time.Time) bool {
	if task.Completed || task.DueDate == "" {
		return false
	}
	date, err := models.ParseDate(task.DueDate)
	if err != nil {
		return false
	}

	deadline := date.AddDate(0, 0, 1)
	if task.DueTime != "" {
		tod, err := models.ParseTimeOfDay(task.DueTime)
		if err != nil {
			return false
		}
		deadline = tod.On(date)
	}

	wall := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), time.UTC)
	return wall.After(deadline)
}

// subtree returns the ID of id and of all its descendants.
func subtree(tasks []services.TaskView, id uuid.UUID) []uuid.UUID {
	byID := make(map[uuid.UUID]services.TaskView, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}

	var out []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	stack := []uuid.UUID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, cur)
		stack = append(stack, byID[cur].Children...)
	}
	return out
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
