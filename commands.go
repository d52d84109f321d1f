package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"nought/app/codec"
	"nought/app/services"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// shortIDLength is how many characters of an ID the listings print.
const shortIDLength = 8

func shortID(id uuid.UUID) string {
	return id.String()[:shortIDLength]
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all todos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := a.service.GetTasks(cmd.Context())
			if err != nil {
				return err
			}
			for _, task := range tasks {
				fmt.Fprintln(a.stdout, listLine(task))
			}
			return nil
		},
	}
}

func listLine(task services.TaskView) string {
	mark := " "
	if task.Completed {
		mark = "x"
	}
	line := fmt.Sprintf("%s [%s] %s", shortID(task.ID), mark, task.Name)
	if due := dueText(task); due != "" {
		line += " (due " + due + ")"
	}
	return line
}

func dueText(task services.TaskView) string {
	if task.DueTime != "" {
		return task.DueDate + " " + task.DueTime
	}
	return task.DueDate
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show every field of a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.service.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			task, err := a.service.GetTaskByID(cmd.Context(), id)
			if err != nil {
				return err
			}

			w := a.stdout
			fmt.Fprintf(w, "id:          %s\n", task.ID)
			fmt.Fprintf(w, "name:        %s\n", task.Name)
			fmt.Fprintf(w, "description: %s\n", task.Description)
			fmt.Fprintf(w, "completed:   %t\n", task.Completed)
			if due := dueText(task); due != "" {
				fmt.Fprintf(w, "due:         %s\n", due)
			}
			if task.ParentID != nil {
				fmt.Fprintf(w, "parent:      %s\n", *task.ParentID)
			}
			for _, child := range task.Children {
				fmt.Fprintf(w, "child:       %s\n", child)
			}
			return nil
		},
	}
}

func (a *app) addCmd() *cobra.Command {
	var (
		req    services.NewTask
		parent string
	)
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a todo and print its ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = args[0]
			if parent != "" {
				id, err := a.service.Resolve(cmd.Context(), parent)
				if err != nil {
					return fmt.Errorf("parent: %w", err)
				}
				req.ParentID = &id
			}

			task, err := a.service.CreateTask(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := a.save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, task.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Description, "desc", "d", "", "description")
	cmd.Flags().StringVarP(&parent, "parent", "p", "", "ID of the parent todo")
	cmd.Flags().StringVar(&req.DueDate, "due", "", "due date (yyyy-MM-dd)")
	cmd.Flags().StringVar(&req.DueTime, "at", "", "due time of day (HH:mm[:ss]), requires --due")
	cmd.Flags().BoolVar(&req.Completed, "done", false, "create the todo completed")
	return cmd
}

func (a *app) completeCmd(use, short string, completed bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.update(cmd, args[0], services.TaskUpdate{Completed: &completed})
		},
	}
}

func (a *app) dueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "due ID [DATE [TIME]]",
		Short: "Set or, without DATE, clear the due date and time",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, tod := "", ""
			if len(args) > 1 {
				date = args[1]
			}
			if len(args) > 2 {
				tod = args[2]
			}
			return a.update(cmd, args[0], services.TaskUpdate{DueDate: &date, DueTime: &tod})
		},
	}
}

func (a *app) renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Change the name of a todo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.update(cmd, args[0], services.TaskUpdate{Name: &args[1]})
		},
	}
}

func (a *app) update(cmd *cobra.Command, rawID string, u services.TaskUpdate) error {
	id, err := a.service.Resolve(cmd.Context(), rawID)
	if err != nil {
		return err
	}
	task, err := a.service.UpdateTask(cmd.Context(), id, u)
	if err != nil {
		return err
	}
	if err := a.save(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, listLine(task))
	return nil
}

func (a *app) rmCmd() *cobra.Command {
	var tree, yes bool
	cmd := &cobra.Command{
		Use:   "rm ID",
		Short: "Remove a childless todo, or with --tree a todo and its descendants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.service.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if !tree {
				if err := a.service.DeleteTask(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "removed %s\n", shortID(id))
				return a.save(cmd.Context())
			}

			if !yes {
				ok, err := a.confirmTree(cmd, id)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(a.stdout, "aborted")
					return nil
				}
			}
			removed, err := a.service.DeleteTree(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "removed %d todos\n", removed)
			return a.save(cmd.Context())
		},
	}
	cmd.Flags().BoolVarP(&tree, "tree", "r", false, "also remove all descendants")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (a *app) confirmTree(cmd *cobra.Command, id uuid.UUID) (bool, error) {
	f, ok := a.stdin.(*os.File)
	if !ok || !isTerminal(f) {
		return false, fmt.Errorf("refusing to remove a tree without --yes when stdin is not a terminal")
	}

	tasks, err := a.service.GetTasks(cmd.Context())
	if err != nil {
		return false, err
	}
	n := len(subtree(tasks, id))
	fmt.Fprintf(a.stdout, "Remove %d todos? [y/N] ", n)

	answer, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && answer == "" {
		return false, nil
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Import the todo document and report what it holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := codec.LoadFile(a.cfg.Store.Path)
			if err != nil {
				return err
			}
			completed := 0
			for task := range store.All() {
				if task.Completed() {
					completed++
				}
			}
			fmt.Fprintf(a.stdout, "%s: %d todos, %d roots, %d completed\n",
				a.cfg.Store.Path, store.Len(), len(store.Roots()), completed)
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the todo document to stdout or a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return a.service.Export(cmd.Context(), a.stdout)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			w := bufio.NewWriter(f)
			if err := a.service.Export(cmd.Context(), w); err != nil {
				f.Close()
				return err
			}
			if err := w.Flush(); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	return cmd
}
