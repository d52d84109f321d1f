package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nought/app/services"

	"github.com/google/uuid"
	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"nought": run,
	}))
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
		Setup: func(env *testscript.Env) error {
			env.Setenv("NOUGHT_CONFIG", filepath.Join(env.WorkDir, "nought.toml"))
			return nil
		},
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"envset": cmdEnvSet,
		},
	})
}

// cmdEnvSet stores the trimmed contents of a file in an env var.
func cmdEnvSet(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("envset does not support negation")
	}
	if len(args) != 2 {
		ts.Fatalf("usage: envset VAR FILE")
	}
	ts.Setenv(args[0], strings.TrimSpace(ts.ReadFile(args[1])))
}

func TestRootCommandName(t *testing.T) {
	cmd := newRootCmd(nil, nil, nil)
	if cmd.Use != "nought" {
		t.Fatalf("expected root command name nought, got %q", cmd.Use)
	}
}

func TestOverdue(t *testing.T) {
	now := time.Date(2024, 3, 2, 12, 0, 0, 0, time.Local)
	tests := []struct {
		name string
		task services.TaskView
		want bool
	}{
		{"no due date", services.TaskView{}, false},
		{"yesterday", services.TaskView{DueDate: "2024-03-01"}, true},
		{"today without time", services.TaskView{DueDate: "2024-03-02"}, false},
		{"earlier today", services.TaskView{DueDate: "2024-03-02", DueTime: "11:59:59"}, true},
		{"later today", services.TaskView{DueDate: "2024-03-02", DueTime: "12:00:01"}, false},
		{"completed", services.TaskView{DueDate: "2024-03-01", Completed: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overdue(tt.task, now); got != tt.want {
				t.Fatalf("overdue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrintForest(t *testing.T) {
	root := services.TaskView{ID: uuid.MustParse("aaaaaaaa-0000-4000-8000-000000000000"), Name: "root"}
	a := services.TaskView{ID: uuid.MustParse("bbbbbbbb-0000-4000-8000-000000000000"), Name: "a", ParentID: &root.ID}
	b := services.TaskView{ID: uuid.MustParse("cccccccc-0000-4000-8000-000000000000"), Name: "b", ParentID: &root.ID}
	leaf := services.TaskView{ID: uuid.MustParse("dddddddd-0000-4000-8000-000000000000"), Name: "leaf", ParentID: &a.ID}
	root.Children = []uuid.UUID{a.ID, b.ID}
	a.Children = []uuid.UUID{leaf.ID}

	var buf bytes.Buffer
	tasks := []services.TaskView{root, a, b, leaf}
	printForest(&buf, tasks, []services.TaskView{root}, time.Now())

	want := strings.Join([]string{
		"aaaaaaaa root",
		"├── bbbbbbbb a",
		"│   └── dddddddd leaf",
		"└── cccccccc b",
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", buf.String(), want)
	}

	ids := subtree(tasks, a.ID)
	if len(ids) != 2 {
		t.Fatalf("subtree = %v", ids)
	}
}
