// Command nought manages a forest of hierarchical todos stored in one XML
// document.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"nought/app/config"
	"nought/app/services"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run())
}

// run executes the CLI and returns the process exit code.
func run() int {
	cmd := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "nought:", err)
		return 1
	}
	return 0
}

// app carries what every subcommand needs once the root command has loaded
// the configuration.
type app struct {
	configPath string
	filePath   string
	verbose    bool

	cfg     *config.Config
	logger  *log.Logger
	service *services.TaskService

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "nought",
		Short:         "nought - hierarchical todos in a single XML document",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.Context())
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default $"+config.EnvConfig+" or "+config.DefaultPath+")")
	flags.StringVarP(&a.filePath, "file", "f", "", "todo document, overrides store.path")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log at the configured level instead of warnings only")

	root.AddCommand(
		a.listCmd(),
		a.treeCmd(),
		a.showCmd(),
		a.addCmd(),
		a.completeCmd("done", "Mark a todo completed", true),
		a.completeCmd("undo", "Mark a todo not completed", false),
		a.dueCmd(),
		a.renameCmd(),
		a.rmCmd(),
		a.checkCmd(),
		a.exportCmd(),
	)
	return root
}

func (a *app) load(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(config.ResolvePath(a.configPath))
	if err != nil {
		return err
	}
	if a.filePath != "" {
		cfg.Store.Path = a.filePath
	}
	a.cfg = cfg

	a.logger = config.NewLogger(cfg.Log, a.stderr)
	if !a.verbose && a.logger.GetLevel() < log.WarnLevel {
		a.logger.SetLevel(log.WarnLevel)
	}

	a.service, err = services.Open(ctx, cfg.Store, a.logger)
	return err
}

// save writes the document back after a mutating command.
func (a *app) save(ctx context.Context) error {
	if err := a.service.Save(ctx); err != nil {
		if errors.Is(err, services.ErrNoPath) {
			return fmt.Errorf("cannot save: %w", err)
		}
		return err
	}
	return nil
}
