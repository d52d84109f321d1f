// Command noughtd serves a nought todo document over HTTP.
//
// Build it with:
//
//	go build -o noughtd ./app
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nought/app/config"
	"nought/app/controllers"
	"nought/app/routes"
	"nought/app/services"

	"github.com/gorilla/mux"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "noughtd:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("noughtd", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "config file (default $"+config.EnvConfig+" or "+config.DefaultPath+")")
	addr := flags.String("addr", "", "listen address, overrides server.addr")
	storePath := flags.String("store", "", "todo document, overrides store.path")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(config.ResolvePath(*configPath))
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *storePath != "" {
		cfg.Store.Path = *storePath
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)

	taskService, err := services.Open(context.Background(), cfg.Store, logger)
	if err != nil {
		return err
	}
	taskController := controllers.NewTaskController(taskService, logger)

	router := mux.NewRouter()
	routes.RegisterRoutes(router, taskController)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server is running", "addr", "http://"+cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	return taskService.Close(context.WithoutCancel(ctx))
}
