package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	server "github.com/deskhub/tasksync/internal"
	"github.com/deskhub/tasksync/internal/config"
	"github.com/deskhub/tasksync/internal/eventbus"
	"github.com/deskhub/tasksync/internal/pushnotification"
	pushsubrepo "github.com/deskhub/tasksync/internal/pushsubscription/repositoryimpl"
	"github.com/deskhub/tasksync/internal/stream"
	"github.com/deskhub/tasksync/internal/task"
	taskrepo "github.com/deskhub/tasksync/internal/task/repositoryimpl"
	"github.com/deskhub/tasksync/internal/taskapi"
	"github.com/deskhub/tasksync/internal/user"
	userrepo "github.com/deskhub/tasksync/internal/user/repositoryimpl"
	"github.com/deskhub/tasksync/pkg/clog"
	"github.com/deskhub/tasksync/pkg/panicerr"
	"github.com/deskhub/tasksync/pkg/storage"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Setup task repository
	var taskRepository task.Repository
	switch env.StorageEnv.Type {
	case "sqlite":
		repo, err := taskrepo.NewSQLiteRepository(env.StorageEnv.SQLitePath)
		if err != nil {
			slog.Error("failed to open sqlite repository", "error", err)
			os.Exit(1)
		}
		defer repo.Close()
		taskRepository = repo
	case "s3":
		store, err := storage.NewS3Storage(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
		taskRepository = taskrepo.NewYAMLRepository(store)
	default:
		store, err := storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
		taskRepository = taskrepo.NewYAMLRepository(store)
	}

	// Push subscriptions always live on local storage next to the server.
	subStore, err := storage.NewLocalStorage(env.StorageEnv.BaseDir)
	if err != nil {
		slog.Error("failed to create local storage", "error", err)
		os.Exit(1)
	}
	pushSubRepo := pushsubrepo.NewYAMLRepository(subStore)

	// Setup user directory
	userRepo, err := userrepo.NewYAMLRepository(env.DirectoryEnv.UsersFile)
	if err != nil {
		slog.Error("failed to load user directory", "error", err)
		os.Exit(1)
	}

	// Setup event bus
	bus := eventbus.New()

	// Setup servers
	taskServer := taskapi.NewServer(taskRepository, userRepo, bus)
	userServer := user.NewServer(userRepo)
	sseServer := stream.NewServer(bus)

	vapidEnv := config.VAPIDEnvFromEnv(env)
	pushSender := pushnotification.NewSender(vapidEnv, pushSubRepo)
	pushServer := pushnotification.NewServer(vapidEnv, pushSubRepo)
	pushDispatcher := pushnotification.NewDispatcher(bus, pushSender)

	srv := server.NewServer(env, taskServer, userServer, pushServer, sseServer, bus)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	go func() {
		if err := panicerr.SafeContext(userRepo.Watch)(ctx); err != nil {
			slog.Error("user directory watcher error", "error", err)
		}
	}()
	go func() {
		if err := panicerr.SafeContext(pushDispatcher.Start)(ctx); err != nil {
			slog.Error("push dispatcher error", "error", err)
		}
	}()

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	// Give open event streams time to finish after their contexts are cancelled.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
