package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/odyssey-erp/campus/cmd/campus/cli"
	"github.com/odyssey-erp/campus/internal/app"
	"github.com/odyssey-erp/campus/internal/observability"
	"github.com/odyssey-erp/campus/internal/platform/cache"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "create-admin" {
		os.Exit(runCreateAdmin(ctx, cfg, logger, os.Args[2:]))
	}
	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("campus exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	st, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("store close", slog.Any("error", err))
		}
	}()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	handler, err := app.NewHandler(cfg, logger, st, redisClient, observability.NewMetrics())
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      handler,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("driver", cfg.DBDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runCreateAdmin(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	flags := pflag.NewFlagSet("create-admin", pflag.ContinueOnError)
	var opts cli.CreateAdminOptions
	flags.StringVarP(&opts.Username, "username", "u", "", "admin username")
	flags.StringVarP(&opts.Password, "password", "p", "", "admin password (defaults to $CAMPUS_ADMIN_PASSWORD)")
	flags.BoolVar(&opts.JSONOutput, "json", false, "print the result as JSON")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	st, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", slog.Any("error", err))
		return 1
	}
	defer st.Close()

	admin, err := cli.NewAdminCLI(app.NewServices(cfg, st).Auth)
	if err != nil {
		logger.Error("admin cli", slog.Any("error", err))
		return 1
	}
	return admin.CreateAdminCommand(ctx, opts)
}
