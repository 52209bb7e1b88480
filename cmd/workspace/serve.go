package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/workspace/internal/auth"
	"github.com/monocle-dev/workspace/internal/config"
	"github.com/monocle-dev/workspace/internal/handlers"
	"github.com/monocle-dev/workspace/internal/logger"
	"github.com/monocle-dev/workspace/internal/middleware"
	"github.com/monocle-dev/workspace/internal/router"
	"github.com/monocle-dev/workspace/internal/scheduler"
	"github.com/monocle-dev/workspace/internal/store"
	"github.com/monocle-dev/workspace/internal/utils"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}

			log, err := logger.New(cfg.Logging.Level)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			return runServe(cfg, log)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides SERVER_PORT)")
	return cmd
}

func openSessionStore(ctx context.Context, cfg *config.Config) (auth.SessionStore, func(), error) {
	if cfg.Session.Driver != "redis" {
		return auth.NewMemorySessionStore(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	return auth.NewRedisSessionStore(rdb), func() { _ = rdb.Close() }, nil
}

func runServe(cfg *config.Config, log *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(store.Options{
		Driver:  cfg.Storage.Driver,
		DataDir: cfg.Storage.DataDir,
		DSN:     cfg.Storage.DSN,
	}, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	if _, err := store.SeedIfEmpty(ctx, st, cfg.Storage.SeedDir, log); err != nil {
		return err
	}

	sessionStore, closeSessions, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	signer, err := auth.NewSigner(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}
	sessions := auth.NewSessions(sessionStore, signer, auth.WithSessionTTL(cfg.Auth.SessionTTL))
	limiter := middleware.NewIPRateLimiter(cfg.Auth.LoginRate, cfg.Auth.LoginBurst)

	domain, err := utils.CookieDomain(cfg.Server.Domain)
	if err != nil {
		return fmt.Errorf("server.domain: %w", err)
	}

	hub := handlers.NewHub(cfg.Server.AllowedOrigins, log)
	defer hub.Close()

	h := handlers.New(st, sessions, hub, log, handlers.Config{
		CookieDomain:  domain,
		SecureCookies: cfg.Server.SecureCookies,
		AutoRegister:  cfg.Auth.AutoRegister,
	})

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.NewRouter(router.Deps{
		Handler:        h,
		Sessions:       sessions,
		Users:          st,
		LoginLimiter:   limiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            log,
	})

	sched := scheduler.NewScheduler(log)
	if err := sched.Add(scheduler.SessionSweepJob, cfg.Scheduler.SessionSweep, scheduler.SessionSweep(sessions, limiter, log)); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:    cfg.ServerAddr(),
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server listening", "addr", srv.Addr, "storage", cfg.Storage.Driver, "sessions", cfg.Session.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Infow("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
