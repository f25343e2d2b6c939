package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/launchpad-web/launchpad/internal/ability"
	"github.com/launchpad-web/launchpad/internal/account"
	"github.com/launchpad-web/launchpad/internal/app"
	"github.com/launchpad-web/launchpad/internal/auth"
	"github.com/launchpad-web/launchpad/internal/identity"
	"github.com/launchpad-web/launchpad/internal/intl"
	"github.com/launchpad-web/launchpad/internal/notes"
	"github.com/launchpad-web/launchpad/internal/observability"
	"github.com/launchpad-web/launchpad/internal/pages"
	"github.com/launchpad-web/launchpad/internal/platform/cache"
	"github.com/launchpad-web/launchpad/internal/platform/db"
	"github.com/launchpad-web/launchpad/internal/reqctx"
	"github.com/launchpad-web/launchpad/internal/roles"
	"github.com/launchpad-web/launchpad/internal/rpc"
	"github.com/launchpad-web/launchpad/internal/shared"
	"github.com/launchpad-web/launchpad/internal/users"
	"github.com/launchpad-web/launchpad/jobs"
	"github.com/launchpad-web/launchpad/web"
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
	slog.SetDefault(logger)
	intl.DefaultLocale = intl.Supported(cfg.DefaultLocale)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	authService := auth.NewService(auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, cfg.RedirectKey, cfg.SignInRateLimit)

	identityStore := identity.NewPGStore(dbpool)
	assembler := &reqctx.Assembler{
		Identities: identity.NewResolver(auth.NewSessionValidator(sessionManager), identityStore, time.Now),
		Locales:    intl.NewCatalog(web.Locales, "locales"),
		Abilities:  ability.Default(),
		Clients:    rpc.NewClientFactory(cfg.AppBaseURL, &http.Client{Timeout: cfg.AppRequestTimeout}),
		Logger:     logger,
	}

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	rpcServer := rpc.NewServer(logger, metrics)
	rpcServer.UseIdempotency(shared.NewIdempotencyStore(redisClient, 24*time.Hour))
	rpcServer.MustRegister(account.Procedures(identityStore)...)
	rpcServer.MustRegister(notes.Procedures(notes.NewService(notes.NewRepository(dbpool)))...)
	rpcServer.MustRegister(users.Procedures(users.NewService(users.NewRepository(dbpool), auditLogger, logger))...)
	rpcServer.MustRegister(roles.Procedures(roles.NewService(roles.NewRepository(dbpool), auditLogger, logger))...)
	rpcServer.MustRegister(jobs.Procedures(jobClient)...)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Assembler:      assembler,
		AuthHandler:    authHandler,
		RPCServer:      rpcServer,
		PagesHandler:   pages.NewHandler(logger, metrics, cfg.SignInPath, cfg.RedirectKey),
		Metrics:        metrics,
		Checks: map[string]app.Pinger{
			"postgres": dbpool,
			"redis":    app.RedisPinger(redisClient),
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Int("procedures", len(rpcServer.Procedures())))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
