package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nou-pos/nou/cmd/nou/cli"
	"github.com/nou-pos/nou/internal/activity"
	"github.com/nou-pos/nou/internal/app"
	"github.com/nou-pos/nou/internal/auth"
	"github.com/nou-pos/nou/internal/bootstrap"
	"github.com/nou-pos/nou/internal/cashclosing"
	"github.com/nou-pos/nou/internal/observability"
	"github.com/nou-pos/nou/internal/platform/cache"
	"github.com/nou-pos/nou/internal/platform/db"
	"github.com/nou-pos/nou/internal/platform/storage"
	"github.com/nou-pos/nou/internal/rbac"
	"github.com/nou-pos/nou/internal/shared"
	"github.com/nou-pos/nou/internal/tenancy"
	"github.com/nou-pos/nou/internal/warranty"
	"github.com/nou-pos/nou/jobs"
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

	redisOpts := cfg.Redis().Queue()
	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobs(ctx, redisOpts, cfg.ActivityRetention, os.Args[2:]))
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{
		MaxConns:        cfg.PGMaxConns,
		TimeZone:        cfg.AppTimezone,
		ApplicationName: "nou-api",
	})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	domainMetrics := observability.NewDomainMetrics(metrics.Registerer())

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authService := auth.NewService(auth.NewRepository(pool), tokens, auth.NewRedisRevocations(redisClient))
	authHandler := auth.NewHandler(logger, authService)

	rbacService := rbac.NewService()
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	activityService := activity.NewService(activity.NewRepository(pool))
	activityHandler := activity.NewHandler(logger, activityService, rbacMiddleware)

	uploader := newUploader(ctx, cfg, logger)
	tenancyService := tenancy.NewService(tenancy.NewRepository(pool), activityService, uploader, logger, domainMetrics)
	tenancyHandler := tenancy.NewHandler(logger, tenancyService, rbacMiddleware)

	warrantyService := warranty.NewService(warranty.NewRepository(pool), activityService, rbacService, logger, domainMetrics)
	warrantyHandler := warranty.NewHandler(logger, warrantyService, rbacMiddleware)

	closingService := cashclosing.NewService(cashclosing.NewRepository(pool), activityService, rbacService, logger, domainMetrics, cashclosing.Options{
		VATRate:  cfg.VATRate,
		Location: cfg.Location(),
		Money:    shared.NewMoneyFormatter(cfg.CurrencyLocale),
	})
	closingHandler := cashclosing.NewHandler(logger, closingService, rbacMiddleware)

	bootstrapService := bootstrap.NewService(bootstrap.NewRepository(pool), activityService, logger, domainMetrics)
	bootstrapHandler := bootstrap.NewHandler(logger, bootstrapService, authService, cfg.BootstrapSecret)
	if cfg.BootstrapSecret == "" {
		logger.Warn("bootstrap secret not set, organization attachment requires an admin token")
	}

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Auth:               authService,
		Tenancy:            tenancyService,
		Metrics:            metrics,
		DomainMetrics:      domainMetrics,
		AuthHandler:        authHandler,
		BootstrapHandler:   bootstrapHandler,
		TenancyHandler:     tenancyHandler,
		WarrantyHandler:    warrantyHandler,
		CashClosingHandler: closingHandler,
		ActivityHandler:    activityHandler,
		PermissionsHandler: rbac.NewPermissionsHandler(rbacService),
		JobHandler:         jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
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

// newUploader returns nil when no bucket is configured so the tenancy
// service reports logo uploads as unavailable.
func newUploader(ctx context.Context, cfg *app.Config, logger *slog.Logger) storage.Uploader {
	storageCfg, ok := cfg.Storage()
	if !ok {
		logger.Warn("object storage not configured, logo uploads disabled")
		return nil
	}
	s3, err := storage.NewS3(ctx, storageCfg, logger)
	if err != nil {
		logger.Error("init object storage", slog.Any("error", err))
		return nil
	}
	return s3
}

func runJobs(ctx context.Context, redisOpts asynq.RedisClientOpt, retention time.Duration, args []string) int {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print JSON output")
	override := fs.Duration("retention", 0, "retention window for activity:purge")
	if len(args) == 0 {
		_, _ = os.Stderr.WriteString("usage: nou jobs trigger [--retention 2160h] <name> | nou jobs stats [--json]\n")
		return 2
	}
	action := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	jobsCLI := cli.NewJobsCLI(redisOpts, retention)
	defer func() { _ = jobsCLI.Close() }()
	return jobsCLI.Command(ctx, cli.JobsOptions{
		Action:     action,
		Name:       fs.Arg(0),
		Retention:  *override,
		JSONOutput: *asJSON,
	})
}
