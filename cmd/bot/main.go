package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"

	"github.com/luckybingo/bingo-bot/internal/api"
	"github.com/luckybingo/bingo-bot/internal/bot"
	"github.com/luckybingo/bingo-bot/internal/database"
	"github.com/luckybingo/bingo-bot/internal/health"
	"github.com/luckybingo/bingo-bot/internal/idempotency"
	"github.com/luckybingo/bingo-bot/internal/jobs"
	jobhandlers "github.com/luckybingo/bingo-bot/internal/jobs/handlers"
	"github.com/luckybingo/bingo-bot/internal/leaderboard"
	"github.com/luckybingo/bingo-bot/internal/ledger"
	"github.com/luckybingo/bingo-bot/internal/lifecycle"
	"github.com/luckybingo/bingo-bot/internal/middleware"
	"github.com/luckybingo/bingo-bot/internal/notify"
	"github.com/luckybingo/bingo-bot/internal/ratelimit"
	"github.com/luckybingo/bingo-bot/internal/registry"
	"github.com/luckybingo/bingo-bot/internal/repository"
	"github.com/luckybingo/bingo-bot/internal/state"
	"github.com/luckybingo/bingo-bot/internal/usage"
	"github.com/luckybingo/bingo-bot/internal/user"
	"github.com/luckybingo/bingo-bot/internal/usercache"
	"github.com/luckybingo/bingo-bot/pkg/config"
	"github.com/luckybingo/bingo-bot/pkg/graceful"
	"github.com/luckybingo/bingo-bot/pkg/logger"
	"github.com/luckybingo/bingo-bot/pkg/metrics"
	redispkg "github.com/luckybingo/bingo-bot/pkg/redis"
)

const cleanerInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			return err
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting bingo bot",
		slog.String("env", cfg.AppEnv),
		slog.String("http_port", cfg.Server.Port),
		slog.String("bot_mode", cfg.Bot.Mode),
	)

	// Postgres.
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return err
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, "migrations"); err != nil {
		return err
	}

	// Redis.
	redisClient, err := redispkg.New(ctx, redispkg.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return err
	}

	// Conversation state.
	sessionStorage := state.NewRedisStorage(redisClient.Client, log, state.DefaultSessionTTL)
	fsm := state.NewMachine(sessionStorage, log, redisClient.Client)
	state.RegisterTransitionRecorder(metrics.RecordStateTransition)

	sessionCleaner := state.NewCleaner(redisClient.Client, sessionStorage, log, state.DefaultSessionTTL, cleanerInterval)
	go sessionCleaner.Run(ctx)

	// Rate limiting: Redis sliding window with an in-memory fallback.
	limiter := ratelimit.NewAdaptiveLimiter(
		ratelimit.NewRedisLimiter(redisClient.Client, log),
		ratelimit.NewMemoryLimiter(log),
		log,
	)
	rules := ratelimit.NewRules(cfg.RateLimit)
	rateLimitMw := middleware.NewRateLimitMiddleware(limiter, rules, log)

	rateLimitCleaner := ratelimit.NewCleaner(redisClient.Client, log, cleanerInterval)
	go rateLimitCleaner.Run(ctx)

	// Idempotent update handling.
	idemManager := idempotency.NewManager(idempotency.NewRedisStore(redisClient.Client, log), log)
	idemCleaner := idempotency.NewCleaner(redisClient.Client, log, cleanerInterval)
	go idemCleaner.Run(ctx)

	// Stores and services.
	userStore := repository.NewUserStore(db, log)
	ledgerStore := repository.NewLedgerStore(db, log)
	txnStore := repository.NewAdminTxnStore(db, log)
	usageStore := repository.NewUsageStore(db, log)

	users := user.NewService(userStore, log)
	engine := ledger.NewService(ledgerStore, log)
	txns := registry.NewService(txnStore, log)
	boards := leaderboard.NewService(userStore, log)
	usageSvc := usage.NewService(usageStore, log)
	cache := usercache.NewCache(redispkg.NewMetricsClient(redisClient))

	// Job queue.
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	queue := jobs.NewManager(redisOpt, log)

	// Telegram bot.
	tgBot, err := bot.New(*cfg, log, bot.Deps{
		FSM:         fsm,
		Users:       users,
		Ledger:      engine,
		Leaderboard: boards,
		Usage:       usageSvc,
		Cache:       cache,
		Idempotency: idemManager,
		RateLimit:   rateLimitMw,
		Queue:       queue,
	})
	if err != nil {
		return err
	}

	notifier := notify.NewSupportNotifier(tgBot.Telebot(), cfg.Bot.SupportChatID, log)

	// Background workers.
	var (
		worker    jobs.Worker
		scheduler jobs.Scheduler
	)
	if cfg.Jobs.Enabled {
		worker = jobs.NewWorker(redisOpt, map[string]int{
			jobs.QueueCritical: 6,
			jobs.QueueDefault:  3,
			jobs.QueueLow:      1,
		}, cfg.Jobs.Concurrency, log)

		worker.RegisterHandler(jobs.TaskTypeNotifySupport, jobhandlers.NewNotifySupportHandler(notifier, log))
		worker.RegisterHandler(jobs.TaskTypeReceiptForward, jobhandlers.NewReceiptForwardHandler(notifier, log))
		worker.RegisterHandler(jobs.TaskTypeBioUpdate, jobhandlers.NewBioUpdateHandler(tgBot, usageSvc, log))

		go func() {
			if err := worker.Run(); err != nil {
				log.Error("job worker stopped", slog.Any("error", err))
			}
		}()

		scheduler = jobs.NewScheduler(redisOpt, cfg.Jobs.BioSchedule, log)
		if err := scheduler.RegisterTasks(); err != nil {
			return err
		}
		go scheduler.Run()
	}

	// Moderation queue depth gauge.
	go metrics.NewQueueDepthCollector(engine).Run(ctx)

	// Health checks.
	checker := health.NewChecker(log)
	checker.AddCheck("postgres", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(redisClient.Client))
	checker.AddCheck("telegram", health.NewTelegramChecker(tgBot.Telebot()))

	// HTTP API.
	apiServer := api.NewServer(
		boards, engine, txns, queue, rateLimitMw, checker,
		cfg.Admin.Token, cfg.Server.LeaderboardMax, log,
	)
	httpServer := graceful.NewServer(log, &http.Server{
		Addr:    cfg.Server.Port,
		Handler: apiServer.Handler(),
	}, cfg.Server.ShutdownTimeout)

	go func() {
		if err := httpServer.ListenAndServe(ctx); err != nil {
			log.Error("http server exited", slog.Any("error", err))
		}
	}()

	go tgBot.Start()

	<-ctx.Done()

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("telegram bot", func(context.Context) error {
		tgBot.Stop()
		return nil
	})
	if worker != nil {
		shutdown.Register("job worker", func(context.Context) error {
			worker.Shutdown()
			return nil
		})
	}
	if scheduler != nil {
		shutdown.Register("job scheduler", func(context.Context) error {
			scheduler.Shutdown()
			return nil
		})
	}
	shutdown.Register("job queue", func(context.Context) error { return queue.Close() })
	shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })
	shutdown.Register("postgres", func(context.Context) error { return db.Close() })

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return shutdown.Execute(shutdownCtx)
}
