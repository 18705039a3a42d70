package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"cinerate/auth"
	"cinerate/httpserver"
	"cinerate/movie"
	"cinerate/pkg/config"
	"cinerate/pkg/jwt"
	"cinerate/pkg/logger"
	"cinerate/pkg/password"
	"cinerate/pkg/sentry"
	"cinerate/postgres"
	"cinerate/rating"
	"cinerate/redis"
	"cinerate/syncjob"
	"cinerate/tmdb"
	"cinerate/user"

	sentrygo "github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot load config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Errorw("server stopped with error", "error", err)
		sentry.Error(err)
		sentrygo.Flush(sentry.FlushTime)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.SugaredLogger) error {
	err := sentrygo.Init(sentrygo.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		AttachStacktrace: true,
	})
	if err != nil {
		return err
	}
	defer sentrygo.Flush(sentry.FlushTime)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewConnection(postgres.Options{
		DBName:   cfg.DB.Name,
		DBUser:   cfg.DB.User,
		Password: cfg.DB.Pass,
		Host:     cfg.DB.Host,
		Port:     strconv.Itoa(cfg.DB.Port),
		SSLMode:  cfg.DB.EnableSSL,
	})
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	healthChecks := map[string]httpserver.HealthCheck{
		"postgres": sqlDB.PingContext,
	}

	var cache movie.Cache = movie.NopCache{}
	if cfg.Redis.URL != "" {
		rc, err := redis.NewCache(cfg.Redis.URL, cfg.Redis.TTL)
		if err != nil {
			return err
		}
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			log.Warnw("redis unavailable, reads will go to postgres", "error", err)
		}
		cache = rc
		healthChecks["redis"] = rc.Ping
	} else {
		log.Infow("REDIS_URL not set, caching disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	movieOpts := []movie.Option{
		movie.WithCache(cache, cfg.Redis.TTL),
		movie.WithLogger(log.Named("movie")),
	}
	var tmdbClient *tmdb.Client
	if cfg.TMDBConfigured() {
		tmdbClient = newTMDBClient(cfg, log.Named("tmdb"))
		movieOpts = append(movieOpts, movie.WithMetadataSource(tmdbClient))
	} else {
		log.Infow("TMDB credentials not set, import and sync disabled")
	}

	hasher := password.NewBcrypt(0)
	tokens := jwt.NewJWTProvider(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.RefreshTTL)

	movieService := movie.NewUsecase(postgres.NewMovieRepository(db), movieOpts...)
	userService := user.NewUsecase(
		postgres.NewUserRepository(db),
		postgres.NewListRepository(db),
		movieService,
		hasher,
		log.Named("user"),
	)
	authService := auth.NewUsecase(
		userService,
		postgres.NewLoginAttemptRepository(db),
		hasher,
		tokens,
		log.Named("auth"),
	)
	ratingService := rating.NewUsecase(
		postgres.NewRatingRepository(db),
		movieService,
		rating.WithCache(cache, cfg.Redis.TTL),
		rating.WithLogger(log.Named("rating")),
	)

	server := httpserver.Default(cfg)
	server.Logger = log.Named("http")
	server.Gatherer = registry
	server.UserService = userService
	server.AuthService = authService
	server.MovieService = movieService
	server.RatingService = ratingService
	server.HealthChecks = healthChecks

	var job *syncjob.Job
	if tmdbClient != nil {
		job = syncjob.New(tmdbClient, movieService, syncjob.Config{
			OnStartup:    cfg.Sync.OnStartup,
			Interval:     cfg.Sync.Interval,
			PopularPages: cfg.Sync.PopularPages,
			BatchSize:    cfg.Sync.BatchSize,
			Concurrency:  cfg.Sync.Concurrency,
			Delay:        cfg.Sync.Delay,
			StaleAfter:   cfg.Sync.StaleAfter,
		},
			syncjob.WithLogger(log.Named("sync")),
			syncjob.WithMetrics(syncjob.NewMetrics(registry)),
		)
		server.SyncJob = job
		if cfg.Sync.Enabled {
			go job.Start(ctx)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server started", "addr", server.Addr)
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if job != nil {
		if err := job.Shutdown(shutdownCtx); err != nil {
			log.Warnw("sync run did not stop in time", "error", err)
		}
	}
	return server.Shutdown(shutdownCtx)
}

func newTMDBClient(cfg *config.Config, log *zap.SugaredLogger) *tmdb.Client {
	return tmdb.New(tmdb.Config{
		BaseURL:    cfg.TMDB.BaseURL,
		APIKey:     cfg.TMDB.APIKey,
		Token:      cfg.TMDB.Token,
		Language:   cfg.TMDB.Language,
		Timeout:    cfg.TMDB.Timeout,
		MaxRetries: cfg.TMDB.MaxRetries,
		RetryDelay: cfg.TMDB.RetryDelay,
	},
		tmdb.WithLogger(log),
		tmdb.WithRateLimit(cfg.TMDB.RPS),
		tmdb.WithCircuitBreaker(tmdb.NewCircuitBreaker("tmdb", 5, 30*time.Second, log)),
	)
}
