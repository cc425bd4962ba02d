package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/link-shortener/internal/config"
	"github.com/vadimbarashkov/link-shortener/internal/metrics"
	"github.com/vadimbarashkov/link-shortener/internal/shortcode"
	"github.com/vadimbarashkov/link-shortener/internal/usecase"
	"github.com/vadimbarashkov/link-shortener/pkg/postgres"
	"golang.org/x/sync/errgroup"

	rediscache "github.com/vadimbarashkov/link-shortener/internal/adapter/cache/redis"
	httpdelivery "github.com/vadimbarashkov/link-shortener/internal/adapter/delivery/http"
	pgrepo "github.com/vadimbarashkov/link-shortener/internal/adapter/repository/postgres"
)

const docsPath = "./docs/swagger.yml"

func newLogger(env string) *httplog.Logger {
	opts := httplog.Options{
		LogLevel:        slog.LevelDebug,
		Concise:         true,
		RequestHeaders:  false,
		TimeFieldFormat: "2006-01-02T15:04:05.000Z07:00",
	}

	if env == config.EnvProd {
		opts.JSON = true
		opts.LogLevel = slog.LevelInfo
		opts.Concise = false
	}

	return httplog.NewLogger("url-shortener", opts)
}

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := newLogger(cfg.Env)

	db, err := postgres.New(
		ctx,
		cfg.Postgres.DSN(),
		postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(cfg.Postgres.MigrationsPath, cfg.Postgres.DSN()); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	gen, err := shortcode.NewGenerator(cfg.ShortCodeLength)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m := metrics.New()

	opts := []usecase.Option{
		usecase.WithDedupe(cfg.Shortener.Dedupe),
		usecase.WithMaxRetries(cfg.Shortener.MaxRetries),
		usecase.WithMetrics(m),
		usecase.WithLogger(logger.Logger),
	}

	if cfg.Redis.Enabled {
		client, err := rediscache.Connect(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("%s: failed to connect to redis: %w", op, err)
		}
		defer client.Close()

		opts = append(opts, usecase.WithCache(rediscache.NewCodeCache(client, cfg.Redis.TTL)))
	}

	urlRepo := pgrepo.NewURLRepository(db, pgrepo.WithQueryTimeout(cfg.Postgres.QueryTimeout))
	urlUseCase := usecase.New(urlRepo, gen, opts...)

	router := httpdelivery.NewRouter(logger, urlUseCase, httpdelivery.RouterConfig{
		BaseURL:        cfg.Shortener.BaseURL,
		MetricsHandler: m.Handler(),
		DocsPath:       docsPath,
	})

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        router,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
