//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vadimbarashkov/link-shortener/internal/adapter/repository/postgres"
	"github.com/vadimbarashkov/link-shortener/internal/config"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
	"github.com/vadimbarashkov/link-shortener/internal/shortcode"
	"github.com/vadimbarashkov/link-shortener/internal/usecase"
	pgpkg "github.com/vadimbarashkov/link-shortener/pkg/postgres"
)

const migrationsPath = "file://../../../../migrations"

func setupPostgres(t testing.TB) config.Postgres {
	t.Helper()

	ctx := context.Background()

	pgUser := "test"
	pgPassword := "test"
	pgDB := "url_shortener"

	pgCont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDB,
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForListeningPort("5432/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgCont.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate postgres container: %v", err)
		}
	})

	pgHost, err := pgCont.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	pgPort, err := pgCont.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	return config.Postgres{
		User:     pgUser,
		Password: pgPassword,
		Host:     pgHost,
		Port:     pgPort.Int(),
		DB:       pgDB,
		SSLMode:  "disable",
	}
}

func setupURLRepository(t testing.TB) (*postgres.URLRepository, *sqlx.DB) {
	t.Helper()

	cfg := setupPostgres(t)

	if err := pgpkg.RunMigrations(migrationsPath, cfg.DSN()); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	db, err := pgpkg.New(context.Background(), cfg.DSN(), pgpkg.WithMaxOpenConns(20))
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("Failed to close database: %v", err)
		}
	})

	return postgres.NewURLRepository(db), db
}

func TestURLRepository_Integration(t *testing.T) {
	repo, db := setupURLRepository(t)
	ctx := context.Background()

	gen, err := shortcode.NewGenerator(shortcode.DefaultLength)
	require.NoError(t, err)

	t.Run("shorten and resolve round trip", func(t *testing.T) {
		uc := usecase.New(repo, gen)

		m, reused, err := uc.ShortenURL(ctx, "https://example.com/round-trip")
		require.NoError(t, err)
		assert.False(t, reused)
		assert.Len(t, m.ShortCode, shortcode.DefaultLength)

		got, err := uc.ResolveShortCode(ctx, m.ShortCode)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/round-trip", got.URL)
		assert.Equal(t, int64(1), got.ClickCount)
	})

	t.Run("dedupe returns the same code", func(t *testing.T) {
		uc := usecase.New(repo, gen)

		first, _, err := uc.ShortenURL(ctx, "https://example.com/dedupe")
		require.NoError(t, err)

		second, reused, err := uc.ShortenURL(ctx, "https://example.com/dedupe")
		require.NoError(t, err)
		assert.True(t, reused)
		assert.Equal(t, first.ShortCode, second.ShortCode)
	})

	t.Run("dedupe disabled allocates distinct codes", func(t *testing.T) {
		uc := usecase.New(repo, gen, usecase.WithDedupe(false))

		first, _, err := uc.ShortenURL(ctx, "https://example.com/no-dedupe")
		require.NoError(t, err)

		second, reused, err := uc.ShortenURL(ctx, "https://example.com/no-dedupe")
		require.NoError(t, err)
		assert.False(t, reused)
		assert.NotEqual(t, first.ShortCode, second.ShortCode)
		assert.Equal(t, first.LongURL.URL, second.LongURL.URL)
	})

	t.Run("concurrent resolutions are all counted", func(t *testing.T) {
		const n = 1000

		uc := usecase.New(repo, gen)

		m, _, err := uc.ShortenURL(ctx, "https://example.com/concurrent")
		require.NoError(t, err)

		var (
			wg     sync.WaitGroup
			failed atomic.Int64
		)

		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := uc.ResolveShortCode(ctx, m.ShortCode); err != nil {
					failed.Add(1)
				}
			}()
		}
		wg.Wait()

		require.Zero(t, failed.Load())

		stats, err := uc.GetURLStats(ctx, m.ShortCode)
		require.NoError(t, err)
		assert.Equal(t, int64(n), stats.ClickCount)
	})

	t.Run("concurrent inserts of one code", func(t *testing.T) {
		const n = 50

		var (
			wg        sync.WaitGroup
			succeeded atomic.Int64
			conflicts atomic.Int64
		)

		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.CreateShortURL(ctx, "race01")
				switch {
				case err == nil:
					succeeded.Add(1)
				case errors.Is(err, entity.ErrShortCodeExists):
					conflicts.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(1), succeeded.Load())
		assert.Equal(t, int64(n-1), conflicts.Load())
	})

	t.Run("link to missing rows", func(t *testing.T) {
		_, err := repo.CreateLink(ctx, 999999, 999999)
		assert.ErrorIs(t, err, entity.ErrForeignKey)
	})

	t.Run("missing code is not found", func(t *testing.T) {
		_, err := repo.FindByCode(ctx, "missing")
		assert.ErrorIs(t, err, entity.ErrURLNotFound)
	})

	t.Run("failed transaction leaves no rows", func(t *testing.T) {
		var before int
		require.NoError(t, db.GetContext(ctx, &before, `SELECT COUNT(*) FROM long_urls`))

		errAbort := errors.New("abort")
		err := repo.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := repo.CreateLongURL(ctx, "https://example.com/rolled-back"); err != nil {
				return err
			}
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)

		var after int
		require.NoError(t, db.GetContext(ctx, &after, `SELECT COUNT(*) FROM long_urls`))
		assert.Equal(t, before, after)
	})
}
