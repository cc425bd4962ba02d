// Package postgres implements the mapping store on top of PostgreSQL.
//
// The store owns three tables: long_urls, short_urls and url_links. Uniqueness of short
// codes and atomicity of click increments are enforced by single SQL statements, never by
// check-then-write sequences in Go.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

const (
	uniqueViolationErrCode     = "23505"
	foreignKeyViolationErrCode = "23503"
)

const defaultQueryTimeout = 5 * time.Second

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.SQLState()
	}
	return ""
}

func isUniqueViolationError(err error) bool {
	return pgErrorCode(err) == uniqueViolationErrCode
}

func isForeignKeyViolationError(err error) bool {
	return pgErrorCode(err) == foreignKeyViolationErrCode
}

// isTimeoutError reports whether err was caused by the statement deadline carried by ctx.
func isTimeoutError(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

type longURLDB struct {
	ID        int64     `db:"id"`
	URL       string    `db:"url"`
	CreatedAt time.Time `db:"created_at"`
}

func (u *longURLDB) toEntity() *entity.LongURL {
	return &entity.LongURL{
		ID:        u.ID,
		URL:       u.URL,
		CreatedAt: u.CreatedAt,
	}
}

type shortURLDB struct {
	ID         int64     `db:"id"`
	ShortCode  string    `db:"short_code"`
	ClickCount int64     `db:"click_count"`
	CreatedAt  time.Time `db:"created_at"`
}

func (u *shortURLDB) toEntity() *entity.ShortURL {
	return &entity.ShortURL{
		ID:         u.ID,
		ShortCode:  u.ShortCode,
		ClickCount: u.ClickCount,
		CreatedAt:  u.CreatedAt,
	}
}

type linkDB struct {
	ID         int64     `db:"id"`
	LongURLID  int64     `db:"long_url_id"`
	ShortURLID int64     `db:"short_url_id"`
	CreatedAt  time.Time `db:"created_at"`
}

func (l *linkDB) toEntity() *entity.Link {
	return &entity.Link{
		ID:         l.ID,
		LongURLID:  l.LongURLID,
		ShortURLID: l.ShortURLID,
		CreatedAt:  l.CreatedAt,
	}
}

type mappingDB struct {
	LongID         int64     `db:"long_id"`
	URL            string    `db:"url"`
	LongCreatedAt  time.Time `db:"long_created_at"`
	ShortID        int64     `db:"short_id"`
	ShortCode      string    `db:"short_code"`
	ClickCount     int64     `db:"click_count"`
	ShortCreatedAt time.Time `db:"short_created_at"`
}

func (m *mappingDB) toEntity() *entity.Mapping {
	return &entity.Mapping{
		LongURL: entity.LongURL{
			ID:        m.LongID,
			URL:       m.URL,
			CreatedAt: m.LongCreatedAt,
		},
		ShortURL: entity.ShortURL{
			ID:         m.ShortID,
			ShortCode:  m.ShortCode,
			ClickCount: m.ClickCount,
			CreatedAt:  m.ShortCreatedAt,
		},
	}
}

const mappingColumns = `l.id AS long_id, l.url, l.created_at AS long_created_at,
	s.id AS short_id, s.short_code, s.click_count, s.created_at AS short_created_at`

type Option func(*URLRepository)

// WithQueryTimeout bounds every statement issued by the repository.
// A non-positive duration disables the bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(r *URLRepository) {
		r.queryTimeout = d
	}
}

// URLRepository is the mapping store. It is safe for concurrent use.
type URLRepository struct {
	db           *sqlx.DB
	queryTimeout time.Duration
}

func NewURLRepository(db *sqlx.DB, opts ...Option) *URLRepository {
	r := &URLRepository{
		db:           db,
		queryTimeout: defaultQueryTimeout,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *URLRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

// conn returns the transaction bound to ctx by WithinTx, or the pool.
func (r *URLRepository) conn(ctx context.Context) sqlx.ExtContext {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return r.db
}

func (r *URLRepository) CreateLongURL(ctx context.Context, url string) (*entity.LongURL, error) {
	const op = "adapter.repository.postgres.URLRepository.CreateLongURL"
	const query = `INSERT INTO long_urls(url) VALUES ($1) RETURNING id, url, created_at`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var rec longURLDB

	if err := sqlx.GetContext(ctx, r.conn(ctx), &rec, query, url); err != nil {
		if isTimeoutError(ctx, err) {
			return nil, fmt.Errorf("%s: %w: %w", op, entity.ErrStorageTimeout, err)
		}

		return nil, fmt.Errorf("%s: failed to insert into long_urls table: %w", op, err)
	}

	return rec.toEntity(), nil
}

// CreateShortURL allocates code in a single constrained insert. A conflicting code,
// including one inserted concurrently by another process, yields entity.ErrShortCodeExists.
func (r *URLRepository) CreateShortURL(ctx context.Context, code string) (*entity.ShortURL, error) {
	const op = "adapter.repository.postgres.URLRepository.CreateShortURL"
	const query = `INSERT INTO short_urls(short_code) VALUES ($1)
		ON CONFLICT (short_code) DO NOTHING
		RETURNING id, short_code, click_count, created_at`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var rec shortURLDB

	if err := sqlx.GetContext(ctx, r.conn(ctx), &rec, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %q: %w", op, code, entity.ErrShortCodeExists)
		}

		if isTimeoutError(ctx, err) {
			return nil, fmt.Errorf("%s: %w: %w", op, entity.ErrStorageTimeout, err)
		}

		return nil, fmt.Errorf("%s: failed to insert into short_urls table: %w", op, err)
	}

	return rec.toEntity(), nil
}

func (r *URLRepository) CreateLink(ctx context.Context, longID, shortID int64) (*entity.Link, error) {
	const op = "adapter.repository.postgres.URLRepository.CreateLink"
	const query = `INSERT INTO url_links(long_url_id, short_url_id) VALUES ($1, $2)
		RETURNING id, long_url_id, short_url_id, created_at`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var rec linkDB

	if err := sqlx.GetContext(ctx, r.conn(ctx), &rec, query, longID, shortID); err != nil {
		if isForeignKeyViolationError(err) {
			return nil, fmt.Errorf("%s: long_url_id=%d short_url_id=%d: %w", op, longID, shortID, entity.ErrForeignKey)
		}

		if isTimeoutError(ctx, err) {
			return nil, fmt.Errorf("%s: %w: %w", op, entity.ErrStorageTimeout, err)
		}

		return nil, fmt.Errorf("%s: failed to insert into url_links table: %w", op, err)
	}

	return rec.toEntity(), nil
}

func (r *URLRepository) FindByCode(ctx context.Context, code string) (*entity.Mapping, error) {
	const op = "adapter.repository.postgres.URLRepository.FindByCode"
	const query = `SELECT ` + mappingColumns + `
		FROM short_urls s
		JOIN url_links ul ON ul.short_url_id = s.id
		JOIN long_urls l ON l.id = ul.long_url_id
		WHERE s.short_code = $1`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var rec mappingDB

	if err := sqlx.GetContext(ctx, r.conn(ctx), &rec, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %q: %w", op, code, entity.ErrURLNotFound)
		}

		if isTimeoutError(ctx, err) {
			return nil, fmt.Errorf("%s: %w: %w", op, entity.ErrStorageTimeout, err)
		}

		return nil, fmt.Errorf("%s: failed to get mapping by short code: %w", op, err)
	}

	return rec.toEntity(), nil
}

// FindByLongURL returns the oldest mapping issued for url.
func (r *URLRepository) FindByLongURL(ctx context.Context, url string) (*entity.Mapping, error) {
	const op = "adapter.repository.postgres.URLRepository.FindByLongURL"
	const query = `SELECT ` + mappingColumns + `
		FROM long_urls l
		JOIN url_links ul ON ul.long_url_id = l.id
		JOIN short_urls s ON s.id = ul.short_url_id
		WHERE l.url = $1
		ORDER BY s.id
		LIMIT 1`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var rec mappingDB

	if err := sqlx.GetContext(ctx, r.conn(ctx), &rec, query, url); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		if isTimeoutError(ctx, err) {
			return nil, fmt.Errorf("%s: %w: %w", op, entity.ErrStorageTimeout, err)
		}

		return nil, fmt.Errorf("%s: failed to get mapping by long url: %w", op, err)
	}

	return rec.toEntity(), nil
}

// IncrementClickCount adds one to the counter of shortID in a single UPDATE and
// returns the new value.
func (r *URLRepository) IncrementClickCount(ctx context.Context, shortID int64) (int64, error) {
	const op = "adapter.repository.postgres.URLRepository.IncrementClickCount"
	const query = `UPDATE short_urls SET click_count = click_count + 1 WHERE id = $1 RETURNING click_count`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int64

	if err := sqlx.GetContext(ctx, r.conn(ctx), &count, query, shortID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: short_url_id=%d: %w", op, shortID, entity.ErrURLNotFound)
		}

		if isTimeoutError(ctx, err) {
			return 0, fmt.Errorf("%s: %w: %w", op, entity.ErrStorageTimeout, err)
		}

		return 0, fmt.Errorf("%s: failed to update short_urls table row: %w", op, err)
	}

	return count, nil
}
