// Package usecase implements shortening and resolution of URLs on top of the mapping store.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

const (
	DefaultMaxRetries = 5
	maxURLLength      = 2048
)

type urlRepository interface {
	CreateLongURL(ctx context.Context, url string) (*entity.LongURL, error)
	CreateShortURL(ctx context.Context, code string) (*entity.ShortURL, error)
	CreateLink(ctx context.Context, longID, shortID int64) (*entity.Link, error)
	FindByCode(ctx context.Context, code string) (*entity.Mapping, error)
	FindByLongURL(ctx context.Context, url string) (*entity.Mapping, error)
	IncrementClickCount(ctx context.Context, shortID int64) (int64, error)
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type codeGenerator interface {
	Generate() (string, error)
}

type urlCache interface {
	Get(ctx context.Context, code string) (*entity.Mapping, error)
	Set(ctx context.Context, m *entity.Mapping) error
}

type metrics interface {
	URLShortened(reused bool)
	CodeCollision()
	Resolution(found bool)
	ClickIncrementFailed()
}

type nopMetrics struct{}

func (nopMetrics) URLShortened(bool)     {}
func (nopMetrics) CodeCollision()        {}
func (nopMetrics) Resolution(bool)       {}
func (nopMetrics) ClickIncrementFailed() {}

type Option func(*URLUseCase)

// WithDedupe controls whether shortening an already known URL returns its existing code.
func WithDedupe(dedupe bool) Option {
	return func(uc *URLUseCase) {
		uc.dedupe = dedupe
	}
}

// WithMaxRetries sets how many codes are tried before giving up with entity.ErrGenerationExhausted.
func WithMaxRetries(n int) Option {
	return func(uc *URLUseCase) {
		if n > 0 {
			uc.maxRetries = n
		}
	}
}

// WithCache enables a read-through cache of resolved mappings.
func WithCache(cache urlCache) Option {
	return func(uc *URLUseCase) {
		uc.cache = cache
	}
}

func WithMetrics(m metrics) Option {
	return func(uc *URLUseCase) {
		uc.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(uc *URLUseCase) {
		uc.logger = logger
	}
}

type URLUseCase struct {
	urlRepo    urlRepository
	generator  codeGenerator
	validate   *validator.Validate
	cache      urlCache
	metrics    metrics
	logger     *slog.Logger
	dedupe     bool
	maxRetries int
}

func New(urlRepo urlRepository, generator codeGenerator, opts ...Option) *URLUseCase {
	uc := &URLUseCase{
		urlRepo:    urlRepo,
		generator:  generator,
		validate:   validator.New(),
		metrics:    nopMetrics{},
		logger:     slog.Default(),
		dedupe:     true,
		maxRetries: DefaultMaxRetries,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

func (uc *URLUseCase) validateURL(rawURL string) (string, error) {
	url := strings.TrimSpace(rawURL)

	tag := fmt.Sprintf("required,http_url,max=%d", maxURLLength)
	if err := uc.validate.Var(url, tag); err != nil {
		return "", fmt.Errorf("%w: %q", entity.ErrInvalidURL, rawURL)
	}

	return url, nil
}

// ShortenURL returns a short code mapping for originalURL. The second result reports
// whether an existing mapping was reused.
func (uc *URLUseCase) ShortenURL(ctx context.Context, originalURL string) (*entity.Mapping, bool, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	url, err := uc.validateURL(originalURL)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	if uc.dedupe {
		m, err := uc.urlRepo.FindByLongURL(ctx, url)
		if err == nil {
			uc.metrics.URLShortened(true)
			return m, true, nil
		}

		if !errors.Is(err, entity.ErrURLNotFound) {
			return nil, false, fmt.Errorf("%s: failed to find existing mapping: %w", op, err)
		}
	}

	var m *entity.Mapping

	err = uc.urlRepo.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		m, err = uc.allocate(ctx, url)
		return err
	})
	if err != nil {
		if errors.Is(err, entity.ErrForeignKey) {
			uc.logger.Error("link references missing record", slog.String("op", op), slog.Any("err", err))
		}

		return nil, false, fmt.Errorf("%s: failed to shorten url: %w", op, err)
	}

	uc.metrics.URLShortened(false)

	return m, false, nil
}

func (uc *URLUseCase) allocate(ctx context.Context, url string) (*entity.Mapping, error) {
	const op = "usecase.URLUseCase.allocate"

	long, err := uc.urlRepo.CreateLongURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := 0; i < uc.maxRetries; i++ {
		code, err := uc.generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		short, err := uc.urlRepo.CreateShortURL(ctx, code)
		if err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				uc.metrics.CodeCollision()
				uc.logger.Debug("short code collision", slog.String("op", op), slog.String("code", code))
				continue
			}

			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if _, err := uc.urlRepo.CreateLink(ctx, long.ID, short.ID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return &entity.Mapping{LongURL: *long, ShortURL: *short}, nil
	}

	return nil, fmt.Errorf("%s: %d attempts: %w", op, uc.maxRetries, entity.ErrGenerationExhausted)
}

// ResolveShortCode returns the mapping for shortCode and counts the visit. A failed
// increment is logged and does not fail the resolution.
func (uc *URLUseCase) ResolveShortCode(ctx context.Context, shortCode string) (*entity.Mapping, error) {
	const op = "usecase.URLUseCase.ResolveShortCode"

	m, err := uc.lookup(ctx, shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			uc.metrics.Resolution(false)
		}

		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	uc.metrics.Resolution(true)

	count, err := uc.urlRepo.IncrementClickCount(context.WithoutCancel(ctx), m.ShortURL.ID)
	if err != nil {
		uc.metrics.ClickIncrementFailed()
		uc.logger.Warn("failed to increment click count",
			slog.String("op", op),
			slog.String("code", shortCode),
			slog.Any("err", err),
		)

		return m, nil
	}

	m.ClickCount = count

	return m, nil
}

func (uc *URLUseCase) lookup(ctx context.Context, shortCode string) (*entity.Mapping, error) {
	const op = "usecase.URLUseCase.lookup"

	if shortCode == "" {
		return nil, fmt.Errorf("%s: empty short code: %w", op, entity.ErrURLNotFound)
	}

	if uc.cache != nil {
		m, err := uc.cache.Get(ctx, shortCode)
		if err == nil {
			return m, nil
		}

		if !errors.Is(err, entity.ErrCacheMiss) {
			uc.logger.Warn("cache get failed", slog.String("op", op), slog.Any("err", err))
		}
	}

	m, err := uc.urlRepo.FindByCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, m); err != nil {
			uc.logger.Warn("cache set failed", slog.String("op", op), slog.Any("err", err))
		}
	}

	return m, nil
}

// GetURLStats returns the mapping for shortCode with its current click count without
// counting a visit.
func (uc *URLUseCase) GetURLStats(ctx context.Context, shortCode string) (*entity.Mapping, error) {
	const op = "usecase.URLUseCase.GetURLStats"

	if shortCode == "" {
		return nil, fmt.Errorf("%s: empty short code: %w", op, entity.ErrURLNotFound)
	}

	m, err := uc.urlRepo.FindByCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return m, nil
}
