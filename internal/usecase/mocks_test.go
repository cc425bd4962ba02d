package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

type mockURLRepository struct {
	mock.Mock
}

func (r *mockURLRepository) CreateLongURL(ctx context.Context, url string) (*entity.LongURL, error) {
	args := r.Called(ctx, url)
	long, _ := args.Get(0).(*entity.LongURL)
	return long, args.Error(1)
}

func (r *mockURLRepository) CreateShortURL(ctx context.Context, code string) (*entity.ShortURL, error) {
	args := r.Called(ctx, code)
	short, _ := args.Get(0).(*entity.ShortURL)
	return short, args.Error(1)
}

func (r *mockURLRepository) CreateLink(ctx context.Context, longID, shortID int64) (*entity.Link, error) {
	args := r.Called(ctx, longID, shortID)
	link, _ := args.Get(0).(*entity.Link)
	return link, args.Error(1)
}

func (r *mockURLRepository) FindByCode(ctx context.Context, code string) (*entity.Mapping, error) {
	args := r.Called(ctx, code)
	m, _ := args.Get(0).(*entity.Mapping)
	return m, args.Error(1)
}

func (r *mockURLRepository) FindByLongURL(ctx context.Context, url string) (*entity.Mapping, error) {
	args := r.Called(ctx, url)
	m, _ := args.Get(0).(*entity.Mapping)
	return m, args.Error(1)
}

func (r *mockURLRepository) IncrementClickCount(ctx context.Context, shortID int64) (int64, error) {
	args := r.Called(ctx, shortID)
	return args.Get(0).(int64), args.Error(1)
}

func (r *mockURLRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := r.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

type mockCodeGenerator struct {
	mock.Mock
}

func (g *mockCodeGenerator) Generate() (string, error) {
	args := g.Called()
	return args.String(0), args.Error(1)
}

type mockURLCache struct {
	mock.Mock
}

func (c *mockURLCache) Get(ctx context.Context, code string) (*entity.Mapping, error) {
	args := c.Called(ctx, code)
	m, _ := args.Get(0).(*entity.Mapping)
	return m, args.Error(1)
}

func (c *mockURLCache) Set(ctx context.Context, m *entity.Mapping) error {
	args := c.Called(ctx, m)
	return args.Error(0)
}

type fakeMetrics struct {
	created    int
	reused     int
	collisions int
	hits       int
	misses     int
	incFailed  int
}

func (m *fakeMetrics) URLShortened(reused bool) {
	if reused {
		m.reused++
		return
	}
	m.created++
}

func (m *fakeMetrics) CodeCollision() { m.collisions++ }

func (m *fakeMetrics) Resolution(found bool) {
	if found {
		m.hits++
		return
	}
	m.misses++
}

func (m *fakeMetrics) ClickIncrementFailed() { m.incFailed++ }
