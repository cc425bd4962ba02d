package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

type urlUseCase interface {
	ShortenURL(ctx context.Context, originalURL string) (*entity.Mapping, bool, error)
	ResolveShortCode(ctx context.Context, shortCode string) (*entity.Mapping, error)
	GetURLStats(ctx context.Context, shortCode string) (*entity.Mapping, error)
}

type urlHandler struct {
	useCase  urlUseCase
	validate *validator.Validate
	baseURL  string
}

func newURLHandler(useCase urlUseCase, validate *validator.Validate, baseURL string) *urlHandler {
	return &urlHandler{
		useCase:  useCase,
		validate: validate,
		baseURL:  baseURL,
	}
}

// decode reads a JSON body into v and validates it, writing the error response itself.
func (h *urlHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, emptyRequestBodyResponse)
			return false
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return false
	}

	if err := h.validate.Struct(v); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, newValidationErrorResponse(err))
		return false
	}

	return true
}

// fail renders the response for a use case error that is not an expected outcome.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

	if errors.Is(err, entity.ErrGenerationExhausted) || errors.Is(err, entity.ErrStorageTimeout) {
		w.Header().Set("Retry-After", "1")
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, serviceUnavailableResponse)
		return
	}

	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, serverErrorResponse)
}

func (h *urlHandler) shortenURL(w http.ResponseWriter, r *http.Request) {
	const op = "adapter.delivery.http.urlHandler.shortenURL"

	var req shortenRequest

	if !h.decode(w, r, &req) {
		return
	}

	m, reused, err := h.useCase.ShortenURL(r.Context(), req.OriginalURL)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidURL) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, invalidURLResponse)
			return
		}

		fail(w, r, op, err)
		return
	}

	if reused {
		render.Status(r, http.StatusOK)
	} else {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, newMappingResponse(m, h.baseURL))
}

func (h *urlHandler) resolveShortCode(w http.ResponseWriter, r *http.Request) {
	const op = "adapter.delivery.http.urlHandler.resolveShortCode"

	shortCode := chi.URLParam(r, "shortCode")

	m, err := h.useCase.ResolveShortCode(r.Context(), shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, urlNotFoundResponse)
			return
		}

		fail(w, r, op, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, newMappingStatsResponse(m, h.baseURL))
}

func (h *urlHandler) getURLStats(w http.ResponseWriter, r *http.Request) {
	h.renderStats(w, r, chi.URLParam(r, "shortCode"))
}

func (h *urlHandler) expandShortCode(w http.ResponseWriter, r *http.Request) {
	var req expandRequest

	if !h.decode(w, r, &req) {
		return
	}

	h.renderStats(w, r, req.ShortCode)
}

func (h *urlHandler) renderStats(w http.ResponseWriter, r *http.Request, shortCode string) {
	const op = "adapter.delivery.http.urlHandler.renderStats"

	m, err := h.useCase.GetURLStats(r.Context(), shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, urlNotFoundResponse)
			return
		}

		fail(w, r, op, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, newMappingStatsResponse(m, h.baseURL))
}

// redirect sends the visitor to the long URL with 301 Moved Permanently.
func (h *urlHandler) redirect(w http.ResponseWriter, r *http.Request) {
	const op = "adapter.delivery.http.urlHandler.redirect"

	shortCode := chi.URLParam(r, "shortCode")

	m, err := h.useCase.ResolveShortCode(r.Context(), shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, urlNotFoundResponse)
			return
		}

		fail(w, r, op, err)
		return
	}

	http.Redirect(w, r, m.URL, http.StatusMovedPermanently)
}
