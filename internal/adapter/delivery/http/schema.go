package http

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

type shortenRequest struct {
	OriginalURL string `json:"original_url" validate:"required,url"`
}

type expandRequest struct {
	ShortCode string `json:"short_code" validate:"required,alphanum"`
}

// mappingResponse describes one short code. ID is the id of the short code, not of the long URL.
type mappingResponse struct {
	ID          int64     `json:"id"`
	ShortCode   string    `json:"short_code"`
	ShortURL    string    `json:"short_url"`
	OriginalURL string    `json:"original_url"`
	CreatedAt   time.Time `json:"created_at"`
}

type clickStats struct {
	AccessCount int64 `json:"access_count"`
}

type mappingStatsResponse struct {
	mappingResponse
	Stats clickStats `json:"stats"`
}

func joinShortURL(baseURL, code string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return code
	}
	return baseURL + "/" + code
}

func newMappingResponse(m *entity.Mapping, baseURL string) mappingResponse {
	return mappingResponse{
		ID:          m.ShortURL.ID,
		ShortCode:   m.ShortCode,
		ShortURL:    joinShortURL(baseURL, m.ShortCode),
		OriginalURL: m.URL,
		CreatedAt:   m.ShortURL.CreatedAt,
	}
}

func newMappingStatsResponse(m *entity.Mapping, baseURL string) mappingStatsResponse {
	return mappingStatsResponse{
		mappingResponse: newMappingResponse(m, baseURL),
		Stats:           clickStats{AccessCount: m.ClickCount},
	}
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorResponse struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Errors  []fieldError `json:"errors,omitempty"`
}

func newErrorResponse(msg string, fields ...fieldError) errorResponse {
	return errorResponse{
		Status:  "error",
		Message: msg,
		Errors:  fields,
	}
}

const msgValidation = "validation error"

var (
	emptyRequestBodyResponse   = newErrorResponse("empty request body")
	invalidRequestBodyResponse = newErrorResponse("invalid request body")
	urlNotFoundResponse        = newErrorResponse("url not found")
	serviceUnavailableResponse = newErrorResponse("service temporarily unavailable, try again")
	serverErrorResponse        = newErrorResponse("server error occurred")

	invalidURLResponse = newErrorResponse(msgValidation, fieldError{
		Field:   "original_url",
		Message: "url must have an http or https scheme and a host",
	})
)

var tagMessages = map[string]string{
	"required": "this field is required",
	"url":      "invalid url",
	"alphanum": "must contain only letters and digits",
}

// newValidationErrorResponse lists every failed field of a validator.ValidationErrors.
func newValidationErrorResponse(err error) errorResponse {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newErrorResponse(msgValidation)
	}

	fields := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := tagMessages[fe.Tag()]
		if !ok {
			msg = "invalid value"
		}
		fields = append(fields, fieldError{Field: fe.Field(), Message: msg})
	}

	return newErrorResponse(msgValidation, fields...)
}
