package entity

import "errors"

var (
	// ErrInvalidURL is returned when the submitted URL is empty or lacks a scheme or host.
	ErrInvalidURL = errors.New("invalid url")
	// ErrShortCodeExists is returned when attempting to create a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrGenerationExhausted is returned when no free short code was found within the retry budget.
	ErrGenerationExhausted = errors.New("short code generation exhausted")
	// ErrForeignKey is returned when a link references a record that does not exist.
	ErrForeignKey = errors.New("referenced record does not exist")
	// ErrURLNotFound is returned when a short code does not resolve to any mapping.
	ErrURLNotFound = errors.New("url not found")
	// ErrStorageTimeout is returned when a storage operation exceeds its deadline.
	ErrStorageTimeout = errors.New("storage timeout")
	// ErrCacheMiss is returned by caches when the requested key is absent.
	ErrCacheMiss = errors.New("cache miss")
)
