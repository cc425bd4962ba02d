// Package entity defines the records owned by the mapping store and the errors
// shared by every layer of the application.
package entity

import "time"

// LongURL is a destination URL as it was submitted for shortening.
type LongURL struct {
	ID        int64     // ID is the unique identifier of the record in the database.
	URL       string    // URL is the full URL that short codes resolve to.
	CreatedAt time.Time // CreatedAt is the timestamp when the record was created.
}

// ShortURL is an allocated short code together with its click counter.
type ShortURL struct {
	ID         int64     // ID is the unique identifier of the record in the database.
	ShortCode  string    // ShortCode is the globally unique generated code.
	ClickCount int64     // ClickCount is the number of successful resolutions of the code.
	CreatedAt  time.Time // CreatedAt is the timestamp when the code was allocated.
}

// Link associates exactly one LongURL with exactly one ShortURL.
type Link struct {
	ID         int64
	LongURLID  int64
	ShortURLID int64
	CreatedAt  time.Time
}

// Mapping is the joined view of a short code and the long URL it points to.
type Mapping struct {
	LongURL
	ShortURL
}
