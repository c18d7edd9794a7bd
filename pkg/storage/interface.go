package storage

import (
	"context"

	"github.com/gowgit/site-crawler/pkg/models"
)

// URLStore holds the crawl frontier: every URL seen, crawled or not
type URLStore interface {
	// InsertURL stores a new URL record.
	// Returns true if the URL was newly added, false if it already existed
	InsertURL(ctx context.Context, rec models.URLRecord) (bool, error)

	// InsertURLs stores each record not already present and returns how many were added
	InsertURLs(ctx context.Context, recs []models.URLRecord) (int, error)

	// UpdateURL stores the crawl outcome of a URL, inserting it if needed.
	// The original insertion time is kept.
	UpdateURL(ctx context.Context, rec models.URLRecord) error

	// UncrawledURLs returns up to limit URLs that have not been crawled yet, oldest first
	UncrawledURLs(ctx context.Context, limit int) ([]models.URLRecord, error)

	// EachURL calls fn for every URL record; a non-nil error from fn stops the scan
	EachURL(ctx context.Context, fn func(models.URLRecord) error) error

	// URLCount returns the number of URL records
	URLCount(ctx context.Context) (int, error)
}

// DocumentStore holds crawled pages, unique by URL
type DocumentStore interface {
	// InsertDocument stores a crawled page. Returns utils.ErrAlreadyExists for a known URL
	InsertDocument(ctx context.Context, rec models.DocumentRecord) error

	// GetDocument loads a crawled page. Returns utils.ErrNotFound for an unknown URL
	GetDocument(ctx context.Context, url string) (models.DocumentRecord, error)

	// DocumentCount returns the number of stored pages
	DocumentCount(ctx context.Context) (int, error)
}

// StoreAdmin handles lifecycle and administrative operations
type StoreAdmin interface {
	// Size returns the approximate number of bytes the store occupies
	Size(ctx context.Context) (int64, error)

	// Close cleanly closes the database connection
	Close() error
}

// Store combines all store interfaces for components that need full access
type Store interface {
	URLStore
	DocumentStore
	StoreAdmin
}
