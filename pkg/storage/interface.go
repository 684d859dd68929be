package storage

import (
	"context"
	"time"

	"records-scraper/pkg/models"
)

// ManifestStore persists the terminal outcome of every document retrieval,
// keyed by normalized document URL. The scheduler records outcomes; the
// verify command walks them to cross-check the output tree.
type ManifestStore interface {
	// CheckDocument retrieves the recorded outcome for a document URL.
	// Returns the stored status (StatusPending zero-equivalent "" when the
	// URL is unknown), the entry if found, and any error.
	CheckDocument(normalizedURL string) (models.TaskStatus, *models.DocumentDBEntry, error)

	// UpdateDocument records or replaces the outcome for a document URL
	UpdateDocument(normalizedURL string, entry *models.DocumentDBEntry) error

	// EachDocument calls fn for every recorded document, stopping on the
	// first error fn returns
	EachDocument(fn func(normalizedURL string, entry *models.DocumentDBEntry) error) error

	// Count returns the number of recorded documents
	Count() (int, error)

	// RunGC runs periodic value-log garbage collection. Should be run in a
	// goroutine
	RunGC(ctx context.Context, interval time.Duration)

	// Close cleanly closes the database
	Close() error
}
