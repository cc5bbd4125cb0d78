package domain

import (
	"context"
	"time"
)

// PageKind identifies the remote page type a PageRef addresses.
type PageKind string

const (
	PageTeam       PageKind = "team"
	PageMatch      PageKind = "match"
	PageStats      PageKind = "stats"
	PageTeamForm   PageKind = "form"
	PageHeadToHead PageKind = "h2h"
	PageFixtures   PageKind = "fixtures"
)

// PageRef addresses a single remote page by kind and stable identifier.
// URL is optional context for logging and error messages.
type PageRef struct {
	Kind PageKind
	ID   string
	URL  string
}

// String renders the ref in kind/id form for keys and log fields.
func (r PageRef) String() string {
	return string(r.Kind) + "/" + r.ID
}

// RawFields is the opaque field map a PageSource extracts from one page.
// The core never inspects markup; it only reads named scalar values.
type RawFields map[string]string

// PageSource fetches the raw field values for a page. Implementations own
// all transport and page-location concerns; the core only sees field maps.
type PageSource interface {
	// Fetch returns the raw fields for the referenced page.
	Fetch(ctx context.Context, ref PageRef) (RawFields, error)
	// Close releases source resources.
	Close() error
}

// Sink persists a finished serialized document. The medium and layout are
// the implementation's concern.
type Sink interface {
	Write(ctx context.Context, doc *SerializedGraph) error
}

// Cache is the raw-payload memo shared by all fetches in a process.
type Cache interface {
	// Get retrieves a value, returning ErrCacheMiss when absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Has checks whether a live entry exists.
	Has(ctx context.Context, key string) bool
	// Delete removes an entry.
	Delete(ctx context.Context, key string) error
	// Close releases cache resources.
	Close() error
}

// Fetcher is the single-entity fetch primitive composing cache, rate limit
// and retry around a PageSource.
type Fetcher interface {
	Fetch(ctx context.Context, ref PageRef) (RawFields, error)
	Close() error
}
