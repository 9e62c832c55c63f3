package core

import (
	"strings"
	"time"
)

// DefaultPageSize is the page window used by list views.
const DefaultPageSize = 10

type (
	// Actor is an account/profile entity. It is created and mutated by an
	// external collaborator; this module only reads it.
	Actor struct {
		ID            string
		AccountNumber string
		FullName      string
		Email         string
		Username      string
		Balance       float64
		IsAdmin       bool
		IsActive      bool
		Role          string
	}

	// Transaction is a ledger entry. ActorID may be empty when the record
	// has no owner. Immutable once read.
	Transaction struct {
		ID          string
		ActorID     string
		CreatedAt   time.Time
		Type        string
		Amount      float64
		Status      string
		Description string
	}

	// SearchQuery is the caller's query intent for a transaction list
	// view: free text, optional date range (inclusive of whole days),
	// optional exact type/status filters, and a page window.
	SearchQuery struct {
		Term     string
		From     time.Time
		To       time.Time
		Type     string
		Status   string
		Page     int
		PageSize int
	}

	// ActorQuery is the query intent for actor list views. AdminsOnly
	// restricts the listing to administrative accounts.
	ActorQuery struct {
		Term       string
		AdminsOnly bool
		Page       int
		PageSize   int
	}
)

// Validate checks the query for structural problems. A date range with
// From after To is rejected; everything else is normalized by the
// resolver rather than refused here.
func (q SearchQuery) Validate() error {
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return ErrInvalidRange
	}
	return nil
}

// Normalized returns a copy with the term trimmed and the page window
// clamped to sane values.
func (q SearchQuery) Normalized() SearchQuery {
	q.Term = strings.TrimSpace(q.Term)
	if q.Page < 0 {
		q.Page = 0
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	return q
}

// Normalized returns a copy with the term trimmed and the page window
// clamped.
func (q ActorQuery) Normalized() ActorQuery {
	q.Term = strings.TrimSpace(q.Term)
	if q.Page < 0 {
		q.Page = 0
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	return q
}

// Page is one window of an ordered result set. Total counts every
// record matching the predicate that produced Items, not just this
// window, and must be computed against that same predicate.
type Page[T any] struct {
	Items    []T
	Total    int64
	Page     int
	PageSize int
}

// HasNext reports whether another page exists after this one.
func (p Page[T]) HasNext() bool {
	return int64((p.Page+1)*p.PageSize) < p.Total
}
