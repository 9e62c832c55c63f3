// Package search turns a free-text query intent into one composite
// transaction filter. Actors and transactions cannot be joined
// server-side, so matching actors are looked up first and their ids
// folded into a disjunctive transaction predicate.
package search

import (
	"context"
	"time"

	"ledgerdesk/internal/core"
	"ledgerdesk/internal/log"
	"ledgerdesk/internal/store"
)

// CandidateLimit caps the actor candidates folded into the transaction
// filter, bounding the OR-clause cardinality at CandidateLimit+2.
const CandidateLimit = 200

// Filter is an executable filter description for the transactions
// collection. A nil Pred matches everything. Degraded is set when the
// actor-candidate phase failed and the filter fell back to free-text
// matching only.
type Filter struct {
	Pred     store.Pred
	Order    []store.Sort
	Degraded bool
}

type Resolver struct {
	store  store.Store
	logger *log.Logger
}

func NewResolver(st store.Store, logger *log.Logger) *Resolver {
	return &Resolver{store: st, logger: logger.WithComponent(log.ComponentSearch)}
}

// Resolve builds the transaction filter for q. A failing actor lookup
// degrades to transaction-only matching instead of failing the query;
// only an invalid date range is an error here.
func (r *Resolver) Resolve(ctx context.Context, q core.SearchQuery) (Filter, error) {
	if err := q.Validate(); err != nil {
		return Filter{}, err
	}
	q = q.Normalized()

	f := Filter{
		// Secondary id key keeps pagination deterministic when
		// timestamps collide.
		Order: []store.Sort{
			{Field: store.FieldCreatedAt, Desc: true},
			{Field: store.FieldID, Desc: true},
		},
	}

	var conjuncts []store.Pred
	if q.Term != "" {
		term, degraded := r.termPred(ctx, q.Term)
		conjuncts = append(conjuncts, term)
		f.Degraded = degraded
	}
	if !q.From.IsZero() {
		conjuncts = append(conjuncts, store.Gte(store.FieldCreatedAt, startOfDay(q.From)))
	}
	if !q.To.IsZero() {
		conjuncts = append(conjuncts, store.Lte(store.FieldCreatedAt, endOfDay(q.To)))
	}
	if q.Type != "" {
		conjuncts = append(conjuncts, store.Eq(store.FieldType, q.Type))
	}
	if q.Status != "" {
		conjuncts = append(conjuncts, store.Eq(store.FieldStatus, q.Status))
	}
	f.Pred = store.And(conjuncts...)
	return f, nil
}

// termPred builds the disjunctive search-term predicate: free-text
// matches on description and type, plus one owner-id equality per
// candidate actor matched by the term.
func (r *Resolver) termPred(ctx context.Context, term string) (store.Pred, bool) {
	parts := []store.Pred{
		store.Contains(store.FieldDescription, term),
		store.Contains(store.FieldType, term),
	}

	candidates, err := r.store.SelectActors(ctx, store.Query{
		Where: store.Or(
			store.Contains(store.FieldAccountNumber, term),
			store.Contains(store.FieldFullName, term),
			store.Contains(store.FieldEmail, term),
			store.Contains(store.FieldUsername, term),
		),
		Limit: CandidateLimit,
	})
	if err != nil {
		r.logger.WarnContext(ctx, "Actor candidate lookup failed, matching transaction text only",
			log.FieldTerm, term, log.FieldError, err)
		return store.Or(parts...), true
	}

	for _, a := range candidates {
		parts = append(parts, store.Eq(store.FieldActorID, a.ID))
	}
	return store.Or(parts...), false
}

// ActorFilter builds the actor-list predicate for q: a substring match
// over the display fields, optionally restricted to admin accounts.
func ActorFilter(q core.ActorQuery) store.Pred {
	var conjuncts []store.Pred
	if q.Term != "" {
		conjuncts = append(conjuncts, store.Or(
			store.Contains(store.FieldFullName, q.Term),
			store.Contains(store.FieldEmail, q.Term),
			store.Contains(store.FieldAccountNumber, q.Term),
		))
	}
	if q.AdminsOnly {
		conjuncts = append(conjuncts, store.Or(
			store.Eq(store.FieldIsAdmin, true),
			store.Eq(store.FieldRole, "admin"),
		))
	}
	return store.And(conjuncts...)
}

// ActorOrder is the canonical actor-list ordering: full name ascending
// with id as the pagination tie-break.
func ActorOrder() []store.Sort {
	return []store.Sort{
		{Field: store.FieldFullName},
		{Field: store.FieldID},
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
