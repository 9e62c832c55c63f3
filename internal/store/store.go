// Package store defines the generic query capability the console runs
// against. The backing data store is an external collaborator; the only
// contract is this predicate language plus sort and offset/limit
// windowing over the two named collections.
package store

import (
	"context"

	"ledgerdesk/internal/core"
)

// Collection names understood by every Store implementation.
const (
	Actors       = "actors"
	Transactions = "transactions"
)

// Field names for the actors collection.
const (
	FieldID            = "id"
	FieldAccountNumber = "account_number"
	FieldFullName      = "fullname"
	FieldEmail         = "email"
	FieldUsername      = "username"
	FieldBalance       = "balance"
	FieldIsAdmin       = "is_admin"
	FieldIsActive      = "is_active"
	FieldRole          = "role"
)

// Field names for the transactions collection. FieldID is shared.
const (
	FieldActorID     = "actor_id"
	FieldCreatedAt   = "created_at"
	FieldType        = "type"
	FieldAmount      = "amount"
	FieldStatus      = "status"
	FieldDescription = "description"
)

// Pred is a filter predicate. A nil Pred matches every record.
type Pred interface {
	pred()
}

type (
	// EqPred matches records whose field equals Value exactly.
	EqPred struct {
		Field string
		Value any
	}

	// ContainsPred matches records whose field contains Substr as a
	// case-insensitive, unanchored substring.
	ContainsPred struct {
		Field  string
		Substr string
	}

	// GtePred matches records whose field is >= Value.
	GtePred struct {
		Field string
		Value any
	}

	// LtePred matches records whose field is <= Value.
	LtePred struct {
		Field string
		Value any
	}

	// InPred matches records whose field equals any of Values.
	InPred struct {
		Field  string
		Values []string
	}

	// OrPred matches when any sub-predicate matches.
	OrPred struct {
		Preds []Pred
	}

	// AndPred matches when every sub-predicate matches.
	AndPred struct {
		Preds []Pred
	}
)

func (EqPred) pred()       {}
func (ContainsPred) pred() {}
func (GtePred) pred()      {}
func (LtePred) pred()      {}
func (InPred) pred()       {}
func (OrPred) pred()       {}
func (AndPred) pred()      {}

// Eq builds an equality predicate.
func Eq(field string, value any) Pred { return EqPred{Field: field, Value: value} }

// Contains builds a case-insensitive substring predicate.
func Contains(field, substr string) Pred { return ContainsPred{Field: field, Substr: substr} }

// Gte builds a lower-bound predicate (inclusive).
func Gte(field string, value any) Pred { return GtePred{Field: field, Value: value} }

// Lte builds an upper-bound predicate (inclusive).
func Lte(field string, value any) Pred { return LtePred{Field: field, Value: value} }

// In builds a set-membership predicate.
func In(field string, values []string) Pred { return InPred{Field: field, Values: values} }

// Or combines predicates disjunctively. Nil members are dropped; an
// empty disjunction matches nothing would be surprising, so it matches
// everything like a nil predicate.
func Or(preds ...Pred) Pred {
	kept := compact(preds)
	if len(kept) == 0 {
		return nil
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return OrPred{Preds: kept}
}

// And combines predicates conjunctively, dropping nil members.
func And(preds ...Pred) Pred {
	kept := compact(preds)
	if len(kept) == 0 {
		return nil
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return AndPred{Preds: kept}
}

func compact(preds []Pred) []Pred {
	kept := make([]Pred, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return kept
}

// Sort is one ordering key. Multiple keys apply in sequence.
type Sort struct {
	Field string
	Desc  bool
}

// Query selects a window of records: filter, ordering, and offset/limit.
// A Limit of 0 means no limit.
type Query struct {
	Where  Pred
	Order  []Sort
	Offset int
	Limit  int
}

// Store is the port onto the external data store. Implementations must
// return a *core.QueryError (wrapped) for backend failures so callers
// can tell a failed fetch apart from an empty result.
type Store interface {
	SelectActors(ctx context.Context, q Query) ([]core.Actor, error)
	CountActors(ctx context.Context, where Pred) (int64, error)
	SelectTransactions(ctx context.Context, q Query) ([]core.Transaction, error)
	CountTransactions(ctx context.Context, where Pred) (int64, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
}
