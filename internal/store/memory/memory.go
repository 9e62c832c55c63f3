// Package memory is an in-process Store used for development and tests.
// Predicates are evaluated record by record; good enough for seeded
// data sets, not meant for production volumes.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ledgerdesk/internal/core"
	"ledgerdesk/internal/settings"
	"ledgerdesk/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	actors   []core.Actor
	txs      []core.Transaction
	settings map[string]string
}

var _ store.Store = (*Store)(nil)
var _ settings.Store = (*Store)(nil)

func New() *Store {
	return &Store{settings: make(map[string]string)}
}

// SeedActors replaces the actor collection.
func (s *Store) SeedActors(actors []core.Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actors = append([]core.Actor(nil), actors...)
}

// SeedTransactions replaces the transaction collection.
func (s *Store) SeedTransactions(txs []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append([]core.Transaction(nil), txs...)
}

func (s *Store) SelectActors(_ context.Context, q store.Query) ([]core.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Actor
	for _, a := range s.actors {
		ok, err := match(q.Where, actorField(a))
		if err != nil {
			return nil, core.NewQueryError(store.Actors, "select", err)
		}
		if ok {
			out = append(out, a)
		}
	}
	sortRecords(out, q.Order, actorField)
	return window(out, q.Offset, q.Limit), nil
}

func (s *Store) CountActors(_ context.Context, where store.Pred) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, a := range s.actors {
		ok, err := match(where, actorField(a))
		if err != nil {
			return 0, core.NewQueryError(store.Actors, "count", err)
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (s *Store) SelectTransactions(_ context.Context, q store.Query) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Transaction
	for _, t := range s.txs {
		ok, err := match(q.Where, txField(t))
		if err != nil {
			return nil, core.NewQueryError(store.Transactions, "select", err)
		}
		if ok {
			out = append(out, t)
		}
	}
	sortRecords(out, q.Order, txField)
	return window(out, q.Offset, q.Limit), nil
}

func (s *Store) CountTransactions(_ context.Context, where store.Pred) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, t := range s.txs {
		ok, err := match(where, txField(t))
		if err != nil {
			return 0, core.NewQueryError(store.Transactions, "count", err)
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.txs {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, core.ErrNotFound
}

// AllSettings implements settings.Store.
func (s *Store) AllSettings(_ context.Context) ([]settings.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]settings.Setting, 0, len(s.settings))
	for k, v := range s.settings {
		out = append(out, settings.Setting{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// PutSetting implements settings.Store with upsert semantics.
func (s *Store) PutSetting(_ context.Context, st settings.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[st.Key] = st.Value
	return nil
}

// DeleteSetting implements settings.Store.
func (s *Store) DeleteSetting(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.settings, key)
	return nil
}

// fieldFn maps a field name to the record's value for it.
type fieldFn func(field string) (any, error)

func actorField(a core.Actor) fieldFn {
	return func(field string) (any, error) {
		switch field {
		case store.FieldID:
			return a.ID, nil
		case store.FieldAccountNumber:
			return a.AccountNumber, nil
		case store.FieldFullName:
			return a.FullName, nil
		case store.FieldEmail:
			return a.Email, nil
		case store.FieldUsername:
			return a.Username, nil
		case store.FieldBalance:
			return a.Balance, nil
		case store.FieldIsAdmin:
			return a.IsAdmin, nil
		case store.FieldIsActive:
			return a.IsActive, nil
		case store.FieldRole:
			return a.Role, nil
		}
		return nil, fmt.Errorf("unknown actor field %q", field)
	}
}

func txField(t core.Transaction) fieldFn {
	return func(field string) (any, error) {
		switch field {
		case store.FieldID:
			return t.ID, nil
		case store.FieldActorID:
			return t.ActorID, nil
		case store.FieldCreatedAt:
			return t.CreatedAt, nil
		case store.FieldType:
			return t.Type, nil
		case store.FieldAmount:
			return t.Amount, nil
		case store.FieldStatus:
			return t.Status, nil
		case store.FieldDescription:
			return t.Description, nil
		}
		return nil, fmt.Errorf("unknown transaction field %q", field)
	}
}

func match(p store.Pred, field fieldFn) (bool, error) {
	if p == nil {
		return true, nil
	}
	switch pr := p.(type) {
	case store.EqPred:
		v, err := field(pr.Field)
		if err != nil {
			return false, err
		}
		return v == pr.Value, nil
	case store.ContainsPred:
		v, err := field(pr.Field)
		if err != nil {
			return false, err
		}
		s, ok := v.(string)
		if !ok {
			return false, fmt.Errorf("contains on non-string field %q", pr.Field)
		}
		return strings.Contains(strings.ToLower(s), strings.ToLower(pr.Substr)), nil
	case store.GtePred:
		v, err := field(pr.Field)
		if err != nil {
			return false, err
		}
		c, err := compare(v, pr.Value)
		if err != nil {
			return false, err
		}
		return c >= 0, nil
	case store.LtePred:
		v, err := field(pr.Field)
		if err != nil {
			return false, err
		}
		c, err := compare(v, pr.Value)
		if err != nil {
			return false, err
		}
		return c <= 0, nil
	case store.InPred:
		v, err := field(pr.Field)
		if err != nil {
			return false, err
		}
		s, ok := v.(string)
		if !ok {
			return false, fmt.Errorf("in on non-string field %q", pr.Field)
		}
		for _, cand := range pr.Values {
			if s == cand {
				return true, nil
			}
		}
		return false, nil
	case store.OrPred:
		for _, sub := range pr.Preds {
			ok, err := match(sub, field)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case store.AndPred:
		for _, sub := range pr.Preds {
			ok, err := match(sub, field)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
	return false, fmt.Errorf("unsupported predicate %T", p)
}

// compare returns -1, 0 or 1 for a vs b. Supported value kinds:
// time.Time, float64 and string.
func compare(a, b any) (int, error) {
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, fmt.Errorf("cannot compare time with %T", b)
		}
		switch {
		case av.Before(bv):
			return -1, nil
		case av.After(bv):
			return 1, nil
		}
		return 0, nil
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, fmt.Errorf("cannot compare float with %T", b)
		}
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		}
		return 0, nil
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare string with %T", b)
		}
		return strings.Compare(av, bv), nil
	}
	return 0, fmt.Errorf("unorderable value %T", a)
}

func sortRecords[T any](records []T, order []store.Sort, field func(T) fieldFn) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, key := range order {
			vi, err := field(records[i])(key.Field)
			if err != nil {
				return false
			}
			vj, err := field(records[j])(key.Field)
			if err != nil {
				return false
			}
			c, err := compare(vi, vj)
			if err != nil || c == 0 {
				continue
			}
			if key.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func window[T any](records []T, offset, limit int) []T {
	if offset >= len(records) {
		return nil
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}
