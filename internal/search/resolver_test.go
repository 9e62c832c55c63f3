package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"ledgerdesk/internal/core"
	"ledgerdesk/internal/log"
	"ledgerdesk/internal/store"
	"ledgerdesk/internal/store/memory"
)

func testLogger() *log.Logger {
	return log.NewWithHandler("test", slog.NewTextHandler(io.Discard, nil))
}

func TestResolveWithoutTerm(t *testing.T) {
	r := NewResolver(memory.New(), testLogger())
	from := time.Date(2026, 1, 10, 15, 30, 0, 0, time.UTC)
	to := time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC)

	f, err := r.Resolve(context.Background(), core.SearchQuery{
		From: from, To: to, Type: "deposit", Status: "completed",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if f.Degraded {
		t.Error("degraded = true without a term")
	}

	and, ok := f.Pred.(store.AndPred)
	if !ok {
		t.Fatalf("pred = %T, want AndPred", f.Pred)
	}
	if len(and.Preds) != 4 {
		t.Fatalf("conjuncts = %d, want 4", len(and.Preds))
	}

	// Date bounds cover the whole named days.
	gte := and.Preds[0].(store.GtePred)
	if got := gte.Value.(time.Time); got.Hour() != 0 || got.Day() != 10 {
		t.Errorf("lower bound = %v, want start of Jan 10", got)
	}
	lte := and.Preds[1].(store.LtePred)
	if got := lte.Value.(time.Time); got.Hour() != 23 || got.Day() != 20 {
		t.Errorf("upper bound = %v, want end of Jan 20", got)
	}
}

func TestResolveEmptyQueryMatchesEverything(t *testing.T) {
	r := NewResolver(memory.New(), testLogger())
	f, err := r.Resolve(context.Background(), core.SearchQuery{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if f.Pred != nil {
		t.Errorf("pred = %v, want nil", f.Pred)
	}
	if len(f.Order) != 2 || f.Order[0].Field != store.FieldCreatedAt || !f.Order[0].Desc {
		t.Errorf("order = %v", f.Order)
	}
	if f.Order[1].Field != store.FieldID || !f.Order[1].Desc {
		t.Errorf("secondary order key = %v", f.Order[1])
	}
}

func TestResolveRejectsInvertedRange(t *testing.T) {
	r := NewResolver(memory.New(), testLogger())
	_, err := r.Resolve(context.Background(), core.SearchQuery{
		From: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, core.ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
}

func TestTermPredFoldsCandidateIDs(t *testing.T) {
	st := memory.New()
	st.SeedActors([]core.Actor{
		{ID: "u1", FullName: "Ada Lovelace"},
		{ID: "u2", Email: "ada.admin@example.com"},
		{ID: "u3", FullName: "Grace Hopper"},
	})
	r := NewResolver(st, testLogger())

	f, err := r.Resolve(context.Background(), core.SearchQuery{Term: "ada"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	or, ok := f.Pred.(store.OrPred)
	if !ok {
		t.Fatalf("pred = %T, want OrPred", f.Pred)
	}
	// Two text branches plus one per matched actor.
	if len(or.Preds) != 4 {
		t.Fatalf("branches = %d, want 4", len(or.Preds))
	}

	ids := map[string]bool{}
	for _, p := range or.Preds {
		if eq, ok := p.(store.EqPred); ok && eq.Field == store.FieldActorID {
			ids[eq.Value.(string)] = true
		}
	}
	if !ids["u1"] || !ids["u2"] || ids["u3"] {
		t.Errorf("candidate ids = %v, want u1 and u2 only", ids)
	}
}

func TestTermPredCapsCandidates(t *testing.T) {
	st := memory.New()
	var actors []core.Actor
	for i := 0; i < CandidateLimit+50; i++ {
		actors = append(actors, core.Actor{
			ID:       fmt.Sprintf("u%03d", i),
			FullName: fmt.Sprintf("Common Name %03d", i),
		})
	}
	st.SeedActors(actors)
	r := NewResolver(st, testLogger())

	f, err := r.Resolve(context.Background(), core.SearchQuery{Term: "common"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	or, ok := f.Pred.(store.OrPred)
	if !ok {
		t.Fatalf("pred = %T, want OrPred", f.Pred)
	}
	if len(or.Preds) != CandidateLimit+2 {
		t.Errorf("branches = %d, want %d", len(or.Preds), CandidateLimit+2)
	}
}

// failingActors delegates to the wrapped store but fails every actor
// read, simulating a broken actors collection.
type failingActors struct {
	store.Store
}

func (f *failingActors) SelectActors(context.Context, store.Query) ([]core.Actor, error) {
	return nil, core.NewQueryError(store.Actors, "select", errors.New("actors table offline"))
}

func TestTermPredDegradesWhenActorsFail(t *testing.T) {
	r := NewResolver(&failingActors{Store: memory.New()}, testLogger())

	f, err := r.Resolve(context.Background(), core.SearchQuery{Term: "ada"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !f.Degraded {
		t.Fatal("degraded = false, want true after actor failure")
	}
	or, ok := f.Pred.(store.OrPred)
	if !ok {
		t.Fatalf("pred = %T, want OrPred", f.Pred)
	}
	// Text-only fallback keeps the free-text branches.
	if len(or.Preds) != 2 {
		t.Errorf("branches = %d, want 2", len(or.Preds))
	}
}

func TestActorFilter(t *testing.T) {
	if p := ActorFilter(core.ActorQuery{}); p != nil {
		t.Errorf("empty query pred = %v, want nil", p)
	}

	p := ActorFilter(core.ActorQuery{Term: "ada", AdminsOnly: true})
	and, ok := p.(store.AndPred)
	if !ok {
		t.Fatalf("pred = %T, want AndPred", p)
	}
	if len(and.Preds) != 2 {
		t.Fatalf("conjuncts = %d, want 2", len(and.Preds))
	}

	admins, ok := and.Preds[1].(store.OrPred)
	if !ok {
		t.Fatalf("admins pred = %T, want OrPred", and.Preds[1])
	}
	if len(admins.Preds) != 2 {
		t.Errorf("admin branches = %d, want flag and role", len(admins.Preds))
	}
}
