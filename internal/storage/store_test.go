package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"ledgerdesk/internal/core"
	"ledgerdesk/internal/log"
	"ledgerdesk/internal/store"
)

func testLogger() *log.Logger {
	return log.NewWithHandler("test", slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "test.db"), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedTransactions(t *testing.T, st *SQLiteStore, txs []core.Transaction) {
	t.Helper()
	for _, tx := range txs {
		if err := st.InsertTransaction(context.Background(), tx); err != nil {
			t.Fatalf("InsertTransaction(%s): %v", tx.ID, err)
		}
	}
}

func TestSelectTransactionsSubsecondRange(t *testing.T) {
	st := openTestStore(t)
	day := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	seedTransactions(t, st, []core.Transaction{
		{ID: "t1", CreatedAt: day.Add(10 * time.Hour), Type: "deposit", Amount: 10, Status: "completed"},
		{ID: "t2", CreatedAt: day.Add(10*time.Hour + 500*time.Millisecond), Type: "deposit", Amount: 20, Status: "completed"},
		{ID: "t3", CreatedAt: day.Add(23*time.Hour + 59*time.Minute + 59*time.Second), Type: "fee", Amount: 1, Status: "completed"},
	})

	rows, err := st.SelectTransactions(context.Background(), store.Query{
		Where: store.And(
			store.Gte(store.FieldCreatedAt, day.Add(10*time.Hour)),
			store.Lte(store.FieldCreatedAt, day.Add(10*time.Hour+500*time.Millisecond)),
		),
		Order: []store.Sort{
			{Field: store.FieldCreatedAt, Desc: true},
			{Field: store.FieldID, Desc: true},
		},
	})
	if err != nil {
		t.Fatalf("SelectTransactions: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want both bounds included", len(rows))
	}
	if rows[0].ID != "t2" || rows[1].ID != "t1" {
		t.Errorf("order = %s, %s, want t2 before t1", rows[0].ID, rows[1].ID)
	}
}

func TestCountTransactionsWholeDayInclusive(t *testing.T) {
	st := openTestStore(t)
	day := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	seedTransactions(t, st, []core.Transaction{
		{ID: "t1", CreatedAt: day.Add(10 * time.Hour), Type: "deposit", Amount: 10, Status: "completed"},
		{ID: "t2", CreatedAt: day.Add(10*time.Hour + 500*time.Millisecond), Type: "deposit", Amount: 20, Status: "completed"},
		{ID: "t3", CreatedAt: day.Add(23*time.Hour + 59*time.Minute + 59*time.Second), Type: "fee", Amount: 1, Status: "completed"},
	})

	endOfDay := time.Date(2024, time.March, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	n, err := st.CountTransactions(context.Background(), store.Lte(store.FieldCreatedAt, endOfDay))
	if err != nil {
		t.Fatalf("CountTransactions: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want the whole-second row at 23:59:59 included", n)
	}
}

func TestSelectTransactionsMixedPrecisionOrdering(t *testing.T) {
	st := openTestStore(t)
	base := time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC)
	seedTransactions(t, st, []core.Transaction{
		{ID: "a", CreatedAt: base, Type: "deposit", Amount: 1, Status: "completed"},
		{ID: "b", CreatedAt: base.Add(500 * time.Millisecond), Type: "deposit", Amount: 2, Status: "completed"},
		{ID: "c", CreatedAt: base.Add(time.Second), Type: "deposit", Amount: 3, Status: "completed"},
	})

	rows, err := st.SelectTransactions(context.Background(), store.Query{
		Order: []store.Sort{
			{Field: store.FieldCreatedAt, Desc: true},
			{Field: store.FieldID, Desc: true},
		},
	})
	if err != nil {
		t.Fatalf("SelectTransactions: %v", err)
	}
	got := make([]string, len(rows))
	for i, r := range rows {
		got[i] = r.ID
	}
	if len(got) != 3 || got[0] != "c" || got[1] != "b" || got[2] != "a" {
		t.Errorf("order = %v, want [c b a]", got)
	}
	if !rows[1].CreatedAt.Equal(base.Add(500 * time.Millisecond)) {
		t.Errorf("round-tripped timestamp = %v", rows[1].CreatedAt)
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	st := openTestStore(t)
	if _, err := st.GetTransaction(context.Background(), "missing"); err != core.ErrNotFound {
		t.Errorf("GetTransaction error = %v, want ErrNotFound", err)
	}
}
