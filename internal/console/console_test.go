package console

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"ledgerdesk/internal/core"
	"ledgerdesk/internal/export"
	"ledgerdesk/internal/log"
	"ledgerdesk/internal/store/memory"
)

func testLogger() *log.Logger {
	return log.NewWithHandler("test", slog.NewTextHandler(io.Discard, nil))
}

func seededConsole(t *testing.T) *Console {
	t.Helper()
	st := memory.New()
	st.SeedActors([]core.Actor{
		{ID: "u1", AccountNumber: "ACC-100", FullName: "Ada Lovelace", Email: "ada@example.com", IsAdmin: true, IsActive: true},
		{ID: "u2", AccountNumber: "ACC-200", FullName: "Grace Hopper", Email: "grace@example.com", IsActive: true},
	})
	st.SeedTransactions([]core.Transaction{
		{ID: "t1", ActorID: "u1", CreatedAt: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC), Type: "payroll", Amount: 150, Status: "completed", Description: "march salary"},
		{ID: "t2", ActorID: "u2", CreatedAt: time.Date(2026, time.March, 12, 9, 0, 0, 0, time.UTC), Type: "atm", Amount: 40, Status: "pending", Description: "cash withdrawal"},
		{ID: "t3", ActorID: "u1", CreatedAt: time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC), Type: "payroll", Amount: 150, Status: "completed", Description: "april salary"},
		{ID: "t4", CreatedAt: time.Date(2026, time.April, 3, 9, 0, 0, 0, time.UTC), Type: "fee", Amount: 5, Status: "completed", Description: "maintenance fee"},
	})
	return New(st, testLogger())
}

func TestSearch(t *testing.T) {
	c := seededConsole(t)

	res, err := c.Search(context.Background(), core.SearchQuery{Term: "salary"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if res.Page.Total != 2 || len(res.Page.Items) != 2 {
		t.Fatalf("page = total %d, %d items, want 2/2", res.Page.Total, len(res.Page.Items))
	}
	// Newest first, id as tie breaker.
	if res.Page.Items[0].ID != "t3" || res.Page.Items[1].ID != "t1" {
		t.Errorf("order = %s, %s", res.Page.Items[0].ID, res.Page.Items[1].ID)
	}
	if res.Labels["u1"] != "ACC-100" {
		t.Errorf("labels = %v", res.Labels)
	}
	if res.Degraded {
		t.Error("Degraded = true on a healthy store")
	}
}

func TestSearchPagination(t *testing.T) {
	c := seededConsole(t)

	q := core.SearchQuery{PageSize: 3}
	first, err := c.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if first.Page.Total != 4 || len(first.Page.Items) != 3 {
		t.Fatalf("first page = total %d, %d items", first.Page.Total, len(first.Page.Items))
	}
	if !first.Page.HasNext() {
		t.Error("HasNext() = false on a partial first page")
	}

	q.Page = 1
	second, err := c.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(second.Page.Items) != 1 || second.Page.HasNext() {
		t.Errorf("second page = %d items, HasNext %v", len(second.Page.Items), second.Page.HasNext())
	}
	if second.Page.Total != first.Page.Total {
		t.Errorf("totals differ across pages: %d vs %d", first.Page.Total, second.Page.Total)
	}
}

func TestSearchInvalidRange(t *testing.T) {
	c := seededConsole(t)
	_, err := c.Search(context.Background(), core.SearchQuery{
		From: time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != core.ErrInvalidRange {
		t.Errorf("Search() error = %v, want ErrInvalidRange", err)
	}
}

func TestActors(t *testing.T) {
	c := seededConsole(t)

	page, err := c.Actors(context.Background(), core.ActorQuery{AdminsOnly: true})
	if err != nil {
		t.Fatalf("Actors() error = %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].ID != "u1" {
		t.Errorf("admins page = %+v", page)
	}
}

func TestTransaction(t *testing.T) {
	c := seededConsole(t)

	tx, lbls, err := c.Transaction(context.Background(), "t2")
	if err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}
	if tx.Description != "cash withdrawal" || lbls["u2"] != "ACC-200" {
		t.Errorf("tx = %+v, labels = %v", tx, lbls)
	}

	if _, _, err := c.Transaction(context.Background(), "missing"); err != core.ErrNotFound {
		t.Errorf("Transaction(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSummary(t *testing.T) {
	c := seededConsole(t)

	s, err := c.Summary(context.Background(), core.SearchQuery{Type: "payroll"})
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if s.Count != 2 || s.Total != 300 || s.Mean != 150 {
		t.Errorf("summary = %+v", s)
	}
}

func TestMonthlySeries(t *testing.T) {
	c := seededConsole(t)

	points, truncated, err := c.MonthlySeries(context.Background(), core.SearchQuery{}, 0)
	if err != nil {
		t.Fatalf("MonthlySeries() error = %v", err)
	}
	if truncated {
		t.Error("truncated = true under the cap")
	}
	if len(points) != 2 || points[0].Label != "Mar" || points[0].Value != 190 || points[1].Label != "Apr" || points[1].Value != 155 {
		t.Errorf("points = %v", points)
	}
}

func TestTopActors(t *testing.T) {
	c := seededConsole(t)
	c.Engine().Now = func() time.Time {
		return time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	}

	ranked, _, err := c.TopActors(context.Background(), core.SearchQuery{}, 6, 5)
	if err != nil {
		t.Fatalf("TopActors() error = %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("ranked = %v, ownerless rows must be excluded", ranked)
	}
	if ranked[0].ActorID != "u1" || ranked[0].Total != 300 || ranked[0].Label != "ACC-100" {
		t.Errorf("top = %+v", ranked[0])
	}
}

func TestCategoryDistribution(t *testing.T) {
	c := seededConsole(t)

	slices, _, err := c.CategoryDistribution(context.Background(), core.SearchQuery{}, 0)
	if err != nil {
		t.Fatalf("CategoryDistribution() error = %v", err)
	}
	if len(slices) != 3 || slices[0].Label != "payroll" || slices[0].Percent != 50 {
		t.Errorf("slices = %v", slices)
	}
}

func TestOverview(t *testing.T) {
	c := seededConsole(t)
	c.Engine().Now = func() time.Time {
		return time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	}

	ov, err := c.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if ov.TotalActors != 2 || ov.TotalTransactions != 4 {
		t.Errorf("overview = %+v", ov)
	}
	if ov.TotalTransferred != 345 {
		t.Errorf("TotalTransferred = %v, want 345", ov.TotalTransferred)
	}
}

func TestExportTransactionsCSV(t *testing.T) {
	c := seededConsole(t)

	res, err := c.ExportTransactionsCSV(context.Background(), core.SearchQuery{Status: "completed"})
	if err != nil {
		t.Fatalf("ExportTransactionsCSV() error = %v", err)
	}
	if res.Rows != 3 || res.Truncated {
		t.Errorf("result = rows %d, truncated %v", res.Rows, res.Truncated)
	}
	body := string(res.Data)
	if !strings.Contains(body, `"ACC-100"`) {
		t.Errorf("export missing resolved label:\n%s", body)
	}
	if strings.Contains(body, "cash withdrawal") {
		t.Errorf("export contains a filtered-out row:\n%s", body)
	}
}

func TestExportActorsCSV(t *testing.T) {
	c := seededConsole(t)

	res, err := c.ExportActorsCSV(context.Background(), core.ActorQuery{})
	if err != nil {
		t.Fatalf("ExportActorsCSV() error = %v", err)
	}
	if res.Rows != 2 || res.Shape != export.ShapeActors {
		t.Errorf("result = %+v", res)
	}
	// Ordered by full name ascending.
	lines := strings.Split(strings.TrimRight(string(res.Data), "\n"), "\n")
	if len(lines) != 3 || !strings.Contains(lines[1], "Ada Lovelace") || !strings.Contains(lines[2], "Grace Hopper") {
		t.Errorf("lines = %v", lines)
	}
}

func TestExportActorsCSVAdminsOnly(t *testing.T) {
	c := seededConsole(t)

	res, err := c.ExportActorsCSV(context.Background(), core.ActorQuery{AdminsOnly: true})
	if err != nil {
		t.Fatalf("ExportActorsCSV() error = %v", err)
	}
	if res.Rows != 1 {
		t.Fatalf("rows = %d, want only the admin", res.Rows)
	}
	body := string(res.Data)
	if !strings.Contains(body, `"role"`) {
		t.Errorf("export missing role column:\n%s", body)
	}
	if !strings.Contains(body, "Ada Lovelace") || strings.Contains(body, "Grace Hopper") {
		t.Errorf("admins filter not applied to export:\n%s", body)
	}
}

func TestExportTransactionsCSVTruncation(t *testing.T) {
	c := seededConsole(t)
	c.Engine().ScanCap = 2

	res, err := c.ExportTransactionsCSV(context.Background(), core.SearchQuery{})
	if err != nil {
		t.Fatalf("ExportTransactionsCSV() error = %v", err)
	}
	if !res.Truncated || res.Rows != 2 {
		t.Errorf("result = rows %d, truncated %v, want 2/true", res.Rows, res.Truncated)
	}
}
