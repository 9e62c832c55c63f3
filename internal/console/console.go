// Package console is the facade the operator views call into. It wires
// the search resolver, the aggregation engine, the label cache and the
// CSV serializer over one store, and owns the pagination contract:
// every page's total is counted with the exact predicate that selected
// its rows.
package console

import (
	"context"
	"fmt"

	"ledgerdesk/internal/analytics"
	"ledgerdesk/internal/chart"
	"ledgerdesk/internal/core"
	"ledgerdesk/internal/export"
	"ledgerdesk/internal/labels"
	"ledgerdesk/internal/log"
	"ledgerdesk/internal/search"
	"ledgerdesk/internal/store"
)

type (
	// SearchResult is one page of transactions plus display labels for
	// the owning actors on that page. Degraded reports that the actor
	// phase of the search failed and only transaction text was matched.
	SearchResult struct {
		Page     core.Page[core.Transaction]
		Labels   map[string]string
		Degraded bool
	}

	// ExportResult carries serialized export bytes. Truncated reports
	// that the row cap cut the export short.
	ExportResult struct {
		Data        []byte
		ContentType string
		Shape       export.Shape
		Rows        int
		Truncated   bool
	}
)

type Console struct {
	store    store.Store
	resolver *search.Resolver
	engine   *analytics.Engine
	labels   *labels.Cache
	logger   *log.Logger
}

func New(st store.Store, logger *log.Logger) *Console {
	cache := labels.NewCache(st, logger)
	return &Console{
		store:    st,
		resolver: search.NewResolver(st, logger),
		engine:   analytics.NewEngine(st, cache, logger),
		labels:   cache,
		logger:   logger.WithComponent(log.ComponentConsole),
	}
}

// Engine exposes the aggregation engine for configuration (row cap,
// clock, other-bucket folding).
func (c *Console) Engine() *analytics.Engine { return c.engine }

// Search runs q against the transactions collection and returns one
// page with its overall total. A store failure during the transaction
// fetch is fatal and surfaces as an error, never as an empty page.
func (c *Console) Search(ctx context.Context, q core.SearchQuery) (SearchResult, error) {
	q = q.Normalized()
	f, err := c.resolver.Resolve(ctx, q)
	if err != nil {
		return SearchResult{}, err
	}

	total, err := c.store.CountTransactions(ctx, f.Pred)
	if err != nil {
		return SearchResult{}, fmt.Errorf("count transactions: %w", err)
	}
	rows, err := c.store.SelectTransactions(ctx, store.Query{
		Where:  f.Pred,
		Order:  f.Order,
		Offset: q.Page * q.PageSize,
		Limit:  q.PageSize,
	})
	if err != nil {
		return SearchResult{}, fmt.Errorf("select transactions: %w", err)
	}

	res := SearchResult{
		Page: core.Page[core.Transaction]{
			Items:    rows,
			Total:    total,
			Page:     q.Page,
			PageSize: q.PageSize,
		},
		Labels:   c.labels.Resolve(ctx, actorIDs(rows)),
		Degraded: f.Degraded,
	}
	c.logger.DebugContext(ctx, "Search page served",
		log.FieldTerm, q.Term, log.FieldPage, q.Page,
		log.FieldRows, len(rows), log.FieldTotal, total,
		log.FieldDegraded, f.Degraded)
	return res, nil
}

// Actors lists actors matching q, ordered by full name.
func (c *Console) Actors(ctx context.Context, q core.ActorQuery) (core.Page[core.Actor], error) {
	q = q.Normalized()
	pred := search.ActorFilter(q)

	total, err := c.store.CountActors(ctx, pred)
	if err != nil {
		return core.Page[core.Actor]{}, fmt.Errorf("count actors: %w", err)
	}
	rows, err := c.store.SelectActors(ctx, store.Query{
		Where:  pred,
		Order:  search.ActorOrder(),
		Offset: q.Page * q.PageSize,
		Limit:  q.PageSize,
	})
	if err != nil {
		return core.Page[core.Actor]{}, fmt.Errorf("select actors: %w", err)
	}
	return core.Page[core.Actor]{Items: rows, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

// Transaction fetches one transaction and the label of its owner.
func (c *Console) Transaction(ctx context.Context, id string) (core.Transaction, map[string]string, error) {
	t, err := c.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, nil, err
	}
	lbls := map[string]string{}
	if t.ActorID != "" {
		lbls = c.labels.Resolve(ctx, []string{t.ActorID})
	}
	return t, lbls, nil
}

// Summary aggregates count, total and mean over every transaction
// matching q, ignoring the page window.
func (c *Console) Summary(ctx context.Context, q core.SearchQuery) (analytics.Summary, error) {
	f, err := c.resolver.Resolve(ctx, q)
	if err != nil {
		return analytics.Summary{}, err
	}
	return c.engine.Summarize(ctx, f.Pred)
}

// MonthlySeries returns the chart-ready monthly volume for q over the
// trailing window. windowMonths <= 0 means the full history.
func (c *Console) MonthlySeries(ctx context.Context, q core.SearchQuery, windowMonths int) ([]chart.Point, bool, error) {
	f, err := c.resolver.Resolve(ctx, q)
	if err != nil {
		return nil, false, err
	}
	buckets, truncated, err := c.engine.MonthlyVolume(ctx, f.Pred, windowMonths)
	if err != nil {
		return nil, false, err
	}
	return chart.Series(buckets, chart.SourceTotal), truncated, nil
}

// TopActors ranks actors by transferred amount over the trailing
// window.
func (c *Console) TopActors(ctx context.Context, q core.SearchQuery, trailingMonths, limit int) ([]analytics.RankedActor, bool, error) {
	f, err := c.resolver.Resolve(ctx, q)
	if err != nil {
		return nil, false, err
	}
	return c.engine.TopActors(ctx, f.Pred, trailingMonths, limit)
}

// CategoryDistribution returns the proportional category slices for q.
func (c *Console) CategoryDistribution(ctx context.Context, q core.SearchQuery, topN int) ([]chart.Slice, bool, error) {
	f, err := c.resolver.Resolve(ctx, q)
	if err != nil {
		return nil, false, err
	}
	counts, truncated, err := c.engine.CategoryDistribution(ctx, f.Pred, topN)
	if err != nil {
		return nil, false, err
	}
	return chart.Proportions(counts), truncated, nil
}

// Overview gathers the landing-view totals.
func (c *Console) Overview(ctx context.Context) (analytics.Overview, error) {
	return c.engine.OverviewStats(ctx)
}

// ResolveLabels resolves actor ids to display labels.
func (c *Console) ResolveLabels(ctx context.Context, ids []string) map[string]string {
	return c.labels.Resolve(ctx, ids)
}

// ExportTransactionsCSV serializes every transaction matching q,
// bounded by the aggregation row cap, resolving owner labels through
// the cache first.
func (c *Console) ExportTransactionsCSV(ctx context.Context, q core.SearchQuery) (ExportResult, error) {
	f, err := c.resolver.Resolve(ctx, q)
	if err != nil {
		return ExportResult{}, err
	}

	rowCap := c.engine.ScanCap
	rows, err := c.store.SelectTransactions(ctx, store.Query{
		Where: f.Pred,
		Order: f.Order,
		Limit: rowCap + 1,
	})
	if err != nil {
		return ExportResult{}, fmt.Errorf("select transactions for export: %w", err)
	}
	truncated := len(rows) > rowCap
	if truncated {
		rows = rows[:rowCap]
	}
	lbls := c.labels.Resolve(ctx, actorIDs(rows))
	return c.exportResult(ctx, export.ShapeTransactions, export.Transactions(rows, lbls), len(rows), truncated), nil
}

// ExportActorsCSV serializes every actor matching q in the canonical
// listing order, bounded by the aggregation row cap. The same filter
// drives the listing and its export.
func (c *Console) ExportActorsCSV(ctx context.Context, q core.ActorQuery) (ExportResult, error) {
	q = q.Normalized()

	rowCap := c.engine.ScanCap
	rows, err := c.store.SelectActors(ctx, store.Query{
		Where: search.ActorFilter(q),
		Order: search.ActorOrder(),
		Limit: rowCap + 1,
	})
	if err != nil {
		return ExportResult{}, fmt.Errorf("select actors for export: %w", err)
	}
	truncated := len(rows) > rowCap
	if truncated {
		rows = rows[:rowCap]
	}
	return c.exportResult(ctx, export.ShapeActors, export.Actors(rows), len(rows), truncated), nil
}

func (c *Console) exportResult(ctx context.Context, shape export.Shape, data []byte, rows int, truncated bool) ExportResult {
	c.logger.InfoContext(ctx, "Export serialized",
		log.FieldShape, string(shape), log.FieldRows, rows, log.FieldTruncated, truncated)
	return ExportResult{
		Data:        data,
		ContentType: export.ContentType,
		Shape:       shape,
		Rows:        rows,
		Truncated:   truncated,
	}
}

func actorIDs(rows []core.Transaction) []string {
	seen := make(map[string]struct{}, len(rows))
	var ids []string
	for _, t := range rows {
		if t.ActorID == "" {
			continue
		}
		if _, dup := seen[t.ActorID]; dup {
			continue
		}
		seen[t.ActorID] = struct{}{}
		ids = append(ids, t.ActorID)
	}
	return ids
}
