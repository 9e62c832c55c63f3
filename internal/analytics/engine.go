// Package analytics reduces filtered transaction sets into monthly
// buckets, actor rankings, category distributions and summary totals.
// Every operation scans the full matching set, independent of any page
// window, bounded by a row cap.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerdesk/internal/core"
	"ledgerdesk/internal/log"
	"ledgerdesk/internal/store"
)

// DefaultScanCap bounds how many rows a single aggregation scan reads.
// Results beyond the cap are dropped and the truncation is reported to
// the caller rather than hidden.
const DefaultScanCap = 20000

type (
	// Bucket is a calendar-month aggregate. Buckets are derived, never
	// persisted, and sparse: months with no transactions are absent.
	Bucket struct {
		Year  int
		Month time.Month
		Count int
		Total float64
	}

	// RankedActor is one row of a "top actors" view.
	RankedActor struct {
		ActorID string
		Label   string
		Total   float64
	}

	// CategoryCount is one category with its occurrence count.
	CategoryCount struct {
		Label string
		Count int
	}

	// Summary holds totals over a filtered set. Mean is Total/Count,
	// zero when the set is empty.
	Summary struct {
		Count     int64
		Total     float64
		Mean      float64
		Truncated bool
	}

	// Overview is the console landing-view aggregate.
	Overview struct {
		TotalActors       int64
		TotalTransactions int64
		TotalTransferred  float64
		Volume            []Bucket
		Truncated         bool
	}
)

// LabelResolver supplies display labels for actor ids.
type LabelResolver interface {
	Resolve(ctx context.Context, ids []string) map[string]string
}

// Engine runs aggregations against the store. Now is injectable so
// trailing-window operations are testable.
type Engine struct {
	store   store.Store
	labels  LabelResolver
	logger  *log.Logger
	ScanCap int
	Now     func() time.Time

	// FoldOther folds the tail beyond topN of a category distribution
	// into a single "other" entry instead of discarding it.
	FoldOther bool
}

func NewEngine(st store.Store, labels LabelResolver, logger *log.Logger) *Engine {
	return &Engine{
		store:   st,
		labels:  labels,
		logger:  logger.WithComponent(log.ComponentAnalytics),
		ScanCap: DefaultScanCap,
		Now:     time.Now,
	}
}

// scan reads every transaction matching where, newest first, up to the
// row cap. The second return reports whether the cap cut the set short.
func (e *Engine) scan(ctx context.Context, where store.Pred) ([]core.Transaction, bool, error) {
	rows, err := e.store.SelectTransactions(ctx, store.Query{
		Where: where,
		Order: []store.Sort{
			{Field: store.FieldCreatedAt, Desc: true},
			{Field: store.FieldID, Desc: true},
		},
		Limit: e.ScanCap + 1,
	})
	if err != nil {
		return nil, false, fmt.Errorf("aggregation scan: %w", err)
	}
	if len(rows) > e.ScanCap {
		e.logger.WarnContext(ctx, "Aggregation scan truncated at row cap",
			log.FieldRows, e.ScanCap)
		return rows[:e.ScanCap], true, nil
	}
	return rows, false, nil
}

// MonthlyVolume buckets matching transactions by calendar month in the
// timestamp's own calendar. windowMonths > 0 restricts the scan to the
// trailing window ending now; 0 means no restriction. The result is
// sorted ascending by (year, month) with no duplicate or empty buckets.
func (e *Engine) MonthlyVolume(ctx context.Context, where store.Pred, windowMonths int) ([]Bucket, bool, error) {
	if windowMonths > 0 {
		since := e.Now().AddDate(0, -windowMonths, 0)
		where = store.And(where, store.Gte(store.FieldCreatedAt, since))
	}
	rows, truncated, err := e.scan(ctx, where)
	if err != nil {
		return nil, false, err
	}

	type key struct {
		year  int
		month time.Month
	}
	byMonth := make(map[key]*Bucket)
	for _, t := range rows {
		y, m, _ := t.CreatedAt.Date()
		k := key{y, m}
		b, ok := byMonth[k]
		if !ok {
			b = &Bucket{Year: y, Month: m}
			byMonth[k] = b
		}
		b.Count++
		b.Total += t.Amount
	}

	out := make([]Bucket, 0, len(byMonth))
	for _, b := range byMonth {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, truncated, nil
}

// TopActors ranks actors by summed amount over the trailing window.
// Ownerless transactions are excluded. Ties keep first-encounter order.
func (e *Engine) TopActors(ctx context.Context, where store.Pred, trailingMonths, limit int) ([]RankedActor, bool, error) {
	since := e.Now().AddDate(0, -trailingMonths, 0)
	rows, truncated, err := e.scan(ctx, store.And(where, store.Gte(store.FieldCreatedAt, since)))
	if err != nil {
		return nil, false, err
	}

	totals := make(map[string]float64)
	firstSeen := make(map[string]int)
	var order []string
	for _, t := range rows {
		if t.ActorID == "" {
			continue
		}
		if _, seen := totals[t.ActorID]; !seen {
			firstSeen[t.ActorID] = len(order)
			order = append(order, t.ActorID)
		}
		totals[t.ActorID] += t.Amount
	}

	sort.SliceStable(order, func(i, j int) bool {
		ti, tj := totals[order[i]], totals[order[j]]
		if ti != tj {
			return ti > tj
		}
		return firstSeen[order[i]] < firstSeen[order[j]]
	})
	if limit > 0 && limit < len(order) {
		order = order[:limit]
	}

	resolved := map[string]string{}
	if e.labels != nil {
		resolved = e.labels.Resolve(ctx, order)
	}
	out := make([]RankedActor, 0, len(order))
	for _, id := range order {
		label := resolved[id]
		if label == "" {
			label = id
		}
		out = append(out, RankedActor{ActorID: id, Label: label, Total: totals[id]})
	}
	return out, truncated, nil
}

// CategoryDistribution counts matching transactions per category,
// substituting "unknown" for an absent category, sorted descending by
// count and truncated to topN. With FoldOther set, the discarded tail
// becomes a single trailing "other" entry.
func (e *Engine) CategoryDistribution(ctx context.Context, where store.Pred, topN int) ([]CategoryCount, bool, error) {
	rows, truncated, err := e.scan(ctx, where)
	if err != nil {
		return nil, false, err
	}

	counts := make(map[string]int)
	for _, t := range rows {
		label := t.Type
		if label == "" {
			label = "unknown"
		}
		counts[label]++
	}

	out := make([]CategoryCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, CategoryCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})

	if topN > 0 && topN < len(out) {
		head, tail := out[:topN], out[topN:]
		if e.FoldOther {
			other := CategoryCount{Label: "other"}
			for _, c := range tail {
				other.Count += c.Count
			}
			head = append(head, other)
		}
		out = head
	}
	return out, truncated, nil
}

// Summarize computes count, summed amount and arithmetic mean over the
// matching set. All three come from the same capped scan so that
// Mean == Total/Count always holds.
func (e *Engine) Summarize(ctx context.Context, where store.Pred) (Summary, error) {
	rows, truncated, err := e.scan(ctx, where)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{Count: int64(len(rows)), Truncated: truncated}
	for _, t := range rows {
		s.Total += t.Amount
	}
	if s.Count > 0 {
		s.Mean = s.Total / float64(s.Count)
	}
	return s, nil
}

// OverviewStats gathers the landing-view totals and 12-month volume in
// parallel.
func (e *Engine) OverviewStats(ctx context.Context) (Overview, error) {
	var ov Overview
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := e.store.CountActors(gctx, nil)
		if err != nil {
			return fmt.Errorf("count actors: %w", err)
		}
		ov.TotalActors = n
		return nil
	})
	g.Go(func() error {
		n, err := e.store.CountTransactions(gctx, nil)
		if err != nil {
			return fmt.Errorf("count transactions: %w", err)
		}
		ov.TotalTransactions = n
		return nil
	})
	g.Go(func() error {
		buckets, truncated, err := e.MonthlyVolume(gctx, nil, 12)
		if err != nil {
			return err
		}
		ov.Volume = buckets
		ov.Truncated = truncated
		for _, b := range buckets {
			ov.TotalTransferred += b.Total
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return ov, nil
}
