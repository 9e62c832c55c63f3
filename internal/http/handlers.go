package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ledgerdesk/internal/amqp"
	"ledgerdesk/internal/chart"
	"ledgerdesk/internal/console"
	"ledgerdesk/internal/core"
	"ledgerdesk/internal/export"
	"ledgerdesk/internal/log"
	"ledgerdesk/internal/settings"
)

type (
	transactionDTO struct {
		ID          string    `json:"id"`
		ActorID     string    `json:"actor_id"`
		CreatedAt   time.Time `json:"created_at"`
		Type        string    `json:"type"`
		Amount      float64   `json:"amount"`
		Status      string    `json:"status"`
		Description string    `json:"description"`
	}

	actorDTO struct {
		ID            string  `json:"id"`
		AccountNumber string  `json:"account_number"`
		FullName      string  `json:"fullname"`
		Email         string  `json:"email"`
		Username      string  `json:"username"`
		Balance       float64 `json:"balance"`
		IsAdmin       bool    `json:"is_admin"`
		IsActive      bool    `json:"is_active"`
		Role          string  `json:"role"`
	}

	searchResponse struct {
		Items    []transactionDTO  `json:"items"`
		Total    int64             `json:"total"`
		Page     int               `json:"page"`
		PageSize int               `json:"page_size"`
		HasNext  bool              `json:"has_next"`
		Labels   map[string]string `json:"labels"`
		Degraded bool              `json:"degraded"`
	}

	actorsResponse struct {
		Items    []actorDTO `json:"items"`
		Total    int64      `json:"total"`
		Page     int        `json:"page"`
		PageSize int        `json:"page_size"`
		HasNext  bool       `json:"has_next"`
	}

	transactionResponse struct {
		Transaction transactionDTO    `json:"transaction"`
		Labels      map[string]string `json:"labels"`
	}

	summaryResponse struct {
		Count     int64   `json:"count"`
		Total     float64 `json:"total"`
		Mean      float64 `json:"mean"`
		Truncated bool    `json:"truncated"`
	}

	monthlyResponse struct {
		Points    []chart.Point `json:"points"`
		Truncated bool          `json:"truncated"`
	}

	rankedActorDTO struct {
		ActorID string  `json:"actor_id"`
		Label   string  `json:"label"`
		Total   float64 `json:"total"`
	}

	topActorsResponse struct {
		Actors    []rankedActorDTO `json:"actors"`
		Truncated bool             `json:"truncated"`
	}

	distributionResponse struct {
		Slices    []chart.Slice `json:"slices"`
		Truncated bool          `json:"truncated"`
	}

	overviewResponse struct {
		TotalActors       int64         `json:"total_actors"`
		TotalTransactions int64         `json:"total_transactions"`
		TotalTransferred  float64       `json:"total_transferred"`
		Volume            []chart.Point `json:"volume"`
		Truncated         bool          `json:"truncated"`
	}

	enqueueExportRequest struct {
		Shape  string `json:"shape"`
		Term   string `json:"term"`
		From   string `json:"from"`
		To     string `json:"to"`
		Type   string `json:"type"`
		Status string `json:"status"`
		Admins bool   `json:"admins"`
	}

	enqueueExportResponse struct {
		JobID string `json:"job_id"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}
)

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q, err := parseSearchQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.console.Search(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	items := make([]transactionDTO, len(res.Page.Items))
	for i, t := range res.Page.Items {
		items[i] = toTransactionDTO(t)
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Items:    items,
		Total:    res.Page.Total,
		Page:     res.Page.Page,
		PageSize: res.Page.PageSize,
		HasNext:  res.Page.HasNext(),
		Labels:   res.Labels,
		Degraded: res.Degraded,
	})
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "missing transaction id")
		return
	}

	t, labels, err := s.console.Transaction(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionResponse{
		Transaction: toTransactionDTO(t),
		Labels:      labels,
	})
}

func (s *Server) handleActors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := parseActorQuery(r)

	page, err := s.console.Actors(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	items := make([]actorDTO, len(page.Items))
	for i, a := range page.Items {
		items[i] = actorDTO{
			ID:            a.ID,
			AccountNumber: a.AccountNumber,
			FullName:      a.FullName,
			Email:         a.Email,
			Username:      a.Username,
			Balance:       a.Balance,
			IsAdmin:       a.IsAdmin,
			IsActive:      a.IsActive,
			Role:          a.Role,
		}
	}
	writeJSON(w, http.StatusOK, actorsResponse{
		Items:    items,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
		HasNext:  page.HasNext(),
	})
}

func (s *Server) handleTransactionsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q, err := parseSearchQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.console.ExportTransactionsCSV(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeExport(w, res)
}

// handleActorsExport takes the same filter params as the actor listing
// so the export reproduces exactly what the operator is looking at.
func (s *Server) handleActorsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	res, err := s.console.ExportActorsCSV(r.Context(), parseActorQuery(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeExport(w, res)
}

func writeExport(w http.ResponseWriter, res console.ExportResult) {
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", string(res.Shape)+".csv"))
	w.Header().Set("X-Export-Truncated", strconv.FormatBool(res.Truncated))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q, err := parseSearchQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sum, err := s.console.Summary(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Count:     sum.Count,
		Total:     sum.Total,
		Mean:      sum.Mean,
		Truncated: sum.Truncated,
	})
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q, err := parseSearchQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	months := parseIntParam(r, "months", 12)

	points, truncated, err := s.console.MonthlySeries(r.Context(), q, months)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, monthlyResponse{Points: points, Truncated: truncated})
}

func (s *Server) handleTopActors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q, err := parseSearchQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	months := parseIntParam(r, "months", 6)
	limit := parseIntParam(r, "limit", 10)

	ranked, truncated, err := s.console.TopActors(r.Context(), q, months, limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	actors := make([]rankedActorDTO, len(ranked))
	for i, ra := range ranked {
		actors[i] = rankedActorDTO{ActorID: ra.ActorID, Label: ra.Label, Total: ra.Total}
	}
	writeJSON(w, http.StatusOK, topActorsResponse{Actors: actors, Truncated: truncated})
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q, err := parseSearchQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	topN := parseIntParam(r, "top", 6)

	slices, truncated, err := s.console.CategoryDistribution(r.Context(), q, topN)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, distributionResponse{Slices: slices, Truncated: truncated})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	overview, ok := s.overviewCache.Get("overview")
	if !ok {
		// Concurrent refreshes race for the slot; the loader keeps a
		// stale result from overwriting a newer one.
		var err error
		overview, err = s.overviewLoader.Load(r.Context(), s.console.Overview)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		s.overviewCache.Set("overview", overview)
	}

	writeJSON(w, http.StatusOK, overviewResponse{
		TotalActors:       overview.TotalActors,
		TotalTransactions: overview.TotalTransactions,
		TotalTransferred:  overview.TotalTransferred,
		Volume:            chart.Series(overview.Volume, chart.SourceTotal),
		Truncated:         overview.Truncated,
	})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		all, err := s.settings.All(r.Context())
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		if all == nil {
			all = []settings.Setting{}
		}
		writeJSON(w, http.StatusOK, all)

	case http.MethodPut, http.MethodPost:
		var st settings.Setting
		if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.settings.Put(r.Context(), st); err != nil {
			if errors.Is(err, settings.ErrEmptyKey) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			s.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, st)

	case http.MethodDelete:
		key := r.URL.Query().Get("key")
		if key == "" {
			writeError(w, http.StatusBadRequest, "missing key")
			return
		}
		if err := s.settings.Delete(r.Context(), key); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleEnqueueExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.publisher == nil {
		writeError(w, http.StatusServiceUnavailable, "export queue not configured")
		return
	}

	var req enqueueExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	shape := export.Shape(req.Shape)
	if !shape.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown export shape %q", req.Shape))
		return
	}

	q := core.SearchQuery{Term: req.Term, Type: req.Type, Status: req.Status}
	var err error
	if q.From, err = parseDateParamValue(req.From); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.To, err = parseDateParamValue(req.To); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := q.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := amqp.NewExportJob(shape, q)
	job.Admins = req.Admins
	if err := s.publisher.PublishExportJob(r.Context(), job); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to enqueue export job", log.FieldError, err)
		writeError(w, http.StatusBadGateway, "failed to enqueue export job")
		return
	}
	writeJSON(w, http.StatusAccepted, enqueueExportResponse{JobID: job.ID})
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		s.logger.ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func toTransactionDTO(t core.Transaction) transactionDTO {
	return transactionDTO{
		ID:          t.ID,
		ActorID:     t.ActorID,
		CreatedAt:   t.CreatedAt,
		Type:        t.Type,
		Amount:      t.Amount,
		Status:      t.Status,
		Description: t.Description,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func parseSearchQuery(r *http.Request) (core.SearchQuery, error) {
	q := core.SearchQuery{
		Term:     r.URL.Query().Get("term"),
		Type:     r.URL.Query().Get("type"),
		Status:   r.URL.Query().Get("status"),
		Page:     parseIntParam(r, "page", 0),
		PageSize: parseIntParam(r, "page_size", core.DefaultPageSize),
	}
	var err error
	if q.From, err = parseDateParam(r, "from"); err != nil {
		return core.SearchQuery{}, err
	}
	if q.To, err = parseDateParam(r, "to"); err != nil {
		return core.SearchQuery{}, err
	}
	if err := q.Validate(); err != nil {
		return core.SearchQuery{}, err
	}
	return q, nil
}

func parseActorQuery(r *http.Request) core.ActorQuery {
	return core.ActorQuery{
		Term:       r.URL.Query().Get("term"),
		AdminsOnly: r.URL.Query().Get("admins") == "true",
		Page:       parseIntParam(r, "page", 0),
		PageSize:   parseIntParam(r, "page_size", core.DefaultPageSize),
	}
}

func parseIntParam(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func parseDateParam(r *http.Request, key string) (time.Time, error) {
	return parseDateParamValue(r.URL.Query().Get(key))
}

func parseDateParamValue(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", v)
	}
	return t, nil
}
