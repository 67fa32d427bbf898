/*
handlers.go - HTTP API handlers for the reconciliation service

PURPOSE:
  Exposes the audit trail and the comparison export via REST. Handles
  HTTP request/response and JSON serialization, delegating everything
  else to the audit service and the stored run result.

ENDPOINTS:
  Audit:
    POST   /api/audit/ingest     Ingest a batch of diagnostic messages
    GET    /api/audit/messages   Flat or grouped listing
                                 query: step, limit (<= 2000), grouped

  Comparisons:
    GET    /api/comparisons      Full comparison export, identity order

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors (audit ingest rejection, bad query params)
  - 500: Internal errors

SECURITY NOTE:
  No authentication middleware. The service is expected to run behind
  the organization's internal gateway.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/warp/payroll-engine/audit"
	"github.com/warp/payroll-engine/pipeline"
	"github.com/warp/payroll-engine/recon"
	"github.com/warp/payroll-engine/source"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Auditor *audit.Service
	Runner  *pipeline.Runner

	mu          sync.RWMutex
	comparisons []recon.ComparisonRow
}

// NewHandler creates a new handler over the audit service and runner.
// Runner may be nil when the deployment only serves the audit trail.
func NewHandler(auditor *audit.Service, runner *pipeline.Runner) *Handler {
	return &Handler{Auditor: auditor, Runner: runner}
}

// SetComparisons publishes the latest run's rows for export. Rows arrive
// already sorted by identity from the comparator.
func (h *Handler) SetComparisons(rows []recon.ComparisonRow) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.comparisons = rows
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// IngestAudit accepts one atomic batch of diagnostic messages.
func (h *Handler) IngestAudit(w http.ResponseWriter, r *http.Request) {
	var req audit.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Auditor.Ingest(r.Context(), req)
	if err != nil {
		var vErr *audit.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, "Ingest rejected", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to persist audit messages", err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ListAudit returns a flat or grouped listing of audit messages.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	filter, grouped, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	if grouped {
		groups, err := h.Auditor.ListGrouped(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list audit groups", err)
			return
		}
		if groups == nil {
			groups = []audit.Group{}
		}
		writeJSON(w, http.StatusOK, GroupsResponse{Groups: groups})
		return
	}

	messages, err := h.Auditor.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list audit messages", err)
		return
	}
	if messages == nil {
		messages = []audit.Message{}
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Messages: messages})
}

func parseListQuery(r *http.Request) (audit.Filter, bool, error) {
	var filter audit.Filter

	if raw := r.URL.Query().Get("step"); raw != "" {
		step, err := strconv.Atoi(raw)
		if err != nil {
			return filter, false, err
		}
		filter.Step = &step
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filter, false, err
		}
		filter.Limit = limit
	}
	grouped := r.URL.Query().Get("grouped") == "true"
	return filter, grouped, nil
}

// =============================================================================
// COMPARISON EXPORT
// =============================================================================

// ListComparisons returns the full comparison export in identity order.
func (h *Handler) ListComparisons(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	rows := h.comparisons
	h.mu.RUnlock()

	dtos := make([]ComparisonRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toComparisonDTO(row)
	}
	writeJSON(w, http.StatusOK, ComparisonsResponse{Rows: dtos, Count: len(dtos)})
}

// =============================================================================
// RUN TRIGGER
// =============================================================================

// TriggerRun executes one reconciliation run over the posted sheet grids
// and publishes the resulting comparison rows for export. Fatal run
// errors (missing sources, misconfiguration) map to 400; no rows are
// published on failure.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if h.Runner == nil {
		writeError(w, http.StatusServiceUnavailable, "Run trigger not configured", nil)
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	input := pipeline.Input{
		StaffSheets:  toSheets(req.StaffSheets),
		WorkerSheets: toSheets(req.WorkerSheets),
	}
	if req.ReportedSheet != nil {
		s := source.Sheet{Name: req.ReportedSheet.Name, Rows: req.ReportedSheet.Rows}
		input.ReportedSheet = &s
	}
	if req.ReimSheet != nil {
		s := source.Sheet{Name: req.ReimSheet.Name, Rows: req.ReimSheet.Rows}
		input.ReimSheet = &s
	}

	result, err := h.Runner.Run(r.Context(), input)
	if err != nil {
		if errors.Is(err, recon.ErrSourceMissing) || recon.IsConfigError(err) {
			writeError(w, http.StatusBadRequest, "Run rejected", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Run failed", err)
		return
	}

	h.SetComparisons(result.Rows)

	matches := 0
	for _, row := range result.Rows {
		if row.Status == recon.StatusMatch {
			matches++
		}
	}
	writeJSON(w, http.StatusOK, RunResponse{
		BatchID:    result.BatchID,
		Rows:       len(result.Rows),
		Matches:    matches,
		Mismatches: len(result.Rows) - matches,
		ReimRows:   len(result.ReimRows),
	})
}

func toSheets(dtos []SheetDTO) []source.Sheet {
	sheets := make([]source.Sheet, len(dtos))
	for i, dto := range dtos {
		sheets[i] = source.Sheet{Name: dto.Name, Rows: dto.Rows}
	}
	return sheets
}

// =============================================================================
// JSON HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
