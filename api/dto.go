/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract; decimals are
  serialized as fixed-point strings so clients never see float artifacts.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Response wrappers around lists

VALIDATION:
  Validation is done in handlers and the audit service, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - audit/types.go: IngestRequest/IngestResult are the wire format for
    audit ingestion and are used directly
*/
package api

import (
	"github.com/warp/payroll-engine/audit"
	"github.com/warp/payroll-engine/recon"
)

// =============================================================================
// COMPARISON EXPORT
// =============================================================================

// ComparisonRowDTO is one reconciliation row in API responses.
type ComparisonRowDTO struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Computed   string `json:"computed"`
	Reported   string `json:"reported"`
	Difference string `json:"difference"`
	Status     string `json:"status"`
}

// ComparisonsResponse wraps the full export, in identity order.
type ComparisonsResponse struct {
	Rows  []ComparisonRowDTO `json:"rows"`
	Count int                `json:"count"`
}

func toComparisonDTO(row recon.ComparisonRow) ComparisonRowDTO {
	return ComparisonRowDTO{
		ID:         int64(row.ID),
		Name:       row.Name,
		Department: row.Department,
		Computed:   row.Computed.StringFixed(2),
		Reported:   row.Reported.StringFixed(2),
		Difference: row.Difference.StringFixed(2),
		Status:     string(row.Status),
	}
}

// =============================================================================
// AUDIT RESPONSES
// =============================================================================

// MessagesResponse wraps a flat audit listing.
type MessagesResponse struct {
	Messages []audit.Message `json:"messages"`
}

// GroupsResponse wraps a grouped audit listing.
type GroupsResponse struct {
	Groups []audit.Group `json:"groups"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// RUN TRIGGER
// =============================================================================

// SheetDTO is one named sheet of raw string cells, as produced by the
// upstream workbook reader.
type SheetDTO struct {
	Name string     `json:"name"`
	Rows [][]string `json:"rows"`
}

// RunRequest carries one reconciliation run's source datasets.
type RunRequest struct {
	StaffSheets   []SheetDTO `json:"staff_sheets"`
	WorkerSheets  []SheetDTO `json:"worker_sheets,omitempty"`
	ReportedSheet *SheetDTO  `json:"reported_sheet"`
	ReimSheet     *SheetDTO  `json:"reim_sheet,omitempty"`
}

// RunResponse summarizes a finished run.
type RunResponse struct {
	BatchID    string `json:"batch_id"`
	Rows       int    `json:"rows"`
	Matches    int    `json:"matches"`
	Mismatches int    `json:"mismatches"`
	ReimRows   int    `json:"reim_rows"`
}
