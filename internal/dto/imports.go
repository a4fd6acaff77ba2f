package dto

import "fmt"

// ImportStatus classifies a finished import for the HTTP layer.
type ImportStatus string

const (
	ImportSuccess ImportStatus = "success"
	ImportWarning ImportStatus = "warning"
	ImportError   ImportStatus = "error"
)

// ImportResult is the outcome of one bulk import.
type ImportResult struct {
	ImportedCount      int      `json:"imported_count"`
	Errors             []string `json:"errors"`
	TotalRowsProcessed int      `json:"total_rows_processed"`
}

// Status derives the overall outcome.
func (r ImportResult) Status() ImportStatus {
	switch {
	case r.ImportedCount == 0:
		return ImportError
	case len(r.Errors) > 0:
		return ImportWarning
	default:
		return ImportSuccess
	}
}

// ReportedErrors caps the error list at limit and appends a remainder note.
func (r ImportResult) ReportedErrors(limit int) []string {
	if limit <= 0 || len(r.Errors) <= limit {
		return r.Errors
	}
	out := append([]string{}, r.Errors[:limit]...)
	return append(out, fmt.Sprintf("... and %d more errors", len(r.Errors)-limit))
}

// PhotoBatchResult is the outcome of a ZIP photo upload.
type PhotoBatchResult struct {
	SuccessCount int      `json:"success_count"`
	ErrorCount   int      `json:"error_count"`
	Errors       []string `json:"errors"`
}
