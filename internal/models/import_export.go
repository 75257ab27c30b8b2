package models

// ImportSummary is returned by a text import.
type ImportSummary struct {
	CreatedIDs []uint        `json:"created_ids"`
	Errors     []ImportError `json:"errors"`
	Total      int           `json:"total"`
}

// ImportError is the wire form of a per-question parse failure.
type ImportError struct {
	Line          int    `json:"line"`
	QuestionIndex int    `json:"question_index"`
	Message       string `json:"message"`
}

type ExportFormat string

const (
	ExportFormatExcel ExportFormat = "xlsx"
)
