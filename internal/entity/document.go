package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is a processed PDF, keyed by the SHA-256 of its content.
type Document struct {
	ID           uuid.UUID  `json:"id"`
	RunID        *uuid.UUID `json:"run_id,omitempty"`
	ContentHash  string     `json:"content_hash"`
	SourcePath   string     `json:"source_path"`
	PDFID        string     `json:"pdf_id"`
	OutputDir    string     `json:"output_dir"`
	PageCount    int        `json:"page_count"`
	TableCount   int        `json:"table_count"`
	UsedOCR      bool       `json:"used_ocr"`
	Method       string     `json:"method"`
	SchemeCount  int        `json:"scheme_count"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
