package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ExportFormat is the serialization of an audit trail export.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)

// ExportRequest selects the window and shape of an audit export. A nil
// HouseholdID exports across all households.
type ExportRequest struct {
	HouseholdID *snowflake.ID
	StartDate   time.Time
	EndDate     time.Time
	Format      ExportFormat
	Actions     []string
}

// ExportResult carries the rendered export plus a content checksum so
// downloads can be verified end to end.
type ExportResult struct {
	Data     []byte
	Checksum string
	Format   ExportFormat
	Count    int
}

type ExportService interface {
	Export(ctx context.Context, req ExportRequest) (*ExportResult, error)
}
