package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/homewardlabs/homeward/internal/audit/domain"
	"gorm.io/gorm"
)

type ExportService struct {
	db *gorm.DB
}

func NewExportService(db *gorm.DB) auditdomain.ExportService {
	return &ExportService{db: db}
}

// Export renders the trail for a window as CSV or JSON with a sha256
// checksum over the rendered bytes.
func (s *ExportService) Export(ctx context.Context, req auditdomain.ExportRequest) (*auditdomain.ExportResult, error) {
	query := s.db.WithContext(ctx).Model(&auditdomain.AuditLog{}).
		Where("created_at >= ? AND created_at < ?", req.StartDate, req.EndDate)

	if req.HouseholdID != nil {
		query = query.Where("household_id = ?", *req.HouseholdID)
	}
	if len(req.Actions) > 0 {
		query = query.Where("action IN ?", req.Actions)
	}

	var entries []auditdomain.AuditLog
	if err := query.Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, err
	}

	var data []byte
	var err error
	switch req.Format {
	case auditdomain.ExportFormatCSV:
		data, err = formatCSV(entries)
	case auditdomain.ExportFormatJSON:
		data, err = formatJSON(entries)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", req.Format)
	}
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(data)
	return &auditdomain.ExportResult{
		Data:     data,
		Checksum: hex.EncodeToString(hash[:]),
		Format:   req.Format,
		Count:    len(entries),
	}, nil
}

func formatCSV(entries []auditdomain.AuditLog) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"timestamp",
		"household_id",
		"actor_type",
		"actor_id",
		"action",
		"target_type",
		"target_id",
		"ip_address",
		"user_agent",
		"metadata",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, entry := range entries {
		metadataJSON, _ := json.Marshal(entry.Metadata)
		row := []string{
			entry.CreatedAt.Format(time.RFC3339),
			formatSnowflakeID(entry.HouseholdID),
			entry.ActorType,
			formatStringPtr(entry.ActorID),
			entry.Action,
			entry.TargetType,
			formatStringPtr(entry.TargetID),
			formatStringPtr(entry.IPAddress),
			formatStringPtr(entry.UserAgent),
			string(metadataJSON),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatJSON(entries []auditdomain.AuditLog) ([]byte, error) {
	type record struct {
		Timestamp   string         `json:"timestamp"`
		HouseholdID string         `json:"household_id,omitempty"`
		ActorType   string         `json:"actor_type"`
		ActorID     string         `json:"actor_id,omitempty"`
		Action      string         `json:"action"`
		TargetType  string         `json:"target_type,omitempty"`
		TargetID    string         `json:"target_id,omitempty"`
		IPAddress   string         `json:"ip_address,omitempty"`
		UserAgent   string         `json:"user_agent,omitempty"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}

	records := make([]record, 0, len(entries))
	for _, entry := range entries {
		records = append(records, record{
			Timestamp:   entry.CreatedAt.Format(time.RFC3339),
			HouseholdID: formatSnowflakeID(entry.HouseholdID),
			ActorType:   entry.ActorType,
			ActorID:     formatStringPtr(entry.ActorID),
			Action:      entry.Action,
			TargetType:  entry.TargetType,
			TargetID:    formatStringPtr(entry.TargetID),
			IPAddress:   formatStringPtr(entry.IPAddress),
			UserAgent:   formatStringPtr(entry.UserAgent),
			Metadata:    entry.Metadata,
		})
	}
	return json.MarshalIndent(records, "", "  ")
}

func formatSnowflakeID(id *snowflake.ID) string {
	if id == nil || *id == 0 {
		return ""
	}
	return id.String()
}

func formatStringPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
