package database

import (
	"context"
	"database/sql"

	"github.com/converzia/lead-ingest/internal/entity"
)

type LeadEventRepository struct {
	DB *sql.DB
}

func NewLeadEventRepository(db *sql.DB) *LeadEventRepository {
	return &LeadEventRepository{DB: db}
}

// Append: trilha de auditoria é só INSERT, nunca UPDATE
func (r *LeadEventRepository) Append(ctx context.Context, event *entity.LeadEvent) error {
	query := `
		INSERT INTO lead_events (lead_id, tenant_id, event_type, trace_id, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	return r.DB.QueryRowContext(
		ctx,
		query,
		event.LeadID,
		event.TenantID,
		event.Type,
		event.TraceID,
		nullBytes(event.Data),
	).Scan(
		&event.ID,
		&event.CreatedAt,
	)
}
