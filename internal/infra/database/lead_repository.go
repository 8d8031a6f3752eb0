package database

import (
	"context"
	"database/sql"

	"github.com/converzia/lead-ingest/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

func (r *LeadRepository) Upsert(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO leads (phone, email, first_name, last_name, country_code, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (phone)
		DO UPDATE SET
			email        = COALESCE(NULLIF(EXCLUDED.email, ''), leads.email),
			first_name   = COALESCE(NULLIF(EXCLUDED.first_name, ''), leads.first_name),
			last_name    = COALESCE(NULLIF(EXCLUDED.last_name, ''), leads.last_name),
			country_code = COALESCE(NULLIF(EXCLUDED.country_code, ''), leads.country_code),
			updated_at   = NOW()
		RETURNING id, created_at, updated_at
	`

	return r.DB.QueryRowContext(
		ctx,
		query,
		lead.Phone,
		nullString(lead.Email),
		nullString(lead.FirstName),
		nullString(lead.LastName),
		nullString(lead.CountryCode),
	).Scan(
		&lead.ID,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
