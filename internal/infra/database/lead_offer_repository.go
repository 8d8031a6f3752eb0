package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/converzia/lead-ingest/internal/entity"
)

type LeadOfferRepository struct {
	DB *sql.DB
}

func NewLeadOfferRepository(db *sql.DB) *LeadOfferRepository {
	return &LeadOfferRepository{DB: db}
}

func (r *LeadOfferRepository) Upsert(ctx context.Context, offer *entity.LeadOffer) error {
	query := `
		INSERT INTO lead_offers (lead_id, tenant_id, offer_id, status, prefill, trace_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (lead_id, tenant_id, offer_id) WHERE offer_id IS NOT NULL
		DO UPDATE SET
			prefill    = COALESCE(EXCLUDED.prefill, lead_offers.prefill),
			updated_at = NOW()
		RETURNING id, status, created_at, updated_at
	`

	return r.DB.QueryRowContext(
		ctx,
		query,
		offer.LeadID,
		offer.TenantID,
		offer.OfferID,
		offer.Status,
		nullBytes(offer.Prefill),
		nullString(offer.TraceID),
	).Scan(
		&offer.ID,
		&offer.Status,
		&offer.CreatedAt,
		&offer.UpdatedAt,
	)
}

// FindPendingPlaceholder acha o placeholder sem oferta do par
// (lead, tenant). nil, nil = não existe (não é erro).
func (r *LeadOfferRepository) FindPendingPlaceholder(ctx context.Context, leadID, tenantID string) (*entity.LeadOffer, error) {
	query := `
		SELECT id, lead_id, tenant_id, status, COALESCE(trace_id, ''), created_at, updated_at
		FROM lead_offers
		WHERE lead_id = $1 AND tenant_id = $2 AND offer_id IS NULL AND status = $3
		LIMIT 1
	`

	var offer entity.LeadOffer
	err := r.DB.QueryRowContext(ctx, query, leadID, tenantID, entity.StatusPendingMapping).Scan(
		&offer.ID,
		&offer.LeadID,
		&offer.TenantID,
		&offer.Status,
		&offer.TraceID,
		&offer.CreatedAt,
		&offer.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &offer, nil
}

func (r *LeadOfferRepository) Create(ctx context.Context, offer *entity.LeadOffer) error {
	query := `
		INSERT INTO lead_offers (lead_id, tenant_id, offer_id, status, prefill, trace_id)
		VALUES ($1, $2, NULL, $3, $4, $5)
		ON CONFLICT (lead_id, tenant_id) WHERE offer_id IS NULL
		DO UPDATE SET updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	// O índice único parcial garante um placeholder só por (lead, tenant)
	// mesmo com duas entregas simultâneas de anúncios não mapeados
	return r.DB.QueryRowContext(
		ctx,
		query,
		offer.LeadID,
		offer.TenantID,
		offer.Status,
		nullBytes(offer.Prefill),
		nullString(offer.TraceID),
	).Scan(
		&offer.ID,
		&offer.CreatedAt,
		&offer.UpdatedAt,
	)
}
