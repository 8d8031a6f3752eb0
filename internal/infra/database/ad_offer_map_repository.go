package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/converzia/lead-ingest/internal/entity"
)

type AdOfferMapRepository struct {
	DB *sql.DB
}

func NewAdOfferMapRepository(db *sql.DB) *AdOfferMapRepository {
	return &AdOfferMapRepository{DB: db}
}

func (r *AdOfferMapRepository) FindByAdID(ctx context.Context, adID string) (*entity.AdOfferMap, error) {
	query := `
		SELECT id, ad_id, tenant_id, COALESCE(offer_id::text, ''), active,
		       COALESCE(legacy_access_token, ''), created_at
		FROM ad_offer_map
		WHERE ad_id = $1
	`

	var m entity.AdOfferMap
	err := r.DB.QueryRowContext(ctx, query, adID).Scan(
		&m.ID,
		&m.AdID,
		&m.TenantID,
		&m.OfferID,
		&m.Active,
		&m.LegacyAccessToken,
		&m.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}
