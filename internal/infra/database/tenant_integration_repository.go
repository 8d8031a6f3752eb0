package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/converzia/lead-ingest/internal/entity"
)

type TenantIntegrationRepository struct {
	DB *sql.DB
}

func NewTenantIntegrationRepository(db *sql.DB) *TenantIntegrationRepository {
	return &TenantIntegrationRepository{DB: db}
}

func (r *TenantIntegrationRepository) FindActiveByTenant(ctx context.Context, tenantID string) (*entity.TenantIntegration, error) {
	query := `
		SELECT id, tenant_id, type, COALESCE(page_id, ''), COALESCE(page_access_token, ''),
		       active, token_expires_at, created_at, updated_at
		FROM tenant_integrations
		WHERE tenant_id = $1 AND type = $2 AND active = TRUE
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var ti entity.TenantIntegration
	err := r.DB.QueryRowContext(ctx, query, tenantID, entity.IntegrationMetaLeadAds).Scan(
		&ti.ID,
		&ti.TenantID,
		&ti.Type,
		&ti.PageID,
		&ti.PageAccessToken,
		&ti.Active,
		&ti.TokenExpiresAt,
		&ti.CreatedAt,
		&ti.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &ti, nil
}
