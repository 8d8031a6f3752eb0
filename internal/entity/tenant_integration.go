package entity

import (
	"context"
	"time"
)

const IntegrationMetaLeadAds = "META_LEAD_ADS"

// TenantIntegration guarda a configuração da integração Meta do tenant,
// incluindo o page access token gerenciado por OAuth — primeiro elo da
// cadeia de credenciais para buscar os dados do lead na Graph API.
type TenantIntegration struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenant_id"`
	Type            string     `json:"type"`
	PageID          string     `json:"page_id,omitempty"`
	PageAccessToken string     `json:"-"`
	Active          bool       `json:"active"`
	TokenExpiresAt  *time.Time `json:"token_expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type TenantIntegrationRepositoryInterface interface {

	// FindActiveByTenant retorna nil, nil quando o tenant não tem
	// integração Meta ativa configurada.
	FindActiveByTenant(ctx context.Context, tenantID string) (*TenantIntegration, error)
}
