package entity

import (
	"context"
	"time"
)

// AdOfferMap liga o criativo do anúncio a um (tenant, offer). Mantido
// pelo painel admin; para o webhook é somente leitura.
type AdOfferMap struct {
	ID       string `json:"id"`
	AdID     string `json:"ad_id"`
	TenantID string `json:"tenant_id"`
	OfferID  string `json:"offer_id,omitempty"` // vazio = anúncio ainda sem oferta
	Active   bool   `json:"active"`

	// Token estático legado configurado junto ao mapeamento. Segundo
	// elo da cadeia de credenciais, atrás do token OAuth da integração.
	LegacyAccessToken string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// Mapped diz se o anúncio aponta para uma oferta ativa.
func (m *AdOfferMap) Mapped() bool {
	return m != nil && m.Active && m.OfferID != ""
}

type AdOfferMapRepositoryInterface interface {

	// FindByAdID retorna nil, nil quando o ad_id é desconhecido.
	FindByAdID(ctx context.Context, adID string) (*AdOfferMap, error)
}
