package entity

import (
	"context"
	"encoding/json"
	"time"
)

// Estados do funil cobertos pela ingestão. Os estados seguintes
// pertencem ao subsistema de conversação.
const (
	StatusToBeContacted  = "TO_BE_CONTACTED"
	StatusPendingMapping = "PENDING_MAPPING"
)

// LeadOffer é a instância de pipeline do lead dentro de um tenant.
// OfferID vazio = placeholder aguardando mapeamento manual do anúncio.
type LeadOffer struct {
	ID        string          `json:"id"`
	LeadID    string          `json:"lead_id"`
	TenantID  string          `json:"tenant_id"`
	OfferID   string          `json:"offer_id,omitempty"`
	Status    string          `json:"status"`
	Prefill   json.RawMessage `json:"prefill,omitempty"` // dados de qualificação extraídos do formulário
	TraceID   string          `json:"trace_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type LeadOfferRepositoryInterface interface {

	// Upsert por (lead_id, tenant_id, offer_id). Preenche ID no retorno.
	Upsert(ctx context.Context, offer *LeadOffer) error

	// FindPendingPlaceholder busca o placeholder sem offer do par
	// (lead, tenant). Retorna nil, nil quando não existe.
	FindPendingPlaceholder(ctx context.Context, leadID, tenantID string) (*LeadOffer, error)

	Create(ctx context.Context, offer *LeadOffer) error
}
