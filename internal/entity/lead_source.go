package entity

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var ErrLeadgenIDRequired = errors.New("lead source sem leadgen_id")

const PlatformMeta = "META"

// LeadSource registra um envio específico da plataforma de anúncios.
// Invariante: exatamente uma linha por (tenant_id, leadgen_id) — o
// leadgen_id é a chave de idempotência das reentregas do webhook.
type LeadSource struct {
	ID         string          `json:"id"`
	TenantID   string          `json:"tenant_id"`
	LeadID     string          `json:"lead_id"`
	LeadgenID  string          `json:"leadgen_id"`
	Platform   string          `json:"platform"`
	AdID       string          `json:"ad_id,omitempty"`
	AdsetID    string          `json:"adset_id,omitempty"`
	CampaignID string          `json:"campaign_id,omitempty"`
	FormID     string          `json:"form_id,omitempty"`
	PageID     string          `json:"page_id,omitempty"`
	RawFields  json.RawMessage `json:"raw_fields,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func NewLeadSource(tenantID, leadID, leadgenID string) (*LeadSource, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, errors.New("lead source sem tenant_id")
	}
	if strings.TrimSpace(leadgenID) == "" {
		return nil, ErrLeadgenIDRequired
	}

	return &LeadSource{
		TenantID:  tenantID,
		LeadID:    leadID,
		LeadgenID: leadgenID,
		Platform:  PlatformMeta,
	}, nil
}

type LeadSourceRepositoryInterface interface {

	// UpsertReturningCreated é a primitiva atômica de idempotência: uma
	// única instrução no banco que devolve o ID e se a linha foi criada
	// agora. Reentregas concorrentes do mesmo leadgen_id enxergam
	// created=false e devem pular todos os efeitos colaterais seguintes.
	UpsertReturningCreated(ctx context.Context, src *LeadSource) (created bool, err error)
}
