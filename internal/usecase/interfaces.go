package usecase

import (
	"context"

	"github.com/converzia/lead-ingest/internal/infra/integration/meta"
)

// LeadFetcher busca os dados completos do lead na Graph API
type LeadFetcher interface {
	FetchLead(ctx context.Context, leadgenID, accessToken string) (*meta.LeadDetail, error)
}

// PIIEncryptor é o guard de campos de documento de identidade
type PIIEncryptor interface {
	Enabled() bool
	Encrypt(plaintext string) (string, error)
}

// AlertService notifica a operação (email) sobre anúncios sem mapeamento
type AlertService interface {
	SendMappingAlert(tenantID, adID, leadOfferID string) error
}

// IngestChangeInput é uma entrada "leadgen" já extraída do envelope do
// webhook. Cada entrada é processada de forma independente.
type IngestChangeInput struct {
	LeadgenID   string
	AdID        string
	FormID      string
	PageID      string
	CreatedTime int64
}

type IngestResult struct {
	LeadID      string
	LeadOfferID string
	TenantID    string
	TraceID     string

	Duplicate  bool // reentrega do mesmo leadgen_id: efeitos pulados
	Mapped     bool // anúncio apontava para oferta ativa
	PIIDropped bool // campo de documento descartado por falta de chave
}
