package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/converzia/lead-ingest/internal/entity"
	"github.com/converzia/lead-ingest/internal/infra/integration/meta"
	"github.com/converzia/lead-ingest/internal/infra/queue"
)

const OriginWebhookMeta = "WEBHOOK_META"

type IngestLeadUseCase struct {
	AdMapRepo       entity.AdOfferMapRepositoryInterface
	IntegrationRepo entity.TenantIntegrationRepositoryInterface
	LeadRepo        entity.LeadRepositoryInterface
	SourceRepo      entity.LeadSourceRepositoryInterface
	OfferRepo       entity.LeadOfferRepositoryInterface
	EventRepo       entity.LeadEventRepositoryInterface

	Fetcher LeadFetcher
	PII     PIIEncryptor
	Queue   queue.QueueProducerInterface
	Alerts  AlertService // opcional; nil desliga os emails de operação

	// Último elo da cadeia de credenciais (META_ACCESS_TOKEN)
	FallbackToken string

	// Prefixo aplicado a telefones em formato nacional (ex: "+34")
	DefaultDialPrefix string
}

func NewIngestLeadUseCase(
	adMapRepo entity.AdOfferMapRepositoryInterface,
	integrationRepo entity.TenantIntegrationRepositoryInterface,
	leadRepo entity.LeadRepositoryInterface,
	sourceRepo entity.LeadSourceRepositoryInterface,
	offerRepo entity.LeadOfferRepositoryInterface,
	eventRepo entity.LeadEventRepositoryInterface,
	fetcher LeadFetcher,
	pii PIIEncryptor,
	producer queue.QueueProducerInterface,
	alerts AlertService,
	fallbackToken string,
	defaultDialPrefix string,
) *IngestLeadUseCase {
	if defaultDialPrefix == "" {
		defaultDialPrefix = "+34"
	}
	return &IngestLeadUseCase{
		AdMapRepo:         adMapRepo,
		IntegrationRepo:   integrationRepo,
		LeadRepo:          leadRepo,
		SourceRepo:        sourceRepo,
		OfferRepo:         offerRepo,
		EventRepo:         eventRepo,
		Fetcher:           fetcher,
		PII:               pii,
		Queue:             producer,
		Alerts:            alerts,
		FallbackToken:     fallbackToken,
		DefaultDialPrefix: defaultDialPrefix,
	}
}

// Execute processa uma entrada leadgen do webhook do começo ao fim.
// Toda a corrente é idempotente: a reentrega do mesmo leadgen_id para o
// mesmo tenant curto-circuita depois do upsert do LeadSource.
func (uc *IngestLeadUseCase) Execute(ctx context.Context, input IngestChangeInput) (*IngestResult, error) {

	// 1. Resolver o mapeamento do anúncio. Sem ele não sabemos nem o
	// tenant, então a entrada é pulada (erro de processamento, não 4xx).
	adMap, err := uc.AdMapRepo.FindByAdID(ctx, input.AdID)
	if err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "falha ao buscar ad mapping: " + err.Error()}
	}
	if adMap == nil {
		return nil, &DomainError{
			Code:    "AD_NOT_MAPPED",
			Message: fmt.Sprintf("ad_id %s desconhecido, sem tenant para atribuir", input.AdID),
		}
	}

	// 2. Cadeia de credenciais: token OAuth da integração → token
	// estático legado do mapeamento → variável de ambiente
	token, err := uc.resolveAccessToken(ctx, adMap)
	if err != nil {
		return nil, err
	}

	// 3. Buscar os campos completos na Graph API
	detail, err := uc.Fetcher.FetchLead(ctx, input.LeadgenID, token)
	if err != nil {
		return nil, &TechnicalError{Code: "FETCH_FAILED", Message: "graph api: " + err.Error()}
	}

	fields := extractFields(detail)

	// 4. Normalizar e validar o telefone ANTES de qualquer escrita
	phone := NormalizePhone(fields.Phone, uc.DefaultDialPrefix)
	lead, err := entity.NewLead(phone, fields.Email, fields.FirstName, fields.LastName, fields.Country)
	if err != nil {
		return nil, &DomainError{
			Code:    "INVALID_PHONE",
			Message: fmt.Sprintf("leadgen %s: %v", input.LeadgenID, err),
		}
	}

	// 5. Upsert do Lead (chave natural = telefone)
	if err := uc.LeadRepo.Upsert(ctx, lead); err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "falha no upsert do lead: " + err.Error()}
	}

	// 6. Upsert atômico do LeadSource — a trava de idempotência
	source, err := entity.NewLeadSource(adMap.TenantID, lead.ID, input.LeadgenID)
	if err != nil {
		return nil, &DomainError{Code: "INVALID_SOURCE", Message: err.Error()}
	}
	source.AdID = input.AdID
	source.AdsetID = detail.AdsetID
	source.CampaignID = detail.CampaignID
	source.FormID = input.FormID
	source.PageID = input.PageID
	source.RawFields = rawFieldsJSON(detail)

	created, err := uc.SourceRepo.UpsertReturningCreated(ctx, source)
	if err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "falha no upsert do lead source: " + err.Error()}
	}

	result := &IngestResult{
		LeadID:   lead.ID,
		TenantID: adMap.TenantID,
		Mapped:   adMap.Mapped(),
	}

	if !created {
		// Reentrega do webhook. Não é erro: pula os efeitos seguintes
		// para manter at-most-once no downstream.
		log.Printf("ℹ️ Reentrega ignorada: leadgen %s já processado para tenant %s",
			input.LeadgenID, adMap.TenantID)
		result.Duplicate = true
		return result, nil
	}

	traceID := uuid.New().String()
	result.TraceID = traceID

	prefill, piiDropped := uc.buildPrefill(fields)
	result.PIIDropped = piiDropped

	// 7. Ramo da oferta
	if adMap.Mapped() {
		offer := &entity.LeadOffer{
			LeadID:   lead.ID,
			TenantID: adMap.TenantID,
			OfferID:  adMap.OfferID,
			Status:   entity.StatusToBeContacted,
			Prefill:  prefill,
			TraceID:  traceID,
		}
		if err := uc.OfferRepo.Upsert(ctx, offer); err != nil {
			return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "falha no upsert do lead offer: " + err.Error()}
		}
		result.LeadOfferID = offer.ID

		uc.appendEvent(ctx, lead.ID, adMap.TenantID, entity.EventLeadCreated, traceID, input)

		// 8. Gatilho de conversa via outbox. Falha aqui é crítica mas
		// não desfaz a ingestão: o lead já está persistido.
		payload := queue.ConversationPayload{
			LeadOfferID: offer.ID,
			LeadID:      lead.ID,
			TenantID:    adMap.TenantID,
			OfferID:     adMap.OfferID,
			TraceID:     traceID,
			Name:        fields.FirstName,
			Phone:       lead.Phone,
			Origin:      OriginWebhookMeta,
		}
		if err := uc.Queue.PublishConversationStart(ctx, payload); err != nil {
			log.Printf("⚠️ CRITICAL: lead %s persistido mas falha na fila de conversa: %v", lead.ID, err)
		}

		return result, nil
	}

	// Anúncio conhecido mas sem oferta ativa: reusar (ou criar) o
	// placeholder único por (lead, tenant) aguardando mapeamento manual
	existing, err := uc.OfferRepo.FindPendingPlaceholder(ctx, lead.ID, adMap.TenantID)
	if err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "falha ao buscar placeholder: " + err.Error()}
	}

	if existing != nil {
		log.Printf("ℹ️ Placeholder reutilizado para lead %s no tenant %s", lead.ID, adMap.TenantID)
		result.LeadOfferID = existing.ID
		return result, nil
	}

	placeholder := &entity.LeadOffer{
		LeadID:   lead.ID,
		TenantID: adMap.TenantID,
		Status:   entity.StatusPendingMapping,
		Prefill:  prefill,
		TraceID:  traceID,
	}
	if err := uc.OfferRepo.Create(ctx, placeholder); err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "falha ao criar placeholder: " + err.Error()}
	}
	result.LeadOfferID = placeholder.ID

	uc.appendEvent(ctx, lead.ID, adMap.TenantID, entity.EventPendingMapping, traceID, input)

	// Melhor esforço: email nunca bloqueia a ingestão
	if uc.Alerts != nil {
		go func(tenantID, adID, offerID string) {
			if err := uc.Alerts.SendMappingAlert(tenantID, adID, offerID); err != nil {
				log.Printf("⚠️ Falha no email de alerta de mapeamento: %v", err)
			}
		}(adMap.TenantID, input.AdID, placeholder.ID)
	}

	return result, nil
}

func (uc *IngestLeadUseCase) resolveAccessToken(ctx context.Context, adMap *entity.AdOfferMap) (string, error) {
	integration, err := uc.IntegrationRepo.FindActiveByTenant(ctx, adMap.TenantID)
	if err != nil {
		return "", &TechnicalError{Code: "DATABASE_ERROR", Message: "falha ao buscar integração: " + err.Error()}
	}

	if integration != nil && integration.PageAccessToken != "" {
		return integration.PageAccessToken, nil
	}
	if adMap.LegacyAccessToken != "" {
		return adMap.LegacyAccessToken, nil
	}
	if uc.FallbackToken != "" {
		return uc.FallbackToken, nil
	}

	// Condição operacional permanente (não transiente): logamos e o
	// handler ainda responde 200 para não gerar tempestade de retries.
	return "", &DomainError{
		Code:    "NO_ACCESS_TOKEN",
		Message: fmt.Sprintf("nenhuma credencial Meta disponível para o tenant %s", adMap.TenantID),
	}
}

// extractedFields é o registro canônico tirado do field_data do formulário
type extractedFields struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Country   string
	DNI       string
	Custom    map[string]string // respostas de qualificação do formulário
}

func extractFields(detail *meta.LeadDetail) extractedFields {
	out := extractedFields{Custom: make(map[string]string)}

	for _, f := range detail.FieldData {
		value := f.First()
		if value == "" {
			continue
		}

		switch f.Name {
		case meta.FieldFullName:
			out.FirstName, out.LastName = splitFullName(value)
		case meta.FieldFirstName:
			out.FirstName = value
		case meta.FieldLastName:
			out.LastName = value
		case meta.FieldEmail:
			out.Email = value
		case meta.FieldPhoneNumber:
			out.Phone = value
		case "country", "country_code":
			out.Country = value
		case meta.FieldDNI, meta.FieldIDNumber:
			out.DNI = value
		default:
			out.Custom[f.Name] = value
		}
	}

	return out
}

func splitFullName(full string) (first, last string) {
	for i := 0; i < len(full); i++ {
		if full[i] == ' ' {
			return full[:i], full[i+1:]
		}
	}
	return full, ""
}

// buildPrefill monta o JSON de qualificação. O DNI só entra cifrado;
// sem chave configurada o campo é descartado (fail-safe, nunca em claro).
func (uc *IngestLeadUseCase) buildPrefill(fields extractedFields) (json.RawMessage, bool) {
	data := make(map[string]string, len(fields.Custom)+1)
	for k, v := range fields.Custom {
		data[k] = v
	}

	dropped := false
	if fields.DNI != "" {
		if uc.PII != nil && uc.PII.Enabled() {
			if enc, err := uc.PII.Encrypt(fields.DNI); err == nil {
				data["dni_encrypted"] = enc
			} else {
				log.Printf("⚠️ Falha ao cifrar DNI, campo descartado: %v", err)
				dropped = true
			}
		} else {
			log.Printf("⚠️ PII_ENCRYPTION_KEY ausente: DNI descartado em vez de gravado em claro")
			dropped = true
		}
	}

	if len(data) == 0 {
		return nil, dropped
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, dropped
	}
	return raw, dropped
}

// rawFieldsJSON guarda o payload bruto do formulário no LeadSource,
// menos os campos de documento — esses só existem cifrados no prefill.
func rawFieldsJSON(detail *meta.LeadDetail) json.RawMessage {
	fields := make([]meta.Field, 0, len(detail.FieldData))
	for _, f := range detail.FieldData {
		if f.Name == meta.FieldDNI || f.Name == meta.FieldIDNumber {
			continue
		}
		fields = append(fields, f)
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return raw
}

func (uc *IngestLeadUseCase) appendEvent(ctx context.Context, leadID, tenantID, eventType, traceID string, input IngestChangeInput) {
	data, _ := json.Marshal(map[string]string{
		"leadgen_id": input.LeadgenID,
		"ad_id":      input.AdID,
		"form_id":    input.FormID,
	})

	event := &entity.LeadEvent{
		LeadID:   leadID,
		TenantID: tenantID,
		Type:     eventType,
		TraceID:  traceID,
		Data:     data,
	}

	// Auditoria não derruba a ingestão
	if err := uc.EventRepo.Append(ctx, event); err != nil {
		log.Printf("⚠️ Falha ao gravar lead event (trace %s): %v", traceID, err)
	}
}
