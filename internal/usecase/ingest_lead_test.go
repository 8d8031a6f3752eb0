package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/converzia/lead-ingest/internal/entity"
	"github.com/converzia/lead-ingest/internal/infra/crypto"
	"github.com/converzia/lead-ingest/internal/infra/integration/meta"
	"github.com/converzia/lead-ingest/internal/infra/queue"
)

// Chave de teste: 32 bytes em hex
const testPIIKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// ============ MOCKS ============

type MockAdMapRepo struct{ mock.Mock }

func (m *MockAdMapRepo) FindByAdID(ctx context.Context, adID string) (*entity.AdOfferMap, error) {
	args := m.Called(ctx, adID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AdOfferMap), args.Error(1)
}

type MockIntegrationRepo struct{ mock.Mock }

func (m *MockIntegrationRepo) FindActiveByTenant(ctx context.Context, tenantID string) (*entity.TenantIntegration, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TenantIntegration), args.Error(1)
}

type MockLeadRepo struct{ mock.Mock }

func (m *MockLeadRepo) Upsert(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	lead.ID = "lead-1"
	return args.Error(0)
}

type MockSourceRepo struct{ mock.Mock }

func (m *MockSourceRepo) UpsertReturningCreated(ctx context.Context, src *entity.LeadSource) (bool, error) {
	args := m.Called(ctx, src)
	src.ID = "src-1"
	return args.Bool(0), args.Error(1)
}

type MockOfferRepo struct{ mock.Mock }

func (m *MockOfferRepo) Upsert(ctx context.Context, offer *entity.LeadOffer) error {
	args := m.Called(ctx, offer)
	offer.ID = "offer-1"
	return args.Error(0)
}

func (m *MockOfferRepo) FindPendingPlaceholder(ctx context.Context, leadID, tenantID string) (*entity.LeadOffer, error) {
	args := m.Called(ctx, leadID, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LeadOffer), args.Error(1)
}

func (m *MockOfferRepo) Create(ctx context.Context, offer *entity.LeadOffer) error {
	args := m.Called(ctx, offer)
	offer.ID = "offer-new"
	return args.Error(0)
}

type MockEventRepo struct{ mock.Mock }

func (m *MockEventRepo) Append(ctx context.Context, event *entity.LeadEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockFetcher struct{ mock.Mock }

func (m *MockFetcher) FetchLead(ctx context.Context, leadgenID, accessToken string) (*meta.LeadDetail, error) {
	args := m.Called(ctx, leadgenID, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*meta.LeadDetail), args.Error(1)
}

type MockProducer struct{ mock.Mock }

func (m *MockProducer) PublishConversationStart(ctx context.Context, payload queue.ConversationPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// ============ FIXTURES ============

type ucMocks struct {
	adMap       *MockAdMapRepo
	integration *MockIntegrationRepo
	lead        *MockLeadRepo
	source      *MockSourceRepo
	offer       *MockOfferRepo
	event       *MockEventRepo
	fetcher     *MockFetcher
	producer    *MockProducer
}

func newUseCase(t *testing.T, piiKey string) (*IngestLeadUseCase, *ucMocks) {
	t.Helper()

	guard, err := crypto.NewPIIGuard(piiKey)
	assert.NoError(t, err)

	m := &ucMocks{
		adMap:       new(MockAdMapRepo),
		integration: new(MockIntegrationRepo),
		lead:        new(MockLeadRepo),
		source:      new(MockSourceRepo),
		offer:       new(MockOfferRepo),
		event:       new(MockEventRepo),
		fetcher:     new(MockFetcher),
		producer:    new(MockProducer),
	}

	uc := NewIngestLeadUseCase(
		m.adMap, m.integration,
		m.lead, m.source, m.offer, m.event,
		m.fetcher, guard, m.producer, nil,
		"env-fallback-token",
		"+34",
	)

	return uc, m
}

func mappedAd() *entity.AdOfferMap {
	return &entity.AdOfferMap{
		ID:       "map-1",
		AdID:     "ad-1",
		TenantID: "tenant-1",
		OfferID:  "offer-uuid-1",
		Active:   true,
	}
}

func leadDetail(fields ...meta.Field) *meta.LeadDetail {
	base := []meta.Field{
		{Name: "full_name", Values: []string{"María García"}},
		{Name: "email", Values: []string{"maria@example.com"}},
		{Name: "phone_number", Values: []string{"+34600111222"}},
	}
	return &meta.LeadDetail{
		ID:         "lg-1",
		AdsetID:    "adset-1",
		CampaignID: "camp-1",
		FieldData:  append(base, fields...),
	}
}

func input() IngestChangeInput {
	return IngestChangeInput{LeadgenID: "lg-1", AdID: "ad-1", FormID: "form-1", PageID: "page-1"}
}

// ============ TESTES ============

// TestIngestMappedAd - Fluxo feliz: anúncio mapeado dispara a conversa
func TestIngestMappedAd(t *testing.T) {
	uc, m := newUseCase(t, testPIIKey)

	m.adMap.On("FindByAdID", mock.Anything, "ad-1").Return(mappedAd(), nil)
	m.integration.On("FindActiveByTenant", mock.Anything, "tenant-1").Return(nil, nil)
	m.fetcher.On("FetchLead", mock.Anything, "lg-1", "env-fallback-token").Return(leadDetail(), nil)
	m.lead.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	m.source.On("UpsertReturningCreated", mock.Anything, mock.Anything).Return(true, nil)
	m.offer.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	m.event.On("Append", mock.Anything, mock.Anything).Return(nil)
	m.producer.On("PublishConversationStart", mock.Anything, mock.Anything).Return(nil)

	result, err := uc.Execute(context.Background(), input())

	assert.NoError(t, err)
	assert.True(t, result.Mapped)
	assert.False(t, result.Duplicate)
	assert.Equal(t, "lead-1", result.LeadID)
	assert.Equal(t, "offer-1", result.LeadOfferID)
	assert.NotEmpty(t, result.TraceID)

	m.producer.AssertCalled(t, "PublishConversationStart", mock.Anything, mock.MatchedBy(func(p queue.ConversationPayload) bool {
		return p.LeadOfferID == "offer-1" && p.Origin == OriginWebhookMeta && p.TraceID == result.TraceID
	}))

	// Evento de auditoria com o mesmo trace
	m.event.AssertCalled(t, "Append", mock.Anything, mock.MatchedBy(func(e *entity.LeadEvent) bool {
		return e.Type == entity.EventLeadCreated && e.TraceID == result.TraceID
	}))
}

// TestIngestDuplicateShortCircuits - Reentrega não repete efeitos
func TestIngestDuplicateShortCircuits(t *testing.T) {
	uc, m := newUseCase(t, testPIIKey)

	m.adMap.On("FindByAdID", mock.Anything, "ad-1").Return(mappedAd(), nil)
	m.integration.On("FindActiveByTenant", mock.Anything, "tenant-1").Return(nil, nil)
	m.fetcher.On("FetchLead", mock.Anything, "lg-1", mock.Anything).Return(leadDetail(), nil)
	m.lead.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	m.source.On("UpsertReturningCreated", mock.Anything, mock.Anything).Return(false, nil)

	result, err := uc.Execute(context.Background(), input())

	assert.NoError(t, err)
	assert.True(t, result.Duplicate)

	// Nenhum efeito além do upsert idempotente do lead/source
	m.offer.AssertNotCalled(t, "Upsert")
	m.offer.AssertNotCalled(t, "Create")
	m.event.AssertNotCalled(t, "Append")
	m.producer.AssertNotCalled(t, "PublishConversationStart")
}

// TestIngestUnknownAd - ad_id fora do mapeamento é pulado
func TestIngestUnknownAd(t *testing.T) {
	uc, m := newUseCase(t, testPIIKey)

	m.adMap.On("FindByAdID", mock.Anything, "ad-1").Return(nil, nil)

	result, err := uc.Execute(context.Background(), input())

	assert.Nil(t, result)
	assert.True(t, IsDomainError(err))
	assert.Equal(t, "AD_NOT_MAPPED", err.(*DomainError).Code)

	m.lead.AssertNotCalled(t, "Upsert")
	m.fetcher.AssertNotCalled(t, "FetchLead")
}

// TestIngestPlaceholderReuse - Dois anúncios sem oferta, um placeholder só
func TestIngestPlaceholderReuse(t *testing.T) {
	unmapped := mappedAd()
	unmapped.OfferID = ""

	t.Run("Creates Placeholder When Absent", func(t *testing.T) {
		uc, m := newUseCase(t, testPIIKey)

		m.adMap.On("FindByAdID", mock.Anything, "ad-1").Return(unmapped, nil)
		m.integration.On("FindActiveByTenant", mock.Anything, "tenant-1").Return(nil, nil)
		m.fetcher.On("FetchLead", mock.Anything, "lg-1", mock.Anything).Return(leadDetail(), nil)
		m.lead.On("Upsert", mock.Anything, mock.Anything).Return(nil)
		m.source.On("UpsertReturningCreated", mock.Anything, mock.Anything).Return(true, nil)
		m.offer.On("FindPendingPlaceholder", mock.Anything, "lead-1", "tenant-1").Return(nil, nil)
		m.offer.On("Create", mock.Anything, mock.Anything).Return(nil)
		m.event.On("Append", mock.Anything, mock.Anything).Return(nil)

		result, err := uc.Execute(context.Background(), input())

		assert.NoError(t, err)
		assert.False(t, result.Mapped)
		assert.Equal(t, "offer-new", result.LeadOfferID)

		m.offer.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(o *entity.LeadOffer) bool {
			return o.Status == entity.StatusPendingMapping && o.OfferID == ""
		}))
		m.producer.AssertNotCalled(t, "PublishConversationStart")
	})

	t.Run("Reuses Existing Placeholder", func(t *testing.T) {
		uc, m := newUseCase(t, testPIIKey)

		existing := &entity.LeadOffer{ID: "offer-old", Status: entity.StatusPendingMapping}

		m.adMap.On("FindByAdID", mock.Anything, "ad-1").Return(unmapped, nil)
		m.integration.On("FindActiveByTenant", mock.Anything, "tenant-1").Return(nil, nil)
		m.fetcher.On("FetchLead", mock.Anything, "lg-1", mock.Anything).Return(leadDetail(), nil)
		m.lead.On("Upsert", mock.Anything, mock.Anything).Return(nil)
		m.source.On("UpsertReturningCreated", mock.Anything, mock.Anything).Return(true, nil)
		m.offer.On("FindPendingPlaceholder", mock.Anything, "lead-1", "tenant-1").Return(existing, nil)

		result, err := uc.Execute(context.Background(), input())

		assert.NoError(t, err)
		assert.Equal(t, "offer-old", result.LeadOfferID)

		m.offer.AssertNotCalled(t, "Create")
	})
}

// TestCredentialChain - Ordem: OAuth da integração → legado → env
func TestCredentialChain(t *testing.T) {

	runWith := func(t *testing.T, integration *entity.TenantIntegration, legacyToken, wantToken string) {
		uc, m := newUseCase(t, testPIIKey)

		ad := mappedAd()
		ad.LegacyAccessToken = legacyToken

		m.adMap.On("FindByAdID", mock.Anything, "ad-1").Return(ad, nil)
		if integration == nil {
			m.integration.On("FindActiveByTenant", mock.Anything, "tenant-1").Return(nil, nil)
		} else {
			m.integration.On("FindActiveByTenant", mock.Anything, "tenant-1").Return(integration, nil)
		}
		m.fetcher.On("FetchLead", mock.Anything, "lg-1", wantToken).Return(leadDetail(), nil)
		m.lead.On("Upsert", mock.Anything, mock.Anything).Return(nil)
		m.source.On("UpsertReturningCreated", mock.Anything, mock.Anything).Return(true, nil)
		m.offer.On("Upsert", mock.Anything, mock.Anything).Return(nil)
		m.event.On("Append", mock.Anything, mock.Anything).Return(nil)
		m.producer.On("PublishConversationStart", mock.Anything, mock.Anything).Return(nil)

		_, err := uc.Execute(context.Background(), input())
		assert.NoError(t, err)

		m.fetcher.AssertCalled(t, "FetchLead", mock.Anything, "lg-1", wantToken)
	}

	t.Run("OAuth Token Wins", func(t *testing.T) {
		runWith(t, &entity.TenantIntegration{PageAccessToken: "oauth-token", Active: true}, "legacy-token", "oauth-token")
	})

	t.Run("Falls Back To Legacy", func(t *testing.T) {
		runWith(t, nil, "legacy-token", "legacy-token")
	})

	t.Run("Falls Back To Env", func(t *testing.T) {
		runWith(t, nil, "", "env-fallback-token")
	})

	t.Run("No Credential Is Hard Failure", func(t *testing.T) {
		uc, m := newUseCase(t, testPIIKey)
		uc.FallbackToken = ""

		m.adMap.On("FindByAdID", mock.Anything, "ad-1").Return(mappedAd(), nil)
		m.integration.On("FindActiveByTenant", mock.Anything, "tenant-1").Return(nil, nil)

		_, err := uc.Execute(context.Background(), input())

		assert.True(t, IsDomainError(err))
		assert.Equal(t, "NO_ACCESS_TOKEN", err.(*DomainError).Code)
		m.fetcher.AssertNotCalled(t, "FetchLead")
	})
}

// TestPIIFailSafe - DNI nunca persiste em claro
func TestPIIFailSafe(t *testing.T) {
	dniField := meta.Field{Name: "dni", Values: []string{"12345678Z"}}

	t.Run("No Key Drops Field Entirely", func(t *testing.T) {
		uc, m := newUseCase(t, "") // guard desabilitado

		var captured *entity.LeadOffer

		m.adMap.On("FindByAdID", mock.Anything, "ad-1").Return(mappedAd(), nil)
		m.integration.On("FindActiveByTenant", mock.Anything, "tenant-1").Return(nil, nil)
		m.fetcher.On("FetchLead", mock.Anything, "lg-1", mock.Anything).Return(leadDetail(dniField), nil)
		m.lead.On("Upsert", mock.Anything, mock.Anything).Return(nil)
		m.source.On("UpsertReturningCreated", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			src := args.Get(1).(*entity.LeadSource)
			// Nem o payload bruto pode carregar o documento
			assert.NotContains(t, string(src.RawFields), "12345678Z")
		}).Return(true, nil)
		m.offer.On("Upsert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			captured = args.Get(1).(*entity.LeadOffer)
		}).Return(nil)
		m.event.On("Append", mock.Anything, mock.Anything).Return(nil)
		m.producer.On("PublishConversationStart", mock.Anything, mock.Anything).Return(nil)

		result, err := uc.Execute(context.Background(), input())

		assert.NoError(t, err)
		assert.True(t, result.PIIDropped)
		assert.NotContains(t, string(captured.Prefill), "12345678Z")
		assert.NotContains(t, string(captured.Prefill), "dni")
	})

	t.Run("With Key Stores Only Ciphertext", func(t *testing.T) {
		uc, m := newUseCase(t, testPIIKey)

		var captured *entity.LeadOffer

		m.adMap.On("FindByAdID", mock.Anything, "ad-1").Return(mappedAd(), nil)
		m.integration.On("FindActiveByTenant", mock.Anything, "tenant-1").Return(nil, nil)
		m.fetcher.On("FetchLead", mock.Anything, "lg-1", mock.Anything).Return(leadDetail(dniField), nil)
		m.lead.On("Upsert", mock.Anything, mock.Anything).Return(nil)
		m.source.On("UpsertReturningCreated", mock.Anything, mock.Anything).Return(true, nil)
		m.offer.On("Upsert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			captured = args.Get(1).(*entity.LeadOffer)
		}).Return(nil)
		m.event.On("Append", mock.Anything, mock.Anything).Return(nil)
		m.producer.On("PublishConversationStart", mock.Anything, mock.Anything).Return(nil)

		result, err := uc.Execute(context.Background(), input())

		assert.NoError(t, err)
		assert.False(t, result.PIIDropped)
		assert.Contains(t, string(captured.Prefill), "dni_encrypted")
		assert.NotContains(t, string(captured.Prefill), "12345678Z")

		// E o valor cifrado decifra de volta com a mesma chave
		guard, _ := crypto.NewPIIGuard(testPIIKey)
		var prefill map[string]string
		assert.NoError(t, json.Unmarshal(captured.Prefill, &prefill))
		plain, err := guard.Decrypt(prefill["dni_encrypted"])
		assert.NoError(t, err)
		assert.Equal(t, "12345678Z", plain)
	})
}

// TestIngestMissingPhone - Sem telefone válido nada é persistido
func TestIngestMissingPhone(t *testing.T) {
	uc, m := newUseCase(t, testPIIKey)

	detail := &meta.LeadDetail{
		ID: "lg-1",
		FieldData: []meta.Field{
			{Name: "email", Values: []string{"sem-telefone@example.com"}},
		},
	}

	m.adMap.On("FindByAdID", mock.Anything, "ad-1").Return(mappedAd(), nil)
	m.integration.On("FindActiveByTenant", mock.Anything, "tenant-1").Return(nil, nil)
	m.fetcher.On("FetchLead", mock.Anything, "lg-1", mock.Anything).Return(detail, nil)

	_, err := uc.Execute(context.Background(), input())

	assert.True(t, IsDomainError(err))
	assert.Equal(t, "INVALID_PHONE", err.(*DomainError).Code)
	m.lead.AssertNotCalled(t, "Upsert")
	m.source.AssertNotCalled(t, "UpsertReturningCreated")
}

// TestIngestQueueFailureDoesNotFailIngestion - Lead persistido vale mais
// que o gatilho; a falha fica no log/métrica e a mensagem na DLQ
func TestIngestQueueFailureDoesNotFailIngestion(t *testing.T) {
	uc, m := newUseCase(t, testPIIKey)

	m.adMap.On("FindByAdID", mock.Anything, "ad-1").Return(mappedAd(), nil)
	m.integration.On("FindActiveByTenant", mock.Anything, "tenant-1").Return(nil, nil)
	m.fetcher.On("FetchLead", mock.Anything, "lg-1", mock.Anything).Return(leadDetail(), nil)
	m.lead.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	m.source.On("UpsertReturningCreated", mock.Anything, mock.Anything).Return(true, nil)
	m.offer.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	m.event.On("Append", mock.Anything, mock.Anything).Return(nil)
	m.producer.On("PublishConversationStart", mock.Anything, mock.Anything).Return(assert.AnError)

	result, err := uc.Execute(context.Background(), input())

	assert.NoError(t, err)
	assert.Equal(t, "offer-1", result.LeadOfferID)
}
