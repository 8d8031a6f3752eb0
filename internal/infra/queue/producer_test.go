package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestConversationPayloadMarshalling - O payload da outbox serializa inteiro
func TestConversationPayloadMarshalling(t *testing.T) {
	payload := ConversationPayload{
		LeadOfferID: "offer-123",
		LeadID:      "lead-456",
		TenantID:    "tenant-789",
		OfferID:     "uuid-offer",
		TraceID:     "trace-abc",
		Name:        "María",
		Phone:       "+34600111222",
		Origin:      "WEBHOOK_META",
	}

	body, err := json.Marshal(payload)
	assert.NoError(t, err)
	assert.NotEmpty(t, body)

	var received ConversationPayload
	err = json.Unmarshal(body, &received)
	assert.NoError(t, err)

	assert.Equal(t, "offer-123", received.LeadOfferID)
	assert.Equal(t, "lead-456", received.LeadID)
	assert.Equal(t, "tenant-789", received.TenantID)
	assert.Equal(t, "trace-abc", received.TraceID)
	assert.Equal(t, "+34600111222", received.Phone)
	assert.Equal(t, "WEBHOOK_META", received.Origin)
}

// TestConversationPayloadRequiredKeys - O worker depende dessas chaves
func TestConversationPayloadRequiredKeys(t *testing.T) {
	payload := ConversationPayload{
		LeadOfferID: "offer-123",
		LeadID:      "lead-456",
		TenantID:    "tenant-789",
		OfferID:     "uuid-offer",
		TraceID:     "trace-abc",
		Origin:      "WEBHOOK_META",
	}

	body, _ := json.Marshal(payload)

	var data map[string]interface{}
	json.Unmarshal(body, &data)

	for _, field := range []string{"lead_offer_id", "lead_id", "tenant_id", "offer_id", "trace_id", "origin"} {
		assert.Contains(t, data, field, "field %s is missing", field)
		assert.NotEmpty(t, data[field], "field %s is empty", field)
	}
}
