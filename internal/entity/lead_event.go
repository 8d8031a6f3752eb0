package entity

import (
	"context"
	"encoding/json"
	"time"
)

// Tipos de evento emitidos pela ingestão
const (
	EventLeadCreated    = "LEAD_CREATED"
	EventPendingMapping = "LEAD_PENDING_MAPPING"
)

// LeadEvent é a trilha de auditoria append-only. TraceID correlaciona
// todas as escritas de uma mesma entrega de webhook.
type LeadEvent struct {
	ID        string          `json:"id"`
	LeadID    string          `json:"lead_id"`
	TenantID  string          `json:"tenant_id"`
	Type      string          `json:"type"`
	TraceID   string          `json:"trace_id"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type LeadEventRepositoryInterface interface {
	Append(ctx context.Context, event *LeadEvent) error
}
