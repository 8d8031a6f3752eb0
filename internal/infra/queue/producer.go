package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConversationPayload é a entrada de outbox do gatilho de conversa.
// Carrega o trace_id da entrega para correlação ponta a ponta.
type ConversationPayload struct {
	LeadOfferID string `json:"lead_offer_id"`
	LeadID      string `json:"lead_id"`
	TenantID    string `json:"tenant_id"`
	OfferID     string `json:"offer_id"`
	TraceID     string `json:"trace_id"`

	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`

	Origin string `json:"origin"` // Ex: WEBHOOK_META
}

type QueueProducerInterface interface {
	PublishConversationStart(ctx context.Context, payload ConversationPayload) error
}

type RabbitMQProducer struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewProducer(conn *amqp.Connection, ch *amqp.Channel) *RabbitMQProducer {
	return &RabbitMQProducer{
		Conn: conn,
		Ch:   ch,
	}
}

func (p *RabbitMQProducer) PublishConversationStart(ctx context.Context, payload ConversationPayload) error {

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("erro ao converter payload: %v", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // Mensagem salva no disco
		},
	)

	if err != nil {
		return fmt.Errorf("falha ao publicar no RabbitMQ: %v", err)
	}

	return nil
}
