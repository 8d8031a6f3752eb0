package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/converzia/lead-ingest/internal/infra/http/middleware"
)

// ConversationStarter define o contrato com o subsistema de
// qualificação (colaborador externo, fora do escopo deste serviço).
type ConversationStarter interface {
	StartInitialConversation(ctx context.Context, leadOfferID string) error
}

type Worker struct {
	Channel      *amqp.Channel
	Conversation ConversationStarter
}

func NewWorker(ch *amqp.Channel, conversation ConversationStarter) *Worker {
	return &Worker{
		Channel:      ch,
		Conversation: conversation,
	}
}

func (w *Worker) Start(queueName string) {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack (manual é mais seguro)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		log.Fatalf("❌ Falha ao registrar consumidor RabbitMQ: %s", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {

			var payload ConversationPayload
			if err := json.Unmarshal(d.Body, &payload); err != nil {
				log.Printf("❌ [WORKER] JSON inválido na fila: %s", err)
				// Mensagem podre. Rejeita sem requeue para não travar a fila.
				d.Nack(false, false)
				continue
			}

			log.Printf("⚙️ [WORKER] Iniciando conversa para lead_offer %s (trace %s)",
				payload.LeadOfferID, payload.TraceID)

			if err := w.processMessage(context.Background(), payload); err != nil {
				log.Printf("❌ [WORKER] Falha no gatilho de conversa (trace %s): %s", payload.TraceID, err)
				middleware.RecordConversationTriggerError()

				// Vai para a DLQ via x-dead-letter-exchange, onde a
				// falha fica visível para reprocesso manual
				d.Nack(false, false)
			} else {
				log.Printf("✅ [WORKER] Conversa disparada para lead_offer %s", payload.LeadOfferID)
				d.Ack(false)
			}
		}
	}()

	log.Printf(" [*] Worker rodando e aguardando na fila '%s'", queueName)
	<-forever
}

func (w *Worker) processMessage(ctx context.Context, payload ConversationPayload) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	return w.Conversation.StartInitialConversation(ctx, payload.LeadOfferID)
}
