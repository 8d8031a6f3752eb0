package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/converzia/lead-ingest/internal/infra/http/middleware"
	"github.com/converzia/lead-ingest/internal/usecase"
)

// LeadIngestor é o pipeline de ingestão (uma chamada por entrada leadgen)
type LeadIngestor interface {
	Execute(ctx context.Context, input usecase.IngestChangeInput) (*usecase.IngestResult, error)
}

type WebhookHandler struct {
	Ingest      LeadIngestor
	AppSecret   string // segredo de assinatura do webhook (META_APP_SECRET)
	VerifyToken string // token do handshake de inscrição (META_VERIFY_TOKEN)
	RateLimiter *RateLimiter

	// Timeout por entrada; uma entrada lenta não derruba as outras
	EntryTimeout time.Duration
}

func NewWebhookHandler(ingest LeadIngestor, appSecret, verifyToken string, limiter *RateLimiter) *WebhookHandler {
	return &WebhookHandler{
		Ingest:       ingest,
		AppSecret:    appSecret,
		VerifyToken:  verifyToken,
		RateLimiter:  limiter,
		EntryTimeout: 15 * time.Second,
	}
}

// Envelope de notificação da Meta (object "page", changes "leadgen")
type metaEnvelope struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Time    int64  `json:"time"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				AdID        string `json:"ad_id"`
				FormID      string `json:"form_id"`
				LeadgenID   string `json:"leadgen_id"`
				PageID      string `json:"page_id"`
				CreatedTime int64  `json:"created_time"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// HandleVerify responde o handshake GET da Meta na inscrição do webhook
func (h *WebhookHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	if h.VerifyToken == "" {
		log.Printf("🚨 SECURITY: META_VERIFY_TOKEN não configurado, handshake recusado")
		http.Error(w, "webhook not configured", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == h.VerifyToken {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(q.Get("hub.challenge")))
		return
	}

	http.Error(w, "verification failed", http.StatusForbidden)
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {

	if h.RateLimiter != nil && !h.RateLimiter.Allow(clientIP(r)) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	// Fail closed: sem segredo configurado nenhum payload passa
	if h.AppSecret == "" {
		log.Printf("🚨 SECURITY: META_APP_SECRET não configurado, webhook recusado")
		http.Error(w, "webhook not configured", http.StatusInternalServerError)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if !h.verifySignature(body, r.Header.Get("X-Hub-Signature-256")) {
		// Identificador parcial do cliente: suficiente para auditoria,
		// sem expor o IP inteiro no log
		log.Printf("🚨 SECURITY: assinatura inválida no webhook (cliente %s)", partialIP(clientIP(r)))
		middleware.RecordSignatureFailure()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_signature"})
		return
	}

	var envelope metaEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		http.Error(w, "bad JSON", http.StatusBadRequest)
		return
	}

	// Autenticado: daqui em diante a resposta é sempre 200. Erros por
	// entrada são contidos e logados; devolver 4xx/5xx só causaria
	// tempestade de reentregas para um payload parcialmente inválido.
	if envelope.Object == "page" {
		h.processEntries(r.Context(), envelope)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("EVENT_RECEIVED"))
}

func (h *WebhookHandler) processEntries(ctx context.Context, envelope metaEnvelope) {
	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			if change.Field != "leadgen" {
				continue
			}

			input := usecase.IngestChangeInput{
				LeadgenID:   change.Value.LeadgenID,
				AdID:        change.Value.AdID,
				FormID:      change.Value.FormID,
				PageID:      change.Value.PageID,
				CreatedTime: change.Value.CreatedTime,
			}

			h.processEntry(ctx, input)
		}
	}
}

// processEntry contém a falha de UMA entrada: loga, registra métrica e
// segue para a próxima. Nunca propaga para a resposta HTTP.
func (h *WebhookHandler) processEntry(ctx context.Context, input usecase.IngestChangeInput) {
	entryCtx, cancel := context.WithTimeout(ctx, h.EntryTimeout)
	defer cancel()

	result, err := h.Ingest.Execute(entryCtx, input)
	if err != nil {
		if usecase.IsDomainError(err) {
			log.Printf("⚠️ Entrada pulada (leadgen %s): %v", input.LeadgenID, err)
		} else {
			log.Printf("❌ Erro ao processar leadgen %s: %v", input.LeadgenID, err)
		}
		middleware.RecordLeadIngested("error")
		return
	}

	if result.PIIDropped {
		middleware.RecordPIIFieldDropped()
	}

	switch {
	case result.Duplicate:
		middleware.RecordLeadIngested("duplicate")
	case result.Mapped:
		middleware.RecordLeadIngested("mapped")
		log.Printf("✅ Lead %s ingerido para tenant %s (trace %s)", result.LeadID, result.TenantID, result.TraceID)
	default:
		middleware.RecordLeadIngested("pending_mapping")
	}
}

func (h *WebhookHandler) verifySignature(body []byte, header string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.AppSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	// Comparação em tempo constante
	return hmac.Equal([]byte(expected), []byte(header[len(prefix):]))
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// partialIP devolve só os dois primeiros octetos (ou blocos, em IPv6)
func partialIP(ip string) string {
	if i := strings.LastIndex(ip, ":"); i > 0 && strings.Count(ip, ":") == 1 {
		ip = ip[:i] // remove porta de host:porta
	}
	if parts := strings.Split(ip, "."); len(parts) == 4 {
		return parts[0] + "." + parts[1] + ".x.x"
	}
	if parts := strings.Split(ip, ":"); len(parts) > 2 {
		return parts[0] + ":" + parts[1] + "::x"
	}
	return "unknown"
}
