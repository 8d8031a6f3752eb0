package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client chama o serviço de qualificação por conversa (sistema à parte;
// aqui só pertence a chamada de início).
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type startConversationRequest struct {
	LeadOfferID string `json:"lead_offer_id"`
}

func (c *Client) StartInitialConversation(ctx context.Context, leadOfferID string) error {
	if c.baseURL == "" {
		return fmt.Errorf("conversation api não configurada")
	}

	payload, err := json.Marshal(startConversationRequest{LeadOfferID: leadOfferID})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/conversations/start", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("erro request conversation api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("conversation api recusou lead_offer %s (status %d): %s",
			leadOfferID, resp.StatusCode, string(body))
	}

	return nil
}
