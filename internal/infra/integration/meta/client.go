package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const DefaultGraphURL = "https://graph.facebook.com/v19.0"

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultGraphURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchLead busca os dados completos do lead na Graph API.
// O token vem da cadeia de credenciais resolvida pelo usecase.
func (c *Client) FetchLead(ctx context.Context, leadgenID, accessToken string) (*LeadDetail, error) {
	endpoint := fmt.Sprintf("%s/%s?access_token=%s&fields=%s",
		c.baseURL,
		url.PathEscape(leadgenID),
		url.QueryEscape(accessToken),
		url.QueryEscape("id,created_time,ad_id,adset_id,campaign_id,form_id,field_data"),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erro request graph api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)

		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("graph api recusou leadgen %s (status %d, code %d): %s",
				leadgenID, resp.StatusCode, apiErr.Error.Code, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("graph api recusou leadgen %s (status %d)", leadgenID, resp.StatusCode)
	}

	var detail LeadDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return nil, fmt.Errorf("erro decode graph api: %w", err)
	}

	return &detail, nil
}
