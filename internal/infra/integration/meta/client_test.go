package meta

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFetchLead - Busca e decodifica o lead da Graph API
func TestFetchLead(t *testing.T) {

	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/lg-123", r.URL.Path)
			assert.Equal(t, "page-token", r.URL.Query().Get("access_token"))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"id": "lg-123",
				"created_time": "2024-05-01T10:00:00+0000",
				"ad_id": "ad-1",
				"adset_id": "adset-1",
				"campaign_id": "camp-1",
				"form_id": "form-1",
				"field_data": [
					{"name": "full_name", "values": ["María García"]},
					{"name": "phone_number", "values": ["+34600111222"]}
				]
			}`))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		detail, err := client.FetchLead(context.Background(), "lg-123", "page-token")

		assert.NoError(t, err)
		assert.Equal(t, "lg-123", detail.ID)
		assert.Equal(t, "camp-1", detail.CampaignID)
		assert.Len(t, detail.FieldData, 2)
		assert.Equal(t, "María García", detail.FieldData[0].First())
	})

	t.Run("Graph API Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		_, err := client.FetchLead(context.Background(), "lg-123", "token-podre")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "code 190")
		assert.Contains(t, err.Error(), "Invalid OAuth access token")
	})

	t.Run("Empty Field Values", func(t *testing.T) {
		f := Field{Name: "email"}
		assert.Equal(t, "", f.First())
	})
}
