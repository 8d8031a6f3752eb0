package database

import (
	"context"
	"database/sql"
	"log"

	"github.com/converzia/lead-ingest/internal/entity"
)

type LeadSourceRepository struct {
	DB *sql.DB
}

func NewLeadSourceRepository(db *sql.DB) *LeadSourceRepository {
	return &LeadSourceRepository{DB: db}
}

// UpsertReturningCreated é UMA instrução atômica no banco: fecha a
// janela de corrida entre entregas concorrentes do mesmo leadgen_id.
// (xmax = 0) é verdadeiro só para a linha recém-inserida; o DO UPDATE
// inócuo existe para o RETURNING funcionar também no conflito.
func (r *LeadSourceRepository) UpsertReturningCreated(ctx context.Context, src *entity.LeadSource) (bool, error) {
	query := `
		INSERT INTO lead_sources
			(tenant_id, lead_id, leadgen_id, platform, ad_id, adset_id, campaign_id, form_id, page_id, raw_fields)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tenant_id, leadgen_id)
		DO UPDATE SET leadgen_id = EXCLUDED.leadgen_id
		RETURNING id, created_at, (xmax = 0) AS was_created
	`

	var created bool
	err := r.DB.QueryRowContext(
		ctx,
		query,
		src.TenantID,
		src.LeadID,
		src.LeadgenID,
		src.Platform,
		nullString(src.AdID),
		nullString(src.AdsetID),
		nullString(src.CampaignID),
		nullString(src.FormID),
		nullString(src.PageID),
		nullBytes(src.RawFields),
	).Scan(
		&src.ID,
		&src.CreatedAt,
		&created,
	)

	if err != nil {
		log.Printf("Erro crítico no banco (lead_sources): %v", err)
		return false, err
	}

	return created, nil
}

func nullBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
