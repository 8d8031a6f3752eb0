package meta

// Nomes de campo padrão dos formulários de Lead Ads
const (
	FieldFullName    = "full_name"
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldEmail       = "email"
	FieldPhoneNumber = "phone_number"
	FieldDNI         = "dni"
	FieldIDNumber    = "id_number"
)

// LeadDetail é a resposta da Graph API para um leadgen_id
type LeadDetail struct {
	ID          string  `json:"id"`
	CreatedTime string  `json:"created_time"`
	AdID        string  `json:"ad_id"`
	AdsetID     string  `json:"adset_id"`
	CampaignID  string  `json:"campaign_id"`
	FormID      string  `json:"form_id"`
	FieldData   []Field `json:"field_data"`
}

type Field struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// First retorna o primeiro valor do campo (a Graph API sempre manda array)
func (f Field) First() string {
	if len(f.Values) == 0 {
		return ""
	}
	return f.Values[0]
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}
