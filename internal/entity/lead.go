package entity

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	ErrPhoneRequired = errors.New("lead sem telefone")
	ErrPhoneInvalid  = errors.New("telefone fora do formato E.164")
)

// Telefone já normalizado: +[código do país][número], 8 a 15 dígitos
var e164Regex = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

type Lead struct {
	ID          string    `json:"id"`
	Phone       string    `json:"phone"` // chave natural, E.164
	Email       string    `json:"email,omitempty"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	CountryCode string    `json:"country_code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewLead valida o invariante antes de qualquer persistência:
// sem telefone E.164 válido não existe Lead.
func NewLead(phone, email, firstName, lastName, countryCode string) (*Lead, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, ErrPhoneRequired
	}
	if !e164Regex.MatchString(phone) {
		return nil, ErrPhoneInvalid
	}

	return &Lead{
		Phone:       phone,
		Email:       strings.ToLower(strings.TrimSpace(email)),
		FirstName:   strings.TrimSpace(firstName),
		LastName:    strings.TrimSpace(lastName),
		CountryCode: strings.ToUpper(strings.TrimSpace(countryCode)),
	}, nil
}

type LeadRepositoryInterface interface {

	// Upsert cria o lead no primeiro avistamento do telefone e atualiza
	// (nunca duplica) nos seguintes. Preenche ID e timestamps no retorno.
	Upsert(ctx context.Context, lead *Lead) error
}
