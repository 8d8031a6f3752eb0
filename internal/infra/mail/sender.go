package mail

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type AlertSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       string
}

func NewAlertSender(host string, port int, user, password, from, to string) *AlertSender {
	return &AlertSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		To:       to,
	}
}

// SendMappingAlert avisa a operação que um anúncio sem mapeamento gerou
// um placeholder PENDING_MAPPING — alguém precisa mapear o ad no admin.
func (s *AlertSender) SendMappingAlert(tenantID, adID, leadOfferID string) error {
	if s.Host == "" || s.To == "" {
		return fmt.Errorf("smtp de alertas não configurado")
	}

	body := fmt.Sprintf(`
		<h3>Anúncio sem oferta mapeada</h3>
		<p>Um lead chegou por um anúncio que não está mapeado para nenhuma oferta.</p>
		<ul>
			<li><b>Tenant:</b> %s</li>
			<li><b>Ad ID:</b> %s</li>
			<li><b>LeadOffer (placeholder):</b> %s</li>
		</ul>
		<p>Mapeie o anúncio no painel admin para destravar a qualificação.</p>
	`, tenantID, adID, leadOfferID)

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To)
	m.SetHeader("Subject", fmt.Sprintf("⚠️ Converzia: anúncio %s sem mapeamento (tenant %s)", adID, tenantID))
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("erro ao enviar alerta SMTP: %w", err)
	}

	return nil
}
