package usecase

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone converte o telefone do formulário para E.164.
// defaultPrefix (ex: "+34") é aplicado a números em formato nacional.
// A validação final do formato fica no construtor do Lead.
func NormalizePhone(raw, defaultPrefix string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	hasPlus := strings.HasPrefix(raw, "+")
	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return ""
	}

	if hasPlus {
		return "+" + digits
	}

	// Prefixo internacional discado (00 34 ...)
	if strings.HasPrefix(digits, "00") && len(digits) > 4 {
		return "+" + digits[2:]
	}

	prefixDigits := nonDigits.ReplaceAllString(defaultPrefix, "")

	// A Graph API às vezes manda o número já com código do país mas sem o "+"
	if prefixDigits != "" && strings.HasPrefix(digits, prefixDigits) && len(digits) > 10 {
		return "+" + digits
	}

	if prefixDigits == "" {
		return "+" + digits
	}

	return "+" + prefixDigits + digits
}
