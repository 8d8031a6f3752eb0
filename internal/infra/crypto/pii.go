package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

var ErrNoKey = errors.New("chave de criptografia PII não configurada")

// PIIGuard cifra campos de documento de identidade (DNI) com AES-256-GCM.
// Cada valor sai como base64(nonce || ciphertext || tag), portanto
// decifrável de forma independente. Sem chave configurada o guard fica
// desabilitado e a política é descartar o campo, nunca gravar em claro.
type PIIGuard struct {
	key []byte
}

// NewPIIGuard recebe a chave em hex (64 chars = 32 bytes). Vazio ou
// tamanho errado desabilita o guard em vez de cifrar com chave fraca.
func NewPIIGuard(hexKey string) (*PIIGuard, error) {
	if hexKey == "" {
		return &PIIGuard{}, nil
	}

	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("chave PII inválida (esperado hex): %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("chave PII deve ter 32 bytes, veio %d", len(key))
	}

	return &PIIGuard{key: key}, nil
}

func (g *PIIGuard) Enabled() bool {
	return len(g.key) == 32
}

func (g *PIIGuard) Encrypt(plaintext string) (string, error) {
	if !g.Enabled() {
		return "", ErrNoKey
	}

	block, err := aes.NewCipher(g.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	// Seal devolve nonce || ciphertext || tag num blob só
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (g *PIIGuard) Decrypt(encoded string) (string, error) {
	if !g.Enabled() {
		return "", ErrNoKey
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("valor cifrado inválido: %w", err)
	}

	block, err := aes.NewCipher(g.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(sealed) < gcm.NonceSize() {
		return "", errors.New("valor cifrado truncado")
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("falha ao decifrar (tag inválida?): %w", err)
	}

	return string(plain), nil
}
