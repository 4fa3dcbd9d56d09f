package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// APIKeyPrefix starts every token, followed by the hex encoded secret.
const APIKeyPrefix = "drg_"

const apiKeySecretBytes = 32

// APIKey maps a bearer token to the owner it authenticates. Only the token's
// hash is stored.
type APIKey struct {
	ID        string
	OwnerID   int64
	Name      string
	KeyHash   string
	CreatedAt time.Time
	RevokedAt *time.Time
}

func (a *APIKey) IsRevoked() bool {
	return a.RevokedAt != nil
}

// Validate checks the fields a stored key must carry.
func (a *APIKey) Validate() error {
	switch {
	case a.OwnerID <= 0:
		return ErrInvalidOwnerID
	case a.ID == "":
		return WithCause(ErrMissingRequiredField, errors.New("id"))
	case strings.TrimSpace(a.Name) == "":
		return WithCause(ErrMissingRequiredField, errors.New("name"))
	case a.KeyHash == "":
		return WithCause(ErrMissingRequiredField, errors.New("key hash"))
	}
	return nil
}

// GenerateAPIToken returns a new random token in the drg_<64 hex> format.
func GenerateAPIToken() (string, error) {
	secret := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", err
	}
	return APIKeyPrefix + hex.EncodeToString(secret), nil
}

// IsValidAPIToken reports whether token has the format GenerateAPIToken
// produces. Upper-case hex is accepted.
func IsValidAPIToken(token string) bool {
	secret, ok := strings.CutPrefix(token, APIKeyPrefix)
	if !ok || len(secret) != 2*apiKeySecretBytes {
		return false
	}
	_, err := hex.DecodeString(secret)
	return err == nil
}

// HashAPIToken is the lookup key stored in place of the token.
func HashAPIToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
