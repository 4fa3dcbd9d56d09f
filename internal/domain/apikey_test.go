package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKey_Validate(t *testing.T) {
	valid := func() *APIKey {
		return &APIKey{ID: "k1", OwnerID: 42, Name: "ci", KeyHash: HashAPIToken("drg_x"), CreatedAt: time.Now()}
	}

	tests := []struct {
		name   string
		mutate func(*APIKey)
		want   error
		cause  string
	}{
		{"valid", func(*APIKey) {}, nil, ""},
		{"zero owner", func(k *APIKey) { k.OwnerID = 0 }, ErrInvalidOwnerID, ""},
		{"negative owner", func(k *APIKey) { k.OwnerID = -1 }, ErrInvalidOwnerID, ""},
		{"missing id", func(k *APIKey) { k.ID = "" }, ErrMissingRequiredField, "id"},
		{"blank name", func(k *APIKey) { k.Name = "  " }, ErrMissingRequiredField, "name"},
		{"missing hash", func(k *APIKey) { k.KeyHash = "" }, ErrMissingRequiredField, "key hash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := valid()
			tt.mutate(k)
			err := k.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, ErrCodeValidation, CodeOf(err))
			if tt.cause != "" {
				assert.ErrorContains(t, err, tt.cause)
			}
		})
	}
}

func TestAPIKey_IsRevoked(t *testing.T) {
	k := &APIKey{}
	assert.False(t, k.IsRevoked())

	now := time.Now()
	k.RevokedAt = &now
	assert.True(t, k.IsRevoked())
}

func TestGenerateAPIToken(t *testing.T) {
	a, err := GenerateAPIToken()
	require.NoError(t, err)
	b, err := GenerateAPIToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, APIKeyPrefix))
	assert.Len(t, a, len(APIKeyPrefix)+64)
	assert.True(t, IsValidAPIToken(a))
	assert.NotEqual(t, a, b)
}

func TestIsValidAPIToken(t *testing.T) {
	token := APIKeyPrefix + strings.Repeat("0123456789abcdef", 4)

	assert.True(t, IsValidAPIToken(token))
	assert.True(t, IsValidAPIToken(APIKeyPrefix+strings.ToUpper(token[4:])))
	assert.False(t, IsValidAPIToken(""))
	assert.False(t, IsValidAPIToken(APIKeyPrefix))
	assert.False(t, IsValidAPIToken("ntx_"+token[4:]))
	assert.False(t, IsValidAPIToken(token+"0"))
	assert.False(t, IsValidAPIToken(token[:len(token)-1]))
	assert.False(t, IsValidAPIToken(APIKeyPrefix+strings.Repeat("g", 64)))
}

func TestHashAPIToken(t *testing.T) {
	h := HashAPIToken("drg_abc")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashAPIToken("drg_abc"))
	assert.NotEqual(t, h, HashAPIToken("drg_abd"))
	assert.NotContains(t, h, "abc")
}
