package service

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/pagination"
)

type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByID(ctx context.Context, id string) (*domain.APIKey, error)
	GetByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	ListByOwnerWithCursor(ctx context.Context, ownerID int64, cursor *pagination.Cursor, limit int) (*APIKeyPage, error)
	Revoke(ctx context.Context, id string) error
}

type APIKeyPage struct {
	Items      []*domain.APIKey
	NextCursor string
	HasMore    bool
}

// AuthService issues and validates API keys. Each key resolves to the
// integer owner id that scopes documents and queries.
type AuthService struct {
	keyRepo APIKeyRepository
	uuidGen UUIDGenerator
}

func NewAuthService(keyRepo APIKeyRepository, uuidGen UUIDGenerator) *AuthService {
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	return &AuthService{
		keyRepo: keyRepo,
		uuidGen: uuidGen,
	}
}

// CreateAPIKey generates a new key for ownerID and returns the plaintext
// token together with the stored record. The token is not recoverable later.
func (s *AuthService) CreateAPIKey(ctx context.Context, ownerID int64, name string) (string, *domain.APIKey, error) {
	token, err := domain.GenerateAPIToken()
	if err != nil {
		return "", nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate API key", err)
	}

	key, err := s.storeKey(ctx, ownerID, name, token)
	if err != nil {
		return "", nil, err
	}
	return token, key, nil
}

// CreateAPIKeyWithToken stores a caller-chosen token, used for the
// bootstrap key.
func (s *AuthService) CreateAPIKeyWithToken(ctx context.Context, ownerID int64, name, token string) error {
	if !domain.IsValidAPIToken(token) {
		return domain.NewDomainError(domain.ErrCodeValidation, "invalid API key format (expected drg_<64 hex chars>)")
	}
	_, err := s.storeKey(ctx, ownerID, name, token)
	return err
}

// EnsureAPIKey stores token unless a key with the same hash exists.
func (s *AuthService) EnsureAPIKey(ctx context.Context, ownerID int64, name, token string) (bool, error) {
	if !domain.IsValidAPIToken(token) {
		return false, domain.NewDomainError(domain.ErrCodeValidation, "invalid API key format (expected drg_<64 hex chars>)")
	}
	_, err := s.keyRepo.GetByHash(ctx, domain.HashAPIToken(token))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrAPIKeyNotFound) {
		return false, err
	}
	if _, err := s.storeKey(ctx, ownerID, name, token); err != nil {
		return false, err
	}
	return true, nil
}

func (s *AuthService) storeKey(ctx context.Context, ownerID int64, name, token string) (*domain.APIKey, error) {
	key := &domain.APIKey{
		ID:        s.uuidGen.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		KeyHash:   domain.HashAPIToken(token),
		CreatedAt: time.Now().UTC(),
		RevokedAt: nil,
	}

	if err := key.Validate(); err != nil {
		return nil, err
	}

	if err := s.keyRepo.Create(ctx, key); err != nil {
		return nil, err
	}
	return key, nil
}

// ValidateAPIKey resolves a bearer token to its owner id.
func (s *AuthService) ValidateAPIKey(ctx context.Context, token string) (int64, error) {
	if !domain.IsValidAPIToken(token) {
		return 0, domain.ErrInvalidAPIKey
	}

	key, err := s.keyRepo.GetByHash(ctx, domain.HashAPIToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrAPIKeyNotFound) {
			return 0, domain.ErrInvalidAPIKey
		}
		return 0, err
	}

	if key.IsRevoked() {
		return 0, domain.ErrAPIKeyRevoked
	}

	return key.OwnerID, nil
}

func (s *AuthService) RevokeAPIKey(ctx context.Context, keyID string) error {
	if keyID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key ID is required")
	}

	return s.keyRepo.Revoke(ctx, keyID)
}

func (s *AuthService) ListAPIKeys(ctx context.Context, ownerID int64, cursor string, limit int) (*APIKeyPage, error) {
	if ownerID <= 0 {
		return nil, domain.ErrInvalidOwnerID
	}
	c, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.ErrInvalidCursor
	}
	return s.keyRepo.ListByOwnerWithCursor(ctx, ownerID, c, limit)
}
