package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/safeinsights/management-app-sub003/internal/common"
	"github.com/safeinsights/management-app-sub003/internal/cryptox"
	"github.com/safeinsights/management-app-sub003/internal/domain/model"
	"github.com/safeinsights/management-app-sub003/internal/domain/repository"
)

// KeyService is the fingerprint registry: it stores public keys per owner
// and resolves the recipient set for an organization.
type KeyService struct {
	keyRepo  repository.UserKeyRepository
	orgRepo  repository.OrgRepository
	rdb      *redis.Client // optional; nil disables the recipient cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

func NewKeyService(keyRepo repository.UserKeyRepository, orgRepo repository.OrgRepository, rdb *redis.Client, cacheTTL time.Duration, logger *slog.Logger) *KeyService {
	return &KeyService{
		keyRepo:  keyRepo,
		orgRepo:  orgRepo,
		rdb:      rdb,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// RegisterKey stores a member's public key under its computed fingerprint.
// Registering the identical key again is a no-op. A differing key is
// rejected unless regenerate is set; regeneration is irreversible and
// orphans every bundle encrypted for the old key — there is no migration.
func (s *KeyService) RegisterKey(ctx context.Context, userID string, publicKey []byte, regenerate bool) (*model.UserPublicKey, error) {
	if len(publicKey) != cryptox.KeySize {
		return nil, fmt.Errorf("public key must be %d bytes: %w", cryptox.KeySize, common.ErrValidation)
	}

	key := &model.UserPublicKey{
		UserID:      userID,
		PublicKey:   append([]byte(nil), publicKey...),
		Fingerprint: cryptox.Fingerprint(publicKey),
	}

	existing, err := s.keyRepo.GetByUserID(ctx, userID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		if err := s.keyRepo.Insert(ctx, key); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case bytes.Equal(existing.PublicKey, key.PublicKey):
		return existing, nil
	case !regenerate:
		return nil, fmt.Errorf("a different key is already registered for this user: %w", common.ErrConflict)
	default:
		if err := s.keyRepo.Replace(ctx, key); err != nil {
			return nil, err
		}
	}

	s.invalidateRecipientCache(ctx, userID)
	return key, nil
}

func (s *KeyService) GetKey(ctx context.Context, userID string) (*model.UserPublicKey, error) {
	return s.keyRepo.GetByUserID(ctx, userID)
}

// LookupKeysForOrg resolves every org member with a registered key. Reads
// through a short-TTL redis cache; registration and regeneration
// invalidate it.
func (s *KeyService) LookupKeysForOrg(ctx context.Context, orgID string) ([]cryptox.Recipient, error) {
	if cached, ok := s.cachedRecipients(ctx, orgID); ok {
		return cached, nil
	}

	keys, err := s.keyRepo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	recipients := make([]cryptox.Recipient, 0, len(keys))
	for _, k := range keys {
		recipients = append(recipients, cryptox.Recipient{
			PublicKey:   k.PublicKey,
			Fingerprint: k.Fingerprint,
		})
	}

	s.storeRecipients(ctx, orgID, recipients)
	return recipients, nil
}

func recipientCacheKey(orgID string) string {
	return "org-recipients:" + orgID
}

func (s *KeyService) cachedRecipients(ctx context.Context, orgID string) ([]cryptox.Recipient, bool) {
	if s.rdb == nil {
		return nil, false
	}
	raw, err := s.rdb.Get(ctx, recipientCacheKey(orgID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("recipient cache read failed", "orgId", orgID, "error", err)
		}
		return nil, false
	}
	var recipients []cryptox.Recipient
	if err := json.Unmarshal(raw, &recipients); err != nil {
		return nil, false
	}
	return recipients, true
}

func (s *KeyService) storeRecipients(ctx context.Context, orgID string, recipients []cryptox.Recipient) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(recipients)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, recipientCacheKey(orgID), raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("recipient cache write failed", "orgId", orgID, "error", err)
	}
}

func (s *KeyService) invalidateRecipientCache(ctx context.Context, userID string) {
	if s.rdb == nil {
		return
	}
	orgIDs, err := s.orgRepo.ListOrgIDsForUser(ctx, userID)
	if err != nil {
		s.logger.Warn("recipient cache invalidation lookup failed", "userId", userID, "error", err)
		return
	}
	for _, orgID := range orgIDs {
		if err := s.rdb.Del(ctx, recipientCacheKey(orgID)).Err(); err != nil {
			s.logger.Warn("recipient cache invalidation failed", "orgId", orgID, "error", err)
		}
	}
}
