package service

import (
	"fmt"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"
	"payauth-platform/pkg/apperror"

	"context"

	"github.com/google/uuid"
)

// TokenStoreService implements ports.TokenStoreService: the only part of
// the system that ever holds cardholder data in the clear, and only for
// the duration of a single call.
type TokenStoreService struct {
	transactor ports.DBTransactor
	tokens     ports.PaymentTokenRepository
	tokenIdem  ports.TokenIdempotencyRepository
	decryptLog ports.DecryptAuditRepository
	keys       ports.EncryptionKeyRepository
	encryption ports.EncryptionService
	deviceKeys *DeviceKeyDeriver
}

// NewTokenStoreService creates a new token store service.
func NewTokenStoreService(
	transactor ports.DBTransactor,
	tokens ports.PaymentTokenRepository,
	tokenIdem ports.TokenIdempotencyRepository,
	decryptLog ports.DecryptAuditRepository,
	keys ports.EncryptionKeyRepository,
	encryption ports.EncryptionService,
	deviceKeys *DeviceKeyDeriver,
) *TokenStoreService {
	return &TokenStoreService{
		transactor: transactor,
		tokens:     tokens,
		tokenIdem:  tokenIdem,
		decryptLog: decryptLog,
		keys:       keys,
		encryption: encryption,
		deviceKeys: deviceKeys,
	}
}

// CreatePaymentToken encrypts req.Card and persists it under a freshly
// minted token id, deduplicating on req.IdempotencyKey.
func (s *TokenStoreService) CreatePaymentToken(ctx context.Context, req ports.CreatePaymentTokenRequest) (*domain.PaymentToken, error) {
	fingerprintParts := []string{
		req.RestaurantID.String(), req.Card.PAN, fmt.Sprintf("%d", req.Card.ExpiryMonth), fmt.Sprintf("%d", req.Card.ExpiryYear),
	}
	if req.DeviceID != "" && s.deviceKeys != nil {
		deviceKey, err := s.deviceKeys.Derive(req.RestaurantID.String(), req.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("deriving device key: %w", err)
		}
		fingerprintParts = append(fingerprintParts, string(deviceKey))
	}
	fingerprint := domain.BuildFingerprint(fingerprintParts...)

	keyVersion, err := s.keys.ActiveVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching active key version: %w", err)
	}

	encryptedPAN, err := s.encryption.Encrypt(req.Card.PAN)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(err)
	}
	var encryptedCVV string
	if req.Card.CVV != "" {
		encryptedCVV, err = s.encryption.Encrypt(req.Card.CVV)
		if err != nil {
			return nil, apperror.ErrEncryptionFailure(err)
		}
	}

	tokenID := "pt_" + uuid.NewString()
	token := domain.PaymentToken{
		TokenID:      tokenID,
		RestaurantID: req.RestaurantID,
		EncryptedPAN: []byte(encryptedPAN),
		EncryptedCVV: []byte(encryptedCVV),
		KeyVersion:   keyVersion,
		PANLastFour:  lastFour(req.Card.PAN),
		PANBIN:       bin(req.Card.PAN),
		ExpiryMonth:  req.Card.ExpiryMonth,
		ExpiryYear:   req.Card.ExpiryYear,
		CardBrand:    req.Card.CardBrand,
		DeviceID:     req.DeviceID,
		Status:       domain.PaymentTokenStatusActive,
		CreatedAt:    now(),
		UpdatedAt:    now(),
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	reservation, reserved, err := s.tokenIdem.Reserve(ctx, tx, domain.TokenIdempotencyKey{
		RestaurantID: req.RestaurantID,
		Key:          req.IdempotencyKey,
		TokenID:      tokenID,
		Fingerprint:  fingerprint,
		CreatedAt:    now(),
	})
	if err != nil {
		return nil, fmt.Errorf("reserving token idempotency key: %w", err)
	}
	if !reserved {
		if reservation.Fingerprint != fingerprint {
			return nil, apperror.ErrIdempotencyConflict(ErrIdempotencyConflict)
		}
		existing, err := s.tokens.GetByID(ctx, reservation.TokenID)
		if err != nil {
			return nil, fmt.Errorf("fetching existing token: %w", err)
		}
		return existing, nil
	}

	if err := s.tokens.Insert(ctx, tx, token); err != nil {
		return nil, fmt.Errorf("inserting payment token: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return &token, nil
}

// GetTokenMetadata returns the non-sensitive metadata for tokenID, scoped
// to the calling tenant.
func (s *TokenStoreService) GetTokenMetadata(ctx context.Context, restaurantID uuid.UUID, tokenID string) (*domain.PaymentToken, error) {
	token, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("fetching token: %w", err)
	}
	if token == nil || token.RestaurantID != restaurantID {
		return nil, apperror.ErrTokenNotFound()
	}
	return token, nil
}

// DecryptForProcessing resolves tokenID to the plaintext card data the
// Authorization Worker hands the Processor Adapter; every call is recorded
// to DecryptAuditRepository regardless of outcome.
func (s *TokenStoreService) DecryptForProcessing(ctx context.Context, tokenID, requestedBy, reason, correlationID string) (*domain.PaymentData, error) {
	defer func() {
		_ = s.decryptLog.Insert(ctx, domain.DecryptAudit{
			TokenID:       tokenID,
			RequestedBy:   requestedBy,
			Reason:        reason,
			CorrelationID: correlationID,
			CreatedAt:     now(),
		})
	}()

	token, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("fetching token: %w", err)
	}
	if token == nil {
		return nil, apperror.ErrTokenNotFound()
	}
	if !token.IsUsable(now()) {
		return nil, apperror.ErrTokenExpired()
	}

	pan, err := s.encryption.Decrypt(string(token.EncryptedPAN))
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(err)
	}
	var cvv string
	if len(token.EncryptedCVV) > 0 {
		cvv, err = s.encryption.Decrypt(string(token.EncryptedCVV))
		if err != nil {
			return nil, apperror.ErrEncryptionFailure(err)
		}
	}

	return &domain.PaymentData{
		PAN:         pan,
		CVV:         cvv,
		ExpiryMonth: token.ExpiryMonth,
		ExpiryYear:  token.ExpiryYear,
		CardBrand:   token.CardBrand,
	}, nil
}

// RevokeToken marks tokenID REVOKED, scoped to the calling tenant.
func (s *TokenStoreService) RevokeToken(ctx context.Context, restaurantID uuid.UUID, tokenID string) error {
	token, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("fetching token: %w", err)
	}
	if token == nil || token.RestaurantID != restaurantID {
		return apperror.ErrTokenNotFound()
	}
	return s.tokens.Revoke(ctx, tokenID)
}

// RotateKeys re-encrypts every token still on an old key version under the
// current active version, batchSize rows at a time.
func (s *TokenStoreService) RotateKeys(ctx context.Context, batchSize int) (int, error) {
	active, err := s.keys.ActiveVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching active key version: %w", err)
	}

	rotated := 0
	for oldVersion := 1; oldVersion < active; oldVersion++ {
		afterTokenID := ""
		for {
			tokens, err := s.tokens.ListByKeyVersion(ctx, oldVersion, batchSize, afterTokenID)
			if err != nil {
				return rotated, fmt.Errorf("listing tokens on key version %d: %w", oldVersion, err)
			}
			if len(tokens) == 0 {
				break
			}

			for _, token := range tokens {
				if err := s.reencrypt(ctx, token, active); err != nil {
					return rotated, fmt.Errorf("re-encrypting token %s: %w", token.TokenID, err)
				}
				rotated++
				afterTokenID = token.TokenID
			}

			if len(tokens) < batchSize {
				break
			}
		}
	}
	return rotated, nil
}

func (s *TokenStoreService) reencrypt(ctx context.Context, token domain.PaymentToken, newVersion int) error {
	pan, err := s.encryption.Decrypt(string(token.EncryptedPAN))
	if err != nil {
		return apperror.ErrEncryptionFailure(err)
	}
	encryptedPAN, err := s.encryption.Encrypt(pan)
	if err != nil {
		return apperror.ErrEncryptionFailure(err)
	}

	var encryptedCVV []byte
	if len(token.EncryptedCVV) > 0 {
		cvv, err := s.encryption.Decrypt(string(token.EncryptedCVV))
		if err != nil {
			return apperror.ErrEncryptionFailure(err)
		}
		reencryptedCVV, err := s.encryption.Encrypt(cvv)
		if err != nil {
			return apperror.ErrEncryptionFailure(err)
		}
		encryptedCVV = []byte(reencryptedCVV)
	}

	return s.tokens.UpdateEncryption(ctx, token.TokenID, []byte(encryptedPAN), encryptedCVV, newVersion)
}

func lastFour(pan string) string {
	if len(pan) < 4 {
		return pan
	}
	return pan[len(pan)-4:]
}

func bin(pan string) string {
	if len(pan) < 6 {
		return pan
	}
	return pan[:6]
}
