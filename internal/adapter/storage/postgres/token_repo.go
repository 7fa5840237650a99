package postgres

import (
	"context"
	"errors"
	"fmt"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// PaymentTokenRepository implements ports.PaymentTokenRepository against
// the payment_tokens table. It is expected to run against a database
// instance dedicated to the Token Store, isolated from the event log and
// outbox.
type PaymentTokenRepository struct {
	pool ports.Pool
}

// NewPaymentTokenRepository creates a new Postgres-backed payment token
// repository.
func NewPaymentTokenRepository(pool ports.Pool) *PaymentTokenRepository {
	return &PaymentTokenRepository{pool: pool}
}

// Insert writes token inside tx.
func (r *PaymentTokenRepository) Insert(ctx context.Context, tx ports.Pool, token domain.PaymentToken) error {
	const query = `
		INSERT INTO payment_tokens
			(token_id, restaurant_id, encrypted_pan, encrypted_cvv, key_version, pan_last_four,
			 pan_bin, expiry_month, expiry_year, card_brand, device_id, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	_, err := tx.Exec(ctx, query,
		token.TokenID, token.RestaurantID, token.EncryptedPAN, token.EncryptedCVV, token.KeyVersion,
		token.PANLastFour, token.PANBIN, token.ExpiryMonth, token.ExpiryYear, token.CardBrand,
		nullableString(token.DeviceID), token.Status, token.CreatedAt, token.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting payment token: %w", err)
	}
	return nil
}

// GetByID returns the token for tokenID, or nil if it does not exist.
func (r *PaymentTokenRepository) GetByID(ctx context.Context, tokenID string) (*domain.PaymentToken, error) {
	const query = `
		SELECT token_id, restaurant_id, encrypted_pan, encrypted_cvv, key_version, pan_last_four,
			   pan_bin, expiry_month, expiry_year, card_brand, device_id, status, created_at, updated_at
		FROM payment_tokens
		WHERE token_id = $1`

	token, err := scanPaymentToken(r.pool.QueryRow(ctx, query, tokenID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching payment token: %w", err)
	}
	return token, nil
}

// UpdateEncryption rewrites the ciphertext and key version during key
// rotation, leaving every other field untouched.
func (r *PaymentTokenRepository) UpdateEncryption(ctx context.Context, tokenID string, encryptedPAN, encryptedCVV []byte, keyVersion int) error {
	const query = `
		UPDATE payment_tokens
		SET encrypted_pan = $2, encrypted_cvv = $3, key_version = $4, updated_at = now()
		WHERE token_id = $1`

	if _, err := r.pool.Exec(ctx, query, tokenID, encryptedPAN, encryptedCVV, keyVersion); err != nil {
		return fmt.Errorf("updating token encryption: %w", err)
	}
	return nil
}

// Revoke marks a token REVOKED; revoked tokens are rejected by
// DecryptForProcessing and IsUsable.
func (r *PaymentTokenRepository) Revoke(ctx context.Context, tokenID string) error {
	const query = `UPDATE payment_tokens SET status = $2, updated_at = now() WHERE token_id = $1`
	if _, err := r.pool.Exec(ctx, query, tokenID, domain.PaymentTokenStatusRevoked); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

// ListByKeyVersion pages through tokens still encrypted under an old key
// version, for the rotation job.
func (r *PaymentTokenRepository) ListByKeyVersion(ctx context.Context, keyVersion int, limit int, afterTokenID string) ([]domain.PaymentToken, error) {
	const query = `
		SELECT token_id, restaurant_id, encrypted_pan, encrypted_cvv, key_version, pan_last_four,
			   pan_bin, expiry_month, expiry_year, card_brand, device_id, status, created_at, updated_at
		FROM payment_tokens
		WHERE key_version = $1 AND token_id > $2
		ORDER BY token_id ASC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, keyVersion, afterTokenID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing tokens by key version: %w", err)
	}
	defer rows.Close()

	var tokens []domain.PaymentToken
	for rows.Next() {
		token, err := scanPaymentToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning payment token: %w", err)
		}
		tokens = append(tokens, *token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tokens by key version: %w", err)
	}
	return tokens, nil
}

func scanPaymentToken(row rowScanner) (*domain.PaymentToken, error) {
	var t domain.PaymentToken
	var deviceID *string
	if err := row.Scan(
		&t.TokenID, &t.RestaurantID, &t.EncryptedPAN, &t.EncryptedCVV, &t.KeyVersion,
		&t.PANLastFour, &t.PANBIN, &t.ExpiryMonth, &t.ExpiryYear, &t.CardBrand,
		&deviceID, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if deviceID != nil {
		t.DeviceID = *deviceID
	}
	return &t, nil
}
