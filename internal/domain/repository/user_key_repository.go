package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safeinsights/management-app-sub003/internal/common"
	"github.com/safeinsights/management-app-sub003/internal/domain/model"
)

type UserKeyRepository interface {
	GetByUserID(ctx context.Context, userID string) (*model.UserPublicKey, error)
	Insert(ctx context.Context, key *model.UserPublicKey) error
	// Replace overwrites an existing key unconditionally. Used only for
	// explicit regeneration; bundles wrapped for the old key stay orphaned.
	Replace(ctx context.Context, key *model.UserPublicKey) error
	ListByOrg(ctx context.Context, orgID string) ([]model.UserPublicKey, error)
}

type pgUserKeyRepository struct {
	db *sql.DB
}

func NewPgUserKeyRepository(db *sql.DB) UserKeyRepository {
	return &pgUserKeyRepository{db: db}
}

func (r *pgUserKeyRepository) GetByUserID(ctx context.Context, userID string) (*model.UserPublicKey, error) {
	query := `SELECT user_id, public_key, fingerprint, created_at, updated_at
	          FROM user_public_keys WHERE user_id = $1`

	key := &model.UserPublicKey{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&key.UserID, &key.PublicKey, &key.Fingerprint, &key.CreatedAt, &key.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserKeyRepository.GetByUserID: %w", err)
	}
	return key, nil
}

func (r *pgUserKeyRepository) Insert(ctx context.Context, key *model.UserPublicKey) error {
	query := `INSERT INTO user_public_keys (user_id, public_key, fingerprint)
	          VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, key.UserID, key.PublicKey, key.Fingerprint); err != nil {
		return fmt.Errorf("pgUserKeyRepository.Insert: %w", err)
	}
	return nil
}

func (r *pgUserKeyRepository) Replace(ctx context.Context, key *model.UserPublicKey) error {
	query := `UPDATE user_public_keys
	          SET public_key = $2, fingerprint = $3, updated_at = CURRENT_TIMESTAMP
	          WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, key.UserID, key.PublicKey, key.Fingerprint)
	if err != nil {
		return fmt.Errorf("pgUserKeyRepository.Replace: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgUserKeyRepository) ListByOrg(ctx context.Context, orgID string) ([]model.UserPublicKey, error) {
	query := `
        SELECT k.user_id, k.public_key, k.fingerprint, k.created_at, k.updated_at
        FROM user_public_keys k
        JOIN org_users ou ON ou.user_id = k.user_id
        WHERE ou.org_id = $1
        ORDER BY k.user_id`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("pgUserKeyRepository.ListByOrg: %w", err)
	}
	defer rows.Close()

	var keys []model.UserPublicKey
	for rows.Next() {
		var k model.UserPublicKey
		if err := rows.Scan(&k.UserID, &k.PublicKey, &k.Fingerprint, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgUserKeyRepository.ListByOrg: scan: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
