package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"schoolpay/internal/domain"
)

type AccessTokenRepository struct {
	db *sql.DB
}

func NewAccessTokenRepository(db *sql.DB) *AccessTokenRepository {
	return &AccessTokenRepository{db: db}
}

// FindByPlainToken resolves a bearer credential of the form "<id>|<secret>"
// (or a bare secret) against the access_tokens table. Only the sha256 of
// the secret part is stored.
func (r *AccessTokenRepository) FindByPlainToken(ctx context.Context, plainToken string) (*domain.AccessToken, error) {
	plainToken = strings.TrimSpace(plainToken)
	if plainToken == "" {
		return nil, domain.ErrTokenNotFound
	}

	var (
		tokenID   *int64
		tokenPart string
	)

	if idx := strings.Index(plainToken, "|"); idx > 0 {
		if id, err := strconv.ParseInt(plainToken[:idx], 10, 64); err == nil {
			tokenID = &id
		}
		tokenPart = plainToken[idx+1:]
	} else {
		tokenPart = plainToken
	}

	sum := sha256.Sum256([]byte(tokenPart))
	hashStr := fmt.Sprintf("%x", sum)

	var t domain.AccessToken

	if tokenID != nil {
		query := `
			SELECT t.id, t.token, t.user_id, u.role, t.expires_at
			FROM access_tokens t
			JOIN users u ON u.id = t.user_id
			WHERE t.id = $1
			  AND (t.expires_at IS NULL OR t.expires_at > $2)
		`

		err := r.db.QueryRowContext(ctx, query, *tokenID, time.Now()).Scan(
			&t.ID,
			&t.TokenHash,
			&t.UserID,
			&t.Role,
			&t.ExpiresAt,
		)
		if err == nil && t.TokenHash == hashStr {
			return &t, nil
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	query := `
		SELECT t.id, t.token, t.user_id, u.role, t.expires_at
		FROM access_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token = $1
		  AND (t.expires_at IS NULL OR t.expires_at > $2)
		ORDER BY t.created_at DESC
		LIMIT 1
	`

	err := r.db.QueryRowContext(ctx, query, hashStr, time.Now()).Scan(
		&t.ID,
		&t.TokenHash,
		&t.UserID,
		&t.Role,
		&t.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}

	return &t, nil
}
