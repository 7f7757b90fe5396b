package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
)

// TokenRepo persists each user's refresh-token record list in the
// `refresh_tokens` table.  The raw signed token string is stored so that
// sweeps can re-verify records cryptographically; exact membership of
// (user_id, token) is the revocation check.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Append inserts a refresh-token record row.
func (r *TokenRepo) Append(ctx context.Context, userID uint64, token string, createdAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token, created_at) VALUES (?,?,?)",
		userID, token, createdAt)
	return err
}

// Contains reports whether the exact token string is in the user's
// record list.
func (r *TokenRepo) Contains(ctx context.Context, userID uint64, token string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM refresh_tokens WHERE user_id=? AND token=? LIMIT 1",
		userID, token).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RemoveOne deletes the record matching the token.  Deleting a token
// that is already gone affects zero rows and is not an error.
func (r *TokenRepo) RemoveOne(ctx context.Context, userID uint64, token string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE user_id=? AND token=?", userID, token)
	return err
}

// RemoveAll clears the user's entire record list.
func (r *TokenRepo) RemoveAll(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE user_id=?", userID)
	return err
}

// ListForUser returns the user's record list ordered by creation time.
func (r *TokenRepo) ListForUser(ctx context.Context, userID uint64) ([]model.RefreshTokenRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, token, created_at FROM refresh_tokens WHERE user_id=? ORDER BY created_at",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RefreshTokenRecord
	for rows.Next() {
		var rec model.RefreshTokenRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Token, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UsersWithTokens returns the distinct owners of outstanding records.
func (r *TokenRepo) UsersWithTokens(ctx context.Context) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT DISTINCT user_id FROM refresh_tokens")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// RemoveByID deletes the given record ids for one user and returns how
// many rows were actually removed.  Targeting ids rather than rewriting
// the whole list means a record appended between the sweep's read and
// this delete is left untouched.
func (r *TokenRepo) RemoveByID(ctx context.Context, userID uint64, ids []uint64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := r.DB.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM refresh_tokens WHERE user_id=? AND id IN (%s)", placeholders),
		args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// RemoveOlderThan deletes every record created before the cutoff,
// regardless of whether its token still verifies.
func (r *TokenRepo) RemoveOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
