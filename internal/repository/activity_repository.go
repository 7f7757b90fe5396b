package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/auth-service/internal/model"
)

// ActivityRepo reads and appends rows of the append-only `activity_logs`
// table.  Writes normally arrive through the audit consumer; the repo is
// also the read side for the admin listing endpoints.
type ActivityRepo struct{ DB *sql.DB }

func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{DB: db} }

// Insert appends one activity row.
func (r *ActivityRepo) Insert(ctx context.Context, e model.ActivityLog) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO activity_logs (user_id, action, success, detail, ip, user_agent, created_at) VALUES (?,?,?,?,?,?,?)",
		e.UserID, e.Action, e.Success, e.Detail, e.IP, e.UserAgent, e.CreatedAt)
	return err
}

// List returns a page of activity rows, newest first.  When userID is
// non-zero the page is filtered to that user.
func (r *ActivityRepo) List(ctx context.Context, userID uint64, offset, limit int) ([]model.ActivityLog, error) {
	query := "SELECT id, user_id, action, success, detail, ip, user_agent, created_at FROM activity_logs"
	args := []interface{}{}
	if userID != 0 {
		query += " WHERE user_id=?"
		args = append(args, userID)
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ActivityLog
	for rows.Next() {
		var e model.ActivityLog
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Success, &e.Detail,
			&e.IP, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
