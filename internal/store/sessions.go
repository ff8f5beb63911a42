package store

import (
	"context"
	"database/sql"

	apperrors "github.com/jrsteele09/go-tenant-admin/internal/errors"
	"github.com/jrsteele09/go-tenant-admin/internal/utils"
	"github.com/jrsteele09/go-tenant-admin/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var _ sessions.Repo = (*sessionRepo)(nil)

type sessionRepo struct {
	db     *sql.DB
	logger zerolog.Logger
}

const sessionColumns = `id, user_id, tenant_id, ip, user_agent, created_at, last_refreshed_at, expires_at, refresh_count`

func (r *sessionRepo) Upsert(ctx context.Context, s *sessions.Session) error {
	if s.ID == "" {
		return errors.New("[sessionRepo Upsert] session id is required")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   last_refreshed_at = excluded.last_refreshed_at,
		   expires_at = excluded.expires_at,
		   refresh_count = excluded.refresh_count`,
		s.ID, s.UserID, s.TenantID, s.IP, s.UserAgent,
		toNanos(s.CreatedAt), toNanos(s.LastRefreshedAt), toNanos(s.ExpiresAt), s.RefreshCount,
	)
	if err != nil {
		return errors.Wrap(err, "[sessionRepo Upsert]")
	}
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*sessions.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[sessionRepo Get]")
	}
	return s, nil
}

func (r *sessionRepo) List(ctx context.Context, filter sessions.ListFilter) (sessions.ListResult, error) {
	var where whereClause
	if filter.UserID != "" {
		where.add("user_id = ?", filter.UserID)
	}
	if filter.TenantID != "" {
		where.add("tenant_id = ?", filter.TenantID)
	}
	if !filter.ActiveAt.IsZero() {
		where.add("expires_at > ?", toNanos(filter.ActiveAt))
	}
	page := utils.NormalisePage(filter.Offset, filter.Limit)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`+where.String(), where.args...).Scan(&total); err != nil {
		return sessions.ListResult{}, errors.Wrap(err, "[sessionRepo List] count")
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions`+where.String()+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		append(where.args, page.Limit, page.Offset)...)
	if err != nil {
		return sessions.ListResult{}, errors.Wrap(err, "[sessionRepo List]")
	}
	defer rows.Close()

	list := make([]*sessions.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return sessions.ListResult{}, errors.Wrap(err, "[sessionRepo List] scan")
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return sessions.ListResult{}, errors.Wrap(err, "[sessionRepo List]")
	}
	return sessions.ListResult{Sessions: list, Total: total, Offset: page.Offset, Limit: page.Limit}, nil
}

func scanSession(row scanner) (*sessions.Session, error) {
	var s sessions.Session
	var createdAt, refreshedAt, expiresAt int64
	if err := row.Scan(&s.ID, &s.UserID, &s.TenantID, &s.IP, &s.UserAgent, &createdAt, &refreshedAt, &expiresAt, &s.RefreshCount); err != nil {
		return nil, err
	}
	s.CreatedAt = fromNanos(createdAt)
	s.LastRefreshedAt = fromNanos(refreshedAt)
	s.ExpiresAt = fromNanos(expiresAt)
	return &s, nil
}
