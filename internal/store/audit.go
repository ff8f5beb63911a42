package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-tenant-admin/audit"
	"github.com/jrsteele09/go-tenant-admin/internal/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var _ audit.Repo = (*auditRepo)(nil)

type auditRepo struct {
	db     *sql.DB
	logger zerolog.Logger
}

const auditColumns = `id, type, user_id, email, tenant_id, ip, user_agent, success, message, created_at`

func (r *auditRepo) Insert(ctx context.Context, e *audit.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_events (`+auditColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), e.UserID, e.Email, e.TenantID, e.IP, e.UserAgent,
		boolToInt(e.Success), e.Message, toNanos(e.CreatedAt),
	)
	if err != nil {
		return errors.Wrap(err, "[auditRepo Insert]")
	}
	return nil
}

func (r *auditRepo) List(ctx context.Context, filter audit.ListFilter) (audit.ListResult, error) {
	var where whereClause
	if filter.Type != "" {
		where.add("type = ?", string(filter.Type))
	}
	if filter.UserID != "" {
		where.add("user_id = ?", filter.UserID)
	}
	if filter.TenantID != "" {
		where.add("tenant_id = ?", filter.TenantID)
	}
	if !filter.From.IsZero() {
		where.add("created_at >= ?", toNanos(filter.From))
	}
	if !filter.To.IsZero() {
		where.add("created_at < ?", toNanos(filter.To))
	}
	page := utils.NormalisePage(filter.Offset, filter.Limit)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events`+where.String(), where.args...).Scan(&total); err != nil {
		return audit.ListResult{}, errors.Wrap(err, "[auditRepo List] count")
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audit_events`+where.String()+` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		append(where.args, page.Limit, page.Offset)...)
	if err != nil {
		return audit.ListResult{}, errors.Wrap(err, "[auditRepo List]")
	}
	defer rows.Close()

	events := make([]*audit.Event, 0)
	for rows.Next() {
		var e audit.Event
		var eventType string
		var success int
		var createdAt int64
		if err := rows.Scan(&e.ID, &eventType, &e.UserID, &e.Email, &e.TenantID, &e.IP, &e.UserAgent, &success, &e.Message, &createdAt); err != nil {
			return audit.ListResult{}, errors.Wrap(err, "[auditRepo List] scan")
		}
		e.Type = audit.EventType(eventType)
		e.Success = success != 0
		e.CreatedAt = fromNanos(createdAt)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return audit.ListResult{}, errors.Wrap(err, "[auditRepo List]")
	}
	return audit.ListResult{Events: events, Total: total, Offset: page.Offset, Limit: page.Limit}, nil
}
