package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-tenant-admin/internal/errors"
	"github.com/jrsteele09/go-tenant-admin/internal/utils"
	"github.com/jrsteele09/go-tenant-admin/tenants"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var _ tenants.Repo = (*tenantRepo)(nil)

type tenantRepo struct {
	db     *sql.DB
	logger zerolog.Logger
}

const tenantColumns = `id, name, slug, active, created_at, updated_at`

func (r *tenantRepo) Upsert(ctx context.Context, tenant *tenants.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	r.logger.Debug().Str("op", "upsert").Str("table", "tenants").Str("id", tenant.ID).Msg("sql")

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (`+tenantColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   slug = excluded.slug,
		   active = excluded.active,
		   updated_at = excluded.updated_at`,
		tenant.ID, tenant.Name, tenant.Slug, boolToInt(tenant.Active),
		toNanos(tenant.CreatedAt), toNanos(tenant.UpdatedAt),
	)
	if isUniqueViolation(err, "tenants.slug") {
		return apperrors.ErrSlugTaken
	}
	if err != nil {
		return errors.Wrap(err, "[tenantRepo Upsert]")
	}
	return nil
}

func (r *tenantRepo) Delete(ctx context.Context, tenantID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, tenantID)
	if err != nil {
		return errors.Wrap(err, "[tenantRepo Delete]")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrTenantNotFound
	}
	return nil
}

func (r *tenantRepo) Get(ctx context.Context, tenantID string) (*tenants.Tenant, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, tenantID))
}

func (r *tenantRepo) GetBySlug(ctx context.Context, slug string) (*tenants.Tenant, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = ?`, slug))
}

func (r *tenantRepo) List(ctx context.Context, filter tenants.ListFilter) (tenants.ListResult, error) {
	var where whereClause
	if filter.Active != nil {
		where.add("active = ?", boolToInt(*filter.Active))
	}
	if filter.Search != "" {
		where.add("(instr(lower(name), lower(?)) > 0 OR instr(slug, lower(?)) > 0)", filter.Search, filter.Search)
	}
	page := utils.NormalisePage(filter.Offset, filter.Limit)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`+where.String(), where.args...).Scan(&total); err != nil {
		return tenants.ListResult{}, errors.Wrap(err, "[tenantRepo List] count")
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants`+where.String()+` ORDER BY name LIMIT ? OFFSET ?`,
		append(where.args, page.Limit, page.Offset)...)
	if err != nil {
		return tenants.ListResult{}, errors.Wrap(err, "[tenantRepo List]")
	}
	defer rows.Close()

	list := make([]*tenants.Tenant, 0)
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return tenants.ListResult{}, errors.Wrap(err, "[tenantRepo List] scan")
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return tenants.ListResult{}, errors.Wrap(err, "[tenantRepo List]")
	}
	return tenants.ListResult{Tenants: list, Total: total, Offset: page.Offset, Limit: page.Limit}, nil
}

func (r *tenantRepo) scanOne(row *sql.Row) (*tenants.Tenant, error) {
	t, err := scanTenant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrTenantNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[tenantRepo] scan")
	}
	return t, nil
}

func scanTenant(row scanner) (*tenants.Tenant, error) {
	var t tenants.Tenant
	var active int
	var createdAt, updatedAt int64
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &active, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	t.Active = active != 0
	t.CreatedAt = fromNanos(createdAt)
	t.UpdatedAt = fromNanos(updatedAt)
	return &t, nil
}
