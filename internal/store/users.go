package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-tenant-admin/internal/errors"
	"github.com/jrsteele09/go-tenant-admin/internal/utils"
	"github.com/jrsteele09/go-tenant-admin/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var _ users.Repo = (*userRepo)(nil)

type userRepo struct {
	db     *sql.DB
	logger zerolog.Logger
}

const userColumns = `id, email, name, password_hash, role, tenant_id, active, created_at, updated_at, last_login_at`

func (r *userRepo) Upsert(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = users.NormaliseEmail(user.Email)
	r.logger.Debug().Str("op", "upsert").Str("table", "users").Str("id", user.ID).Msg("sql")

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   email = excluded.email,
		   name = excluded.name,
		   password_hash = excluded.password_hash,
		   role = excluded.role,
		   tenant_id = excluded.tenant_id,
		   active = excluded.active,
		   updated_at = excluded.updated_at,
		   last_login_at = excluded.last_login_at`,
		user.ID, user.Email, user.Name, user.PasswordHash, string(user.Role),
		nullableString(user.TenantID), boolToInt(user.Active),
		toNanos(user.CreatedAt), toNanos(user.UpdatedAt), nullableNanos(user.LastLoginAt),
	)
	if isUniqueViolation(err, "users.email") {
		return apperrors.ErrEmailTaken
	}
	if err != nil {
		return errors.Wrap(err, "[userRepo Upsert]")
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "[userRepo Delete]")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, users.NormaliseEmail(email))
	return r.scanOne(row)
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.scanOne(row)
}

func (r *userRepo) List(ctx context.Context, filter users.ListFilter) (users.ListResult, error) {
	var where whereClause
	if filter.TenantID != "" {
		where.add("tenant_id = ?", filter.TenantID)
	}
	if filter.Role != "" {
		where.add("role = ?", string(filter.Role))
	}
	if filter.Search != "" {
		where.add("(instr(lower(email), lower(?)) > 0 OR instr(lower(name), lower(?)) > 0)", filter.Search, filter.Search)
	}
	page := utils.NormalisePage(filter.Offset, filter.Limit)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where.String(), where.args...).Scan(&total); err != nil {
		return users.ListResult{}, errors.Wrap(err, "[userRepo List] count")
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+where.String()+` ORDER BY email LIMIT ? OFFSET ?`,
		append(where.args, page.Limit, page.Offset)...)
	if err != nil {
		return users.ListResult{}, errors.Wrap(err, "[userRepo List]")
	}
	defer rows.Close()

	list := make([]*users.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return users.ListResult{}, errors.Wrap(err, "[userRepo List] scan")
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return users.ListResult{}, errors.Wrap(err, "[userRepo List]")
	}
	return users.ListResult{Users: list, Total: total, Offset: page.Offset, Limit: page.Limit}, nil
}

func (r *userRepo) scanOne(row *sql.Row) (*users.User, error) {
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[userRepo] scan")
	}
	return u, nil
}

func scanUser(row scanner) (*users.User, error) {
	var u users.User
	var role string
	var tenantID sql.NullString
	var active int
	var createdAt, updatedAt int64
	var lastLogin sql.NullInt64

	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &tenantID, &active, &createdAt, &updatedAt, &lastLogin); err != nil {
		return nil, err
	}
	u.Role = users.Role(role)
	if tenantID.Valid {
		u.TenantID = utils.Ptr(tenantID.String)
	}
	u.Active = active != 0
	u.CreatedAt = fromNanos(createdAt)
	u.UpdatedAt = fromNanos(updatedAt)
	if lastLogin.Valid {
		u.LastLoginAt = utils.Ptr(fromNanos(lastLogin.Int64))
	}
	return &u, nil
}
