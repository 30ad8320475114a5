package database

import (
	"context"
	"errors"

	"serwis-uzytkownikow/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrDuplicateEmail            = errors.New("a user with this email already exists")
	ErrDuplicateProviderIdentity = errors.New("this provider identity is already linked to a user")
	ErrNegativeQuota             = errors.New("quota must not be negative")
	ErrInvalidRole               = errors.New("role must be 'user' or 'admin'")
	ErrNoSuchUser                = errors.New("no user with this id")
)

const userColumns = `id, email, provider, provider_user_id, role, quota, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Provider,
		&user.ProviderUserID,
		&user.Role,
		&user.Quota,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

type CreateUserParams struct {
	Email          string
	Provider       string
	ProviderUserID *string
	Role           string
	Quota          int64
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (*models.User, error) {
	if arg.Provider == "" {
		arg.Provider = models.ProviderLocal
	}
	if arg.Role == "" {
		arg.Role = models.RoleUser
	}
	if !models.ValidRole(arg.Role) {
		return nil, ErrInvalidRole
	}
	if arg.Quota < 0 {
		return nil, ErrNegativeQuota
	}

	query := `
		INSERT INTO users (email, provider, provider_user_id, role, quota)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	row := q.db.QueryRow(ctx, query, arg.Email, arg.Provider, arg.ProviderUserID, arg.Role, arg.Quota)

	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "uq_provider_user" {
				return nil, ErrDuplicateProviderIdentity
			}
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	return user, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(q.db.QueryRow(ctx, query, id))
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(q.db.QueryRow(ctx, query, email))
}

func (q *Queries) GetUserByProviderIdentity(ctx context.Context, provider, providerUserID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE provider = $1 AND provider_user_id = $2`
	return scanUser(q.db.QueryRow(ctx, query, provider, providerUserID))
}

// UpdateUserParams applies only the non-nil fields. Role and quota values are
// validated before any statement reaches the database.
type UpdateUserParams struct {
	Email *string
	Role  *string
	Quota *int64
}

func (q *Queries) UpdateUser(ctx context.Context, id int64, arg UpdateUserParams) (*models.User, error) {
	if arg.Role != nil && !models.ValidRole(*arg.Role) {
		return nil, ErrInvalidRole
	}
	if arg.Quota != nil && *arg.Quota < 0 {
		return nil, ErrNegativeQuota
	}

	query := `
		UPDATE users
		SET
			email = COALESCE($2, email),
			role = COALESCE($3, role),
			quota = COALESCE($4, quota)
		WHERE id = $1
		RETURNING ` + userColumns

	row := q.db.QueryRow(ctx, query, id, arg.Email, arg.Role, arg.Quota)

	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	return user, nil
}

func (q *Queries) DeleteUser(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM users WHERE id = $1`
	res, err := q.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) ListUsers(ctx context.Context, limit int, offset int) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := q.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Provider,
			&user.ProviderUserID,
			&user.Role,
			&user.Quota,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if users == nil {
		return []models.User{}, nil
	}

	return users, nil
}

// EnsureAdminUser seeds the first admin account. It is a no-op when a user
// with this email already exists, so startup stays idempotent.
func (q *Queries) EnsureAdminUser(ctx context.Context, email string, quota int64) (*models.User, error) {
	existing, err := q.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if quota <= 0 {
		quota = 1000
	}

	admin, err := q.CreateUser(ctx, CreateUserParams{
		Email:    email,
		Provider: models.ProviderLocal,
		Role:     models.RoleAdmin,
		Quota:    quota,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return q.GetUserByEmail(ctx, email)
		}
		return nil, err
	}

	return admin, nil
}
