package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"fundportal/internal/model"
	"fundportal/internal/service/escalation"
)

type UserRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUserRepository(db *pgxpool.Pool, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `id, email, password_hash, name, COALESCE(phone, ''), role,
       COALESCE(state, ''), COALESCE(district, ''), COALESCE(organization, ''), created_at`

func scanUser(row pgx.Row, u *model.User) error {
	return row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.Phone,
		&u.Role,
		&u.State,
		&u.District,
		&u.Organization,
		&u.CreatedAt,
	)
}

// GetUser returns a user by ID, or nil when missing.
func (r *UserRepository) GetUser(ctx context.Context, userID int) (*model.User, error) {
	var u model.User
	err := scanUser(r.db.QueryRow(ctx, `
        SELECT `+userColumns+` FROM users WHERE id = $1
    `, userID), &u)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns a user by email for login.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := scanUser(r.db.QueryRow(ctx, `
        SELECT `+userColumns+` FROM users WHERE email = $1
    `, email), &u)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// FindUsersByRole returns users matching the role query. Empty scope
// fields are unconstrained, so a query for central administrators matches
// regardless of state and district.
func (r *UserRepository) FindUsersByRole(ctx context.Context, q escalation.RoleQuery) ([]model.User, error) {
	query := `
        SELECT ` + userColumns + `
        FROM users
        WHERE role = $1
          AND ($2 = '' OR state = $2)
          AND ($3 = '' OR district = $3)
        ORDER BY id ASC
    `
	rows, err := r.db.Query(ctx, query, q.Role, q.State, q.District)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
