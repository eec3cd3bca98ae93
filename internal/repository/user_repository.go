package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jn-uniformes/taller-api/internal/models"
)

const userColumns = `id, email, password_hash, name, area, active, created_at`

// UserRepository reads application users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail fetches a user for login.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID fetches a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListByAreas returns the active users of the given areas, used to resolve
// notification fan-out targets.
func (r *UserRepository) ListByAreas(ctx context.Context, areas ...models.Area) ([]models.User, error) {
	if len(areas) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(areas))
	args := make([]interface{}, len(areas))
	for i, area := range areas {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = area
	}
	query := fmt.Sprintf(`SELECT %s FROM users WHERE active = TRUE AND area IN (%s) ORDER BY name`,
		userColumns, strings.Join(placeholders, ","))

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("list users by area: %w", err)
	}
	return users, nil
}
