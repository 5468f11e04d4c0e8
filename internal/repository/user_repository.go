package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/hama-community/welfare/internal/database"
	"github.com/hama-community/welfare/internal/model"
	"github.com/hama-community/welfare/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userSelect = "SELECT id,email,full_name,password_hash,role,neighborhood_id,is_active,created_at,updated_at FROM users"

func scanUser(s rowScanner) (model.User, error) {
	var (
		u   model.User
		nbh sql.NullString
	)
	err := s.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.Role, &nbh, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	u.NeighborhoodID = nullString(nbh)
	return u, err
}

// Create inserts a user with a fresh UUID and returns it.
func (r *UserRepo) Create(ctx context.Context, email, fullName, password, role string, cost int) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, full_name, password_hash, role) VALUES (?,?,?,?,?)",
		id, email, strings.TrimSpace(fullName), hash, role)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return "", ErrEmailExists
		}
		return "", err
	}
	return id, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx, userSelect+" WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, userSelect+" WHERE id=? LIMIT 1", id))
}
