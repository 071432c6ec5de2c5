package store

import (
	"database/sql"
	"fmt"

	"github.com/openassembly/propmove/internal/domain"
)

// UserCreateParams contains parameters for creating a new user.
type UserCreateParams struct {
	Username     string
	Email        string
	PasswordHash string
	DisplayName  *string
	Role         domain.UserRole // defaults to USER if empty
}

// CreateUser inserts a new enabled user and returns it.
func CreateUser(q Queryer, params UserCreateParams) (*domain.User, error) {
	role := params.Role
	if role == "" {
		role = domain.RoleUser
	}

	id := NewID()
	_, err := q.Exec(`
		INSERT INTO users (id, username, email, password_hash, display_name, role, enabled)
		VALUES (?, ?, ?, ?, ?, ?, 1)
	`, id, params.Username, params.Email, params.PasswordHash, nullableString(params.DisplayName), string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to create user %q: %w", params.Username, err)
	}

	return GetUser(q, id)
}

// GetUser loads a user by id.
func GetUser(q Queryer, id string) (*domain.User, error) {
	user, err := scanUser(q.QueryRow(`
		SELECT id, username, email, password_hash, display_name, role, enabled, created_at, updated_at
		FROM users WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// FindUserByEmailOrUsername finds a user matching either field exactly.
// Returns nil (no error) when nothing matches.
func FindUserByEmailOrUsername(q Queryer, email, username string) (*domain.User, error) {
	user, err := scanUser(q.QueryRow(`
		SELECT id, username, email, password_hash, display_name, role, enabled, created_at, updated_at
		FROM users WHERE email = ? OR username = ?
		LIMIT 1
	`, email, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

// FindUserBySelector finds a user by id, username, or email.
// Returns nil (no error) when nothing matches.
func FindUserBySelector(q Queryer, selector string) (*domain.User, error) {
	user, err := scanUser(q.QueryRow(`
		SELECT id, username, email, password_hash, display_name, role, enabled, created_at, updated_at
		FROM users WHERE id = ? OR username = ? OR email = ?
		LIMIT 1
	`, selector, selector, selector))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

// ListEnabledUsers returns enabled users ordered by username, capped at limit.
func ListEnabledUsers(q Queryer, limit int) ([]*domain.User, error) {
	rows, err := q.Query(`
		SELECT id, username, email, password_hash, display_name, role, enabled, created_at, updated_at
		FROM users WHERE enabled = 1
		ORDER BY username ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	var role string
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.DisplayName, &role, &user.Enabled, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.Role = domain.UserRole(role)
	return &user, nil
}
