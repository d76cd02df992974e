package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// UserRepository handles database operations for users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, auth_subject, firstname, lastname, email, picture, is_guest, trackforums`

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	var user User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetBySubject retrieves a user by the subject of their identity provider.
func (r *UserRepository) GetBySubject(ctx context.Context, subject string) (*User, error) {
	var user User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE auth_subject = ?`)
	if err := r.db.GetContext(ctx, &user, query, subject); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with subject %q: %w", subject, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by subject: %w", err)
	}
	return &user, nil
}

// CreateUser inserts a new user. The ID is not populated; callers that need it
// read the user back by subject.
func (r *UserRepository) CreateUser(ctx context.Context, user *User) error {
	query := `INSERT INTO users (username, auth_subject, firstname, lastname, email, picture, is_guest, trackforums)
		VALUES (:username, :auth_subject, :firstname, :lastname, :email, :picture, :is_guest, :trackforums)`
	// Flags are stored as integers on every driver.
	args := map[string]interface{}{
		"username":     user.Username,
		"auth_subject": user.AuthSubject,
		"firstname":    user.FirstName,
		"lastname":     user.LastName,
		"email":        user.Email,
		"picture":      flag(user.Picture),
		"is_guest":     flag(user.IsGuest),
		"trackforums":  flag(user.TrackForums),
	}
	if _, err := r.db.NamedExecContext(ctx, query, args); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
