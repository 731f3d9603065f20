package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/shared"
)

const userColumns = "id, sequence, email, name, created_at, updated_at, deleted_at"

// UserRepository persists [models.User] records.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database with generated ID and sequence
func (r *UserRepository) Create(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	user.ID = shared.GenerateID()
	user.Sequence = sequence

	_, err = r.db.Exec(
		"INSERT INTO users (id, sequence, email, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		user.ID, user.Sequence, user.Email, user.Name, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email %s already registered", shared.ErrInvalidInput, user.Email)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a user by ID, excluding soft-deleted users
func (r *UserRepository) Get(id string) (*models.User, error) {
	row := r.db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ? AND deleted_at IS NULL", id)
	return r.scan(row, id)
}

// GetByEmail retrieves a user by email address, excluding soft-deleted users
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	row := r.db.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ? AND deleted_at IS NULL", email)
	return r.scan(row, email)
}

// Update modifies an existing user in the database
func (r *UserRepository) Update(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	user.UpdatedAt = time.Now().UTC()

	result, err := r.db.Exec(
		"UPDATE users SET email = ?, name = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		user.Email, user.Name, user.UpdatedAt, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return expectRow(result, shared.ErrUserNotFound, user.ID)
}

// Delete soft-deletes a user by ID
func (r *UserRepository) Delete(id string) error {
	result, err := r.db.Exec("UPDATE users SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectRow(result, shared.ErrUserNotFound, id)
}

// List retrieves all users ordered by sequence, excluding soft-deleted users
func (r *UserRepository) List() ([]*models.User, error) {
	rows, err := r.db.Query("SELECT " + userColumns + " FROM users WHERE deleted_at IS NULL ORDER BY sequence ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := r.scan(rows, "")
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return users, nil
}

func (r *UserRepository) scan(row scanner, key string) (*models.User, error) {
	var (
		user      models.User
		deletedAt sql.NullTime
	)

	err := row.Scan(&user.ID, &user.Sequence, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if deletedAt.Valid {
		user.DeletedAt = &deletedAt.Time
	}
	return &user, nil
}

// expectRow turns a zero-row write into notFound.
func expectRow(result sql.Result, notFound error, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}
