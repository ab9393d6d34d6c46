package store

import (
	"database/sql"
	"errors"
	"time"
)

// User represents a shop account.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository provides CRUD operations for users.
type UserRepository struct {
	db *sql.DB
}

// Users returns the user repository for this store.
func (s *Store) Users() *UserRepository {
	return &UserRepository{db: s.db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(u *User) error {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO users (id, username, email, password_hash, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Name, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

// GetByID retrieves a user by its ID.
func (r *UserRepository) GetByID(id string) (*User, error) {
	return r.get(`SELECT id, username, email, password_hash, name, created_at, updated_at
		 FROM users WHERE id = ?`, id)
}

// GetByUsername retrieves a user by its username.
func (r *UserRepository) GetByUsername(username string) (*User, error) {
	return r.get(`SELECT id, username, email, password_hash, name, created_at, updated_at
		 FROM users WHERE username = ?`, username)
}

// GetByEmail retrieves a user by its email address.
func (r *UserRepository) GetByEmail(email string) (*User, error) {
	return r.get(`SELECT id, username, email, password_hash, name, created_at, updated_at
		 FROM users WHERE email = ?`, email)
}

func (r *UserRepository) get(query string, arg any) (*User, error) {
	u := &User{}

	err := r.db.QueryRow(query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return u, nil
}

// Update updates an existing user's profile fields.
func (r *UserRepository) Update(u *User) error {
	u.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE users SET email = ?, name = ?, updated_at = ? WHERE id = ?`,
		u.Email, u.Name, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a user and, via cascade, their cart and wishlist rows.
func (r *UserRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
