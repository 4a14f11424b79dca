package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"hostbook/internal/db"

	"github.com/lib/pq"
)

// ErrEmailTaken is returned when signup hits the unique email constraint.
var ErrEmailTaken = errors.New("email already in use")

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(database *sql.DB) *UserRepository {
	return &UserRepository{DB: database}
}

func (r *UserRepository) Create(u *db.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, role, username, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err := r.DB.QueryRow(query, u.Name, u.Email, u.PasswordHash, u.Role, u.Username, u.Phone).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("error inserting user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(email string) (*db.User, error) {
	return r.getBy("email = $1", email)
}

func (r *UserRepository) GetByUsername(username string) (*db.User, error) {
	return r.getBy("username = $1", username)
}

func (r *UserRepository) GetByID(id int) (*db.User, error) {
	return r.getBy("id = $1", id)
}

func (r *UserRepository) getBy(where string, arg interface{}) (*db.User, error) {
	query := `SELECT id, name, email, password_hash, role, username, phone, created_at FROM users WHERE ` + where
	var u db.User
	err := r.DB.QueryRow(query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Username, &u.Phone, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) ListByRole(role string) ([]db.User, error) {
	query := `SELECT id, name, email, password_hash, role, username, phone, created_at FROM users`
	args := []interface{}{}
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying users: %w", err)
	}
	defer rows.Close()

	var users []db.User
	for rows.Next() {
		var u db.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Username, &u.Phone, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) CountAll() (int, error) {
	var count int
	if err := r.DB.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting users: %w", err)
	}
	return count, nil
}

func (r *UserRepository) CountByRole(role string) (int, error) {
	var count int
	if err := r.DB.QueryRow(`SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting users by role: %w", err)
	}
	return count, nil
}
