package postgres

import (
	"context"
	"strings"
	"time"

	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/session"
	"pharmacare/backend/internal/store"
	"pharmacare/backend/internal/xid"
)

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" || user.Password == "" || !user.Role.Valid() {
		return store.ErrInvalidRecord
	}
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, full_name, password, role, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, email, user.FullName, user.Password, string(user.Role), user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

func scanUser(row rowScanner) (domain.UserAccount, error) {
	var user domain.UserAccount
	var role string
	if err := row.Scan(&user.ID, &user.Email, &user.FullName, &user.Password, &role, &user.Active, &user.CreatedAt); err != nil {
		return domain.UserAccount{}, err
	}
	user.Role = session.Role(role)
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, password, role, active, created_at
		FROM users
		WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, full_name, password, role, active, created_at
		FROM users
		ORDER BY email
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, email string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email)), password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
