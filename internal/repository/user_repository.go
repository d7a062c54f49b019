package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/tour-marketplace/internal/model"
)

const userColumns = `id, email, password_hash, name, phone, role, status, managing_agent_id, created_at, updated_at`

func scanUser(s scanner) (model.User, error) {
	var (
		u     model.User
		phone sql.NullString
		agent sql.NullString
	)
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &phone, &u.Role, &u.Status, &agent, &u.CreatedAt, &u.UpdatedAt)
	u.Phone = phone.String
	u.ManagingAgentID = agent.String
	return u, err
}

// CreateUser inserts u.  The email is normalized; a second account with
// the same email yields ErrDuplicate.
func (r *sqlQueries) CreateUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	now := nowUTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, name, phone, role, status, managing_agent_id, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.PasswordHash, u.Name, nullable(u.Phone), u.Role, u.Status, nullable(u.ManagingAgentID), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", classify(err))
	}
	return nil
}

// GetUser fetches a user by id.
func (r *sqlQueries) GetUser(ctx context.Context, id string) (model.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if err != nil {
		return model.User{}, notFound(err, "get user")
	}
	return u, nil
}

// GetUserByEmail fetches a user by normalized email.
func (r *sqlQueries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	if err != nil {
		return model.User{}, notFound(err, "get user by email")
	}
	return u, nil
}

// LockUser reads a user with a row lock.
func (r *sqlQueries) LockUser(ctx context.Context, id string) (model.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? FOR UPDATE", id))
	if err != nil {
		return model.User{}, notFound(err, "lock user")
	}
	return u, nil
}

// UpdateUserStatus writes a status chosen by the user workflow.
func (r *sqlQueries) UpdateUserStatus(ctx context.Context, id string, status model.UserStatus) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE users SET status=?, updated_at=? WHERE id=?", status, nowUTC(), id)
	if err != nil {
		return fmt.Errorf("update user status: %w", classify(err))
	}
	return expectOne(res, "update user status")
}

// expectOne checks that an UPDATE or DELETE touched exactly one row.
func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	return nil
}
