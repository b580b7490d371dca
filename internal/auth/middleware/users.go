package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

var (
	ErrUnknownUser = errors.New("unknown user")
	ErrBadPassword = errors.New("wrong password")
	ErrInvalidUser = errors.New("invalid user")
)

// Authenticate checks password against the stored hash and returns the
// user's role.
func Authenticate(ctx context.Context, db *sql.DB, username, password string) (string, error) {
	if db == nil {
		return "", ErrUnknownUser
	}
	var role, hash string
	err := db.QueryRowContext(ctx,
		`SELECT role, password_hash FROM users WHERE username=$1`, username).Scan(&role, &hash)
	if errors.Is(err, sql.ErrNoRows) || isUsersTableMissing(err) {
		return "", ErrUnknownUser
	}
	if err != nil {
		return "", err
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", ErrBadPassword
	}
	return role, nil
}

// UpsertUser creates the user or replaces its role and password.
func UpsertUser(ctx context.Context, db *sql.DB, username, password, role string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrInvalidUser)
	}
	if role == "" {
		role = rbac.RoleUser
	}
	if !rbac.KnownRole(role) {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidUser, role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
INSERT INTO users (id, username, role, password_hash, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT(username) DO UPDATE SET role=excluded.role, password_hash=excluded.password_hash`,
		uuid.NewString(), username, role, string(hash), time.Now().UnixMicro())
	return err
}
