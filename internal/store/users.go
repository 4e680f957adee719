package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func (s *Store) CreateUser(email, password string) (*User, error) {
	email = strings.TrimSpace(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		id, email, string(hash), now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("create user %q: %w", email, ErrEmailTaken)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.GetUser(id)
}

func (s *Store) GetUser(id string) (*User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id,
	), "get user "+id)
}

func (s *Store) GetUserByEmail(email string) (*User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, strings.TrimSpace(email),
	), "get user by email")
}

func (s *Store) scanUser(row *sql.Row, op string) (*User, error) {
	u := &User{}
	var createdAt string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return u, nil
}

// Authenticate checks a password and returns the matching user. Unknown
// emails and wrong passwords both yield ErrInvalidCredentials.
func (s *Store) Authenticate(email, password string) (*User, error) {
	u, err := s.GetUserByEmail(email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// IssueToken creates a bearer token for userID. A zero ttl never expires.
func (s *Store) IssueToken(userID string, ttl time.Duration) (*Token, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := time.Now().UTC()
	t := &Token{Token: hex.EncodeToString(buf), UserID: userID, CreatedAt: now}
	var expires any
	if ttl > 0 {
		exp := now.Add(ttl)
		t.ExpiresAt = &exp
		expires = exp.Format(time.RFC3339)
	}

	_, err := s.db.Exec(
		`INSERT INTO tokens (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		t.Token, userID, now.Format(time.RFC3339), expires,
	)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return t, nil
}

// UserForToken resolves a bearer token. Unknown and expired tokens yield
// ErrNotFound.
func (s *Store) UserForToken(token string) (*User, error) {
	var userID string
	var expires sql.NullString
	err := s.db.QueryRow(
		`SELECT user_id, expires_at FROM tokens WHERE token = ?`, token,
	).Scan(&userID, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup token: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	if expires.Valid {
		exp, _ := time.Parse(time.RFC3339, expires.String)
		if !time.Now().UTC().Before(exp) {
			return nil, fmt.Errorf("token expired: %w", ErrNotFound)
		}
	}
	return s.GetUser(userID)
}

func (s *Store) RevokeToken(token string) error {
	_, err := s.db.Exec(`DELETE FROM tokens WHERE token = ?`, token)
	return err
}
