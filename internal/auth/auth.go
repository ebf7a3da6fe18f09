// Package auth issues and verifies staff session tokens and hashes
// passwords.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Role is a staff permission level.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleViewer  Role = "viewer"
)

var rank = map[Role]int{RoleViewer: 1, RoleTeacher: 2, RoleAdmin: 3}

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return rank[r] > 0 }

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool { return rank[r] >= rank[min] && rank[r] > 0 }

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// User is a staff account.
type User struct {
	Username     string    `json:"username" validate:"required,min=3,max=64"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role" validate:"required,oneof=admin teacher viewer"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserStore persists staff accounts.
type UserStore interface {
	GetUser(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	PutUser(ctx context.Context, u User) error
	DeleteUser(ctx context.Context, username string) error
	CountUsers(ctx context.Context) (int64, error)
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares password against a bcrypt hash.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Claims are the session token claims.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and parses HS256 session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager creates a Manager.
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken issues a session token for user.
func (m *Manager) GenerateToken(user User) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "traintrack",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// ParseToken validates tokenString and returns its claims.
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.Role.Valid() || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Login verifies username and password against store and issues a token.
func (m *Manager) Login(ctx context.Context, store UserStore, username, password string) (string, User, error) {
	user, err := store.GetUser(ctx, strings.TrimSpace(username))
	if err != nil {
		// same answer for unknown users and bad passwords
		return "", User{}, ErrInvalidCredentials
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return "", User{}, err
	}
	token, _, err := m.GenerateToken(user)
	if err != nil {
		return "", User{}, err
	}
	return token, user, nil
}

// Bootstrap creates an admin account when store has no users. It returns
// true when an account was created.
func Bootstrap(ctx context.Context, store UserStore, username, password string) (bool, error) {
	if password == "" {
		return false, nil
	}
	n, err := store.CountUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	if err := store.PutUser(ctx, User{Username: username, PasswordHash: hash, Role: RoleAdmin, CreatedAt: time.Now()}); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}
