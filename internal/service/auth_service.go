package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"hostbook/internal/db"
	apperrors "hostbook/internal/errors"
	"hostbook/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the account persistence the auth flow depends on.
type UserStore interface {
	Create(u *db.User) error
	GetByEmail(email string) (*db.User, error)
}

type AuthService struct {
	users     UserStore
	jwtSecret string
	now       func() time.Time
}

func NewAuthService(users UserStore, jwtSecret string) *AuthService {
	return &AuthService{users: users, jwtSecret: jwtSecret, now: time.Now}
}

// Signup registers a customer or host account. Hosts get a public username
// slug derived from their name.
func (s *AuthService) Signup(name, email, password, role, phone string) (*db.User, string, error) {
	if name == "" || email == "" || password == "" {
		return nil, "", apperrors.ErrValidation("name, email and password are required")
	}
	if role != "host" && role != "customer" {
		return nil, "", apperrors.ErrValidation("role must be host or customer")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	user := &db.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Phone:        phone,
	}
	if role == "host" {
		slug := strings.ToLower(strings.Join(strings.Fields(name), "-"))
		user.Username = fmt.Sprintf("%s-%d", slug, s.now().UnixNano()%10000)
	}

	if err := s.users.Create(user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, "", apperrors.ErrValidation("email already in use")
		}
		return nil, "", err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Login(email, password string) (*db.User, string, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", apperrors.ErrUnauthorized("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", apperrors.ErrUnauthorized("invalid email or password")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) issueToken(user *db.User) (string, error) {
	if s.jwtSecret == "" {
		return "", errors.New("JWT_SECRET not set")
	}
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"exp":     s.now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
