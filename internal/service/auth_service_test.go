package service

import (
	"testing"

	"hostbook/internal/db"
	"hostbook/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserStore struct {
	byEmail   map[string]*db.User
	createErr error
}

func (s *fakeUserStore) Create(u *db.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	u.ID = len(s.byEmail) + 1
	if s.byEmail == nil {
		s.byEmail = map[string]*db.User{}
	}
	s.byEmail[u.Email] = u
	return nil
}

func (s *fakeUserStore) GetByEmail(email string) (*db.User, error) {
	return s.byEmail[email], nil
}

func TestSignupHostGetsUsernameSlug(t *testing.T) {
	store := &fakeUserStore{}
	svc := NewAuthService(store, "test-secret")

	user, token, err := svc.Signup("Asha Rao", "asha@example.com", "hunter22", "host", "")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Regexp(t, `^asha-rao-\d+$`, user.Username)
	assert.NotEqual(t, "hunter22", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter22")))
}

func TestSignupCustomerHasNoUsername(t *testing.T) {
	svc := NewAuthService(&fakeUserStore{}, "test-secret")

	user, _, err := svc.Signup("Ravi", "ravi@example.com", "pw123456", "customer", "+911234567890")
	require.NoError(t, err)
	assert.Empty(t, user.Username)
	assert.Equal(t, "+911234567890", user.Phone)
}

func TestSignupValidation(t *testing.T) {
	svc := NewAuthService(&fakeUserStore{}, "test-secret")

	_, _, err := svc.Signup("", "a@b.com", "pw", "host", "")
	assert.Error(t, err, "missing name")

	_, _, err = svc.Signup("A", "a@b.com", "pw", "admin", "")
	assert.Error(t, err, "admins are not self-service")
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := NewAuthService(&fakeUserStore{createErr: repository.ErrEmailTaken}, "test-secret")

	_, _, err := svc.Signup("Asha", "asha@example.com", "hunter22", "host", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email already in use")
}

func TestLoginIssuesTokenWithClaims(t *testing.T) {
	store := &fakeUserStore{}
	svc := NewAuthService(store, "test-secret")
	_, _, err := svc.Signup("Asha Rao", "asha@example.com", "hunter22", "host", "")
	require.NoError(t, err)

	user, token, err := svc.Login("asha@example.com", "hunter22")
	require.NoError(t, err)

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(user.ID), claims["user_id"])
	assert.Equal(t, "host", claims["role"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	store := &fakeUserStore{}
	svc := NewAuthService(store, "test-secret")
	_, _, err := svc.Signup("Asha", "asha@example.com", "hunter22", "host", "")
	require.NoError(t, err)

	_, _, err = svc.Login("asha@example.com", "wrong")
	assert.Error(t, err)

	_, _, err = svc.Login("nobody@example.com", "hunter22")
	assert.Error(t, err)
}
