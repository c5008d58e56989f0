package services

import (
	"database/sql"
	"errors"
	"strings"

	"pickhub/internal/domain"
	"pickhub/internal/repos"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	Users *repos.UserRepo
}

func NewAuthService(users *repos.UserRepo) *AuthService { return &AuthService{Users: users} }

// Login verifies credentials and binds a fresh opaque token to the user.
// Unknown username and wrong password return the same error so the response
// never reveals which half failed.
func (s *AuthService) Login(username, password string) (string, *domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, domain.ErrInvalidInput("username and password are required")
	}
	u, err := s.Users.ByUsername(username)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, domain.ErrForbidden("invalid credentials")
	}
	if err != nil {
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return "", nil, domain.ErrForbidden("invalid credentials")
	}

	token := uuid.NewString()
	if err := s.Users.BindSession(token, u.ID); err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *AuthService) Logout(token string) error {
	if token == "" {
		return nil
	}
	return s.Users.UnbindSession(token)
}

// Authenticate resolves a token to its user, or AUTH_REQUIRED.
func (s *AuthService) Authenticate(token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrAuthRequired()
	}
	u, err := s.Users.SessionUser(token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAuthRequired()
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser is the admin path for provisioning accounts.
func (s *AuthService) CreateUser(username, name, password, role string) (*domain.User, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" || password == "" {
		return nil, domain.ErrInvalidInput("username and password are required")
	}
	switch role {
	case domain.RoleRequester, domain.RolePicker, domain.RoleAdmin:
	default:
		return nil, domain.ErrInvalidInput("role must be REQUESTER, PICKER or ADMIN")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		ID:       uuid.NewString(),
		Username: username,
		Name:     name,
		Hash:     string(hash),
		Role:     role,
	}
	if err := s.Users.Create(u); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, domain.ErrDuplicateName(username)
		}
		return nil, err
	}
	return u, nil
}
