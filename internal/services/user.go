package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/hirehub/apiserver/internal/store"
	"github.com/hirehub/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByIDWithSecret(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	Delete(ctx context.Context, id int) error
}

// UserService is the credential store. It is the only place raw passwords
// are handled.
type UserService struct {
	repo   UserRepository
	logger *slog.Logger
	cost   int
}

func NewUserService(repo UserRepository, logger *slog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger, cost: bcrypt.DefaultCost}
}

// Create registers an account. An empty role defaults to user.
func (s *UserService) Create(ctx context.Context, name, email, password string, role types.Role) (types.User, error) {
	if role == "" {
		role = types.RoleUser
	}
	if !role.Valid() {
		return types.User{}, validationError("role", fmt.Sprintf("%q is not a valid role", role))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Name:         strings.TrimSpace(name),
		Email:        strings.TrimSpace(email),
		Role:         role,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, ErrEmailTaken
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// FindByEmailWithSecret loads a user including the password hash.
func (s *UserService) FindByEmailWithSecret(ctx context.Context, email string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords both
// give ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.FindByEmailWithSecret(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if !passwordMatches(user.PasswordHash, password) {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// UpdateProfile changes name and email.
func (s *UserService) UpdateProfile(ctx context.Context, id int, name, email string) (types.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	user.Name = strings.TrimSpace(name)
	user.Email = strings.TrimSpace(email)

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return types.User{}, ErrEmailTaken
		case errors.Is(err, store.ErrNotFound):
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

// UpdatePassword replaces the password after checking the current one. The
// returned user carries no hash.
func (s *UserService) UpdatePassword(ctx context.Context, id int, current, next string) (types.User, error) {
	user, err := s.repo.GetByIDWithSecret(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, err
	}
	if !passwordMatches(user.PasswordHash, current) {
		return types.User{}, ErrWrongPassword
	}
	if passwordMatches(user.PasswordHash, next) {
		return types.User{}, ErrSamePassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, id, string(hash)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, fmt.Errorf("update password: %w", err)
	}
	user.PasswordHash = ""

	s.logger.InfoContext(ctx, "password changed", "user_id", id)
	return user, nil
}

// SetRole changes the role of the account registered under email. It backs
// the promote command, the only path to the admin role.
func (s *UserService) SetRole(ctx context.Context, email string, role types.Role) (types.User, error) {
	if !role.Valid() {
		return types.User{}, validationError("role", fmt.Sprintf("%q is not a valid role", role))
	}
	user, err := s.FindByEmailWithSecret(ctx, email)
	if err != nil {
		return types.User{}, err
	}
	user.Role = role
	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, fmt.Errorf("update role: %w", err)
	}
	return updated, nil
}

func passwordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
