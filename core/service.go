package core

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// RepositoryAuthService verifies credentials and registers accounts
// against a UserRepository, hashing passwords with bcrypt.
type RepositoryAuthService struct {
	users UserRepository
	cost  int
}

func NewRepositoryAuthService(users UserRepository, bcryptCost int) *RepositoryAuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &RepositoryAuthService{users: users, cost: bcryptCost}
}

// Authenticate returns the user for a matching username/password pair.
// Unknown username and wrong password both yield ErrInvalidCredentials
// so callers cannot enumerate accounts.
func (s *RepositoryAuthService) Authenticate(username, password string) (User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil || u == nil {
		return User{}, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}, nil
}

// Register creates a new account after rejecting duplicate usernames and
// emails. Field validation (blank checks, email shape, password length)
// happens at the handler layer; this only enforces uniqueness.
func (s *RepositoryAuthService) Register(username, email, password string) (User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if taken, err := s.users.ExistsByUsername(ctx, username); err != nil {
		return User{}, err
	} else if taken {
		return User{}, ErrUsernameTaken
	}
	if taken, err := s.users.ExistsByEmail(ctx, email); err != nil {
		return User{}, err
	} else if taken {
		return User{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, err
	}

	u, err := s.users.Create(ctx, username, email, string(hash))
	if err != nil {
		return User{}, err
	}
	return User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}, nil
}
