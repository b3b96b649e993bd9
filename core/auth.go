package core

import (
	"errors"
	"time"
)

// User represents an authenticated principal returned to handlers.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	// ErrInvalidCredentials is returned when username/password is wrong.
	// Unknown user and wrong password map to the same error on purpose.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = errors.New("email already exists")
)

// AuthService defines credential verification and account creation.
type AuthService interface {
	Authenticate(username, password string) (User, error)
	Register(username, email, password string) (User, error)
}
