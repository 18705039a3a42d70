package user

import (
	"strings"
	"time"
	"unicode/utf8"

	"cinerate/errs"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidUsername        = errs.Errorf(errs.EINVALID, "user: username must be 3-50 characters")
	ErrInvalidEmail           = errs.Errorf(errs.EINVALID, "user: invalid email")
	ErrInvalidPassword        = errs.Errorf(errs.EINVALID, "user: password must be 8-72 characters")
	ErrInvalidRole            = errs.Errorf(errs.EINVALID, "user: invalid role")
	ErrUserIDRequired         = errs.Errorf(errs.EINVALID, "user: id is required")
	ErrCurrentPasswordInvalid = errs.Errorf(errs.EINVALID, "user: current password is incorrect")
	ErrNotFound               = errs.Errorf(errs.ENOTFOUND, "user: not found")
	ErrEmailTaken             = errs.Errorf(errs.ECONFLICT, "user: email already registered")
	ErrUsernameTaken          = errs.Errorf(errs.ECONFLICT, "user: username already taken")
	ErrNotOnList              = errs.Errorf(errs.ENOTFOUND, "user: movie is not on the list")
)

var validate = validator.New()

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Password     string    `json:"-"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Validate checks a user about to be registered.
func (u User) Validate() error {
	if err := validateUsername(u.Username); err != nil {
		return err
	}
	if err := validateEmail(u.Email); err != nil {
		return err
	}
	if err := validatePassword(u.Password); err != nil {
		return err
	}
	if u.Role != RoleUser && u.Role != RoleAdmin {
		return ErrInvalidRole
	}
	return nil
}

// ProfilePatch changes username and/or email. Nil fields are kept.
type ProfilePatch struct {
	Username *string
	Email    *string
}

// List names a per-user movie collection.
type List string

const (
	ListWatchlist List = "watchlist"
	ListFavorites List = "favorites"
)

func validateUsername(username string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(username))
	if n < 3 || n > 50 {
		return ErrInvalidUsername
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || validate.Var(email, "email") != nil {
		return ErrInvalidEmail
	}
	return nil
}

// bcrypt ignores bytes past 72.
func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 || len(password) > 72 {
		return ErrInvalidPassword
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
