package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"cinerate/errs"
	"cinerate/pkg/logger"
	"cinerate/user"

	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials  = errs.Errorf(errs.EUNAUTHORIZED, "invalid credentials")
	ErrInvalidRefreshToken = errs.Errorf(errs.EUNAUTHORIZED, "invalid refresh token")
	ErrAccountLocked       = errors.New("account temporarily locked")
)

type Service interface {
	Register(ctx context.Context, username, email, password string) (TokenPair, error)
	Login(ctx context.Context, email, password string) (TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}

type UserService interface {
	Register(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
}

type LoginAttempt struct {
	FailedCount int
	JailedUntil time.Time
}

type LoginAttemptRepository interface {
	Get(ctx context.Context, email string) (LoginAttempt, error)
	Save(ctx context.Context, email string, attempt LoginAttempt) error
	Reset(ctx context.Context, email string) error
}

type PasswordHasher interface {
	Compare(hashed, plain string) error
}

type TokenProvider interface {
	GenerateAccessToken(u user.User) (string, error)
	GenerateRefreshToken(u user.User) (string, error)
	ParseRefreshToken(refreshToken string) (user.User, error)
}

type Usecase struct {
	users          UserService
	attemptsRepo   LoginAttemptRepository
	passwordHasher PasswordHasher
	tokenProvider  TokenProvider
	log            *zap.SugaredLogger
	maxRetries     int
	jailDuration   time.Duration
	now            func() time.Time
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func NewUsecase(
	users UserService,
	attemptsRepo LoginAttemptRepository,
	passwordHasher PasswordHasher,
	tokenProvider TokenProvider,
	log *zap.SugaredLogger,
) *Usecase {
	if log == nil {
		log = logger.NOOPLogger
	}
	return &Usecase{
		users:          users,
		attemptsRepo:   attemptsRepo,
		passwordHasher: passwordHasher,
		tokenProvider:  tokenProvider,
		log:            log,
		maxRetries:     5,
		jailDuration:   15 * time.Minute,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (uc *Usecase) Register(ctx context.Context, username, email, password string) (TokenPair, error) {
	u, err := uc.users.Register(ctx, user.User{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return TokenPair{}, err
	}
	return uc.issue(u)
}

// Login checks credentials. After maxRetries consecutive failures the email is
// jailed for jailDuration and every attempt fails with ErrAccountLocked.
func (uc *Usecase) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	attempt, err := uc.attemptsRepo.Get(ctx, email)
	if err != nil {
		return TokenPair{}, err
	}

	if !attempt.JailedUntil.IsZero() {
		if attempt.JailedUntil.After(uc.now()) {
			return TokenPair{}, ErrAccountLocked
		}
		attempt = LoginAttempt{}
		if err := uc.attemptsRepo.Save(ctx, email, attempt); err != nil {
			return TokenPair{}, err
		}
	}

	u, err := uc.users.GetUserByEmail(ctx, email)
	if err != nil {
		switch errs.ErrorCode(err) {
		case errs.ENOTFOUND, errs.EINVALID:
			return TokenPair{}, uc.recordFailure(ctx, email, attempt)
		default:
			return TokenPair{}, err
		}
	}

	if err := uc.passwordHasher.Compare(u.PasswordHash, password); err != nil {
		return TokenPair{}, uc.recordFailure(ctx, email, attempt)
	}

	if err := uc.attemptsRepo.Reset(ctx, email); err != nil {
		return TokenPair{}, err
	}
	uc.log.Infow("user logged in", "user_id", u.ID)
	return uc.issue(u)
}

// Refresh reloads the user so role changes and deletions take effect.
func (uc *Usecase) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claimed, err := uc.tokenProvider.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	u, err := uc.users.GetUser(ctx, claimed.ID)
	if err != nil {
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, err
	}
	return uc.issue(u)
}

func (uc *Usecase) issue(u user.User) (TokenPair, error) {
	accessToken, err := uc.tokenProvider.GenerateAccessToken(u)
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, err := uc.tokenProvider.GenerateRefreshToken(u)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}, nil
}

// recordFailure returns ErrInvalidCredentials unless saving the attempt fails.
func (uc *Usecase) recordFailure(ctx context.Context, email string, attempt LoginAttempt) error {
	attempt.FailedCount++
	if attempt.FailedCount >= uc.maxRetries {
		attempt.FailedCount = 0
		attempt.JailedUntil = uc.now().Add(uc.jailDuration)
		uc.log.Warnw("login jailed", "email", email, "until", attempt.JailedUntil)
	}
	if err := uc.attemptsRepo.Save(ctx, email, attempt); err != nil {
		return err
	}
	return ErrInvalidCredentials
}
