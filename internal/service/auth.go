// Package service holds the blog's business rules. It sits between the HTTP
// handlers and the repositories:
//
//	Handler (HTTP) → Service (business rules) → Repository (DB)
//	               ↘ TokenService / PasswordService (auth)
//
// Services never see an http.Request and never import a concrete store, so the
// tests drive them with in-memory fakes.
package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sakif/awesome-blog/internal/apperror"
	"github.com/sakif/awesome-blog/internal/auth"
	"github.com/sakif/awesome-blog/internal/model"
	"github.com/sakif/awesome-blog/internal/repository"
)

const (
	maxEmailLength = 50
	maxNameLength  = 50
)

var emailPattern = regexp.MustCompile(`^[a-z0-9.\-_]+@[a-z0-9\-_]+(\.[a-z0-9\-_]+){1,4}$`)

// AuthService handles sign-up, sign-in and the GitHub callback.
type AuthService struct {
	users     repository.UserRepository
	tx        repository.Transactor
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tx repository.Transactor,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tx:        tx,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user and the issued token so the handler can set the
// cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a password account. The email check and the insert run in
// one transaction.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, apperror.ValidationFailed("name", fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	if len(email) > maxEmailLength || !emailPattern.MatchString(email) {
		return nil, apperror.ValidationFailed("email", "email is invalid")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordLength) {
			return nil, apperror.ValidationFailed("password", err.Error())
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Image:        gravatar(email),
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := s.users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			return apperror.Conflict("user", email)
		case !errors.Is(err, apperror.ErrNotFound):
			return err
		}
		return s.users.Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to register user", slog.String("email", email), slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/auth: registering %s: %w", email, err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return s.issue(user)
}

// Authenticate checks an email/password pair. Unknown emails and wrong
// passwords fail the same way.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}
	// GitHub accounts have no password.
	if user.PasswordHash == "" {
		return nil, apperror.Unauthorized("invalid email or password")
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("wrong password", slog.String("userID", user.ID))
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	s.logger.Info("user authenticated", slog.String("userID", user.ID))
	return s.issue(user)
}

// LoginOrRegisterGitHub signs in the account with the GitHub email, creating
// it on first sign-in. Later sign-ins refresh the name and avatar.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}
	email := strings.ToLower(ghUser.Email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "GitHub account has no email")
	}

	var user *model.User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			existing.Name = truncate(ghUser.DisplayName(), maxNameLength)
			if ghUser.AvatarURL != "" {
				existing.Image = ghUser.AvatarURL
			}
			user = existing
			return s.users.Update(ctx, existing)
		case errors.Is(err, apperror.ErrNotFound):
			user = &model.User{
				Email: email,
				Name:  truncate(ghUser.DisplayName(), maxNameLength),
				Image: ghUser.AvatarURL,
			}
			if user.Image == "" {
				user.Image = gravatar(email)
			}
			return s.users.Create(ctx, user)
		default:
			return err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", ghUser.Login),
	)
	return s.issue(user)
}

// GetUserByID returns the user behind a validated token.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(auth.Identity{UserID: user.ID, Admin: user.Admin})
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func gravatar(email string) string {
	sum := md5.Sum([]byte(email))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?d=mm&s=120"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
