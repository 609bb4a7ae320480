package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/awesome-blog/internal/apperror"
	"github.com/sakif/awesome-blog/internal/auth"
)

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// newTestAuthService returns an AuthService on fakes. bcrypt runs at its
// minimum cost so the tests stay fast.
func newTestAuthService(t *testing.T, repo *fakeUserRepo) (*AuthService, *fakeTx) {
	t.Helper()
	tx := &fakeTx{}
	return NewAuthService(repo, tx, newTestTokens(t), auth.NewPasswordServiceWithCost(4), testLogger), tx
}

// =========================================================================
// Register TESTS
// =========================================================================

func TestRegister_CreatesUserAndToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc, tx := newTestAuthService(t, repo)

	result, err := svc.Register(context.Background(), "  Alice@Example.com ", "Alice", "secret1")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", result.User.Email)
	assert.NotEmpty(t, result.User.ID)
	assert.NotEqual(t, "secret1", result.User.PasswordHash)
	assert.True(t, strings.HasPrefix(result.User.Image, "https://www.gravatar.com/avatar/"))
	assert.Equal(t, 1, tx.calls)

	id, err := newTestTokens(t).Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, auth.Identity{UserID: result.User.ID}, id)
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	repo := newFakeUserRepo()
	svc, tx := newTestAuthService(t, repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, "bob@example.com", "Bob", "secret1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "BOB@example.com", "Bobby", "secret2")
	require.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, 1, tx.failed)
	assert.Len(t, repo.users, 1)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		userName string
		password string
		field    string
	}{
		{"missing name", "a@b.com", " ", "secret1", "name"},
		{"long name", "a@b.com", strings.Repeat("n", 51), "secret1", "name"},
		{"bad email", "not-an-email", "A", "secret1", "email"},
		{"email without tld", "a@b", "A", "secret1", "email"},
		{"short password", "a@b.com", "A", "123", "password"},
		{"long password", "a@b.com", "A", strings.Repeat("p", 73), "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestAuthService(t, newFakeUserRepo())
			_, err := svc.Register(context.Background(), tt.email, tt.userName, tt.password)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestRegister_RepositoryError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.err = errors.New("database is on fire")
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Register(context.Background(), "c@example.com", "C", "secret1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperror.ErrConflict)
}

// =========================================================================
// Authenticate TESTS
// =========================================================================

func TestAuthenticate(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "dora@example.com", "Dora", "right-password")
	require.NoError(t, err)

	t.Run("correct password", func(t *testing.T) {
		result, err := svc.Authenticate(ctx, "Dora@Example.com", "right-password")
		require.NoError(t, err)
		assert.Equal(t, registered.User.ID, result.User.ID)
		assert.NotEmpty(t, result.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "dora@example.com", "wrong-password")
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "nobody@example.com", "right-password")
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	})

	t.Run("empty password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "dora@example.com", "")
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	})
}

func TestAuthenticate_AdminFlagInToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	ctx := context.Background()

	result, err := svc.Register(ctx, "root@example.com", "Root", "secret1")
	require.NoError(t, err)
	repo.users[result.User.ID].Admin = true

	result, err = svc.Authenticate(ctx, "root@example.com", "secret1")
	require.NoError(t, err)

	id, err := newTestTokens(t).Validate(result.Token)
	require.NoError(t, err)
	assert.True(t, id.Admin)
}

func TestAuthenticate_GitHubAccountHasNoPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	ctx := context.Background()

	_, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 1, Login: "octo", Email: "octo@example.com"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "octo@example.com", "anything")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

// =========================================================================
// LoginOrRegisterGitHub TESTS
// =========================================================================

func TestLoginOrRegisterGitHub_NewUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID:        42,
		Login:     "octocat",
		Email:     "Octocat@GitHub.com",
		AvatarURL: "https://avatars.githubusercontent.com/u/42",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if result.Token == "" {
		t.Fatal("LoginOrRegisterGitHub() returned empty Token")
	}
	if result.User.Name != "octocat" {
		t.Errorf("User.Name = %q, want %q", result.User.Name, "octocat")
	}
	if result.User.Email != "octocat@github.com" {
		t.Errorf("User.Email = %q, want lower-cased", result.User.Email)
	}
	if result.User.Image != "https://avatars.githubusercontent.com/u/42" {
		t.Errorf("User.Image = %q", result.User.Image)
	}
}

func TestLoginOrRegisterGitHub_ExistingUserGetsUpdatedProfile(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "eve@example.com", "Eve", "secret1")
	require.NoError(t, err)

	result, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{
		ID: 99, Login: "eve", Name: "Eve Online", Email: "eve@example.com", AvatarURL: "https://a/eve",
	})
	require.NoError(t, err)

	assert.Equal(t, registered.User.ID, result.User.ID, "same account, keyed by email")
	stored := repo.users[registered.User.ID]
	assert.Equal(t, "Eve Online", stored.Name)
	assert.Equal(t, "https://a/eve", stored.Image)
	assert.Equal(t, registered.User.PasswordHash, stored.PasswordHash, "password survives GitHub sign-in")
}

func TestLoginOrRegisterGitHub_Errors(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.LoginOrRegisterGitHub(context.Background(), nil)
	assert.Error(t, err)

	_, err = svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 1, Login: "mailless"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	repo := newFakeUserRepo()
	repo.err = errors.New("database is on fire")
	svc, _ = newTestAuthService(t, repo)
	_, err = svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 1, Email: "x@y.com"})
	assert.Error(t, err)
}

// =========================================================================
// GetUserByID TESTS
// =========================================================================

func TestGetUserByID(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	ctx := context.Background()

	result, err := svc.Register(ctx, "findme@example.com", "Find Me", "secret1")
	require.NoError(t, err)

	user, err := svc.GetUserByID(ctx, result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Find Me", user.Name)

	_, err = svc.GetUserByID(ctx, "")
	assert.Error(t, err)

	_, err = svc.GetUserByID(ctx, "non-existent-id")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
