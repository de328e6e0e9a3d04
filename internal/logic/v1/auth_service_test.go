package v1

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/duynhne/chat-service/internal/core/domain"
)

// fakeUserRepo is an in-memory domain.UserRepository.
type fakeUserRepo struct {
	users map[string]*domain.UserRow // keyed by id
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.UserRow{}}
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.UserRow, error) {
	for _, u := range r.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.UserRow, error) {
	if u, ok := r.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	for _, u := range r.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) Create(_ context.Context, id, username, email, passwordHash string) error {
	r.users[id] = &domain.UserRow{
		ID: id, Username: username, Email: email,
		PasswordHash: passwordHash, CreatedAt: time.Now(),
	}
	return nil
}

func newTestAuthService() (*AuthService, *fakeUserRepo) {
	users := newFakeUserRepo()
	return NewAuthService(users, newTestTokenService()), users
}

func TestSignup(t *testing.T) {
	t.Parallel()

	auth, users := newTestAuthService()

	result, err := auth.Signup(context.Background(), domain.SignupRequest{
		Username: "ann", Email: "ann@x.com", Password: "pw123456",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.User.UserID)
	require.Equal(t, "ann", result.User.Username)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)

	// The stored credential is a bcrypt hash, never the plain password.
	stored := users.users[result.User.UserID]
	require.NotEqual(t, "pw123456", stored.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pw123456")))
}

func TestSignupDuplicateConflict(t *testing.T) {
	t.Parallel()

	auth, _ := newTestAuthService()
	ctx := context.Background()

	_, err := auth.Signup(ctx, domain.SignupRequest{Username: "ann", Email: "ann@x.com", Password: "pw123456"})
	require.NoError(t, err)

	_, err = auth.Signup(ctx, domain.SignupRequest{Username: "ann", Email: "other@x.com", Password: "pw123456"})
	require.ErrorIs(t, err, ErrUserExists)

	_, err = auth.Signup(ctx, domain.SignupRequest{Username: "other", Email: "ann@x.com", Password: "pw123456"})
	require.ErrorIs(t, err, ErrUserExists)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	auth, _ := newTestAuthService()
	ctx := context.Background()

	signup, err := auth.Signup(ctx, domain.SignupRequest{Username: "ann", Email: "ann@x.com", Password: "pw123456"})
	require.NoError(t, err)

	result, err := auth.Authenticate(ctx, domain.LoginRequest{Email: "ann@x.com", Password: "pw123456"})
	require.NoError(t, err)
	require.Equal(t, signup.User.UserID, result.User.UserID)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
}

func TestAuthenticateFailureIsUniform(t *testing.T) {
	t.Parallel()

	auth, _ := newTestAuthService()
	ctx := context.Background()

	_, err := auth.Signup(ctx, domain.SignupRequest{Username: "ann", Email: "ann@x.com", Password: "pw123456"})
	require.NoError(t, err)

	// Unknown email and wrong password must be indistinguishable.
	_, errUnknown := auth.Authenticate(ctx, domain.LoginRequest{Email: "ghost@x.com", Password: "pw123456"})
	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)

	_, errWrongPw := auth.Authenticate(ctx, domain.LoginRequest{Email: "ann@x.com", Password: "nope"})
	require.ErrorIs(t, errWrongPw, ErrInvalidCredentials)
}

func TestRefreshMintsAccessOnly(t *testing.T) {
	t.Parallel()

	auth, _ := newTestAuthService()
	ctx := context.Background()

	signup, err := auth.Signup(ctx, domain.SignupRequest{Username: "ann", Email: "ann@x.com", Password: "pw123456"})
	require.NoError(t, err)

	result, err := auth.Refresh(ctx, signup.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, signup.User.UserID, result.User.UserID)
	require.NotEmpty(t, result.AccessToken)
	require.Empty(t, result.RefreshToken)

	userID, err := auth.ValidateAccess(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, signup.User.UserID, userID)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	t.Parallel()

	auth, _ := newTestAuthService()
	ctx := context.Background()

	signup, err := auth.Signup(ctx, domain.SignupRequest{Username: "ann", Email: "ann@x.com", Password: "pw123456"})
	require.NoError(t, err)

	_, err = auth.Refresh(ctx, signup.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshUnknownUser(t *testing.T) {
	t.Parallel()

	users := newFakeUserRepo()
	tokens := newTestTokenService()
	auth := NewAuthService(users, tokens)

	// Valid refresh token for a user that was never created.
	_, refresh, err := tokens.Issue("gone-user")
	require.NoError(t, err)

	_, err = auth.Refresh(context.Background(), refresh)
	require.ErrorIs(t, err, ErrUserNotFound)
}
