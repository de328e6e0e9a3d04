package v1

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/duynhne/chat-service/internal/core/domain"
	"github.com/duynhne/chat-service/middleware"
)

// AuthResult carries the authenticated user together with freshly minted
// tokens. RefreshToken is empty on the refresh path, which mints an access
// token only.
type AuthResult struct {
	User         domain.AuthResponse
	AccessToken  string
	RefreshToken string
}

// AuthService implements signup, login, and token refresh business rules.
// It depends on the user repository interface and the token service
// (injected via constructor) and MUST NOT access the database or SQL
// directly.
type AuthService struct {
	users  domain.UserRepository
	tokens *TokenService
}

// NewAuthService creates a new AuthService with the given dependencies.
func NewAuthService(users domain.UserRepository, tokens *TokenService) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Signup registers a new user and issues an initial token pair.
func (s *AuthService) Signup(ctx context.Context, req domain.SignupRequest) (*AuthResult, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.signup", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("username", req.Username),
	))
	defer span.End()

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		span.SetAttributes(attribute.Bool("signup.success", false))
		return nil, fmt.Errorf("register user %q: %w", req.Username, ErrUserExists)
	}

	userID := uuid.NewString()
	if err := s.users.Create(ctx, userID, req.Username, req.Email, string(passwordHash)); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("insert user: %w", err)
	}

	accessToken, refreshToken, err := s.tokens.Issue(userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Bool("signup.success", true),
	)
	span.AddEvent("user.registered")

	return &AuthResult{
		User:         domain.AuthResponse{UserID: userID, Username: req.Username, Email: req.Email},
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Authenticate verifies an email/password pair and issues a token pair.
// Unknown email and wrong password both come back as ErrInvalidCredentials;
// the caller can not tell which it was.
func (s *AuthService) Authenticate(ctx context.Context, req domain.LoginRequest) (*AuthResult, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.authenticate", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	row, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query user: %w", err)
	}
	if row == nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("authenticate: %w", ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(req.Password)); err != nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("authenticate: %w", ErrInvalidCredentials)
	}

	accessToken, refreshToken, err := s.tokens.Issue(row.ID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	span.SetAttributes(
		attribute.String("user.id", row.ID),
		attribute.Bool("auth.success", true),
	)
	span.AddEvent("user.authenticated")

	return &AuthResult{
		User:         domain.AuthResponse{UserID: row.ID, Username: row.Username, Email: row.Email},
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh validates a refresh token and mints a new access token for its
// subject. No new refresh token is issued, so the refresh window is never
// extended past its original expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.refresh", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	userID, err := s.tokens.Validate(refreshToken, TokenKindRefresh)
	if err != nil {
		span.SetAttributes(attribute.Bool("token.valid", false))
		return nil, err
	}

	row, err := s.users.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query user: %w", err)
	}
	if row == nil {
		span.SetAttributes(attribute.Bool("token.valid", false))
		return nil, fmt.Errorf("refresh for unknown user: %w", ErrUserNotFound)
	}

	accessToken, err := s.tokens.IssueAccess(userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Bool("token.valid", true),
	)

	return &AuthResult{
		User:        domain.AuthResponse{UserID: row.ID, Username: row.Username, Email: row.Email},
		AccessToken: accessToken,
	}, nil
}

// ValidateAccess verifies an access token and returns the subject user id.
func (s *AuthService) ValidateAccess(token string) (string, error) {
	return s.tokens.Validate(token, TokenKindAccess)
}
