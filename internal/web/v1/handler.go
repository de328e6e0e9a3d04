package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/chat-service/internal/core/domain"
	logicv1 "github.com/duynhne/chat-service/internal/logic/v1"
	"github.com/duynhne/chat-service/middleware"
)

// Handler groups HTTP handlers for the chat API v1.
// Dependencies are injected via the constructor — no global state.
type Handler struct {
	auth *logicv1.AuthService
	chat *logicv1.ChatService

	// Whether /auth/signup and /auth/token also set the refresh-token
	// cookie. Kept configurable because client revisions disagree on it.
	setRefreshCookie bool

	accessTTLSeconds  int
	refreshTTLSeconds int
}

// NewHandler creates a new Handler with the given services. The TTLs bound
// the token cookie lifetimes.
func NewHandler(auth *logicv1.AuthService, chat *logicv1.ChatService, tokens *logicv1.TokenService, setRefreshCookie bool) *Handler {
	return &Handler{
		auth:              auth,
		chat:              chat,
		setRefreshCookie:  setRefreshCookie,
		accessTTLSeconds:  int(tokens.AccessTTL().Seconds()),
		refreshTTLSeconds: int(tokens.RefreshTTL().Seconds()),
	}
}

// RegisterRoutes registers all API v1 routes on the given router.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", h.Signup)
		authGroup.POST("/token", h.Login)
		authGroup.POST("/validate", middleware.RequireAuth(h.auth), h.Validate)
		authGroup.POST("/refresh", h.Refresh)
	}

	chatGroup := r.Group("/chat", middleware.RequireAuth(h.auth))
	{
		chatGroup.POST("/completion", h.Completion)
		chatGroup.GET("/sessions", h.ListSessions)
		chatGroup.GET("/history/:session_id", h.History)
	}
}

// setTokenCookies writes the bearer tokens as HTTP-only, lax same-site
// cookies. The refresh cookie is skipped when disabled by config or when no
// refresh token was minted (refresh path).
func (h *Handler) setTokenCookies(c *gin.Context, result *logicv1.AuthResult) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, result.AccessToken,
		h.accessTTLSeconds, "/", "", false, true)

	if h.setRefreshCookie && result.RefreshToken != "" {
		c.SetCookie(middleware.RefreshTokenCookie, result.RefreshToken,
			h.refreshTTLSeconds, "/", "", false, true)
	}
}

// Signup handles HTTP request for user registration.
func (h *Handler) Signup(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	logger := zerolog.Ctx(ctx)

	var req domain.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		logger.Error().Err(err).Msg("Invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(attribute.Bool("request.valid", true))

	result, err := h.auth.Signup(ctx, req)
	if err != nil {
		span.RecordError(err)
		logger.Error().Err(err).Str("username", req.Username).Msg("Signup failed")

		switch {
		case errors.Is(err, logicv1.ErrUserExists):
			c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	logger.Info().Str("user_id", result.User.UserID).Msg("Signup successful")
	h.setTokenCookies(c, result)
	c.JSON(http.StatusCreated, result.User)
}

// Login handles HTTP request for user login.
func (h *Handler) Login(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	logger := zerolog.Ctx(ctx)

	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		logger.Error().Err(err).Msg("Invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(attribute.Bool("request.valid", true))

	result, err := h.auth.Authenticate(ctx, req)
	if err != nil {
		span.RecordError(err)
		logger.Error().Err(err).Msg("Login failed")

		switch {
		case errors.Is(err, logicv1.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect email or password"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	logger.Info().Str("user_id", result.User.UserID).Msg("Login successful")
	h.setTokenCookies(c, result)
	c.JSON(http.StatusOK, result.User)
}

// Validate confirms the access-token cookie and echoes the user id. The
// auth middleware has already rejected invalid tokens with 401.
func (h *Handler) Validate(c *gin.Context) {
	c.JSON(http.StatusOK, domain.AuthResponse{UserID: c.GetString(middleware.UserIDKey)})
}

// Refresh mints a new access token from the refresh-token cookie.
func (h *Handler) Refresh(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	logger := zerolog.Ctx(ctx)

	refreshToken, err := c.Cookie(middleware.RefreshTokenCookie)
	if err != nil || refreshToken == "" {
		span.SetAttributes(attribute.Bool("auth.present", false))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token required"})
		return
	}

	result, err := h.auth.Refresh(ctx, refreshToken)
	if err != nil {
		span.RecordError(err)
		logger.Warn().Err(err).Msg("Refresh failed")

		switch {
		case errors.Is(err, logicv1.ErrInvalidToken), errors.Is(err, logicv1.ErrUserNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	logger.Info().Str("user_id", result.User.UserID).Msg("Access token refreshed")
	h.setTokenCookies(c, result)
	c.JSON(http.StatusOK, domain.AuthResponse{UserID: result.User.UserID})
}
