package domain

// SignupRequest is the payload for POST /auth/signup.
type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest is the payload for POST /auth/token.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CompletionRequest is the payload for POST /chat/completion. The session id
// is chosen by the client; the session row is created lazily on first use.
type CompletionRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

// AuthResponse is returned by the signup, login, validate, and refresh
// endpoints. Tokens travel in cookies, never in the body.
type AuthResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}
