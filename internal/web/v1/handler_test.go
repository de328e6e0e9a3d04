package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/chat-service/internal/core/domain"
	logicv1 "github.com/duynhne/chat-service/internal/logic/v1"
	"github.com/duynhne/chat-service/middleware"
)

// In-memory implementations of the domain repositories and providers, enough
// to run the full handler stack without Postgres or external services.

type memUserRepo struct {
	users map[string]*domain.UserRow
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.UserRow, error) {
	for _, u := range r.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.UserRow, error) {
	if u, ok := r.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, nil
}

func (r *memUserRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	for _, u := range r.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserRepo) Create(_ context.Context, id, username, email, passwordHash string) error {
	r.users[id] = &domain.UserRow{ID: id, Username: username, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now()}
	return nil
}

type memSessionRepo struct {
	rows []domain.SessionRow
}

func (r *memSessionRepo) Ensure(_ context.Context, id, userID, title string) error {
	for _, s := range r.rows {
		if s.ID == id {
			return nil
		}
	}
	r.rows = append(r.rows, domain.SessionRow{ID: id, UserID: userID, Title: title, CreatedAt: time.Now()})
	return nil
}

func (r *memSessionRepo) ListByUser(_ context.Context, userID string) ([]domain.SessionRow, error) {
	out := []domain.SessionRow{}
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].UserID == userID {
			out = append(out, r.rows[i])
		}
	}
	return out, nil
}

func (r *memSessionRepo) Exists(_ context.Context, id string) (bool, error) {
	for _, s := range r.rows {
		if s.ID == id {
			return true, nil
		}
	}
	return false, nil
}

type memMessageRepo struct {
	rows   []domain.MessageRow
	nextID int64
}

func (r *memMessageRepo) append(sessionID, role, content string) error {
	r.nextID++
	r.rows = append(r.rows, domain.MessageRow{ID: r.nextID, SessionID: sessionID, Role: role, Content: content, CreatedAt: time.Now()})
	return nil
}

func (r *memMessageRepo) AppendHuman(_ context.Context, sessionID, content string) error {
	return r.append(sessionID, domain.RoleHuman, content)
}

func (r *memMessageRepo) AppendAI(_ context.Context, sessionID, content string) error {
	return r.append(sessionID, domain.RoleAI, content)
}

func (r *memMessageRepo) ListBySession(_ context.Context, sessionID string) ([]domain.MessageRow, error) {
	out := []domain.MessageRow{}
	for _, m := range r.rows {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

type memEmbedder struct{}

func (memEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

type memSearcher struct{}

func (memSearcher) Search(context.Context, []float32, int) ([]domain.Match, error) {
	return []domain.Match{{Category: "FAQ", Text: "Canned answer.", Score: 0.9}}, nil
}

type scriptedStreamer struct {
	events []domain.StreamEvent
}

func (s *scriptedStreamer) Stream(_ context.Context, _ []domain.ChatMessage) (<-chan domain.StreamEvent, error) {
	ch := make(chan domain.StreamEvent, len(s.events))
	for _, evt := range s.events {
		ch <- evt
	}
	close(ch)
	return ch, nil
}

type testEnv struct {
	router   *gin.Engine
	sessions *memSessionRepo
	messages *memMessageRepo
}

func newTestEnv(t *testing.T, events []domain.StreamEvent) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := logicv1.NewTokenService("HS256",
		[]byte("access-secret"), []byte("refresh-secret"),
		30*time.Minute, 7*24*time.Hour)
	auth := logicv1.NewAuthService(&memUserRepo{users: map[string]*domain.UserRow{}}, tokens)

	sessions := &memSessionRepo{}
	messages := &memMessageRepo{}
	chat := logicv1.NewChatService(sessions, messages, memEmbedder{}, memSearcher{}, &scriptedStreamer{events: events}, 3)

	router := gin.New()
	NewHandler(auth, chat, tokens, true).RegisterRoutes(router)

	return &testEnv{router: router, sessions: sessions, messages: messages}
}

func (e *testEnv) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signup registers a user and returns the issued cookies.
func (e *testEnv) signup(t *testing.T, username, email string) []*http.Cookie {
	t.Helper()
	w := e.do(http.MethodPost, "/auth/signup", gin.H{
		"username": username, "email": email, "password": "pw123456",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	return w.Result().Cookies()
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSignupSetsCookies(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/auth/signup", gin.H{
		"username": "ann", "email": "ann@x.com", "password": "pw123456",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var body domain.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.UserID)
	require.Equal(t, "ann", body.Username)

	cookies := w.Result().Cookies()
	access := cookieByName(cookies, middleware.AccessTokenCookie)
	refresh := cookieByName(cookies, middleware.RefreshTokenCookie)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	require.True(t, access.HttpOnly)
	require.True(t, refresh.HttpOnly)
}

func TestSignupConflict(t *testing.T) {
	env := newTestEnv(t, nil)
	env.signup(t, "ann", "ann@x.com")

	w := env.do(http.MethodPost, "/auth/signup", gin.H{
		"username": "ann", "email": "other@x.com", "password": "pw123456",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t, nil)
	env.signup(t, "ann", "ann@x.com")

	w := env.do(http.MethodPost, "/auth/token", gin.H{"email": "ann@x.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/auth/token", gin.H{"email": "ghost@x.com", "password": "pw123456"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidateRequiresCookie(t *testing.T) {
	env := newTestEnv(t, nil)
	cookies := env.signup(t, "ann", "ann@x.com")

	w := env.do(http.MethodPost, "/auth/validate", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/auth/validate", nil, cookieByName(cookies, middleware.AccessTokenCookie))
	require.Equal(t, http.StatusOK, w.Code)

	var body domain.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.UserID)
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t, nil)
	cookies := env.signup(t, "ann", "ann@x.com")

	w := env.do(http.MethodPost, "/auth/refresh", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/auth/refresh", nil, cookieByName(cookies, middleware.RefreshTokenCookie))
	require.Equal(t, http.StatusOK, w.Code)

	// A fresh access cookie is set; no new refresh cookie is minted.
	fresh := w.Result().Cookies()
	require.NotNil(t, cookieByName(fresh, middleware.AccessTokenCookie))
	require.Nil(t, cookieByName(fresh, middleware.RefreshTokenCookie))
}

func TestRefreshRejectsAccessCookie(t *testing.T) {
	env := newTestEnv(t, nil)
	cookies := env.signup(t, "ann", "ann@x.com")

	access := cookieByName(cookies, middleware.AccessTokenCookie)
	w := env.do(http.MethodPost, "/auth/refresh", nil, &http.Cookie{
		Name: middleware.RefreshTokenCookie, Value: access.Value,
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCompletionStreamsSSE(t *testing.T) {
	events := []domain.StreamEvent{
		{Type: domain.EventStart},
		{Type: domain.EventDelta, Content: "Hel"},
		{Type: domain.EventDelta, Content: "lo"},
		{Type: domain.EventEnd, Content: "Hello"},
	}
	env := newTestEnv(t, events)
	cookies := env.signup(t, "ann", "ann@x.com")
	access := cookieByName(cookies, middleware.AccessTokenCookie)

	w := env.do(http.MethodPost, "/chat/completion", gin.H{
		"sessionId": "s1", "content": "hi there",
	}, access)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	require.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))

	require.Equal(t,
		fmt.Sprintf("data: {\"event\":%q}\n\n", domain.EventStart)+
			fmt.Sprintf("data: {\"event\":%q,\"data\":\"Hel\"}\n\n", domain.EventDelta)+
			fmt.Sprintf("data: {\"event\":%q,\"data\":\"lo\"}\n\n", domain.EventDelta)+
			fmt.Sprintf("data: {\"event\":%q}\n\n", domain.EventEnd),
		w.Body.String())

	// The turn was committed: raw prompt and full assistant output.
	history, err := env.messages.ListBySession(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "hi there", history[0].Content)
	require.Equal(t, "Hello", history[1].Content)
}

func TestCompletionRequiresAuth(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/chat/completion", gin.H{"sessionId": "s1", "content": "hi"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCompletionRejectsBadBody(t *testing.T) {
	env := newTestEnv(t, nil)
	cookies := env.signup(t, "ann", "ann@x.com")

	w := env.do(http.MethodPost, "/chat/completion", gin.H{"content": "missing session id"},
		cookieByName(cookies, middleware.AccessTokenCookie))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	cookies := env.signup(t, "ann", "ann@x.com")
	access := cookieByName(cookies, middleware.AccessTokenCookie)

	// Unknown session is 404.
	w := env.do(http.MethodGet, "/chat/history/missing", nil, access)
	require.Equal(t, http.StatusNotFound, w.Code)

	// Known but empty session is 200 with an empty list.
	require.NoError(t, env.sessions.Ensure(context.Background(), "s1", "u1", "t"))
	w = env.do(http.MethodGet, "/chat/history/s1", nil, access)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"messages": []}`, w.Body.String())

	// Messages come back in creation order with role and content.
	require.NoError(t, env.messages.AppendHuman(context.Background(), "s1", "q"))
	require.NoError(t, env.messages.AppendAI(context.Background(), "s1", "a"))
	w = env.do(http.MethodGet, "/chat/history/s1", nil, access)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Messages []domain.MessageRow `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Messages, 2)
	require.Equal(t, domain.RoleHuman, body.Messages[0].Role)
	require.Equal(t, "q", body.Messages[0].Content)
	require.Equal(t, domain.RoleAI, body.Messages[1].Role)
	require.Equal(t, "a", body.Messages[1].Content)
}

func TestListSessionsEndpoint(t *testing.T) {
	env := newTestEnv(t, []domain.StreamEvent{
		{Type: domain.EventStart},
		{Type: domain.EventEnd, Content: "ok"},
	})
	cookies := env.signup(t, "ann", "ann@x.com")
	access := cookieByName(cookies, middleware.AccessTokenCookie)

	w := env.do(http.MethodGet, "/chat/sessions", nil, access)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[]`, w.Body.String())

	w = env.do(http.MethodPost, "/chat/completion", gin.H{"sessionId": "s1", "content": "first prompt"}, access)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/chat/sessions", nil, access)
	require.Equal(t, http.StatusOK, w.Code)

	var sessions []domain.SessionRow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	require.Equal(t, "s1", sessions[0].ID)
	require.Equal(t, "first prompt", sessions[0].Title)
	require.False(t, strings.Contains(w.Body.String(), "user_id"))
}
