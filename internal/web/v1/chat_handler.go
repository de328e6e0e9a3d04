package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/chat-service/internal/core/domain"
	logicv1 "github.com/duynhne/chat-service/internal/logic/v1"
	"github.com/duynhne/chat-service/middleware"
)

// Completion streams one conversation turn as server-sent events. Each
// frame is a `data:` line carrying the JSON event, flushed immediately so
// deltas reach the client in provider emission order.
//
// A failure before the first frame is a regular error response. A failure
// after streaming has begun truncates the stream; there is no trailing
// error frame.
func (h *Handler) Completion(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	logger := zerolog.Ctx(ctx)
	userID := c.GetString(middleware.UserIDKey)

	var req domain.CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		logger.Error().Err(err).Msg("Invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.Bool("request.valid", true),
		attribute.String("session.id", req.SessionID),
	)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	streaming := false
	emit := func(frame logicv1.Frame) error {
		payload, err := json.Marshal(frame)
		if err != nil {
			return fmt.Errorf("marshal frame: %w", err)
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
		flusher.Flush()
		streaming = true
		return nil
	}

	err := h.chat.StreamCompletion(ctx, userID, req.SessionID, req.Content, emit)
	if err != nil {
		span.RecordError(err)
		if streaming {
			// Headers are out; the truncated stream is the error signal.
			logger.Error().Err(err).Str("session_id", req.SessionID).Msg("Completion stream truncated")
			return
		}
		logger.Error().Err(err).Str("session_id", req.SessionID).Msg("Completion failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// ListSessions returns the authenticated user's sessions, newest first.
func (h *Handler) ListSessions(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	logger := zerolog.Ctx(ctx)

	sessions, err := h.chat.ListSessions(ctx, c.GetString(middleware.UserIDKey))
	if err != nil {
		span.RecordError(err)
		logger.Error().Err(err).Msg("Session listing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// History returns a session's message log in creation order. An unknown
// session id is 404; a known session with no messages is an empty list.
func (h *Handler) History(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	logger := zerolog.Ctx(ctx)
	sessionID := c.Param("session_id")

	messages, err := h.chat.History(ctx, sessionID)
	if err != nil {
		span.RecordError(err)

		switch {
		case errors.Is(err, logicv1.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		default:
			logger.Error().Err(err).Str("session_id", sessionID).Msg("History read failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
