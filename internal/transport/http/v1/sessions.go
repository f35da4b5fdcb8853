package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/tripchat/internal/domain"
	"github.com/xiaot623/tripchat/internal/service"
)

// CreateSession starts a new session.
// POST /session
func (h *Handler) CreateSession(c echo.Context) error {
	sessionID, err := h.service.CreateSession(c.Request().Context())
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, domain.CreateSessionResponse{SessionID: sessionID})
}

// GetSessionMessages retrieves messages for a session.
// GET /session/:session_id/messages
func (h *Handler) GetSessionMessages(c echo.Context) error {
	sessionID := c.Param("session_id")

	messages, err := h.service.GetMessages(c.Request().Context(), sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionRequired) {
			return errorJSON(c, http.StatusBadRequest, err)
		}
		return errorJSON(c, http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, domain.SessionMessagesResponse{
		SessionID: sessionID,
		Messages:  messages,
	})
}

// DeleteSession deletes a session and its messages.
// DELETE /session/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	deleted, err := h.service.DeleteSession(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		if errors.Is(err, service.ErrSessionRequired) {
			return errorJSON(c, http.StatusBadRequest, err)
		}
		return errorJSON(c, http.StatusInternalServerError, err)
	}

	msg := "Session not found"
	if deleted {
		msg = "Session deleted"
	}
	return c.JSON(http.StatusOK, domain.MessageResponse{Message: msg})
}

// GetSessionEvents retrieves the recorded step events of a session.
// GET /session/:session_id/events
func (h *Handler) GetSessionEvents(c echo.Context) error {
	sessionID := c.Param("session_id")
	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	afterTs := int64(0)
	if t := c.QueryParam("after_ts"); t != "" {
		if val, err := strconv.ParseInt(t, 10, 64); err == nil {
			afterTs = val
		}
	}

	events, err := h.service.ListEvents(c.Request().Context(), sessionID, afterTs, limit)
	if err != nil {
		if errors.Is(err, service.ErrSessionRequired) {
			return errorJSON(c, http.StatusBadRequest, err)
		}
		return errorJSON(c, http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, domain.ListEventsResponse{Events: events})
}
