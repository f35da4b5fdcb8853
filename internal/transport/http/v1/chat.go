package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/tripchat/internal/domain"
	"github.com/xiaot623/tripchat/internal/service"
)

// PostChat sends a user message and returns the updated transcript.
// POST /chat
func (h *Handler) PostChat(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	res, err := h.service.PostChat(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionRequired), errors.Is(err, service.ErrEmptyContent):
			return errorJSON(c, http.StatusBadRequest, err)
		case errors.Is(err, service.ErrModelProvider) && res != nil:
			return c.JSON(http.StatusInternalServerError, domain.ChatErrorResponse{
				Error:     err.Error(),
				SessionID: req.SessionID,
				Messages:  res.Messages,
			})
		default:
			return errorJSON(c, http.StatusInternalServerError, err)
		}
	}

	return c.JSON(http.StatusOK, domain.ChatResponse{
		SessionID: req.SessionID,
		Messages:  res.Messages,
		Truncated: res.Truncated,
	})
}
