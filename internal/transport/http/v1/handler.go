// Package v1 provides the HTTP handlers of the chat API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/tripchat/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the chat API routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)

	// Session API
	e.POST("/session", h.CreateSession)
	e.GET("/session/:session_id/messages", h.GetSessionMessages)
	e.GET("/session/:session_id/events", h.GetSessionEvents)
	e.DELETE("/session/:session_id", h.DeleteSession)

	// Chat API
	e.POST("/chat", h.PostChat)

	e.GET("/tools", h.ListTools)
}

// Root reports that the API is up.
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "MTL Finder Chat API is running",
		"status":  "healthy",
	})
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ListTools returns the tool definitions offered to the model.
// GET /tools
func (h *Handler) ListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tools": h.service.Tools(),
	})
}

func errorJSON(c echo.Context, status int, err error) error {
	return c.JSON(status, map[string]string{"error": err.Error()})
}
