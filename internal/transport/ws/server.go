// Package ws provides the WebSocket chat endpoint.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/tripchat/internal/config"
	"github.com/xiaot623/tripchat/internal/domain"
	"github.com/xiaot623/tripchat/internal/hub"
	"github.com/xiaot623/tripchat/internal/protocol"
	"github.com/xiaot623/tripchat/internal/service"
)

// ChatService is the subset of the chat service the socket needs.
type ChatService interface {
	CreateSession(ctx context.Context) (string, error)
	PostChat(ctx context.Context, req domain.ChatRequest) (*service.ChatResult, error)
}

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	chat     ChatService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, chat ChatService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		hub:    h,
		chat:   chat,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// session tracks the chats running on one connection.
type session struct {
	conn   *hub.Connection
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// HandleWebSocket binds a socket to the session named by the session_id
// query parameter, creating a new session when it is absent.
func (s *Server) HandleWebSocket(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		id, err := s.chat.CreateSession(c.Request().Context())
		if err != nil {
			s.logger.Error("failed to create session", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to create session")
		}
		sessionID = id
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade WebSocket", "error", err)
		return nil
	}
	ws.SetReadLimit(s.cfg.MaxMessageSize)

	conn := s.hub.NewConnection(ws, sessionID)
	s.hub.Register(conn)

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{conn: conn, ctx: ctx, cancel: cancel}

	connected := protocol.ConnectedMessage{BaseMessage: s.base(protocol.TypeConnected, sessionID)}
	if err := s.hub.SendJSONToConnection(conn, connected); err != nil {
		s.logger.Warn("failed to queue connected message", "session_id", sessionID, "error", err)
	}
	s.logger.Info("websocket connected", "conn_id", conn.ID, "session_id", sessionID)

	go s.writePump(conn)
	go s.readPump(sess)

	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(sess *session) {
	conn := sess.conn
	defer func() {
		sess.cancel()
		sess.wg.Wait()
		s.hub.Unregister(conn)
		conn.Close()
		s.logger.Info("websocket disconnected", "conn_id", conn.ID, "session_id", conn.SessionID)
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket error", "conn_id", conn.ID, "error", err)
			}
			return
		}

		s.handleMessage(sess, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("failed to write message", "conn_id", conn.ID, "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(sess *session, data []byte) {
	var baseMsg protocol.BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		s.sendError(sess.conn, protocol.ErrorCodeInvalidMessage, "invalid JSON message", nil)
		return
	}

	switch baseMsg.Type {
	case protocol.TypeChat:
		s.handleChat(sess, data)
	default:
		s.sendError(sess.conn, protocol.ErrorCodeInvalidMessage, "unknown message type: "+baseMsg.Type, nil)
	}
}

// handleChat runs one chat turn without blocking the read loop.
func (s *Server) handleChat(sess *session, data []byte) {
	var msg protocol.ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(sess.conn, protocol.ErrorCodeInvalidMessage, "invalid chat message", nil)
		return
	}
	if strings.TrimSpace(msg.Content) == "" {
		s.sendError(sess.conn, protocol.ErrorCodeEmptyContent, service.ErrEmptyContent.Error(), nil)
		return
	}

	req := domain.ChatRequest{
		SessionID:    sess.conn.SessionID,
		Content:      msg.Content,
		UserLocation: msg.UserLocation,
	}

	sess.wg.Add(1)
	go func() {
		defer sess.wg.Done()

		res, err := s.chat.PostChat(sess.ctx, req)
		if err != nil {
			s.logger.Error("chat failed", "session_id", req.SessionID, "error", err)
			var messages []domain.Message
			if res != nil {
				messages = res.Messages
			}
			s.sendError(sess.conn, errorCode(err), err.Error(), messages)
			return
		}

		done := protocol.DoneMessage{
			BaseMessage: s.base(protocol.TypeDone, req.SessionID),
			Messages:    res.Messages,
			Truncated:   res.Truncated,
		}
		if err := s.hub.SendJSONToConnection(sess.conn, done); err != nil {
			s.logger.Warn("failed to queue done message", "session_id", req.SessionID, "error", err)
		}
	}()
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrModelProvider):
		return protocol.ErrorCodeModelProvider
	case errors.Is(err, service.ErrEmptyContent):
		return protocol.ErrorCodeEmptyContent
	default:
		return protocol.ErrorCodeInternal
	}
}

func (s *Server) base(msgType, sessionID string) protocol.BaseMessage {
	return protocol.BaseMessage{
		Type:      msgType,
		Ts:        time.Now().UnixMilli(),
		SessionID: sessionID,
	}
}

// sendError sends an error message to a connection.
func (s *Server) sendError(conn *hub.Connection, code, message string, messages []domain.Message) {
	errMsg := protocol.ErrorMessage{
		BaseMessage: s.base(protocol.TypeError, conn.SessionID),
		Code:        code,
		Message:     message,
		Messages:    messages,
	}
	if err := s.hub.SendJSONToConnection(conn, errMsg); err != nil {
		s.logger.Warn("failed to queue error message", "conn_id", conn.ID, "error", err)
	}
}
