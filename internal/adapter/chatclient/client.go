// Package chatclient talks to a running tripchat server over HTTP and WebSocket.
package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xiaot623/tripchat/internal/domain"
	"github.com/xiaot623/tripchat/internal/protocol"
)

// Frame is one decoded server message. Only the fields of its Type are set.
type Frame struct {
	protocol.BaseMessage
	Event     *domain.Event    `json:"event,omitempty"`
	Messages  []domain.Message `json:"messages,omitempty"`
	Truncated bool             `json:"truncated,omitempty"`
	Code      string           `json:"code,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// Client holds the server address and an optional open socket.
type Client struct {
	baseURL    string
	httpClient *http.Client
	conn       *websocket.Conn
	sessionID  string
}

// NewClient creates a client for the server at baseURL (http or https).
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SessionID returns the session bound by Connect.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Health calls GET /health and returns the reported status.
func (c *Client) Health(ctx context.Context) (string, error) {
	var resp map[string]string
	if err := c.do(ctx, http.MethodGet, "/health", &resp); err != nil {
		return "", err
	}
	return resp["status"], nil
}

// NewSession calls POST /session.
func (c *Client) NewSession(ctx context.Context) (string, error) {
	var resp domain.CreateSessionResponse
	if err := c.do(ctx, http.MethodPost, "/session", &resp); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

func (c *Client) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Connect opens the chat socket and waits for the connected message. An empty
// sessionID lets the server create one.
func (c *Client) Connect(ctx context.Context, sessionID string) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	if sessionID != "" {
		u.RawQuery = url.Values{"session_id": {sessionID}}.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	frame, err := readFrame(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("read connected: %w", err)
	}
	if frame.Type != protocol.TypeConnected {
		conn.Close()
		return fmt.Errorf("expected %s, got: %s", protocol.TypeConnected, frame.Type)
	}

	c.conn = conn
	c.sessionID = frame.SessionID
	return nil
}

// Send posts a chat message on the open socket.
func (c *Client) Send(content string, loc *domain.UserLocation) error {
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	msg := protocol.ChatMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeChat,
			Ts:        time.Now().UnixMilli(),
			SessionID: c.sessionID,
		},
		Content:      content,
		UserLocation: loc,
	}
	return c.conn.WriteJSON(msg)
}

// Next blocks for the next server frame.
func (c *Client) Next() (*Frame, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("not connected")
	}
	return readFrame(c.conn)
}

// Close closes the socket, if open.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

func readFrame(conn *websocket.Conn) (*Frame, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &frame, nil
}
