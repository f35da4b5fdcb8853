package domain

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Content      string        `json:"content"`
	SessionID    string        `json:"session_id"`
	UserLocation *UserLocation `json:"user_location,omitempty"`
}

// ChatResponse is the response of POST /chat.
type ChatResponse struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
	Truncated bool      `json:"truncated"`
}

// SessionMessagesResponse is the response of GET /session/:session_id/messages.
type SessionMessagesResponse struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
}

// MessageResponse carries a human-readable status message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ChatErrorResponse is returned when the model provider could not be reached.
type ChatErrorResponse struct {
	Error     string    `json:"error"`
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
}

// CreateSessionResponse is the response of POST /session.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// ListEventsResponse is the response of GET /session/:session_id/events.
type ListEventsResponse struct {
	Events []Event `json:"events"`
}
