// Package api wraps the persona chat service's HTTP contract in typed
// request/response functions. Every method performs exactly one round trip
// and classifies failures into the TransportError/HTTPError/DecodeError
// taxonomy; retry policy belongs to the caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client talks to one chat service instance.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every request. The zero default leaves requests
// unbounded; pass a positive duration to cap hung requests.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger attaches a logger for request-level debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListSessions fetches all sessions.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var out []Session
	if err := c.do(ctx, "list sessions", http.MethodGet, "/api/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSession creates a session and returns its id.
func (c *Client) CreateSession(ctx context.Context, title string, personaID ID) (ID, error) {
	if title == "" {
		return "", &ValidationError{Msg: "title is required"}
	}
	if personaID == "" {
		return "", &ValidationError{Msg: "persona id is required"}
	}
	var out createSessionResponse
	body := createSessionRequest{Title: title, PersonaID: personaID}
	if err := c.do(ctx, "create session", http.MethodPost, "/api/session", body, &out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

// FetchHistory fetches the transcript for a session.
func (c *Client) FetchHistory(ctx context.Context, sessionID ID) ([]Message, error) {
	if sessionID == "" {
		return nil, &ValidationError{Msg: "session id is required"}
	}
	var out historyResponse
	path := "/api/history/" + sessionID.String()
	if err := c.do(ctx, "fetch history", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// SendMessage posts a user message and returns the assistant reply text.
func (c *Client) SendMessage(ctx context.Context, sessionID, personaID ID, text string, settings ChatSettings) (string, error) {
	if sessionID == "" {
		return "", &ValidationError{Msg: "session id is required"}
	}
	if text == "" {
		return "", &ValidationError{Msg: "message is required"}
	}
	var out chatResponse
	body := chatRequest{SessionID: sessionID, Message: text, PersonaID: personaID, Settings: settings}
	if err := c.do(ctx, "send message", http.MethodPost, "/api/chat", body, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// SetSessionPersona rebinds a session to another persona. The returned
// persona is nil when the server omits it.
func (c *Client) SetSessionPersona(ctx context.Context, sessionID, personaID ID) (*Persona, error) {
	if sessionID == "" {
		return nil, &ValidationError{Msg: "session id is required"}
	}
	if personaID == "" {
		return nil, &ValidationError{Msg: "persona id is required"}
	}
	var out setPersonaResponse
	path := fmt.Sprintf("/api/session/%s/persona", sessionID)
	if err := c.do(ctx, "switch persona", http.MethodPut, path, setPersonaRequest{PersonaID: personaID}, &out); err != nil {
		return nil, err
	}
	return out.Persona, nil
}

// DeleteSession deletes a session.
func (c *Client) DeleteSession(ctx context.Context, sessionID ID) error {
	if sessionID == "" {
		return &ValidationError{Msg: "session id is required"}
	}
	return c.do(ctx, "delete session", http.MethodDelete, "/api/session/"+sessionID.String(), nil, nil)
}

// ClearSession empties a session's history without deleting the session.
func (c *Client) ClearSession(ctx context.Context, sessionID ID) error {
	if sessionID == "" {
		return &ValidationError{Msg: "session id is required"}
	}
	path := fmt.Sprintf("/api/session/%s/clear", sessionID)
	return c.do(ctx, "clear session", http.MethodDelete, path, nil, nil)
}

// ListPersonas fetches the persona catalogue.
func (c *Client) ListPersonas(ctx context.Context) ([]Persona, error) {
	var out []Persona
	if err := c.do(ctx, "list personas", http.MethodGet, "/api/personas", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePersona creates a persona. The server enforces name uniqueness and
// answers 409 on conflict.
func (c *Client) CreatePersona(ctx context.Context, name, description, systemPrompt string) (Persona, error) {
	if name == "" {
		return Persona{}, &ValidationError{Msg: "persona name is required"}
	}
	if systemPrompt == "" {
		return Persona{}, &ValidationError{Msg: "system prompt is required"}
	}
	var out Persona
	body := createPersonaRequest{Name: name, Description: description, SystemPrompt: systemPrompt}
	if err := c.do(ctx, "create persona", http.MethodPost, "/api/personas", body, &out); err != nil {
		return Persona{}, err
	}
	return out, nil
}

// OptimizePersona asks the server to generate an improved prompt for the
// named persona and returns the raw optimized content.
func (c *Client) OptimizePersona(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", &ValidationError{Msg: "persona name is required"}
	}
	var out optimizePersonaResponse
	if err := c.do(ctx, "optimize persona", http.MethodPost, "/api/personas/optimize", optimizePersonaRequest{Name: name}, &out); err != nil {
		return "", err
	}
	if !out.Success || out.OptimizedContent == "" {
		return "", &DecodeError{Op: "optimize persona", Err: fmt.Errorf("server returned no optimized content")}
	}
	return out.OptimizedContent, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("op", op), zap.String("requestId", requestID), zap.Error(err))
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	c.logger.Debug("request completed",
		zap.String("op", op),
		zap.String("requestId", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Op: op, Status: resp.StatusCode, Detail: errorDetail(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}

// errorDetail pulls the server's message out of a {"detail": ...} body.
// FastAPI-style servers put validation failures in detail as an array, so
// anything non-string is re-serialized as-is.
func errorDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}
	return string(payload.Detail)
}
