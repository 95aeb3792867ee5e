// Package store holds the client's conversation state and reconciles it
// against the remote service: the session set, the active selection, the
// current transcript, and the persona catalogue. It is the only place that
// mutates conversation state; the UI consumes snapshots and dispatches
// commands.
//
// The session snapshot is authoritative on the server. After every mutating
// operation the store reloads the list wholesale instead of patching it,
// trading round trips for freedom from partial-update races. Each command
// completes its network leg before its result is applied; overlapping
// commands resolve last-writer-wins (see SwitchTo).
package store

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"chatdeck/internal/api"
)

// Store is the conversation state for one client run. Construct it once
// with New; there are no package-level singletons.
type Store struct {
	gw     Gateway
	logger *zap.Logger

	mu       sync.RWMutex
	settings api.ChatSettings
	sessions []api.Session
	personas []api.Persona
	messages []api.Message
	previews map[api.ID][]api.Message

	currentSessionID api.ID
	currentPersonaID api.ID
}

// New returns an empty store backed by the given gateway.
func New(gw Gateway, settings api.ChatSettings, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		gw:       gw,
		logger:   logger,
		settings: settings,
		previews: map[api.ID][]api.Message{},
	}
}

// SetChatSettings replaces the settings carried on subsequent sends.
func (s *Store) SetChatSettings(settings api.ChatSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// Init loads the persona catalogue, then the session list, then activates
// the first session by list order. A persona load failure is tolerated (the
// catalogue stays empty); a session load failure or an empty list reports
// NeedNewSession.
func (s *Store) Init(ctx context.Context) (InitResult, error) {
	personas, err := s.gw.ListPersonas(ctx)
	if err != nil {
		s.logger.Warn("persona catalogue unavailable", zap.Error(err))
	} else {
		s.mu.Lock()
		s.personas = normalizePersonas(personas)
		s.mu.Unlock()
	}

	if err := s.RefreshSessions(ctx); err != nil {
		return InitResult{NeedNewSession: true}, err
	}

	s.mu.RLock()
	var first api.ID
	if len(s.sessions) > 0 {
		first = s.sessions[0].ID
	}
	s.mu.RUnlock()

	if first == "" {
		return InitResult{NeedNewSession: true}, nil
	}
	if err := s.SwitchTo(ctx, first); err != nil {
		s.logger.Warn("initial session activation failed", zap.String("session", first.String()), zap.Error(err))
		return InitResult{NeedNewSession: true}, nil
	}
	return InitResult{}, nil
}

// RefreshSessions replaces the cached session snapshot with the server's,
// then refreshes the sidebar previews. Preview failures degrade to an empty
// preview and never fail the refresh.
func (s *Store) RefreshSessions(ctx context.Context) error {
	sessions, err := s.gw.ListSessions(ctx)
	if err != nil {
		return err
	}
	cleaned := normalizeSessions(sessions)

	previews := make(map[api.ID][]api.Message, len(cleaned))
	for _, sess := range cleaned {
		msgs, err := s.gw.FetchHistory(ctx, sess.ID)
		if err != nil {
			s.logger.Debug("preview unavailable", zap.String("session", sess.ID.String()), zap.Error(err))
			continue
		}
		msgs = normalizeMessages(msgs)
		if len(msgs) > 2 {
			msgs = msgs[len(msgs)-2:]
		}
		previews[sess.ID] = msgs
	}

	s.mu.Lock()
	s.sessions = cleaned
	s.previews = previews
	s.mu.Unlock()
	return nil
}

// RefreshPersonas replaces the persona catalogue with the server's.
func (s *Store) RefreshPersonas(ctx context.Context) error {
	personas, err := s.gw.ListPersonas(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.personas = normalizePersonas(personas)
	s.mu.Unlock()
	return nil
}

// DefaultPersonaID resolves the persona preselected in the new-chat flow:
// the one flagged default, else the first in catalogue order, else none.
func (s *Store) DefaultPersonaID() api.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.personas {
		if p.IsDefault {
			return p.ID
		}
	}
	if len(s.personas) > 0 {
		return s.personas[0].ID
	}
	return ""
}

// CreateSession creates a session, activates it with an empty transcript,
// and reloads the session list. The new session is inserted locally before
// the reload so a reload failure cannot leave the cursor dangling.
func (s *Store) CreateSession(ctx context.Context, title string, personaID api.ID) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return &api.ValidationError{Msg: "enter a chat title"}
	}
	if personaID == "" {
		return &api.ValidationError{Msg: "select a persona"}
	}

	id, err := s.gw.CreateSession(ctx, title, personaID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions = append([]api.Session{{
		ID:          id,
		Title:       title,
		PersonaID:   personaID,
		PersonaName: s.personaNameLocked(personaID),
		CreatedAt:   api.Now(),
		UpdatedAt:   api.Now(),
	}}, s.sessions...)
	s.currentSessionID = id
	s.currentPersonaID = personaID
	s.messages = nil
	s.mu.Unlock()

	if err := s.RefreshSessions(ctx); err != nil {
		s.logger.Warn("session list reload failed after create", zap.Error(err))
	}
	return nil
}

// SwitchTo activates a session: the cursor moves optimistically, then the
// transcript is fetched and applied. Overlapping switches are not fenced;
// the last response to arrive wins. On fetch failure the cursor is cleared
// so no further commands can act on a stale session.
func (s *Store) SwitchTo(ctx context.Context, sessionID api.ID) error {
	s.mu.Lock()
	s.currentSessionID = sessionID
	s.mu.Unlock()

	msgs, err := s.gw.FetchHistory(ctx, sessionID)
	if err != nil {
		s.mu.Lock()
		s.currentSessionID = ""
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.messages = normalizeMessages(msgs)
	if sess, ok := s.findSessionLocked(sessionID); ok && sess.PersonaID != "" {
		s.currentPersonaID = sess.PersonaID
	}
	s.mu.Unlock()
	return nil
}

// Send posts text to the current session. The user message lands in the
// transcript before the request goes out and stays there on failure; the
// failure is recorded as a system message instead. Sending with no current
// session or empty text issues no request.
func (s *Store) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	s.mu.RLock()
	sessionID := s.currentSessionID
	personaID := s.currentPersonaID
	settings := s.settings
	s.mu.RUnlock()

	if text == "" || sessionID == "" {
		return nil
	}

	s.appendMessage(api.Message{Role: api.RoleUser, Content: text, Timestamp: api.Now()})

	reply, err := s.gw.SendMessage(ctx, sessionID, personaID, text, settings)
	if err != nil {
		s.appendMessage(api.Message{Role: api.RoleSystem, Content: "failed to send message: " + err.Error(), Timestamp: api.Now()})
		return err
	}
	if reply == "" {
		s.appendMessage(api.Message{Role: api.RoleSystem, Content: "no reply received", Timestamp: api.Now()})
	} else {
		s.appendMessage(api.Message{Role: api.RoleAssistant, Content: reply, Timestamp: api.Now()})
	}

	if err := s.RefreshSessions(ctx); err != nil {
		s.logger.Warn("session list reload failed after send", zap.Error(err))
	}
	return nil
}

// Delete removes a session once the server confirms the deletion. When the
// deleted session was current, the first remaining session by list order
// becomes current; if none remain, active selection clears and the caller
// is told to start the new-chat flow.
func (s *Store) Delete(ctx context.Context, sessionID api.ID) (DeleteResult, error) {
	if err := s.gw.DeleteSession(ctx, sessionID); err != nil {
		return DeleteResult{}, err
	}

	s.mu.Lock()
	kept := s.sessions[:0]
	for _, sess := range s.sessions {
		if sess.ID != sessionID {
			kept = append(kept, sess)
		}
	}
	s.sessions = kept
	delete(s.previews, sessionID)
	wasCurrent := s.currentSessionID == sessionID

	if !wasCurrent {
		s.mu.Unlock()
		return DeleteResult{}, nil
	}

	var next api.ID
	if len(s.sessions) > 0 {
		next = s.sessions[0].ID
	} else {
		s.currentSessionID = ""
		s.currentPersonaID = ""
		s.messages = nil
	}
	s.mu.Unlock()

	if next == "" {
		return DeleteResult{NeedNewSession: true}, nil
	}
	if err := s.SwitchTo(ctx, next); err != nil {
		return DeleteResult{SwitchedTo: next}, err
	}
	return DeleteResult{SwitchedTo: next}, nil
}

// ClearCurrent empties the current session's transcript on the server and
// locally. A no-op when no session is current.
func (s *Store) ClearCurrent(ctx context.Context) error {
	s.mu.RLock()
	sessionID := s.currentSessionID
	s.mu.RUnlock()
	if sessionID == "" {
		return nil
	}
	if err := s.gw.ClearSession(ctx, sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	s.messages = nil
	delete(s.previews, sessionID)
	s.mu.Unlock()
	return nil
}

// SetPersona rebinds the current session to another persona and reloads the
// session list. The local persona cursor moves first and is not reverted on
// failure. Without a current session only the cursor moves.
func (s *Store) SetPersona(ctx context.Context, personaID api.ID) error {
	s.mu.Lock()
	s.currentPersonaID = personaID
	sessionID := s.currentSessionID
	s.mu.Unlock()

	if sessionID == "" {
		return nil
	}
	if _, err := s.gw.SetSessionPersona(ctx, sessionID, personaID); err != nil {
		return err
	}
	if err := s.RefreshSessions(ctx); err != nil {
		s.logger.Warn("session list reload failed after persona switch", zap.Error(err))
	}
	return nil
}

func (s *Store) appendMessage(msg api.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

func (s *Store) findSessionLocked(id api.ID) (api.Session, bool) {
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return api.Session{}, false
}

func (s *Store) personaNameLocked(id api.ID) string {
	for _, p := range s.personas {
		if p.ID == id {
			return p.Name
		}
	}
	return ""
}

// Snapshot is an immutable copy of the store state for rendering.
type Snapshot struct {
	Sessions         []api.Session
	Personas         []api.Persona
	Messages         []api.Message
	Previews         map[api.ID][]api.Message
	CurrentSessionID api.ID
	CurrentPersonaID api.ID
}

// Snapshot copies the current state. The result shares nothing with the
// store and is safe to hold across commands.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	previews := make(map[api.ID][]api.Message, len(s.previews))
	for id, msgs := range s.previews {
		previews[id] = append([]api.Message(nil), msgs...)
	}
	return Snapshot{
		Sessions:         append([]api.Session(nil), s.sessions...),
		Personas:         append([]api.Persona(nil), s.personas...),
		Messages:         append([]api.Message(nil), s.messages...),
		Previews:         previews,
		CurrentSessionID: s.currentSessionID,
		CurrentPersonaID: s.currentPersonaID,
	}
}
