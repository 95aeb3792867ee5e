package store

import (
	"context"

	"chatdeck/internal/api"
)

// Gateway is the remote surface the store reconciles against. *api.Client
// satisfies it; tests substitute a scripted fake.
type Gateway interface {
	ListSessions(ctx context.Context) ([]api.Session, error)
	CreateSession(ctx context.Context, title string, personaID api.ID) (api.ID, error)
	FetchHistory(ctx context.Context, sessionID api.ID) ([]api.Message, error)
	SendMessage(ctx context.Context, sessionID, personaID api.ID, text string, settings api.ChatSettings) (string, error)
	SetSessionPersona(ctx context.Context, sessionID, personaID api.ID) (*api.Persona, error)
	DeleteSession(ctx context.Context, sessionID api.ID) error
	ClearSession(ctx context.Context, sessionID api.ID) error
	ListPersonas(ctx context.Context) ([]api.Persona, error)
	CreatePersona(ctx context.Context, name, description, systemPrompt string) (api.Persona, error)
	OptimizePersona(ctx context.Context, name string) (string, error)
}

// InitResult reports how startup resolved the initial active session.
type InitResult struct {
	// NeedNewSession is set when no session could be activated and the UI
	// should open the new-chat flow.
	NeedNewSession bool
}

// DeleteResult reports how active selection moved after a deletion.
type DeleteResult struct {
	// SwitchedTo holds the successor session id when the deleted session
	// was current and another session remained.
	SwitchedTo api.ID
	// NeedNewSession is set when the last session was deleted and the UI
	// should open the new-chat flow.
	NeedNewSession bool
}
