package store

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatdeck/internal/api"
)

func TestCreatePersonaDuplicateRejectedLocally(t *testing.T) {
	gw := newFakeGateway()
	gw.personas = []api.Persona{{ID: "p1", Name: "Poet"}}
	s := New(gw, api.ChatSettings{}, nil)
	require.NoError(t, s.RefreshPersonas(context.Background()))
	mark := len(gw.calls)

	_, err := s.CreatePersona(context.Background(), "Poet", "", "prompt")

	var verr *api.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Msg, "Poet")
	assert.Equal(t, mark, len(gw.calls), "duplicate names must be rejected before any request")
}

func TestCreatePersonaServerConflictSurfacesServerMessage(t *testing.T) {
	gw := newFakeGateway()
	s := New(gw, api.ChatSettings{}, nil)
	gw.createPersonaErr = &api.HTTPError{Op: "create persona", Status: http.StatusConflict, Detail: "name taken on the server"}

	_, err := s.CreatePersona(context.Background(), "Poet", "", "prompt")

	var herr *api.HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusConflict, herr.Status)
	assert.Contains(t, err.Error(), "name taken on the server")
}

func TestCreatePersonaReloadsCatalogue(t *testing.T) {
	gw := newFakeGateway()
	s := New(gw, api.ChatSettings{}, nil)

	created, err := s.CreatePersona(context.Background(), "Poet", "", "write in verse")
	require.NoError(t, err)
	assert.Equal(t, "Poet", created.Name)
	assert.Equal(t, "Custom persona: Poet", created.Description)
	assert.True(t, s.PersonaNameTaken("Poet"))
}

func TestCreatePersonaValidation(t *testing.T) {
	gw := newFakeGateway()
	s := New(gw, api.ChatSettings{}, nil)

	var verr *api.ValidationError
	_, err := s.CreatePersona(context.Background(), "", "", "prompt")
	require.ErrorAs(t, err, &verr)
	_, err = s.CreatePersona(context.Background(), "Poet", "", "  ")
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, gw.calls)
}

func TestOptimizePersonaStructuredContent(t *testing.T) {
	gw := newFakeGateway()
	gw.optimized = `{"description":"A lyrical assistant","system_prompt":"You write verse."}`
	s := New(gw, api.ChatSettings{}, nil)

	got, err := s.OptimizePersona(context.Background(), "Poet")
	require.NoError(t, err)
	assert.Equal(t, "A lyrical assistant", got.Description)
	assert.Equal(t, "You write verse.", got.SystemPrompt)
}

func TestOptimizePersonaObjectPromptFlattened(t *testing.T) {
	got := parseOptimizedContent("Poet", `{"system_prompt":{"role":"poet","tone":"warm"}}`)
	assert.Equal(t, "role: poet\ntone: warm", got.SystemPrompt)
	assert.Equal(t, "Optimized persona: Poet", got.Description)
}

func TestOptimizePersonaRawText(t *testing.T) {
	got := parseOptimizedContent("Poet", "You are a poet. Answer in rhyme.")
	assert.Equal(t, "You are a poet. Answer in rhyme.", got.SystemPrompt)
}

func TestOptimizePersonaEmptyName(t *testing.T) {
	gw := newFakeGateway()
	s := New(gw, api.ChatSettings{}, nil)

	var verr *api.ValidationError
	_, err := s.OptimizePersona(context.Background(), "  ")
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, gw.calls)
}
