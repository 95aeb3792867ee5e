package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"chatdeck/internal/api"
)

// PersonaNameTaken reports whether a persona with the given name already
// exists in the catalogue. The check is advisory; the server's conflict
// response remains authoritative.
func (s *Store) PersonaNameTaken(name string) bool {
	name = strings.TrimSpace(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.personas {
		if p.Name == name {
			return true
		}
	}
	return false
}

// CreatePersona creates a custom persona and reloads the catalogue. A
// duplicate name is rejected before any request goes out; a name that slips
// past the advisory check and conflicts on the server surfaces the server's
// own message via the returned HTTPError.
func (s *Store) CreatePersona(ctx context.Context, name, description, systemPrompt string) (api.Persona, error) {
	name = strings.TrimSpace(name)
	systemPrompt = strings.TrimSpace(systemPrompt)
	if name == "" || systemPrompt == "" {
		return api.Persona{}, &api.ValidationError{Msg: "enter a persona name and system prompt"}
	}
	if s.PersonaNameTaken(name) {
		return api.Persona{}, &api.ValidationError{Msg: fmt.Sprintf("persona name %q already exists", name)}
	}
	if description == "" {
		description = "Custom persona: " + name
	}

	created, err := s.gw.CreatePersona(ctx, name, description, systemPrompt)
	if err != nil {
		return api.Persona{}, err
	}
	if err := s.RefreshPersonas(ctx); err != nil {
		s.logger.Warn("persona catalogue reload failed after create", zap.Error(err))
	}
	return created, nil
}

// OptimizedPersona is the usable form of an optimize-persona response.
type OptimizedPersona struct {
	Description  string
	SystemPrompt string
}

// OptimizePersona asks the server for an improved prompt for the named
// persona and unwraps the result. The server returns either a JSON object
// with description/system_prompt fields or raw prompt text; an
// object-valued system_prompt is flattened to "key: value" lines.
func (s *Store) OptimizePersona(ctx context.Context, name string) (OptimizedPersona, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return OptimizedPersona{}, &api.ValidationError{Msg: "enter a persona name first"}
	}
	content, err := s.gw.OptimizePersona(ctx, name)
	if err != nil {
		return OptimizedPersona{}, err
	}
	return parseOptimizedContent(name, content), nil
}

func parseOptimizedContent(name, content string) OptimizedPersona {
	var payload struct {
		Description  string          `json:"description"`
		SystemPrompt json.RawMessage `json:"system_prompt"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return OptimizedPersona{
			Description:  "Optimized persona: " + name,
			SystemPrompt: content,
		}
	}

	out := OptimizedPersona{Description: payload.Description}
	if out.Description == "" {
		out.Description = "Optimized persona: " + name
	}

	var prompt string
	if err := json.Unmarshal(payload.SystemPrompt, &prompt); err == nil {
		out.SystemPrompt = prompt
	} else {
		var sections map[string]string
		if err := json.Unmarshal(payload.SystemPrompt, &sections); err == nil {
			keys := make([]string, 0, len(sections))
			for k := range sections {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			lines := make([]string, 0, len(keys))
			for _, k := range keys {
				lines = append(lines, k+": "+sections[k])
			}
			out.SystemPrompt = strings.Join(lines, "\n")
		}
	}
	if out.SystemPrompt == "" {
		out.SystemPrompt = fmt.Sprintf("You are %s, a professional assistant.", name)
	}
	return out
}
