package store

import (
	"strings"

	"chatdeck/internal/api"
)

// Remote payloads are cleaned once, here, when they enter the store. The
// rest of the client can then trust its inputs instead of re-checking field
// types at every render site.

func normalizeSessions(in []api.Session) []api.Session {
	out := make([]api.Session, 0, len(in))
	for _, sess := range in {
		if sess.ID == "" {
			continue
		}
		sess.Title = strings.TrimSpace(sess.Title)
		sess.PersonaName = cleanPersonaName(sess.PersonaName)
		out = append(out, sess)
	}
	return out
}

func normalizeMessages(in []api.Message) []api.Message {
	out := make([]api.Message, 0, len(in))
	for _, msg := range in {
		msg.Role = strings.ToLower(strings.TrimSpace(msg.Role))
		switch msg.Role {
		case api.RoleUser, api.RoleAssistant, api.RoleSystem:
		default:
			msg.Role = api.RoleAssistant
		}
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func normalizePersonas(in []api.Persona) []api.Persona {
	out := make([]api.Persona, 0, len(in))
	for _, p := range in {
		p.Name = strings.TrimSpace(p.Name)
		if p.ID == "" || p.Name == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// cleanPersonaName drops values that are obviously not names. Some server
// builds leaked serialized datetime objects into persona_name; those render
// through the catalogue-lookup fallback instead.
func cleanPersonaName(name string) string {
	name = strings.TrimSpace(name)
	if strings.Contains(name, "datetime") {
		return ""
	}
	return name
}
