package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// ID is a remote identifier. The server is inconsistent about encoding:
// session ids arrive as strings, persona ids as either strings or bare
// numbers. Both decode into the canonical string form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Timestamp tolerates the mixed encodings the server emits: RFC3339,
// ISO 8601 without a zone, epoch seconds or milliseconds, and null.
// Unrecognized values decode to the zero time rather than failing the
// surrounding payload.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			t.Time = time.Time{}
			return nil
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				t.Time = parsed
				return nil
			}
		}
		t.Time = time.Time{}
		return nil
	}
	var epoch float64
	if err := json.Unmarshal(data, &epoch); err != nil {
		t.Time = time.Time{}
		return nil
	}
	// Heuristic: values this large are milliseconds.
	if epoch > 1e12 {
		epoch /= 1000
	}
	t.Time = time.Unix(int64(epoch), 0).UTC()
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(t.Format(time.RFC3339))), nil
}

// Now returns the current time as a Timestamp.
func Now() Timestamp { return Timestamp{time.Now().UTC()} }

// Session is one persisted conversation thread with its persona binding.
type Session struct {
	ID          ID        `json:"session_id"`
	Title       string    `json:"title"`
	PersonaID   ID        `json:"persona_id"`
	PersonaName string    `json:"persona_name,omitempty"`
	CreatedAt   Timestamp `json:"created_at,omitempty"`
	UpdatedAt   Timestamp `json:"updated_at,omitempty"`
}

// Message roles. System messages are synthesized client-side and never
// reach the server.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single turn in a session transcript.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp,omitempty"`
}

// Persona is a named system-prompt profile.
type Persona struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"system_prompt"`
	IsDefault    bool   `json:"is_default,omitempty"`
}

// ChatSettings rides along on every chat request. Field names match what
// the server expects verbatim.
type ChatSettings struct {
	AIProvider         string  `json:"aiProvider"`
	ModelName          string  `json:"modelName"`
	Temperature        float64 `json:"temperature"`
	ContextCompression bool    `json:"contextCompression"`
	ContextWindowSize  int     `json:"contextWindowSize"`
}

type createSessionRequest struct {
	Title     string `json:"title"`
	PersonaID ID     `json:"persona_id"`
}

type createSessionResponse struct {
	SessionID ID `json:"session_id"`
}

type historyResponse struct {
	Messages []Message `json:"messages"`
}

type chatRequest struct {
	SessionID ID           `json:"session_id"`
	Message   string       `json:"message"`
	PersonaID ID           `json:"persona_id"`
	Settings  ChatSettings `json:"settings"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type setPersonaRequest struct {
	PersonaID ID `json:"persona_id"`
}

type setPersonaResponse struct {
	Persona *Persona `json:"persona"`
}

type createPersonaRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"system_prompt"`
}

type optimizePersonaRequest struct {
	Name string `json:"name"`
}

type optimizePersonaResponse struct {
	Success          bool   `json:"success"`
	OptimizedContent string `json:"optimized_content"`
}
