package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Message field names written by the nodes.
const (
	FieldPayload    = "payload"
	FieldMessageID  = "_msgid"
	FieldWorkspace  = "workspace"
	FieldWorkspaces = "workspaces"
	FieldIntent     = "intent"
	FieldIntents    = "intents"
	FieldFeatures   = "features"
)

// Message is the envelope flowing through a node.
//
// Payload is one of []byte (binary), map[string]any (JSON object), string, or nil.
// Every other top-level field is kept in Fields and passed through untouched.
type Message struct {
	ID      string
	Payload any
	Fields  map[string]any
}

// NewMessage creates a message with a fresh id.
func NewMessage(payload any) *Message {
	return &Message{
		ID:      uuid.NewString(),
		Payload: payload,
		Fields:  make(map[string]any),
	}
}

// Set writes a top-level field.
func (m *Message) Set(key string, value any) {
	if m.Fields == nil {
		m.Fields = make(map[string]any)
	}
	m.Fields[key] = value
}

// Get returns a top-level field.
func (m *Message) Get(key string) (any, bool) {
	v, ok := m.Fields[key]
	return v, ok
}

// IsBinary reports whether the payload is a raw byte buffer.
func (m *Message) IsBinary() bool {
	_, ok := m.Payload.([]byte)
	return ok
}

// MarshalJSON flattens the envelope into a single JSON object.
func (m *Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Fields)+2)
	for k, v := range m.Fields {
		out[k] = v
	}
	out[FieldMessageID] = m.ID
	if m.Payload != nil {
		out[FieldPayload] = m.Payload
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits a JSON object into id, payload and passthrough fields.
// A missing _msgid is replaced by a fresh one.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("message must be a JSON object: %w", err)
	}

	m.ID = ""
	if id, ok := raw[FieldMessageID].(string); ok {
		m.ID = id
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	delete(raw, FieldMessageID)

	m.Payload = raw[FieldPayload]
	delete(raw, FieldPayload)

	m.Fields = raw
	return nil
}
