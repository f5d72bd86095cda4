// Package wire holds the JSON message types exchanged between the Aiva
// server and its clients over the per-session WebSocket. Clients send one
// Inbound message per turn and receive one Outbound message per turn.
package wire

// Inbound is a user turn (client → core). Clients that send a bare text
// frame instead of JSON are treated as if the whole frame were Text.
type Inbound struct {
	Text string `json:"text"`
}

// Outbound is the system's reply to one turn. State is the conversation
// state after the turn. Context is populated only while the session is
// awaiting plan confirmation; it gives a client UI the pending intent,
// plan, and collected parameters.
type Outbound struct {
	Text    string       `json:"text"`
	State   string       `json:"state"`
	Context *TurnContext `json:"context,omitempty"`
}

// TurnContext is confirmation-stage metadata for client UIs.
type TurnContext struct {
	Intent     string         `json:"intent"`
	Plan       any            `json:"execution_plan"`
	Parameters map[string]any `json:"parameters"`
}
