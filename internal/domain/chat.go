package domain

import "time"

// ChatMessage is a single persisted chat transcript entry. The transcript
// exists only client-side; the remote backend does not store it.
type ChatMessage struct {
	ID        string   `json:"id,omitempty"`
	UserID    int      `json:"user_id"`
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Timestamp string   `json:"timestamp"`
	ToolCalls []string `json:"tool_calls,omitempty"`
}

// Time parses the message's ISO-8601 timestamp. Returns the zero time for
// malformed timestamps so such messages sort first and trim earliest.
func (m ChatMessage) Time() time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, m.Timestamp); err == nil {
			return t
		}
	}
	return time.Time{}
}
