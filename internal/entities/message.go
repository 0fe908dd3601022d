package entities

// Role is the author of a transcript entry or prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IncomingMessage is one inbound message after the provider envelope has been unwrapped.
type IncomingMessage struct {
	From      string
	Text      string
	Timestamp int64  // epoch milliseconds
	MessageID string // unique per provider, natural deduplication key
}

// OutgoingMessage is a reply pushed back to an external channel.
type OutgoingMessage struct {
	To            string
	Text          string
	CorrelationID string
}

// ConversationEntry is one turn of a transcript.
type ConversationEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatMessage is an entry of the ordered message list sent to a completion provider.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
