package entities

// Reply is the JSON body answered to webhook and API callers.
type Reply struct {
	Response string     `json:"response"`
	Text     *ReplyText `json:"text,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// ReplyText carries the structured assistant turn.
type ReplyText struct {
	ConversationID string            `json:"conversationId"`
	Target         string            `json:"target"`
	TriggerAction  string            `json:"triggerAction"`
	Response       ConversationEntry `json:"response"`
}
