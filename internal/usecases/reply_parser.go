package usecases

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// AssistantReply is the structured form of a model answer.
type AssistantReply struct {
	Target        string
	TriggerAction string
	Content       string
}

// ParseAssistantReply turns raw model output into an AssistantReply.
// Plain text is taken as the content. Output that looks like JSON (an object, or a fenced
// json block) must decode into {target, triggerAction, response}; models often emit
// slightly broken JSON, so it is repaired before decoding.
func ParseAssistantReply(raw string) (AssistantReply, error) {
	text := strings.TrimSpace(raw)
	body, ok := jsonBody(text)
	if !ok {
		return AssistantReply{Content: text}, nil
	}

	repaired, err := jsonrepair.JSONRepair(body)
	if err != nil {
		return AssistantReply{}, fmt.Errorf("%w: %v", ErrUnparsableReply, err)
	}

	var payload struct {
		Target        string          `json:"target"`
		TriggerAction string          `json:"triggerAction"`
		Response      json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
		return AssistantReply{}, fmt.Errorf("%w: %v", ErrUnparsableReply, err)
	}

	content, err := responseContent(payload.Response)
	if err != nil {
		return AssistantReply{}, err
	}
	return AssistantReply{
		Target:        payload.Target,
		TriggerAction: payload.TriggerAction,
		Content:       strings.TrimSpace(content),
	}, nil
}

// responseContent accepts either {"role": "assistant", "content": "..."} or a bare string.
func responseContent(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("%w: missing response", ErrUnparsableReply)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparsableReply, err)
	}
	if msg.Role != "" && msg.Role != "assistant" {
		return "", fmt.Errorf("%w: unexpected role %q", ErrUnparsableReply, msg.Role)
	}
	return msg.Content, nil
}

func jsonBody(text string) (string, bool) {
	if strings.HasPrefix(text, "```") {
		body := strings.TrimPrefix(text, "```")
		body = strings.TrimPrefix(body, "json")
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
		return strings.TrimSpace(body), true
	}
	if strings.HasPrefix(text, "{") {
		return text, true
	}
	return "", false
}
