package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"promptbot/internal/entities"
)

var errMalformedPayload = errors.New("malformed webhook payload")

// inboundPayload covers both accepted body shapes: the flat form and the WhatsApp
// Cloud notification envelope.
type inboundPayload struct {
	From      string          `json:"from"`
	Text      string          `json:"text"`
	Timestamp json.RawMessage `json:"timestamp"`
	MessageID string          `json:"messageId"`
	PromptID  string          `json:"promptId"`

	Object string          `json:"object"`
	Entry  []envelopeEntry `json:"entry"`
}

type envelopeEntry struct {
	ID      string `json:"id"`
	Changes []struct {
		Field string `json:"field"`
		Value struct {
			Messages []envelopeMessage `json:"messages"`
			Statuses []json.RawMessage `json:"statuses"`
		} `json:"value"`
	} `json:"changes"`
}

type envelopeMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"` // epoch seconds
	Type      string `json:"type"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text"`
}

// parseInbound unwraps a webhook body into the messages it carries. An envelope with
// no text messages (delivery statuses, media) yields an empty slice.
func parseInbound(body []byte) ([]entities.IncomingMessage, string, error) {
	var payload inboundPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, "", fmt.Errorf("%w: %v", errMalformedPayload, err)
	}

	if payload.Object != "" || len(payload.Entry) > 0 {
		return envelopeMessages(payload.Entry), payload.PromptID, nil
	}

	ts, err := flatTimestamp(payload.Timestamp)
	if err != nil {
		return nil, "", err
	}
	return []entities.IncomingMessage{{
		From:      payload.From,
		Text:      payload.Text,
		Timestamp: ts,
		MessageID: payload.MessageID,
	}}, payload.PromptID, nil
}

func envelopeMessages(entries []envelopeEntry) []entities.IncomingMessage {
	var out []entities.IncomingMessage
	for _, entry := range entries {
		for _, change := range entry.Changes {
			for _, m := range change.Value.Messages {
				if m.Type != "" && m.Type != "text" {
					continue
				}
				var ts int64
				if secs, err := strconv.ParseInt(m.Timestamp, 10, 64); err == nil {
					ts = secs * 1000
				}
				out = append(out, entities.IncomingMessage{
					From:      m.From,
					Text:      m.Text.Body,
					Timestamp: ts,
					MessageID: m.ID,
				})
			}
		}
	}
	return out
}

// flatTimestamp accepts epoch milliseconds as a JSON number or numeric string.
func flatTimestamp(raw json.RawMessage) (int64, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, nil
	}
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: timestamp %q", errMalformedPayload, s)
	}
	return ts, nil
}
