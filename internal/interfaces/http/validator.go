package http

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"promptbot/internal/entities"
)

// Input validation constants
const (
	MaxPromptIDLength = 64
	MaxMessageLength  = 4096
	MaxRecipientLen   = 64
)

var promptIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidPromptID checks if a prompt id is safe (alphanumeric + underscore + hyphen)
func ValidPromptID(s string) bool {
	if s == "" || len(s) > MaxPromptIDLength {
		return false
	}
	return promptIDPattern.MatchString(s)
}

// SanitizeString removes null bytes and invalid UTF-8
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}

// ValidateLength checks if string is within bounds
func ValidateLength(s string, min, max int) bool {
	l := utf8.RuneCountInString(s)
	return l >= min && l <= max
}

// sanitizeIncoming cleans the free-text fields of an inbound message.
func sanitizeIncoming(msg entities.IncomingMessage) entities.IncomingMessage {
	msg.From = strings.TrimSpace(SanitizeString(msg.From))
	msg.Text = SanitizeString(msg.Text)
	msg.MessageID = strings.TrimSpace(SanitizeString(msg.MessageID))
	return msg
}
