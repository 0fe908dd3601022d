package usecases

import (
	"promptbot/internal/entities"
)

// BuildPrompt assembles the provider message list: the fixed language instruction, the
// configuration's prompt, the transcript in stored order, then the new user text.
func BuildPrompt(language string, cfg *entities.PromptConfig, history []entities.ConversationEntry, text string) []entities.ChatMessage {
	messages := make([]entities.ChatMessage, 0, len(history)+3)
	messages = append(messages,
		entities.ChatMessage{Role: entities.RoleSystem, Content: "Language: " + language},
		entities.ChatMessage{Role: entities.RoleSystem, Content: cfg.Prompt},
	)
	for _, entry := range history {
		messages = append(messages, entities.ChatMessage{Role: entry.Role, Content: entry.Content})
	}
	return append(messages, entities.ChatMessage{Role: entities.RoleUser, Content: text})
}
