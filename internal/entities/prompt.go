package entities

import "time"

// MaxPromptLength bounds the system prompt text of a PromptConfig.
const MaxPromptLength = 50000

// PromptConfig is the named bundle of instructions, model and temperature driving one completion.
// It is read-only to the pipeline.
type PromptConfig struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Prompt      string    `json:"prompt"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	UpdatedAt   time.Time `json:"updated_at"`
}
