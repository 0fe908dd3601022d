package entities

// CompletionKind tags the outcome of a completion call.
type CompletionKind int

const (
	CompletionSuccess CompletionKind = iota
	CompletionEmpty
	CompletionProviderError
)

func (k CompletionKind) String() string {
	switch k {
	case CompletionSuccess:
		return "success"
	case CompletionEmpty:
		return "empty"
	case CompletionProviderError:
		return "provider_error"
	}
	return "unknown"
}

// Completion is the provider's answer: Text is set for CompletionSuccess,
// Error for CompletionProviderError.
type Completion struct {
	Kind  CompletionKind
	Text  string
	Error string
}

// CompletionRequest is one chat-completion call.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
}
