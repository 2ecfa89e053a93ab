package llm

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat completion conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatParams tunes a single completion call. Zero values fall back to the
// client's model and the server's defaults.
type ChatParams struct {
	Model       string
	MaxTokens   int
	Temperature float32
}
