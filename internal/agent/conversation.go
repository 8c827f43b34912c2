package agent

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yolodolo42/sitepilot/internal/llm"
)

// Conversation holds the history of a multi-goal chat session. Each goal run
// continues from the full history of the previous ones.
type Conversation struct {
	mu        sync.Mutex
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	PageID    string        `json:"page_id,omitempty"`
	Messages  []llm.Message `json:"messages"`
}

// NewConversation creates a new conversation
func NewConversation() *Conversation {
	return &Conversation{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Messages:  make([]llm.Message, 0),
	}
}

// History returns a copy of the messages so far.
func (c *Conversation) History() []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.Message(nil), c.Messages...)
}

// Replace swaps in the history produced by a completed run.
func (c *Conversation) Replace(history []llm.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Messages = append([]llm.Message(nil), history...)
}

// SetPage sets the page the next goals refer to. An empty id clears it.
func (c *Conversation) SetPage(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.PageID = id
}

// Page returns the current page context.
func (c *Conversation) Page() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.PageID
}

// Reset clears the history but keeps the page context.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Messages = make([]llm.Message, 0)
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Messages)
}

// ToJSON serializes the conversation to JSON
func (c *Conversation) ToJSON() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return json.MarshalIndent(c, "", "  ")
}
