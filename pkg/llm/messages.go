package llm

import (
	"time"

	"agentapi/pkg/utils"
)

// Message is one role-tagged chat turn. Messages are passed by value and
// never modified once appended to a history.
type Message struct {
	ID        string `json:"id,omitempty"`
	Role      string `json:"role"` // RoleSystem, RoleHuman or RoleAssistant
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// NewTextMessage builds a message stamped with a fresh id and the current time.
func NewTextMessage(role, text string) Message {
	return Message{
		ID:        utils.GenerateID(),
		Role:      role,
		Content:   text,
		Timestamp: time.Now().Unix(),
	}
}

func NewSystemMessage(text string) Message {
	return NewTextMessage(RoleSystem, text)
}

func NewHumanMessage(text string) Message {
	return NewTextMessage(RoleHuman, text)
}

func NewAssistantMessage(text string) Message {
	return NewTextMessage(RoleAssistant, text)
}

// SplitSystem separates the leading system instructions from the chat turns.
// Several providers take the system prompt as a dedicated request field.
func SplitSystem(messages []Message) (system string, turns []Message) {
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n"
			}
			system += m.Content
			continue
		}
		turns = append(turns, m)
	}
	return system, turns
}
