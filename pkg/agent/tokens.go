package agent

import (
	"fmt"
	"sync"

	"agentapi/pkg/llm"

	"github.com/tiktoken-go/tokenizer"
)

// perMessageOverhead approximates the role and separator tokens every chat
// message costs on top of its text.
const perMessageOverhead = 8

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
	codecErr  error
)

func cl100k() (tokenizer.Codec, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, codecErr
}

// CountTokens estimates the prompt size of messages with the cl100k_base
// encoding.
func CountTokens(messages []llm.Message) (int, error) {
	enc, err := cl100k()
	if err != nil {
		return 0, fmt.Errorf("couldn't get tokenizer: %w", err)
	}
	total := 0
	for _, m := range messages {
		ids, _, err := enc.Encode(m.Content)
		if err != nil {
			return 0, fmt.Errorf("couldn't count tokens: %w", err)
		}
		total += len(ids) + perMessageOverhead
	}
	return total, nil
}

// TrimToTokens drops the oldest turns until messages fit in maxTokens.
// A leading system message and the final message are always kept.
func TrimToTokens(messages []llm.Message, maxTokens int) ([]llm.Message, error) {
	if maxTokens <= 0 || len(messages) == 0 {
		return messages, nil
	}

	var head []llm.Message
	rest := messages
	if rest[0].Role == llm.RoleSystem {
		head, rest = rest[:1], rest[1:]
	}

	for len(rest) > 1 {
		tokens, err := CountTokens(append(append([]llm.Message{}, head...), rest...))
		if err != nil {
			return nil, err
		}
		if tokens <= maxTokens {
			break
		}
		rest = rest[1:]
	}
	return append(append([]llm.Message{}, head...), rest...), nil
}
