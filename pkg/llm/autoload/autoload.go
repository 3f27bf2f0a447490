// Package autoload registers every built-in completion provider.
package autoload

import (
	_ "agentapi/pkg/llm/anthropic"
	_ "agentapi/pkg/llm/gemini"
	_ "agentapi/pkg/llm/ollama"
	_ "agentapi/pkg/llm/openailm"
)
