// Package autoload registers every built-in channel factory.
package autoload

import (
	_ "agentapi/pkg/channels/telegram"
	_ "agentapi/pkg/channels/web"
)
