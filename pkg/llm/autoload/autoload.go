// Package autoload registers every built-in LLM provider through their init functions.
package autoload

import (
	_ "deskpilot/pkg/llm/anthropiclm"
	_ "deskpilot/pkg/llm/gemini"
	_ "deskpilot/pkg/llm/ollama"
	_ "deskpilot/pkg/llm/openailm"
)
