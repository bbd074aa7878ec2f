package command

import (
	"fmt"
	"strings"
)

// Prompt renders the grammar into the instruction text sent to the oracle.
// The verb list and the examples both come from the table, so the oracle and
// the parser agree on what a well-formed token is.
func (g *Grammar) Prompt() string {
	var sb strings.Builder
	sb.WriteString("You are a smart assistant. Based on the user's command, return one of the following exact formats (no extra text):\n\n")
	for _, e := range g.entries {
		if e.Hint != "" {
			fmt.Fprintf(&sb, "- %s %s\n", e.Token, e.Hint)
		} else {
			fmt.Fprintf(&sb, "- %s\n", e.Token)
		}
	}
	sb.WriteString("\nExamples:\n")
	for _, e := range g.entries {
		for _, ex := range e.Examples {
			fmt.Fprintf(&sb, "%q → %s\n", ex.Phrase, ex.Token)
		}
	}
	fmt.Fprintf(&sb, "\nWhen no number is given for an adjustment, use %d.\n", DefaultDelta)
	return sb.String()
}

// UserPrompt wraps the raw user text for the oracle.
func UserPrompt(text string) string {
	return fmt.Sprintf("User said: %q\nReply with just the correct command:", text)
}
