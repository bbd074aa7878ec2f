package command

import (
	"errors"
	"strconv"
	"strings"
)

// maxAmount bounds a parsed number. No level goes beyond 100, so larger
// magnitudes mean the same thing and bounding them keeps level arithmetic
// from overflowing.
const maxAmount = 100

// Command is a parsed oracle token. It is built once per utterance and never mutated.
type Command struct {
	Verb Verb
	// Argument is the raw text after the verb word: the number for numeric
	// verbs, the normalized app name for OpenApp.
	Argument string
	// Amount is the resolved integer for numeric verbs, within [-100, 100]
	// (DefaultDelta when the argument was missing or malformed).
	Amount int
	// Defaulted reports that Amount came from DefaultDelta.
	Defaulted bool
}

// Parse turns a token such as "increase_volume 20" into a Command using the default grammar.
func Parse(token string) Command {
	return defaultGrammar.Parse(token)
}

// Parse turns a token into a Command. Anything it cannot make sense of yields
// Unrecognized; a bad number degrades to DefaultDelta instead of failing.
func (g *Grammar) Parse(token string) Command {
	token = strings.TrimSpace(token)
	fields := strings.Fields(token)
	if len(fields) == 0 {
		return Command{Verb: Unrecognized}
	}

	entry, ok := g.Lookup(fields[0])
	if !ok {
		return Command{Verb: Unrecognized}
	}

	switch entry.Arity {
	case ArityOptionalInt:
		cmd := Command{Verb: entry.Verb}
		if len(fields) > 1 {
			cmd.Argument = fields[1]
		}
		if n, ok := parseAmount(cmd.Argument); ok {
			cmd.Amount = n
		} else {
			cmd.Amount = DefaultDelta
			cmd.Defaulted = true
		}
		return cmd

	case ArityRequiredString:
		rest := strings.TrimSpace(token[len(fields[0]):])
		rest = strings.ToLower(rest)
		if rest == "" {
			return Command{Verb: Unrecognized}
		}
		return Command{Verb: entry.Verb, Argument: rest}

	default:
		return Command{Verb: entry.Verb}
	}
}

// parseAmount accepts plain integers with an optional leading '+' or trailing
// '%', bounded to [-maxAmount, maxAmount]. Numbers too large for an int
// saturate instead of being rejected.
func parseAmount(s string) (int, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return max(-maxAmount, min(maxAmount, n)), true
}

// ClampPercent bounds a level to [0, 100].
func ClampPercent(n int) int {
	return max(0, min(100, n))
}

// ClampFraction bounds a level to [0.0, 1.0].
func ClampFraction(f float64) float64 {
	return max(0.0, min(1.0, f))
}
