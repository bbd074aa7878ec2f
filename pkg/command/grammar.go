package command

import "strings"

// DefaultDelta is substituted whenever a numeric verb arrives without a usable number.
const DefaultDelta = 10

// Verb identifies one of the fixed desktop actions.
type Verb int

const (
	Unrecognized Verb = iota
	AdjustBrightness
	IncreaseBrightness
	DecreaseBrightness
	Screenshot
	ShowBattery
	ShowVolume
	IncreaseVolume
	DecreaseVolume
	ShowDateTime
	OpenApp
)

// Arity describes the argument shape a verb expects.
type Arity int

const (
	ArityNone Arity = iota
	ArityOptionalInt
	ArityRequiredString
)

// Example maps a natural phrasing to the canonical token the oracle should answer with.
type Example struct {
	Phrase string
	Token  string
}

// Entry is one row of the grammar table.
type Entry struct {
	Verb     Verb
	Token    string // canonical lower-case verb word, e.g. "increase_volume"
	Arity    Arity
	Hint     string // shown after the token in the oracle prompt
	Examples []Example
}

// Grammar is the read-only verb table shared by the prompt and the parser.
type Grammar struct {
	entries []Entry
	byToken map[string]Entry
	byVerb  map[Verb]Entry
}

// NewGrammar indexes entries. Tokens are lower-cased; later duplicates win.
func NewGrammar(entries []Entry) *Grammar {
	g := &Grammar{
		entries: make([]Entry, 0, len(entries)),
		byToken: make(map[string]Entry, len(entries)),
		byVerb:  make(map[Verb]Entry, len(entries)),
	}
	for _, e := range entries {
		e.Token = strings.ToLower(strings.TrimSpace(e.Token))
		g.entries = append(g.entries, e)
		g.byToken[e.Token] = e
		g.byVerb[e.Verb] = e
	}
	return g
}

// Entries returns a copy of the table in declaration order.
func (g *Grammar) Entries() []Entry {
	cp := make([]Entry, len(g.entries))
	copy(cp, g.entries)
	return cp
}

// Lookup finds the entry for a verb word, case-insensitively.
func (g *Grammar) Lookup(token string) (Entry, bool) {
	e, ok := g.byToken[strings.ToLower(token)]
	return e, ok
}

// Entry returns the table row for v.
func (g *Grammar) Entry(v Verb) (Entry, bool) {
	e, ok := g.byVerb[v]
	return e, ok
}

// Token returns the canonical token of v, or "unrecognized".
func (g *Grammar) Token(v Verb) string {
	if e, ok := g.byVerb[v]; ok {
		return e.Token
	}
	return "unrecognized"
}

var defaultGrammar = NewGrammar([]Entry{
	{
		Verb: AdjustBrightness, Token: "adjust_brightness", Arity: ArityOptionalInt, Hint: "<number>",
		Examples: []Example{{"Set brightness to 70", "adjust_brightness 70"}},
	},
	{
		Verb: IncreaseBrightness, Token: "increase_brightness", Arity: ArityOptionalInt, Hint: "<number>",
		Examples: []Example{
			{"Increase brightness by 20", "increase_brightness 20"},
			{"Increase the brightness", "increase_brightness 10"},
		},
	},
	{
		Verb: DecreaseBrightness, Token: "decrease_brightness", Arity: ArityOptionalInt, Hint: "<number>",
		Examples: []Example{
			{"Decrease the brightness by 30", "decrease_brightness 30"},
			{"Decrease the brightness", "decrease_brightness 10"},
		},
	},
	{
		Verb: Screenshot, Token: "take_screenshot", Arity: ArityNone,
		Examples: []Example{{"Take a screenshot", "take_screenshot"}},
	},
	{
		Verb: ShowBattery, Token: "show_battery", Arity: ArityNone,
		Examples: []Example{
			{"Battery level", "show_battery"},
			{"What is the battery status?", "show_battery"},
		},
	},
	{
		Verb: ShowVolume, Token: "show_volume", Arity: ArityNone,
		Examples: []Example{{"What's the volume?", "show_volume"}},
	},
	{
		Verb: IncreaseVolume, Token: "increase_volume", Arity: ArityOptionalInt, Hint: "<number>",
		Examples: []Example{{"Increase volume by 10", "increase_volume 10"}},
	},
	{
		Verb: DecreaseVolume, Token: "decrease_volume", Arity: ArityOptionalInt, Hint: "<number>",
		Examples: []Example{{"Decrease volume by 10", "decrease_volume 10"}},
	},
	{
		Verb: ShowDateTime, Token: "show_datetime", Arity: ArityNone,
		Examples: []Example{
			{"What time is it?", "show_datetime"},
			{"What day is today?", "show_datetime"},
		},
	},
	{
		Verb: OpenApp, Token: "open_app", Arity: ArityRequiredString, Hint: "<appname>",
		Examples: []Example{
			{"Open calculator", "open_app calculator"},
			{"Launch notepad", "open_app notepad"},
		},
	},
})

// Default returns the process-wide grammar.
func Default() *Grammar {
	return defaultGrammar
}

// String returns the canonical token of v in the default grammar.
func (v Verb) String() string {
	return defaultGrammar.Token(v)
}
