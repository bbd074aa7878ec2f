// Package dispatcher turns one utterance into one Outcome. It is the only
// place that decides what a command does; front-ends just pass text in and
// render what comes back.
package dispatcher

import (
	"context"
	"deskpilot/pkg/capability"
	"deskpilot/pkg/command"
	"deskpilot/pkg/oracle"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
)

// MessageUnrecognized is the reply to anything that does not map to a verb.
const MessageUnrecognized = "Sorry, I didn't understand that."

// errUnavailable stands in for a capability the platform did not provide.
var errUnavailable = errors.New("not available on this system")

// Outcome is the uniform result of handling one utterance.
type Outcome struct {
	OK      bool
	Message string
}

// Dispatcher resolves text to a command and runs it against the capability set.
// It keeps no state between calls and is safe for concurrent use as long as
// the capabilities are.
type Dispatcher struct {
	oracle  oracle.Oracle
	caps    capability.Set
	apps    *capability.AppTable
	grammar *command.Grammar
}

// New builds a Dispatcher over the default grammar.
func New(o oracle.Oracle, caps capability.Set, apps *capability.AppTable) *Dispatcher {
	return &Dispatcher{
		oracle:  o,
		caps:    caps,
		apps:    apps,
		grammar: command.Default(),
	}
}

// Handle interprets text and executes it. It never panics and never fails:
// every problem is reported through the returned Outcome.
func (d *Dispatcher) Handle(ctx context.Context, text string) Outcome {
	text = strings.TrimSpace(text)
	if text == "" {
		return unrecognized()
	}

	if oracle.IsDateTimeQuery(text) {
		slog.DebugContext(ctx, "Date/time shortcut", "text", text)
		return d.Execute(ctx, command.Command{Verb: command.ShowDateTime})
	}

	cmd := d.classify(ctx, text)
	return d.Execute(ctx, cmd)
}

func (d *Dispatcher) classify(ctx context.Context, text string) (cmd command.Command) {
	if d.oracle == nil {
		slog.WarnContext(ctx, "No oracle configured")
		return command.Command{Verb: command.Unrecognized}
	}

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Oracle panicked", "panic", r)
			cmd = command.Command{Verb: command.Unrecognized}
		}
	}()

	token, err := d.oracle.Classify(ctx, text)
	if err != nil {
		slog.WarnContext(ctx, "Classification failed", "text", text, "error", err)
		return command.Command{Verb: command.Unrecognized}
	}

	cmd = d.grammar.Parse(token)
	slog.InfoContext(ctx, "Command classified", "text", text, "token", token, "verb", d.grammar.Token(cmd.Verb), "defaulted", cmd.Defaulted)
	return cmd
}

// Execute runs an already parsed command.
func (d *Dispatcher) Execute(ctx context.Context, cmd command.Command) Outcome {
	switch cmd.Verb {
	case command.Unrecognized:
		return unrecognized()
	case command.OpenApp:
		return d.openApp(ctx, cmd)
	}

	return d.guard(ctx, cmd.Verb, func() (string, error) {
		return d.run(ctx, cmd)
	})
}

func (d *Dispatcher) run(ctx context.Context, cmd command.Command) (string, error) {
	delta := abs(cmd.Amount)

	switch cmd.Verb {
	case command.AdjustBrightness:
		if d.caps.Brightness == nil {
			return "", errUnavailable
		}
		level := command.ClampPercent(cmd.Amount)
		if err := d.caps.Brightness.Set(ctx, level); err != nil {
			return "", err
		}
		return fmt.Sprintf("Brightness set to %d%%", level), nil

	case command.IncreaseBrightness:
		level, err := d.shiftBrightness(ctx, delta)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Brightness increased to %d%%", level), nil

	case command.DecreaseBrightness:
		level, err := d.shiftBrightness(ctx, -delta)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Brightness decreased to %d%%", level), nil

	case command.IncreaseVolume:
		level, err := d.shiftVolume(ctx, delta)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Volume increased to %d%%", percent(level)), nil

	case command.DecreaseVolume:
		level, err := d.shiftVolume(ctx, -delta)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Volume decreased to %d%%", percent(level)), nil

	case command.ShowVolume:
		if d.caps.Volume == nil {
			return "", errUnavailable
		}
		level, err := d.caps.Volume.Current(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Current volume is at %d%%", percent(command.ClampFraction(level))), nil

	case command.Screenshot:
		if d.caps.Screenshot == nil {
			return "", errUnavailable
		}
		path, err := d.caps.Screenshot.Capture(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Screenshot saved as '%s' in %s", filepath.Base(path), filepath.Dir(path)), nil

	case command.ShowBattery:
		if d.caps.Battery == nil {
			return "", errUnavailable
		}
		status, err := d.caps.Battery.Query(ctx)
		if err != nil {
			return "", err
		}
		state := "Not charging"
		if status.Charging {
			state = "Charging"
		}
		return fmt.Sprintf("Battery is at %d%% (%s)", command.ClampPercent(status.Percent), state), nil

	case command.ShowDateTime:
		if d.caps.Clock == nil {
			return "", errUnavailable
		}
		return d.caps.Clock.Now(), nil
	}

	return "", fmt.Errorf("no action bound to verb %d", cmd.Verb)
}

func (d *Dispatcher) shiftBrightness(ctx context.Context, delta int) (int, error) {
	if d.caps.Brightness == nil {
		return 0, errUnavailable
	}
	cur, err := d.caps.Brightness.Current(ctx)
	if err != nil {
		return 0, err
	}
	level := command.ClampPercent(cur + delta)
	if err := d.caps.Brightness.Set(ctx, level); err != nil {
		return 0, err
	}
	return level, nil
}

func (d *Dispatcher) shiftVolume(ctx context.Context, delta int) (float64, error) {
	if d.caps.Volume == nil {
		return 0, errUnavailable
	}
	cur, err := d.caps.Volume.Current(ctx)
	if err != nil {
		return 0, err
	}
	level := command.ClampFraction(cur + float64(delta)/100)
	if err := d.caps.Volume.Set(ctx, level); err != nil {
		return 0, err
	}
	return level, nil
}

func (d *Dispatcher) openApp(ctx context.Context, cmd command.Command) Outcome {
	name := cmd.Argument
	path, ok := d.apps.Lookup(name)
	if !ok {
		slog.InfoContext(ctx, "Unknown app requested", "app", name)
		msg := fmt.Sprintf("Unknown app: %s.", name)
		if names := d.apps.Names(); len(names) > 0 {
			msg += fmt.Sprintf(" Try %s.", strings.Join(names, ", "))
		}
		return Outcome{OK: false, Message: msg}
	}

	return d.guard(ctx, cmd.Verb, func() (string, error) {
		if d.caps.Launcher == nil {
			return "", errUnavailable
		}
		if err := d.caps.Launcher.Launch(ctx, path); err != nil {
			return "", err
		}
		return "Opening " + name, nil
	})
}

// guard runs one capability call and folds errors and panics into a failed
// Outcome prefixed with the verb token.
func (d *Dispatcher) guard(ctx context.Context, verb command.Verb, fn func() (string, error)) (out Outcome) {
	action := d.grammar.Token(verb)

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Capability panicked", "action", action, "panic", r)
			out = Outcome{OK: false, Message: fmt.Sprintf("%s: %v", action, r)}
		}
	}()

	msg, err := fn()
	if err != nil {
		slog.WarnContext(ctx, "Action failed", "action", action, "error", err)
		return Outcome{OK: false, Message: fmt.Sprintf("%s: %v", action, err)}
	}
	slog.InfoContext(ctx, "Action completed", "action", action, "message", msg)
	return Outcome{OK: true, Message: msg}
}

func unrecognized() Outcome {
	return Outcome{OK: true, Message: MessageUnrecognized}
}

func percent(f float64) int {
	return int(math.Round(f * 100))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
