//go:build linux

package platform

import (
	"context"
	"deskpilot/pkg/capability"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"
)

const powerSupplyRoot = "/sys/class/power_supply"

func newSet(run runner, dir string) capability.Set {
	return capability.Set{
		Brightness: &linuxBrightness{run: run},
		Volume:     &linuxVolume{run: run},
		Screenshot: &linuxScreenshotter{run: run, dir: dir},
		Battery:    linuxBattery{root: powerSupplyRoot},
		Clock:      capability.NewSystemClock(),
		Launcher:   processLauncher{},
	}
}

// DefaultApps is the launch table used when config.json does not provide one.
func DefaultApps() map[string]string {
	return map[string]string{
		"calculator": "gnome-calculator",
		"notepad":    "gedit",
		"terminal":   "x-terminal-emulator",
		"browser":    "x-www-browser",
	}
}

func launchCommand(path string) (string, []string) {
	return path, nil
}

// linuxBrightness drives the backlight through brightnessctl.
type linuxBrightness struct {
	run runner
}

func (b *linuxBrightness) Current(ctx context.Context) (int, error) {
	out, err := b.run(ctx, "brightnessctl", "-m")
	if err != nil {
		return 0, err
	}
	return parseBrightnessctl(out)
}

func (b *linuxBrightness) Set(ctx context.Context, level int) error {
	_, err := b.run(ctx, "brightnessctl", "-q", "set", strconv.Itoa(level)+"%")
	return err
}

// linuxVolume drives the default PulseAudio/PipeWire sink through pactl.
type linuxVolume struct {
	run runner
}

func (v *linuxVolume) Current(ctx context.Context) (float64, error) {
	out, err := v.run(ctx, "pactl", "get-sink-volume", "@DEFAULT_SINK@")
	if err != nil {
		return 0, err
	}
	return parsePactlVolume(out)
}

func (v *linuxVolume) Set(ctx context.Context, level float64) error {
	pct := int(math.Round(level * 100))
	_, err := v.run(ctx, "pactl", "set-sink-volume", "@DEFAULT_SINK@", strconv.Itoa(pct)+"%")
	return err
}

type linuxScreenshotter struct {
	run runner
	dir string
}

func (s *linuxScreenshotter) Capture(ctx context.Context) (string, error) {
	path, err := screenshotPath(s.dir, time.Now())
	if err != nil {
		return "", err
	}
	// Try gnome-screenshot first, scrot as fallback
	if _, err := s.run(ctx, "gnome-screenshot", "-f", path); err != nil {
		slog.Warn("gnome-screenshot failed, trying scrot", "error", err)
		if _, err = s.run(ctx, "scrot", path); err != nil {
			return "", fmt.Errorf("screenshot failed (tried gnome-screenshot and scrot): %w", err)
		}
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("screenshot was not written: %w", err)
	}
	return path, nil
}

type linuxBattery struct {
	root string
}

func (b linuxBattery) Query(ctx context.Context) (capability.BatteryStatus, error) {
	return readSysBattery(b.root)
}
