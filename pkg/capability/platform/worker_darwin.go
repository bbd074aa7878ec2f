//go:build darwin

package platform

import (
	"context"
	"deskpilot/pkg/capability"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

func newSet(run runner, dir string) capability.Set {
	return capability.Set{
		Brightness: &darwinBrightness{run: run},
		Volume:     &darwinVolume{run: run},
		Screenshot: &darwinScreenshotter{run: run, dir: dir},
		Battery:    &darwinBattery{run: run},
		Clock:      capability.NewSystemClock(),
		Launcher:   processLauncher{},
	}
}

// DefaultApps is the launch table used when config.json does not provide one.
func DefaultApps() map[string]string {
	return map[string]string{
		"calculator": "/System/Applications/Calculator.app",
		"notepad":    "/System/Applications/TextEdit.app",
		"terminal":   "/System/Applications/Utilities/Terminal.app",
		"safari":     "/Applications/Safari.app",
	}
}

// Application bundles go through open(1); anything else is executed directly.
func launchCommand(path string) (string, []string) {
	if strings.HasSuffix(strings.TrimSuffix(path, "/"), ".app") {
		return "open", []string{"-a", path}
	}
	return path, nil
}

// darwinBrightness relies on the `brightness` command line tool (Homebrew).
type darwinBrightness struct {
	run runner
}

func (b *darwinBrightness) Current(ctx context.Context) (int, error) {
	out, err := b.run(ctx, "brightness", "-l")
	if err != nil {
		return 0, err
	}
	return parseDarwinBrightness(out)
}

func (b *darwinBrightness) Set(ctx context.Context, level int) error {
	_, err := b.run(ctx, "brightness", strconv.FormatFloat(float64(level)/100, 'f', 2, 64))
	return err
}

type darwinVolume struct {
	run runner
}

func (v *darwinVolume) Current(ctx context.Context) (float64, error) {
	out, err := v.run(ctx, "osascript", "-e", "output volume of (get volume settings)")
	if err != nil {
		return 0, err
	}
	n, err := parseFirstInt(out)
	if err != nil {
		return 0, err
	}
	return float64(n) / 100, nil
}

func (v *darwinVolume) Set(ctx context.Context, level float64) error {
	pct := int(math.Round(level * 100))
	_, err := v.run(ctx, "osascript", "-e", fmt.Sprintf("set volume output volume %d", pct))
	return err
}

type darwinScreenshotter struct {
	run runner
	dir string
}

func (s *darwinScreenshotter) Capture(ctx context.Context) (string, error) {
	path, err := screenshotPath(s.dir, time.Now())
	if err != nil {
		return "", err
	}
	// -x: do not play sound, -t png: format
	if _, err := s.run(ctx, "screencapture", "-x", "-t", "png", path); err != nil {
		return "", fmt.Errorf("screencapture failed: %w", err)
	}
	return path, nil
}

type darwinBattery struct {
	run runner
}

func (b *darwinBattery) Query(ctx context.Context) (capability.BatteryStatus, error) {
	out, err := b.run(ctx, "pmset", "-g", "batt")
	if err != nil {
		return capability.BatteryStatus{}, err
	}
	return parsePmset(out)
}
