package platform

import (
	"deskpilot/pkg/capability"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var percentRegex = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)

// parseBrightnessctl reads `brightnessctl -m` output:
// "intel_backlight,backlight,1200,50%,2400".
func parseBrightnessctl(out string) (int, error) {
	fields := strings.Split(firstLine(out), ",")
	if len(fields) < 4 {
		return 0, fmt.Errorf("unexpected brightnessctl output: %q", out)
	}
	return parsePercent(fields[3])
}

// parsePactlVolume reads the first channel percentage from
// `pactl get-sink-volume @DEFAULT_SINK@`.
func parsePactlVolume(out string) (float64, error) {
	m := percentRegex.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("no volume percentage in pactl output: %q", out)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, err
	}
	return v / 100, nil
}

// parseDarwinBrightness reads `brightness -l` output; the first display wins:
// "display 0: brightness 0.750000".
func parseDarwinBrightness(out string) (int, error) {
	for _, line := range strings.Split(out, "\n") {
		_, val, ok := strings.Cut(line, "brightness ")
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			continue
		}
		return int(math.Round(f * 100)), nil
	}
	return 0, fmt.Errorf("no display brightness in output: %q", out)
}

// parsePmset reads `pmset -g batt` output.
func parsePmset(out string) (capability.BatteryStatus, error) {
	var st capability.BatteryStatus
	if !strings.Contains(out, "InternalBattery") {
		return st, fmt.Errorf("no battery present")
	}
	m := percentRegex.FindStringSubmatch(out)
	if m == nil {
		return st, fmt.Errorf("no battery percentage in pmset output: %q", out)
	}
	pct, err := parsePercent(m[0])
	if err != nil {
		return st, err
	}
	st.Percent = pct
	st.Charging = strings.Contains(out, "'AC Power'")
	return st, nil
}

// parseWin32Battery reads "<EstimatedChargeRemaining> <BatteryStatus>".
// BatteryStatus 2, 3 and 6-9 all mean external power is connected.
func parseWin32Battery(out string) (capability.BatteryStatus, error) {
	var st capability.BatteryStatus
	fields := strings.Fields(firstLine(out))
	if len(fields) < 2 {
		return st, fmt.Errorf("unexpected battery output: %q", out)
	}
	pct, err := strconv.Atoi(fields[0])
	if err != nil {
		return st, fmt.Errorf("invalid battery percentage %q", fields[0])
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return st, fmt.Errorf("invalid battery status %q", fields[1])
	}
	st.Percent = pct
	switch code {
	case 2, 3, 6, 7, 8, 9:
		st.Charging = true
	}
	return st, nil
}

// readSysBattery scans a power_supply class directory (normally
// /sys/class/power_supply) for the first battery.
func readSysBattery(root string) (capability.BatteryStatus, error) {
	var st capability.BatteryStatus
	entries, err := os.ReadDir(root)
	if err != nil {
		return st, fmt.Errorf("failed to read %s: %w", root, err)
	}
	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		kind, err := readTrimmed(filepath.Join(dir, "type"))
		if err != nil || kind != "Battery" {
			continue
		}
		capText, err := readTrimmed(filepath.Join(dir, "capacity"))
		if err != nil {
			return st, fmt.Errorf("failed to read battery capacity: %w", err)
		}
		pct, err := strconv.Atoi(capText)
		if err != nil {
			return st, fmt.Errorf("invalid battery capacity %q", capText)
		}
		status, _ := readTrimmed(filepath.Join(dir, "status"))
		st.Percent = pct
		st.Charging = status == "Charging" || status == "Full"
		return st, nil
	}
	return st, fmt.Errorf("no battery present")
}

func readTrimmed(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func parsePercent(s string) (int, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid percentage %q", s)
	}
	return int(math.Round(f)), nil
}

// parseFirstInt reads a bare integer from the first line of output.
func parseFirstInt(out string) (int, error) {
	s := firstLine(strings.TrimSpace(out))
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("unexpected output %q", s)
	}
	return n, nil
}

// parseFirstFloat reads a bare invariant-culture float from the first line of output.
func parseFirstFloat(out string) (float64, error) {
	s := firstLine(strings.TrimSpace(out))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected output %q", s)
	}
	return f, nil
}
