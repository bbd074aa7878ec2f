// Package platform binds the capability ports to the host OS. Each GOOS has
// its own worker file; they shell out to the tools that platform ships with,
// the same way for every resource, so the bindings stay thin.
package platform

import (
	"context"
	"deskpilot/pkg/capability"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Options configures the OS bindings.
type Options struct {
	// ScreenshotDir is where captures are written. Empty means DefaultScreenshotDir().
	ScreenshotDir string
}

// runner executes an external program and returns its combined output.
type runner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		if output != "" {
			return output, fmt.Errorf("%s: %w: %s", name, err, firstLine(output))
		}
		return output, fmt.Errorf("%s: %w", name, err)
	}
	return output, nil
}

// New returns the capability set for the running OS.
func New(opts Options) capability.Set {
	dir := opts.ScreenshotDir
	if dir == "" {
		dir = DefaultScreenshotDir()
	}
	slog.Debug("Platform bindings initialized", "os", runtime.GOOS, "screenshot_dir", dir)
	return newSet(execRunner, dir)
}

// DefaultScreenshotDir prefers ~/Desktop and falls back to the home directory.
func DefaultScreenshotDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	desktop := filepath.Join(home, "Desktop")
	if info, err := os.Stat(desktop); err == nil && info.IsDir() {
		return desktop
	}
	return home
}

// screenshotPath builds screenshot_YYYYMMDD_HHMMSS.png inside dir, creating dir if needed.
func screenshotPath(dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	name := fmt.Sprintf("screenshot_%s.png", now.Format("20060102_150405"))
	return filepath.Join(dir, name), nil
}

// processLauncher starts programs detached from the request context so that
// the launched application outlives the command that opened it.
type processLauncher struct{}

func (processLauncher) Launch(ctx context.Context, path string) error {
	name, args := launchCommand(path)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", path, err)
	}
	slog.Info("Launched application", "path", path, "pid", cmd.Process.Pid)
	go func() {
		// reap the child; its exit status is not our concern
		_ = cmd.Wait()
	}()
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
