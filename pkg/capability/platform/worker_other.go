//go:build !linux && !darwin && !windows

package platform

import "deskpilot/pkg/capability"

// Only the clock and the launcher work without a dedicated binding.
func newSet(run runner, dir string) capability.Set {
	return capability.Set{
		Clock:    capability.NewSystemClock(),
		Launcher: processLauncher{},
	}
}

// DefaultApps is empty on platforms without a curated table.
func DefaultApps() map[string]string {
	return map[string]string{}
}

func launchCommand(path string) (string, []string) {
	return path, nil
}
