package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVerbsListsEveryToken(t *testing.T) {
	out, err := execute(t, "verbs")
	require.NoError(t, err)
	for _, token := range []string{"adjust_brightness", "take_screenshot", "show_datetime", "open_app"} {
		assert.Contains(t, out, token)
	}
	assert.Contains(t, out, "[number, default 10]")
}

func TestVerbsPrompt(t *testing.T) {
	out, err := execute(t, "verbs", "--prompt")
	require.NoError(t, err)
	assert.Contains(t, out, "- open_app <appname>")
	showPrompt = false
}

func TestRunDateTimeWithoutModel(t *testing.T) {
	dir := t.TempDir()
	sys := filepath.Join(dir, "system.json")
	logFile := filepath.Join(dir, "deskpilot.log")
	require.NoError(t, os.WriteFile(sys, []byte(fmt.Sprintf(`{"log_file": %q, "log_level": "debug"}`, logFile)), 0644))

	out, err := execute(t, "run", "--config", filepath.Join(dir, "missing.json"), "--system", sys, "what", "time", "is", "it")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Today is "), out)

	logs, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(logs), "Date/time shortcut")
}

func TestRunBadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(cfg, []byte(`{"llm": `), 0644))

	_, err := execute(t, "run", "--config", cfg, "--system", filepath.Join(dir, "system.json"), "battery")
	require.Error(t, err)
}
