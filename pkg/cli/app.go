package cli

import (
	"context"
	"deskpilot/pkg/capability"
	"deskpilot/pkg/capability/platform"
	"deskpilot/pkg/command"
	"deskpilot/pkg/config"
	"deskpilot/pkg/dispatcher"
	"deskpilot/pkg/handler"
	"deskpilot/pkg/llm"
	_ "deskpilot/pkg/llm/autoload"
	"deskpilot/pkg/monitor"
	"deskpilot/pkg/oracle"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// app holds everything one front-end session needs.
type app struct {
	cfg        *config.Config
	sys        *config.SystemConfig
	level      *slog.LevelVar
	dispatcher *dispatcher.Dispatcher
	handler    *handler.CommandHandler
	logFile    *os.File
}

// newApp loads both config files, sets up logging and builds the dispatcher.
// Interactive front-ends log to the configured file so the terminal only
// shows the conversation; serve logs to stderr.
func newApp(logToFile bool) (*app, error) {
	cfg, sys, err := config.Load(configPath, systemPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, sys: sys}

	var logOut io.Writer = os.Stderr
	if logToFile && sys.LogFile != "" {
		f, err := os.OpenFile(sys.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		a.logFile = f
		logOut = f
	}
	a.level = monitor.SetupSlog(sys.LogLevel, logOut)

	client, err := llm.NewFromConfig(cfg.LLM, sys)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to init LLM client: %w", err)
	}

	apps := cfg.Apps
	if len(apps) == 0 {
		apps = platform.DefaultApps()
	}
	caps := platform.New(platform.Options{ScreenshotDir: cfg.ScreenshotDir})
	table := capability.NewAppTable(apps)

	timeout := time.Duration(sys.OracleTimeoutMs) * time.Millisecond
	o := oracle.NewLLMOracle(client, command.Default(), timeout)

	a.dispatcher = dispatcher.New(o, caps, table)
	a.handler = handler.NewCommandHandler(a.dispatcher)

	slog.Info("deskpilot initialized",
		"config", configPath,
		"apps", table.Len(),
		"oracle_timeout", timeout.String(),
	)
	return a, nil
}

// watch applies log level changes from system.json until ctx is done.
func (a *app) watch(ctx context.Context) {
	go func() {
		for range config.WatchConfig(ctx, systemPath) {
			sys := config.LoadSystemConfig(systemPath)
			a.level.Set(monitor.ParseLevel(sys.LogLevel))
			slog.Info("System config reloaded", "log_level", sys.LogLevel)
		}
	}()
}

func (a *app) close() {
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
}
