// Package logging provides per-component logrus loggers configured from the
// logging section of overlay.yml and OVERLAY_LOG_* environment variables.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/overlay/config"
	"github.com/grovetools/overlay/pkg/paths"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	// current is nil until Configure runs or the first logger loads config.
	current *Config

	logFiles = make(map[string]*os.File)
)

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	if current == nil {
		cfg := loadConfig()
		current = &cfg
	}

	logger := logrus.New()
	apply(logger, *current)

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// Configure applies cfg to every logger created so far and to all future ones.
func Configure(cfg Config) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	current = &cfg
	for _, entry := range loggers {
		apply(entry.Logger, cfg)
	}
}

// ConfigureFrom decodes the logging extension of an overlay config and applies it.
func ConfigureFrom(cfg *config.Config) error {
	var logCfg Config
	if cfg != nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			return err
		}
	}
	Configure(logCfg)
	return nil
}

func loadConfig() Config {
	var logCfg Config
	cfg, err := config.LoadDefault()
	if err == nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			logrus.Warnf("Failed to parse 'logging' config: %v", err)
		}
	}
	return logCfg
}

// apply configures level, caller reporting, formatter and sinks. Callers
// hold loggersMu.
func apply(logger *logrus.Logger, logCfg Config) {
	levelStr := "info"
	if env := os.Getenv("OVERLAY_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.SetReportCaller(os.Getenv("OVERLAY_LOG_CALLER") == "true" || logCfg.ReportCaller)

	isInteractive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	switch logCfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		logger.SetFormatter(&TextFormatter{Config: logCfg.Format, Color: isInteractive})
	}

	var writers []io.Writer

	if !logCfg.File.Disabled {
		if logFilePath := LogFilePath(logCfg); logFilePath != "" {
			if file, err := openLogFile(logFilePath); err == nil {
				writers = append(writers, file)
			} else if logCfg.File.Path != "" {
				// Only warn if explicitly configured
				fmt.Fprintf(os.Stderr, "overlay: failed to open log file %s: %v\n", logFilePath, err)
			}
		}
	}

	stderrMode := "auto"
	if logCfg.Format.StructuredToStderr != "" {
		stderrMode = logCfg.Format.StructuredToStderr
	}

	shouldLogToStderr := false
	switch stderrMode {
	case "always":
		shouldLogToStderr = true
	case "never":
		shouldLogToStderr = false
	default:
		// Interactive terminals only see logs in debug mode.
		if logger.GetLevel() >= logrus.DebugLevel || !isInteractive {
			shouldLogToStderr = true
		}
	}
	if shouldLogToStderr {
		writers = append(writers, os.Stderr)
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}
}

// LogFilePath returns the file logs are written to under cfg: the
// configured path, or today's file in the logs directory.
func LogFilePath(cfg Config) string {
	if cfg.File.Path != "" {
		return expandPath(cfg.File.Path)
	}
	if dir := paths.LogsDir(); dir != "" {
		return filepath.Join(dir, fmt.Sprintf("overlay-%s.log", time.Now().Format("2006-01-02")))
	}
	return ""
}

// CurrentConfig returns the logging configuration in effect.
func CurrentConfig() Config {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	if current == nil {
		cfg := loadConfig()
		current = &cfg
	}
	return *current
}

// openLogFile opens path for appending, sharing one handle per path across
// components. Callers hold loggersMu.
func openLogFile(path string) (*os.File, error) {
	if f, ok := logFiles[path]; ok {
		return f, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	logFiles[path] = f
	return f, nil
}

// expandPath expands tilde in file paths
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
