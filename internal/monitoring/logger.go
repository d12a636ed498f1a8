// Package monitoring holds the process-wide structured logger used for
// pipeline diagnostics.
package monitoring

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the structured logger. Until Init is called it writes warnings and
// above to stderr.
var Logger = log.NewWithOptions(os.Stderr, log.Options{
	Level:  log.WarnLevel,
	Prefix: "scoutqr",
})

// Config controls where Init sends log output.
type Config struct {
	// Debug lowers the level to debug and mirrors file output to stderr.
	Debug bool
	// LogDir holds the rotating log file. Empty logs to stderr only.
	LogDir string
	// MaxSizeMB caps one log file before rotation.
	MaxSizeMB int
}

// Init replaces Logger according to cfg.
func Init(cfg Config) error {
	level := log.InfoLevel
	if cfg.Debug {
		level = log.DebugLevel
	}

	var writer io.Writer = os.Stderr
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
			return err
		}
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		fileWriter := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, "scoutqr.log"),
			MaxSize:    maxSize,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		writer = fileWriter
		if cfg.Debug {
			writer = io.MultiWriter(os.Stderr, fileWriter)
		}
	}

	Logger = log.NewWithOptions(writer, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "scoutqr",
	})
	return nil
}

// SetOutput points Logger at w, keeping its level. Used by tests.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetLevel changes Logger's level.
func SetLevel(level log.Level) {
	Logger.SetLevel(level)
}

func Debug(msg string, keyvals ...interface{}) { Logger.Debug(msg, keyvals...) }

func Info(msg string, keyvals ...interface{}) { Logger.Info(msg, keyvals...) }

func Warn(msg string, keyvals ...interface{}) { Logger.Warn(msg, keyvals...) }

func Error(msg string, keyvals ...interface{}) { Logger.Error(msg, keyvals...) }
