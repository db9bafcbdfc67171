// Package logger holds the process-wide structured logger. The CLI writes to a
// rotating file under the config directory and only echoes to stderr with
// --debug; the calls below are no-ops until Init or InitWriter has run.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	prefix      = "cadence"
	logFileName = "cadence.log"

	rotateSizeMB  = 10
	rotateBackups = 3
	rotateAgeDays = 28
)

// Logger is nil until the CLI configures it.
var Logger *log.Logger

// Config selects the log directory's parent and the verbosity.
type Config struct {
	Debug     bool
	ConfigDir string
}

// Init sends warnings and above to <ConfigDir>/logs/cadence.log. With Debug
// set, every level is logged, mirrored to stderr and tagged with the caller.
func Init(cfg Config) error {
	dir := filepath.Join(cfg.ConfigDir, "logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var w io.Writer = &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    rotateSizeMB,
		MaxBackups: rotateBackups,
		MaxAge:     rotateAgeDays,
		Compress:   true,
	}
	level := log.WarnLevel
	if cfg.Debug {
		w = io.MultiWriter(os.Stderr, w)
		level = log.DebugLevel
	}

	Logger = log.NewWithOptions(w, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          prefix,
	})
	return nil
}

// InitWriter logs to w at level without timestamps, so output is stable
// enough to assert on.
func InitWriter(w io.Writer, level log.Level) {
	Logger = log.NewWithOptions(w, log.Options{
		Level:  level,
		Prefix: prefix,
	})
}

func Debug(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

func Info(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}
