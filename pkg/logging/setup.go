package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures Setup.
type Options struct {
	// Console receives colored, human-readable output. Nil means os.Stderr.
	Console io.Writer
	AppName string
	// Dir holds the rotating log file. Empty means <UserCacheDir>/<AppName>/logs.
	Dir   string
	Debug bool
}

// Setup builds the application logger. The returned closer flushes the log file.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	charmLevel := charmlog.InfoLevel
	if opts.Debug {
		level = slog.LevelDebug
		charmLevel = charmlog.DebugLevel
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	consoleHandler := charmlog.NewWithOptions(console, charmlog.Options{
		ReportTimestamp: true,
		ReportCaller:    opts.Debug,
		Level:           charmLevel,
		Prefix:          opts.AppName,
	})

	dir := opts.Dir
	if dir == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return slog.New(consoleHandler), io.NopCloser(nil), fmt.Errorf("get user cache dir: %w", err)
		}
		dir = filepath.Join(cacheDir, opts.AppName, "logs")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return slog.New(consoleHandler), io.NopCloser(nil), fmt.Errorf("create log dir: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, opts.AppName+".log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{AddSource: true, Level: level})

	return slog.New(NewMultiHandler(consoleHandler, fileHandler)), file, nil
}
