package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultMaxSizeMB  = 50
	DefaultMaxBackups = 5
	DefaultMaxAgeDays = 30
	DefaultCompress   = true

	timeFormat = "2006-01-02 15:04:05"
)

// Options controls where logs go. Env tags are relative to the caller's
// prefix (NORM_LOG_ for the norm binary).
type Options struct {
	// Level is used when no verbosity flag is given.
	Level string `env:"LEVEL" envDefault:"info"`
	// File enables a rotating log file in addition to the console.
	File       string `env:"FILE"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"30"`
	Compress   bool   `env:"COMPRESS" envDefault:"true"`
}

// LevelForVerbosity maps the -v count to a level name; zero keeps fallback.
func LevelForVerbosity(verbosity int, fallback string) string {
	switch {
	case verbosity >= 2:
		return "trace"
	case verbosity == 1:
		return "debug"
	default:
		return fallback
	}
}

// Apply sets the global log level and output writers (console + optional
// rotating file). Console output goes to console, normally os.Stderr.
func Apply(level string, opts Options, console io.Writer) {
	applyLevel(level)
	applyOutputs(opts, console)
}

func applyLevel(level string) {
	switch level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func applyOutputs(opts Options, console io.Writer) {
	if console == nil {
		console = os.Stderr
	}
	consoleOutput := zerolog.ConsoleWriter{Out: console, TimeFormat: timeFormat}
	log.Logger = zerolog.New(consoleOutput).With().Timestamp().Logger()

	if opts.File == "" {
		return
	}

	if err := ensureLogDir(opts.File); err != nil {
		log.Error().Err(err).Str("path", opts.File).Msg("Failed to prepare log directory; logging to console only")
		return
	}

	fileWriter := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    positiveOr(opts.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: nonNegativeOr(opts.MaxBackups, DefaultMaxBackups),
		MaxAge:     nonNegativeOr(opts.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   opts.Compress,
	}

	fileConsole := zerolog.ConsoleWriter{
		Out:        fileWriter,
		TimeFormat: timeFormat,
		NoColor:    true,
	}

	multi := zerolog.MultiLevelWriter(consoleOutput, fileConsole)
	log.Logger = zerolog.New(multi).With().Timestamp().Logger()
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func nonNegativeOr(v, fallback int) int {
	if v >= 0 {
		return v
	}
	return fallback
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
