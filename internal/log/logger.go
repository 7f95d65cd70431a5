package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Format selects the log encoding
type Format string

const (
	FormatAuto    Format = "auto" // console on a terminal, JSON otherwise
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Config controls the global logger
type Config struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format Format `yaml:"format"` // auto, console, json
}

// DefaultConfig logs info and above, pretty on a TTY
func DefaultConfig() Config {
	return Config{Level: "info", Format: FormatAuto}
}

// Setup configures zerolog's global logger to write to w
func Setup(config Config, w io.Writer) error {
	level := zerolog.InfoLevel
	if config.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(config.Level)))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", config.Level, err)
		}
		level = parsed
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	switch resolveFormat(config.Format, w) {
	case FormatConsole:
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	default:
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	}
	return nil
}

func resolveFormat(format Format, w io.Writer) Format {
	switch format {
	case FormatConsole, FormatJSON:
		return format
	}
	if IsTerminal(w) {
		return FormatConsole
	}
	return FormatJSON
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
