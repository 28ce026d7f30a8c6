// Package logging configures the global zerolog logger.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the zerolog logger with the specified debug mode and output format.
func InitLogger(debug, human bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	initLogger(level, human)
}

// Setup initializes the logger from configuration values. Unknown levels fall back to info;
// any format other than "json" is human readable.
func Setup(level, format string) {
	lvl, err := zerolog.ParseLevel(strings.TrimSpace(strings.ToLower(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	initLogger(lvl, strings.TrimSpace(strings.ToLower(format)) != "json")
}

// Disable silences the logger, for CLI commands that print their own output.
func Disable() {
	log.Logger = log.Logger.Level(zerolog.Disabled)
}

func initLogger(level zerolog.Level, human bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano                 // always initialize base logger with timestamp.
	base := zerolog.New(os.Stdout).With().Timestamp().Logger() // initialize base logger.
	if human {
		log.Logger = base.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339Nano,
		}) // select output format.
	} else {
		log.Logger = base // use JSON logger.
	}
	zerolog.SetGlobalLevel(level)
}

// LogQuery logs a received query with structured fields.
func LogQuery(clientIP, command string, payload []byte, activeConns int) {
	log.Info().
		Str("event", "query_received").
		Str("client_ip", clientIP).
		Str("command", command).
		Str("payload", string(payload)).
		Int("active_connections", activeConns).
		Msg("received query")
}

// LogAnswer logs a sent answer with structured fields.
func LogAnswer(clientIP, command, responseCommand string, size int, duration time.Duration, activeConns int) {
	log.Info().
		Str("event", "answer_sent").
		Str("client_ip", clientIP).
		Str("command", command).
		Str("response_command", responseCommand).
		Int("response_bytes", size).
		Str("duration", duration.String()).
		Int("active_connections", activeConns).
		Msg("sent answer")
}
