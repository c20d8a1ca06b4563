// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the process-wide logger and returns it.
func InitLogger(app string, verbose bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

// Discard returns a logger that drops everything. Used by tests and by
// components that were not handed an explicit logger.
func Discard() zerolog.Logger {
	return zerolog.New(io.Discard)
}
