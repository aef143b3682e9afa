// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the client-wide zerolog logger.
//
// Interactive surfaces (the TUI, the chat REPL) must keep stdout clean, so
// the default sink is a log file under the nyaya config directory. Verbose
// CLI runs can additionally mirror to stderr with a console writer.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// FileName is the log file name inside the config directory.
const FileName = "nyaya.log"

// Setup initializes the global logger. dir is the nyaya config directory;
// when verbose is true a human-readable copy goes to stderr as well.
//
// Setup never fails hard: if the log file cannot be opened the logger falls
// back to stderr only, since losing diagnostics must not block the client.
func Setup(dir string, verbose bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var sinks []io.Writer

	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err == nil {
			path := filepath.Join(dir, FileName)
			// 0600: the log records request URLs and session transitions.
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
			if err == nil {
				sinks = append(sinks, f)
			}
		}
	}

	if verbose || len(sinks) == 0 {
		sinks = append(sinks, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(sinks...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	zerolog.DefaultContextLogger = &logger
	return logger
}

// Nop returns a disabled logger for tests and for components constructed
// before Setup has run.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
