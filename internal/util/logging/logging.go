/*
Copyright 2024 Alexandre Mahdhaoui

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logging provides the logging setup shared by nvp-probe commands.
//
// Command code logs with the log/slog default, which gets its own level-aware handler. Library code taking a
// logr.Logger gets a zap backed logger with the same level and output.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the logger behavior.
type Options struct {
	// Development enables development mode logging (text output, human-readable).
	Development bool `json:"development"`

	// Level sets the minimum log level: "debug", "info", "warn" or "error". Defaults to "info".
	Level string `json:"level"`

	// Output receives the log records. Defaults to os.Stderr.
	Output io.Writer `json:"-"`
}

// DefaultOptions returns the default logging options.
func DefaultOptions() Options {
	return Options{
		Development: false,
		Level:       "info",
	}
}

// Setup sets the slog default from opts and returns a logr.Logger writing to the same output at the same level.
func Setup(opts Options) (logr.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return logr.Discard(), err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.Development {
		handler = slog.NewTextHandler(out, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	slog.SetDefault(slog.New(handler))

	return zapr.NewLogger(newZapLogger(out, level, opts.Development)), nil
}

func newZapLogger(out io.Writer, level slog.Level, development bool) *zap.Logger {
	var encoder zapcore.Encoder
	if development {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	// slog levels are spaced by 4, zap levels by 1.
	core := zapcore.NewCore(encoder, zapcore.AddSync(out), zapcore.Level(level/4))

	return zap.New(core)
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (valid values: debug, info, warn, error)", level)
	}
}
