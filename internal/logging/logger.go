// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package logging builds the zap logger every binary hands to its components.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger writes to stderr so console binaries keep stdout for events.
// Unknown levels fall back to info. format is "console" (the default when
// empty) or "json".
func NewLogger(level, format, service string) (*zap.Logger, error) {
	return newLogger(level, format, service, zapcore.Lock(os.Stderr))
}

func newLogger(level, format, service string, out zapcore.WriteSyncer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var enc zapcore.Encoder
	switch strings.ToLower(format) {
	case "", "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		enc = zapcore.NewConsoleEncoder(ec)
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	log := zap.New(zapcore.NewCore(enc, out, lvl), zap.AddCaller())
	if service != "" {
		log = log.With(zap.String("service", service))
	}
	return log, nil
}
