/*
DESCRIPTION
  logging.go provides the Logger interface used throughout av1grain, backed
  by zerolog with optional lumberjack file rotation.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package logging adapts zerolog to a small key-value Logger interface.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging interface used by every package in av1grain. Each
// method takes a message followed by alternating key/value pairs.
type Logger interface {
	Debug(msg string, kv ...interface{})
	Info(msg string, kv ...interface{})
	Warn(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
}

// Level selects the minimum severity a Logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel converts a string such as "debug" or "WARN" to a Level,
// defaulting to LevelInfo for anything unrecognized.
func ParseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG":
		return LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return LevelWarn
	case "error", "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// zlogger is the zerolog-backed Logger implementation.
type zlogger struct {
	z zerolog.Logger
}

// New returns a Logger writing human-readable console output to stderr (or
// plain JSON when stderr is not a terminal), optionally tee'd to a rotating
// log file via lumberjack when logFile is non-empty.
func New(level Level, logFile string) Logger {
	var out io.Writer = os.Stderr
	if fi, err := os.Stderr.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	if logFile != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		out = io.MultiWriter(out, fileWriter)
	}

	z := zerolog.New(out).With().Timestamp().Logger()
	switch level {
	case LevelDebug:
		z = z.Level(zerolog.DebugLevel)
	case LevelWarn:
		z = z.Level(zerolog.WarnLevel)
	case LevelError:
		z = z.Level(zerolog.ErrorLevel)
	default:
		z = z.Level(zerolog.InfoLevel)
	}
	return &zlogger{z: z}
}

func (l *zlogger) Debug(msg string, kv ...interface{}) { l.event(l.z.Debug(), msg, kv) }
func (l *zlogger) Info(msg string, kv ...interface{})  { l.event(l.z.Info(), msg, kv) }
func (l *zlogger) Warn(msg string, kv ...interface{})  { l.event(l.z.Warn(), msg, kv) }
func (l *zlogger) Error(msg string, kv ...interface{}) { l.event(l.z.Error(), msg, kv) }

func (l *zlogger) event(e *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}

// Discard is a Logger that does nothing, used as the zero-value default so
// collaborators never need a nil check.
var Discard Logger = discardLogger{}

type discardLogger struct{}

func (discardLogger) Debug(string, ...interface{}) {}
func (discardLogger) Info(string, ...interface{})  {}
func (discardLogger) Warn(string, ...interface{})  {}
func (discardLogger) Error(string, ...interface{}) {}
