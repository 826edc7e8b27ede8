// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	_ StdLogger = &Logger{}
	_ StdLogger = &Entry{}
)

// New returns a logger writing text lines to stderr at info level
func New() *Logger {
	return &Logger{
		output:    os.Stderr,
		level:     InfoLevel,
		formatter: &TextFormatter{},
	}
}

// Discard returns a logger which drops everything, used by tests and library callers
func Discard() *Logger {
	return &Logger{
		output:    io.Discard,
		level:     ErrorLevel,
		formatter: &TextFormatter{},
	}
}

// ParseLevel maps a configuration value to a Level
func ParseLevel(lvl string) (Level, error) {
	switch strings.ToLower(lvl) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	}
	return InfoLevel, fmt.Errorf("not a valid log level: %q", lvl)
}

// SetFormatter sets the logger formatter.
func (logger *Logger) SetFormatter(formatter Formatter) {
	NewEntry(logger).SetFormatter(formatter)
}

// SetLevel sets the logger level.
func (logger *Logger) SetLevel(level Level) {
	NewEntry(logger).SetLevel(level)
}

// SetOutput set the output interface
func (logger *Logger) SetOutput(output io.Writer) {
	NewEntry(logger).SetOutput(output)
}

func (logger *Logger) Debugf(format string, args ...interface{}) {
	NewEntry(logger).Debugf(format, args...)
}

func (logger *Logger) Infof(format string, args ...interface{}) {
	NewEntry(logger).Infof(format, args...)
}

func (logger *Logger) Warnf(format string, args ...interface{}) {
	NewEntry(logger).Warnf(format, args...)
}

func (logger *Logger) Errorf(format string, args ...interface{}) {
	NewEntry(logger).Errorf(format, args...)
}

// Printf logs at the current level of the logger
func (logger *Logger) Printf(format string, args ...interface{}) {
	NewEntry(logger).Printf(format, args...)
}

// Println logs at the current level of the logger, negroni's access log uses it
func (logger *Logger) Println(args ...interface{}) {
	NewEntry(logger).Println(args...)
}

// WithFields returns an entry carrying the given fields
func (logger *Logger) WithFields(fields Fields) *Entry {
	return NewEntry(logger).WithFields(fields)
}

// Open opens (or creates) a log file in append mode
func Open(logfile string, mode uint32) (*os.File, error) {
	lf, err := os.OpenFile(
		logfile,
		os.O_CREATE|os.O_APPEND|os.O_WRONLY,
		os.FileMode(mode),
	)
	if err != nil {
		return nil, err
	}
	return lf, nil
}
