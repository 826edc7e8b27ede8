// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package logger

import (
	"io"
	"sync"
	"time"
)

type (
	Level uint8

	// Fields are attached to an entry with WithFields
	Fields map[string]interface{}

	StdLogger interface {
		Debugf(format string, args ...interface{})
		Infof(format string, args ...interface{})
		Warnf(format string, args ...interface{})
		Errorf(format string, args ...interface{})
		Printf(format string, args ...interface{})
		Println(args ...interface{})
		WithFields(fields Fields) *Entry
		SetOutput(out io.Writer)
		SetLevel(level Level)
		SetFormatter(formatter Formatter)
	}

	Logger struct {
		output    io.Writer
		level     Level
		formatter Formatter
		sync.Mutex
	}

	Entry struct {
		Logger *Logger

		// Contains all the fields set by the user.
		Data Fields

		Time    time.Time
		Level   Level
		Message string
	}

	Formatter interface {
		Format(*Entry) ([]byte, error)
	}

	TextFormatter struct {
		TimestampFormat string
	}

	JSONFormatter struct {
		TimestampFormat string
	}
)

const (
	ErrorLevel Level = iota
	WarnLevel
	InfoLevel
	DebugLevel

	DefaultTimestampFormat = time.Stamp
)

// String converts the Level to a string. E.g. WarnLevel becomes "warning".
func (level Level) String() string {
	switch level {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warning"
	case ErrorLevel:
		return "error"
	}

	return "unknown"
}
