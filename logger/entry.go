// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

func NewEntry(logger *Logger) *Entry {
	return &Entry{
		Logger: logger,
		Data:   make(Fields, 4),
	}
}

func (entry *Entry) SetFormatter(formatter Formatter) {
	entry.Logger.Lock()
	defer entry.Logger.Unlock()
	entry.Logger.formatter = formatter
}

func (entry *Entry) SetOutput(output io.Writer) {
	entry.Logger.Lock()
	defer entry.Logger.Unlock()
	entry.Logger.output = output
}

func (entry *Entry) SetLevel(level Level) {
	entry.Logger.Lock()
	defer entry.Logger.Unlock()
	entry.Logger.level = level
}

func (entry *Entry) currentLevel() Level {
	entry.Logger.Lock()
	defer entry.Logger.Unlock()
	return entry.Logger.level
}

func (entry *Entry) enabled(level Level) bool {
	return entry.currentLevel() >= level
}

func (entry *Entry) Debugf(format string, args ...interface{}) {
	if entry.enabled(DebugLevel) {
		entry.log(DebugLevel, fmt.Sprintf(format, args...))
	}
}

func (entry *Entry) Infof(format string, args ...interface{}) {
	if entry.enabled(InfoLevel) {
		entry.log(InfoLevel, fmt.Sprintf(format, args...))
	}
}

func (entry *Entry) Warnf(format string, args ...interface{}) {
	if entry.enabled(WarnLevel) {
		entry.log(WarnLevel, fmt.Sprintf(format, args...))
	}
}

func (entry *Entry) Errorf(format string, args ...interface{}) {
	if entry.enabled(ErrorLevel) {
		entry.log(ErrorLevel, fmt.Sprintf(format, args...))
	}
}

func (entry *Entry) Printf(format string, args ...interface{}) {
	entry.log(entry.currentLevel(), fmt.Sprintf(format, args...))
}

func (entry *Entry) Println(args ...interface{}) {
	entry.log(entry.currentLevel(), strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

// WithFields adds a map of fields to the Entry.
func (entry *Entry) WithFields(fields Fields) *Entry {
	data := make(Fields, len(entry.Data)+len(fields))
	for k, v := range entry.Data {
		data[k] = v
	}
	for k, v := range fields {
		data[k] = v
	}
	return &Entry{Logger: entry.Logger, Data: data}
}

func (entry Entry) log(level Level, msg string) {
	entry.Time = time.Now()
	entry.Level = level
	entry.Message = msg

	entry.Logger.Lock()
	defer entry.Logger.Unlock()

	serialized, err := entry.Logger.formatter.Format(&entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to format log entry, %v\n", err)
		return
	}
	if _, err = entry.Logger.output.Write(serialized); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write to log, %v\n", err)
	}
}
