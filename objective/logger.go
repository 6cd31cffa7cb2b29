// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package objective

import (
	"fmt"
	"io"
	"os"
)

// LogLevel controls the frequency and type of logger output
type LogLevel int

const (
	// LogNoop no output is generated (level < 0)
	LogNoop LogLevel = -1
	// LogEval print one line per underlying evaluation
	LogEval LogLevel = 1
	// LogTrace print also cache invalidation events
	LogTrace LogLevel = 99
)

// Logger handles logging output for an engine.
// Note the writer must be thread-safe.
type Logger struct {
	Level LogLevel
	Msg   io.Writer // Writer to output log messages.
}

func (l *Logger) enable(level LogLevel) bool {
	return l.Level >= level
}

func (l *Logger) log(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Msg, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Msg, format)
	}
}

func normLogger(l *Logger) *Logger {
	if l == nil {
		l = new(Logger)
		l.Level = LogNoop
	}
	if l.Msg == nil {
		l.Msg = os.Stdout
	}
	return l
}
