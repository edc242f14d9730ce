// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


// Package log provides the process-wide logger. Writes to stdout,
// and optionally also to a file.
package log

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// The optional additional file to log into
var logFile   *bufio.Writer
var logFileOS *os.File

var mutex     sync.Mutex
var stdout    io.Writer=os.Stdout
var level     =zerolog.InfoLevel
var logger    =New(os.Stdout)

// Creates a human-readable logger writing to w. Safe for concurrent use
func New(w io.Writer) zerolog.Logger {
	cw:=zerolog.ConsoleWriter{Out: zerolog.SyncWriter(w), TimeFormat: time.TimeOnly, NoColor: w!=os.Stdout}
	return zerolog.New(cw).Level(level).With().Timestamp().Logger()
}

// Returns the process-wide logger
func Get() *zerolog.Logger {
	mutex.Lock()
	defer mutex.Unlock()
	return &logger
}

// Sets the minimum level for the process-wide logger, e.g. "debug" or "warn"
func SetLevel(name string) error {
	l, err:=zerolog.ParseLevel(name)
	if err!=nil { return fmt.Errorf("log level %q: %w", name, err) }
	mutex.Lock()
	defer mutex.Unlock()
	level=l
	logger=logger.Level(l)
	return nil
}

// Enables logging to file in addition to stdout
func LogAlsoToFile(fileName string) (err error) {
	mutex.Lock()
	defer mutex.Unlock()
	if logFile!=nil {
		if err=logFile.Flush();   err!=nil { return err }
		if err=logFileOS.Close(); err!=nil { return err }
	}
	logFileOS, err=os.OpenFile(fileName, os.O_CREATE | os.O_TRUNC | os.O_WRONLY, 0666)
	if err!=nil {
		logFile, logFileOS=nil, nil
		return err
	}
	logFile=bufio.NewWriter(logFileOS)

	console:=zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.TimeOnly}
	file   :=zerolog.ConsoleWriter{Out: logFile, TimeFormat: time.RFC3339, NoColor: true}
	multi  :=zerolog.SyncWriter(zerolog.MultiLevelWriter(console, file))
	logger  =zerolog.New(multi).Level(level).With().Timestamp().Logger()
	return nil
}

// Flushes the log file, if any
func Sync() {
	mutex.Lock()
	defer mutex.Unlock()
	if logFile==nil { return }
	logFile.Flush()
	logFileOS.Sync()
}

// Logs the message, flushes and closes the log file, and exits with a non-zero code
func Fatalf(format string, args ...interface{}) {
	Get().Error().Msgf(format, args...)
	mutex.Lock()
	if logFile!=nil {
		logFile.Flush()
		logFileOS.Close()
	}
	mutex.Unlock()
	os.Exit(1)
}
