/*
 * Copyright (c) SAS Institute Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package zlog configures zerolog for the command line and provides a
// per-operation log context that ends in a single summary entry.
package zlog

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sassoftware/fwseal/internal/logrotate"
)

type ctxKey int

var ctxOperation ctxKey = 1

const rfc3339Milli = "2006-01-02T15:04:05.000Z07:00" // RFC3339 with 3 decimal places, padded

// Setup initializes zerolog with reasonable defaults. An empty logFile writes
// text to stderr, "-" writes JSON to stderr and anything else appends JSON to
// that file. The returned Closer releases the file, if any.
func Setup(levelName, logFile string) (io.Closer, error) {
	zerolog.TimeFieldFormat = rfc3339Milli
	zerolog.DurationFieldInteger = true
	var closer io.Closer = nopCloser{}
	switch logFile {
	case "-":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	case "":
		log.Logger = log.Logger.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	default:
		w, err := logrotate.NewWriter(logFile)
		if err != nil {
			return nil, fmt.Errorf("logging.file: %w", err)
		}
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		closer = w
	}
	if levelName == "" {
		levelName = zerolog.InfoLevel.String()
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	log.Logger = log.Logger.Level(level)
	// pass stdlib logger through
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// FieldCallback amends the summary entry of an operation.
type FieldCallback func(*zerolog.Event)

type operation struct {
	name      string
	start     time.Time
	now       func() time.Time
	callbacks []FieldCallback
}

// Options for StartOperation, mostly for tests.
type Options struct {
	Logger zerolog.Logger
	Now    func() time.Time
	ID     string
}

// StartOperation makes a new log context tagged with the operation name, a
// fresh op_id and the input name. Every message logged through
// zerolog.Ctx(ctx) carries those fields. Call Finish to emit the summary.
func StartOperation(ctx context.Context, name, input string, opts ...func(*Options)) context.Context {
	o := Options{Logger: log.Logger, Now: time.Now}
	for _, f := range opts {
		f(&o)
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	logger := o.Logger.With().
		Str("op", name).
		Str("op_id", o.ID).
		Str("input", input).
		Logger()
	op := &operation{name: name, start: o.Now(), now: o.Now}
	ctx = context.WithValue(ctx, ctxOperation, op)
	return logger.WithContext(ctx)
}

// AppendFields adds a callback invoked when the summary entry is written.
func AppendFields(ctx context.Context, f FieldCallback) {
	if op, _ := ctx.Value(ctxOperation).(*operation); op != nil {
		op.callbacks = append(op.callbacks, f)
	}
}

// Finish writes the summary entry for the operation in ctx, at info level on
// success and error level otherwise.
func Finish(ctx context.Context, err error) {
	op, _ := ctx.Value(ctxOperation).(*operation)
	if op == nil {
		return
	}
	logger := zerolog.Ctx(ctx)
	var ev *zerolog.Event
	if err != nil {
		ev = logger.Error().Err(err)
	} else {
		ev = logger.Info()
	}
	ev.Dur("dur", op.now().Sub(op.start))
	for _, cb := range op.callbacks {
		cb(ev)
	}
	if err != nil {
		ev.Msg(op.name + " failed")
	} else {
		ev.Msg(op.name + " complete")
	}
}
