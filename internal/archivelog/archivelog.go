// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package archivelog is a structured-logging provider that a CLI or
// service embedding this module can pass to archive.WithLogger; without
// one, archive logs to a no-op Logger. archive.Logger itself stays a
// tiny four-method interface so library callers can plug in any logger
// they already have; this package is where a concrete, slog-backed
// implementation lives for callers who don't.
//
// Three handlers are available: JSON (machine-parseable, the default),
// Text (key=value), and Console (colorized, for interactive use). High
// volume embedders (a service loading/saving archives on every request)
// can enable sampling to cap log output without losing error visibility,
// since errors always bypass the sampler.
package archivelog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// bgCtx is reused across log calls; none of the handlers here read
// request-scoped values from it, only the level and record.
var bgCtx = context.Background()

// HandlerType selects the slog.Handler backing a Logger.
type HandlerType string

const (
	JSONHandler    HandlerType = "json"
	TextHandler    HandlerType = "text"
	ConsoleHandler HandlerType = "console"
)

// Level is re-exported so callers don't need to import log/slog directly.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var (
	// ErrNilLogger indicates a nil custom logger was passed to WithCustomLogger.
	ErrNilLogger = errors.New("archivelog: custom logger is nil")
	// ErrInvalidHandler indicates an unrecognized HandlerType.
	ErrInvalidHandler = errors.New("archivelog: invalid handler type")
)

// SamplingConfig reduces log volume in high-throughput embedders. The
// first Initial records below Error level are always logged; after
// that, 1 in Thereafter is logged. One counter is shared by all levels
// and reset every Tick.
type SamplingConfig struct {
	Initial    int
	Thereafter int
	Tick       time.Duration
}

// Logger is a structured logger satisfying archive.Logger, built on
// log/slog. The zero value is not usable; construct with New or MustNew.
type Logger struct {
	handlerType HandlerType
	output      io.Writer
	level       Level
	component   string

	sampling      *SamplingConfig
	sampleCounter atomic.Int64
	sampleTicker  *time.Ticker
	sampleStop    chan struct{}

	custom    *slog.Logger
	useCustom bool

	logger atomic.Pointer[slog.Logger]
	mu     sync.Mutex
}

// Option configures a Logger.
type Option func(*Logger)

func defaults() *Logger {
	return &Logger{
		handlerType: JSONHandler,
		output:      os.Stderr,
		level:       LevelInfo,
		component:   "archive",
	}
}

// New builds a Logger from opts.
func New(opts ...Option) (*Logger, error) {
	l := defaults()
	for _, opt := range opts {
		opt(l)
	}
	if l.useCustom && l.custom == nil {
		return nil, ErrNilLogger
	}
	if err := l.initHandler(); err != nil {
		return nil, err
	}
	if l.sampling != nil && l.sampling.Tick > 0 {
		l.sampleStop = make(chan struct{})
		l.sampleTicker = time.NewTicker(l.sampling.Tick)
		go l.resetSampler()
	}
	return l, nil
}

// MustNew is New but panics on error, for package-level var initializers.
func MustNew(opts ...Option) *Logger {
	l, err := New(opts...)
	if err != nil {
		panic("archivelog: " + err.Error())
	}
	return l
}

func (l *Logger) initHandler() error {
	if l.useCustom {
		l.logger.Store(l.custom)
		return nil
	}

	hopts := &slog.HandlerOptions{Level: l.level}
	var h slog.Handler
	switch l.handlerType {
	case JSONHandler:
		h = slog.NewJSONHandler(l.output, hopts)
	case TextHandler:
		h = slog.NewTextHandler(l.output, hopts)
	case ConsoleHandler:
		h = newConsoleHandler(l.output, hopts)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidHandler, l.handlerType)
	}
	l.logger.Store(slog.New(h).With("component", l.component))
	return nil
}

func (l *Logger) resetSampler() {
	for {
		select {
		case <-l.sampleTicker.C:
			l.sampleCounter.Store(0)
		case <-l.sampleStop:
			return
		}
	}
}

func (l *Logger) shouldSample(level slog.Level) bool {
	if level >= slog.LevelError || l.sampling == nil {
		return true
	}
	n := l.sampleCounter.Add(1)
	if n <= int64(l.sampling.Initial) {
		return true
	}
	if l.sampling.Thereafter == 0 {
		return true
	}
	return (n-int64(l.sampling.Initial))%int64(l.sampling.Thereafter) == 0
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	sl := l.logger.Load()
	if sl == nil || !sl.Enabled(bgCtx, level) || !l.shouldSample(level) {
		return
	}
	sl.Log(bgCtx, level, msg, args...)
}

// Debug implements archive.Logger.
func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args...) }

// Info implements archive.Logger.
func (l *Logger) Info(msg string, args ...any) { l.log(LevelInfo, msg, args...) }

// Warn implements archive.Logger.
func (l *Logger) Warn(msg string, args ...any) { l.log(LevelWarn, msg, args...) }

// Error implements archive.Logger.
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, msg, args...) }

// SetLevel changes the minimum log level at runtime. Not supported on a
// logger built with WithCustomLogger, since the level is controlled by
// whatever produced that *slog.Logger.
func (l *Logger) SetLevel(level Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.useCustom {
		return errors.New("archivelog: cannot change level on a custom logger")
	}
	l.level = level
	return l.initHandler()
}

// Close stops the sampling ticker, if one is running. Safe to call on a
// Logger built without sampling.
func (l *Logger) Close() error {
	if l.sampleTicker != nil {
		l.sampleTicker.Stop()
		close(l.sampleStop)
	}
	return nil
}

// WithHandlerType selects the handler. Default JSONHandler.
func WithHandlerType(t HandlerType) Option { return func(l *Logger) { l.handlerType = t } }

// WithOutput sets the destination writer. Default os.Stderr.
func WithOutput(w io.Writer) Option { return func(l *Logger) { l.output = w } }

// WithLevel sets the minimum level. Default LevelInfo.
func WithLevel(level Level) Option { return func(l *Logger) { l.level = level } }

// WithComponent tags every record with a "component" attribute,
// distinguishing e.g. multiple archive.Format backends logging through
// one shared output. Default "archive".
func WithComponent(name string) Option {
	return func(l *Logger) {
		if name != "" {
			l.component = name
		}
	}
}

// WithCustomLogger delegates to an already-configured *slog.Logger
// instead of building a handler, for embedders that already run their
// own slog pipeline.
func WithCustomLogger(sl *slog.Logger) Option {
	return func(l *Logger) {
		l.custom = sl
		l.useCustom = true
	}
}

// WithSampling caps log volume at levels below Error.
func WithSampling(cfg SamplingConfig) Option {
	return func(l *Logger) { l.sampling = &cfg }
}
