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

package archivelog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// consoleHandler is a minimal slog.Handler rendering
// "15:04:05.000 LEVEL message key=value key=value" lines (time of day
// first) with a color per level,
// for interactive terminal use. It does not attempt to match any
// particular third-party console-logging library's output format.
type consoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	opts   *slog.HandlerOptions
	groups []string
	attrs  []slog.Attr
}

func newConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *consoleHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &consoleHandler{mu: &sync.Mutex{}, w: w, opts: opts}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.opts.Level != nil {
		min = h.opts.Level.Level()
	}
	return level >= min
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %-5s %s", r.Time.Format("15:04:05.000"), levelColor(r.Level), r.Message)

	for _, a := range h.attrs {
		writeConsoleAttr(&buf, h.groups, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeConsoleAttr(&buf, h.groups, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.groups = append(append([]string{}, h.groups...), name)
	return &next
}

func writeConsoleAttr(buf *bytes.Buffer, groups []string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	fmt.Fprintf(buf, " %s=%v", key, a.Value.Any())
}

// levelColor returns the level name wrapped in an ANSI color code; most
// terminals ignore the codes gracefully when output is redirected, and
// embedders using ConsoleHandler are explicitly opting into a TTY-facing
// format.
func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "\033[31mERROR\033[0m"
	case level >= slog.LevelWarn:
		return "\033[33mWARN\033[0m"
	case level >= slog.LevelInfo:
		return "\033[36mINFO\033[0m"
	default:
		return "\033[90mDEBUG\033[0m"
	}
}
