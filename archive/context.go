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

package archive

import (
	"strconv"
	"strings"
)

// pathSegment is one element of the current traversal path: either a
// named key (object scope) or a positional index (array scope).
type pathSegment struct {
	name     string
	index    int
	isIndex  bool
}

// Context carries per-operation mutable state: the path stack and
// accumulated validation errors. It is created once by a top-level entry
// point and threaded through every Scope for the lifetime of one
// Load/Save call; it is never reused across operations.
type Context struct {
	options *Options
	mode    Mode
	traits  Traits

	segments []pathSegment
	errors   []ValidationError
}

// NewContext builds a Context for one operation. mode and traits let
// scopes query IsSaving/IsLoading and the backend's path separator
// without needing a back-reference to the root scope.
func NewContext(options *Options, mode Mode, traits Traits) *Context {
	if options == nil {
		options = DefaultOptions()
	}
	return &Context{options: options, mode: mode, traits: traits}
}

// Options returns the operation's immutable configuration.
func (c *Context) Options() *Options { return c.options }

// Mode reports whether this operation is loading or saving.
func (c *Context) Mode() Mode { return c.mode }

// IsSaving reports c.Mode() == Save.
func (c *Context) IsSaving() bool { return c.mode == Save }

// IsLoading reports c.Mode() == Load.
func (c *Context) IsLoading() bool { return c.mode == Load }

// PushName enters a named (object-keyed) scope level.
func (c *Context) PushName(name string) {
	c.segments = append(c.segments, pathSegment{name: name})
}

// PushIndex enters a positional (array-indexed) scope level.
func (c *Context) PushIndex(i int) {
	c.segments = append(c.segments, pathSegment{index: i, isIndex: true})
}

// Pop restores the path to its state before the last Push*, called on
// scope exit. Popping past the root is a no-op rather than a panic, so a
// defensive double-pop from cleanup code cannot corrupt the path.
func (c *Context) Pop() {
	if len(c.segments) == 0 {
		return
	}
	c.segments = c.segments[:len(c.segments)-1]
}

// Path renders the current path as a slash-separated string using the
// active backend's PathSeparator, e.g. "/user/addresses/2/city".
func (c *Context) Path() string {
	sep := string(c.traits.PathSeparator)
	if sep == "" {
		sep = "/"
	}
	var b strings.Builder
	for _, seg := range c.segments {
		b.WriteString(sep)
		if seg.isIndex {
			b.WriteString(strconv.Itoa(seg.index))
		} else {
			b.WriteString(seg.name)
		}
	}
	if b.Len() == 0 {
		return sep
	}
	return b.String()
}

// AddValidationError records one accumulated validation failure at the
// current path. If a ValidationError for this exact path already exists
// as the most recent entry, the message is appended to it rather than
// creating a duplicate path entry, so multiple validators on the same
// field collapse into one ValidationError carrying a path and a list of
// error messages, rather than one entry per failed validator.
func (c *Context) AddValidationError(message string) {
	path := c.Path()
	if n := len(c.errors); n > 0 && c.errors[n-1].Path == path {
		c.errors[n-1].Messages = append(c.errors[n-1].Messages, message)
		return
	}
	c.errors = append(c.errors, ValidationError{Path: path, Messages: []string{message}})
}

// IsCapReached reports whether ValidationMaxErrors has been hit; callers
// should stop the traversal and finalize once true.
func (c *Context) IsCapReached() bool {
	max := c.options.ValidationMaxErrors()
	return max > 0 && uint(len(c.errors)) >= max
}

// ValidationErrors returns the accumulated errors so far. The returned
// slice must not be mutated by the caller.
func (c *Context) ValidationErrors() []ValidationError { return c.errors }

// Finalize returns a *ValidationException if any validation errors were
// accumulated during the operation, or nil otherwise. Top-level entry
// points call this once, after the user's Serialize returns.
func (c *Context) Finalize() error {
	if len(c.errors) == 0 {
		return nil
	}
	return &ValidationException{Errors: append([]ValidationError(nil), c.errors...)}
}
