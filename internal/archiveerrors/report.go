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

// Package archiveerrors renders archive's error types (SerializationError,
// ValidationException) into structured diagnostic reports, for embedders
// that want to present a failed Load/Save to a human or ship it to a log
// sink as one structured record instead of a bare error string.
//
// The package has no knowledge of any particular transport; it produces
// plain Go values (Report, FieldFailure) a caller can marshal however it
// likes, rather than formatting directly to an io.Writer.
package archiveerrors

import (
	"errors"
	"sort"

	"github.com/rivaas-dev/archive/archive"
)

// FieldFailure is one accumulated per-field validation failure, flattened
// out of archive.ValidationException for reporting.
type FieldFailure struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Report is a structured rendering of a single error returned from
// archive.LoadObject/SaveObject.
type Report struct {
	// Kind is the archive.ErrorKind string form ("parsing_error",
	// "validation_error", ...), or "" if err was neither a
	// *SerializationError nor a *ValidationException.
	Kind string `json:"kind"`
	// Message is a single human-readable summary line.
	Message string `json:"message"`
	// Path is the Context path the failure occurred at, empty if not
	// applicable or if the error aggregates multiple paths (Fields is
	// populated instead).
	Path string `json:"path,omitempty"`
	// Fields holds one entry per field for a validation failure;
	// empty for every other Kind.
	Fields []FieldFailure `json:"fields,omitempty"`
}

// Render classifies err and builds its Report. An err that is neither a
// *archive.SerializationError nor a *archive.ValidationException is
// rendered with Kind "" and Message set to err.Error(), so Render is
// always safe to call on whatever LoadObject/SaveObject returned.
func Render(err error) Report {
	if err == nil {
		return Report{}
	}

	var verr *archive.ValidationException
	if errors.As(err, &verr) {
		return renderValidation(verr)
	}

	var serr *archive.SerializationError
	if errors.As(err, &serr) {
		return Report{
			Kind:    serr.Kind.String(),
			Message: serr.Message,
			Path:    serr.Path,
		}
	}

	return Report{Message: err.Error()}
}

func renderValidation(v *archive.ValidationException) Report {
	fields := make([]FieldFailure, 0, len(v.Errors))
	for _, fe := range v.Errors {
		for _, msg := range fe.Messages {
			fields = append(fields, FieldFailure{Path: fe.Path, Message: msg})
		}
	}
	sort.Slice(fields, func(i, j int) bool {
		if fields[i].Path != fields[j].Path {
			return fields[i].Path < fields[j].Path
		}
		return fields[i].Message < fields[j].Message
	})
	return Report{
		Kind:    archive.KindValidationError.String(),
		Message: v.Error(),
		Fields:  fields,
	}
}

// HasField reports whether r's Fields contain path, for tests and
// callers that want to assert on one specific failure without walking
// the slice themselves.
func (r Report) HasField(path string) bool {
	for _, f := range r.Fields {
		if f.Path == path {
			return true
		}
	}
	return false
}
