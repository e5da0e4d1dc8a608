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
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrorKind is the closed set of error categories a serialization
// operation can fail with. It never grows at runtime; callers should
// switch on it exhaustively.
type ErrorKind int

const (
	// KindParsingError means the source bytes did not conform to the
	// chosen format's grammar.
	KindParsingError ErrorKind = iota
	// KindUnsupportedEncoding means a stream header declared an
	// encoding the backend cannot read or write.
	KindUnsupportedEncoding
	// KindInputOutputError means the underlying stream or file failed.
	KindInputOutputError
	// KindUnregisteredEnum means a referenced enum value has no
	// registration.
	KindUnregisteredEnum
	// KindMismatchedTypes means the source value's kind is not
	// assignable to the target field under ThrowError policy.
	KindMismatchedTypes
	// KindOverflow means a numeric value does not fit under ThrowError
	// policy.
	KindOverflow
	// KindUtfEncodingError means an invalid UTF sequence was found
	// under ThrowError policy.
	KindUtfEncodingError
	// KindValidationError marks an accumulated (non-aborting) field
	// validation failure.
	KindValidationError
	// KindOutOfRange means an array scope was read past its end.
	KindOutOfRange
	// KindUnknown marks an internal invariant violation.
	KindUnknown
)

// String returns a short lower_snake identifier for the kind, matching
// the wording used in SerializationError.Error.
func (k ErrorKind) String() string {
	switch k {
	case KindParsingError:
		return "parsing_error"
	case KindUnsupportedEncoding:
		return "unsupported_encoding"
	case KindInputOutputError:
		return "input_output_error"
	case KindUnregisteredEnum:
		return "unregistered_enum"
	case KindMismatchedTypes:
		return "mismatched_types"
	case KindOverflow:
		return "overflow"
	case KindUtfEncodingError:
		return "utf_encoding_error"
	case KindValidationError:
		return "validation_error"
	case KindOutOfRange:
		return "out_of_range"
	default:
		return "unknown"
	}
}

// SerializationError is the single exception type for every
// non-validation failure kind in ErrorKind. Validation failures are
// reported separately, see ValidationException.
//
// Use [errors.As] to recover the kind and path:
//
//	var serErr *SerializationError
//	if errors.As(err, &serErr) {
//	    fmt.Println(serErr.Kind, serErr.Path)
//	}
type SerializationError struct {
	Kind    ErrorKind
	Message string
	Path    string // current Context path, empty if not applicable
	Offset  int    // byte offset into the source, -1 if not applicable
	Err     error  // wrapped underlying cause, may be nil
}

// NewSerializationError builds a SerializationError with no path/offset
// context; use WithPath/WithOffset to attach it once known.
func NewSerializationError(kind ErrorKind, message string) *SerializationError {
	return &SerializationError{Kind: kind, Message: message, Offset: -1}
}

// WithPath returns a copy of e with Path set, used by scopes that catch
// a backend error and re-raise it with the current Context path.
func (e *SerializationError) WithPath(path string) *SerializationError {
	clone := *e
	clone.Path = path
	return &clone
}

// WithOffset returns a copy of e with Offset set.
func (e *SerializationError) WithOffset(offset int) *SerializationError {
	clone := *e
	clone.Offset = offset
	return &clone
}

// Error implements error.
func (e *SerializationError) Error() string {
	switch {
	case e.Path != "" && e.Offset >= 0:
		return fmt.Sprintf("archive: %s at %s (offset %d): %s", e.Kind, e.Path, e.Offset, e.Message)
	case e.Path != "":
		return fmt.Sprintf("archive: %s at %s: %s", e.Kind, e.Path, e.Message)
	case e.Offset >= 0:
		return fmt.Sprintf("archive: %s (offset %d): %s", e.Kind, e.Offset, e.Message)
	default:
		return fmt.Sprintf("archive: %s: %s", e.Kind, e.Message)
	}
}

// Unwrap returns the wrapped cause, if any, for errors.Is/As chains.
func (e *SerializationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *SerializationError with the same Kind,
// so callers can write errors.Is(err, archive.ErrOverflow) style checks
// against the sentinel Kind* values below.
func (e *SerializationError) Is(target error) bool {
	var other *SerializationError
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// ValidationError is one accumulated field-level failure: a path and the
// list of messages produced by every validator attached to that field's
// binding that rejected the value.
type ValidationError struct {
	Path     string
	Messages []string
}

// ValidationException aggregates every ValidationError recorded during
// one operation. The top-level entry point throws it exactly once, at
// the end of the operation, carrying the full list rather than failing
// on the first invalid field.
type ValidationException struct {
	Errors []ValidationError
}

// Error implements error.
func (v *ValidationException) Error() string {
	if len(v.Errors) == 1 && len(v.Errors[0].Messages) == 1 {
		return fmt.Sprintf("archive: validation failed at %s: %s", v.Errors[0].Path, v.Errors[0].Messages[0])
	}
	return fmt.Sprintf("archive: validation failed with %d error(s)", len(v.Errors))
}

// Unwrap exposes every individual message as a plain error, built on
// go.uber.org/multierr so that errors.Is/errors.As can traverse the full
// accumulated set rather than only the first entry.
func (v *ValidationException) Unwrap() []error {
	var combined error
	for _, ve := range v.Errors {
		for _, msg := range ve.Messages {
			combined = multierr.Append(combined, fmt.Errorf("%s: %s", ve.Path, msg))
		}
	}
	return multierr.Errors(combined)
}

// Sentinel Kind-matching errors for errors.Is(err, archive.ErrX) usage;
// each wraps an otherwise-empty SerializationError of the matching Kind.
var (
	ErrParsingError         = NewSerializationError(KindParsingError, "")
	ErrUnsupportedEncoding  = NewSerializationError(KindUnsupportedEncoding, "")
	ErrInputOutputError     = NewSerializationError(KindInputOutputError, "")
	ErrUnregisteredEnum     = NewSerializationError(KindUnregisteredEnum, "")
	ErrMismatchedTypes      = NewSerializationError(KindMismatchedTypes, "")
	ErrOverflow             = NewSerializationError(KindOverflow, "")
	ErrUtfEncodingError     = NewSerializationError(KindUtfEncodingError, "")
	ErrOutOfRange           = NewSerializationError(KindOutOfRange, "")
	ErrUnknown              = NewSerializationError(KindUnknown, "")
)

// conversion-facility sentinel errors, distinct from the scope-level
// SerializationError kinds above: these are returned by ConvertTo and
// TryConvert, not thrown as operation-aborting exceptions.
var (
	ErrInvalidArgument  = errors.New("archive: value is not convertible to the target type")
	ErrConvOutOfRange   = errors.New("archive: value does not fit in the target type")
	ErrConversionFailed = errors.New("archive: internal conversion failure")
)
