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

// Package archive implements the format-agnostic serialization core: the
// archive scope contracts, value-dispatch rules, and the cross-cutting
// policies every backend honors identically. Concrete format codecs live
// in sibling packages (archive/json, archive/xml, archive/yaml,
// archive/msgpack, archive/csv) and are external collaborators to this
// package, not part of it.
package archive

import (
	"encoding"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// These assertions pin, at compile time, the encoding.TextMarshaler and
// encoding.TextUnmarshaler interfaces that ConvertToString/ConvertTo
// detect on arbitrary user types via their type switches below.
var (
	_ encoding.TextMarshaler   = (*strWrap)(nil)
	_ encoding.TextUnmarshaler = (*strWrap)(nil)
)

// strWrap is only used to pin the interface assertions above at compile
// time; it is never constructed.
type strWrap struct{ s string }

func (w *strWrap) MarshalText() ([]byte, error) { return []byte(w.s), nil }
func (w *strWrap) UnmarshalText(b []byte) error { w.s = string(b); return nil }

// ConvertToString renders a primitive Go value as its string
// representation, emitting booleans as literal true/false, integers in decimal, floats
// with strconv.FormatFloat's shortest round-tripping form (Go's
// equivalent of max_digits10), and enums by name via the enum registry.
func ConvertToString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", t), nil
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case encoding.TextMarshaler:
		b, err := t.MarshalText()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrConversionFailed, err)
		}
		return string(b), nil
	case fmt.Stringer:
		if name, ok := lookupEnumName(v); ok {
			return name, nil
		}
		return t.String(), nil
	default:
		if name, ok := lookupEnumName(v); ok {
			return name, nil
		}
		return "", fmt.Errorf("%w: cannot convert %T to string", ErrInvalidArgument, v)
	}
}

// ConvertTo converts a string into T, following a three-tier error
// classification: invalid syntax yields ErrInvalidArgument, a value
// that parses but does not fit T yields ErrConvOutOfRange, and any
// other internal failure yields ErrConversionFailed.
func ConvertTo[T any](source string) (T, error) {
	var zero T
	v, err := convertStringTo(source, any(zero))
	if err != nil {
		return zero, err
	}
	converted, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: internal type assertion failed converting %q", ErrConversionFailed, source)
	}
	return converted, nil
}

// TryConvert is the non-throwing counterpart of ConvertTo: it never
// returns an error, only ok=false on any failure.
func TryConvert[T any](source string) (T, bool) {
	v, err := ConvertTo[T](source)
	if err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

// convertStringTo dispatches on the runtime type of zero (a zero value of
// the target type) to parse source into the same concrete type. A type
// whose pointer implements encoding.TextUnmarshaler is parsed by
// UnmarshalText.
func convertStringTo(source string, zero any) (any, error) {
	switch zero.(type) {
	case string:
		return source, nil
	case bool:
		return parseBool(source)
	case int:
		i, err := parseInt(source, 64)
		return int(i), err
	case int8:
		i, err := parseInt(source, 8)
		return int8(i), err
	case int16:
		i, err := parseInt(source, 16)
		return int16(i), err
	case int32:
		i, err := parseInt(source, 32)
		return int32(i), err
	case int64:
		return parseInt(source, 64)
	case uint:
		u, err := parseUint(source, 64)
		return uint(u), err
	case uint8:
		u, err := parseUint(source, 8)
		return uint8(u), err
	case uint16:
		u, err := parseUint(source, 16)
		return uint16(u), err
	case uint32:
		u, err := parseUint(source, 32)
		return uint32(u), err
	case uint64:
		return parseUint(source, 64)
	case float32:
		f, err := parseFloat(source, 32)
		return float32(f), err
	case float64:
		return parseFloat(source, 64)
	default:
		if zero != nil {
			p := reflect.New(reflect.TypeOf(zero))
			if u, ok := p.Interface().(encoding.TextUnmarshaler); ok {
				if err := u.UnmarshalText([]byte(source)); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
				}
				return p.Elem().Interface(), nil
			}
		}
		return nil, fmt.Errorf("%w: unsupported target type %T", ErrInvalidArgument, zero)
	}
}

// parseBool accepts case-insensitive "true"/"false" and "1"/"0" and
// rejects everything else.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidArgument, s)
	}
}

// parseInt implements a strict integer grammar: optional leading
// whitespace, optional sign, decimal digits only — a '.' followed by a
// digit must fail even if the integer part would otherwise fit.
func parseInt(s string, bitSize int) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if i := strings.IndexByte(trimmed, '.'); i >= 0 && i+1 < len(trimmed) && trimmed[i+1] >= '0' && trimmed[i+1] <= '9' {
		return 0, fmt.Errorf("%w: %q looks like a float, not an integer", ErrInvalidArgument, s)
	}
	v, err := strconv.ParseInt(trimmed, 10, bitSize)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %q does not fit in %d bits", ErrConvOutOfRange, s, bitSize)
		}
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidArgument, s)
	}
	return v, nil
}

// parseUint mirrors parseInt for unsigned targets.
func parseUint(s string, bitSize int) (uint64, error) {
	trimmed := strings.TrimSpace(s)
	if i := strings.IndexByte(trimmed, '.'); i >= 0 && i+1 < len(trimmed) && trimmed[i+1] >= '0' && trimmed[i+1] <= '9' {
		return 0, fmt.Errorf("%w: %q looks like a float, not an integer", ErrInvalidArgument, s)
	}
	v, err := strconv.ParseUint(trimmed, 10, bitSize)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %q does not fit in %d bits", ErrConvOutOfRange, s, bitSize)
		}
		return 0, fmt.Errorf("%w: %q is not an unsigned integer", ErrInvalidArgument, s)
	}
	return v, nil
}

// parseFloat accepts the full grammar including scientific notation and
// signed inf/nan. strconv.ParseFloat implements all of it except a
// signed "nan", which is handled here so the sign bit of NaN is kept.
func parseFloat(s string, bitSize int) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) == 4 && (trimmed[0] == '+' || trimmed[0] == '-') && strings.EqualFold(trimmed[1:], "nan") {
		if trimmed[0] == '-' {
			return math.Copysign(math.NaN(), -1), nil
		}
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(trimmed, bitSize)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %q does not fit in a %d-bit float", ErrConvOutOfRange, s, bitSize)
		}
		return 0, fmt.Errorf("%w: %q is not a floating-point number", ErrInvalidArgument, s)
	}
	return v, nil
}
