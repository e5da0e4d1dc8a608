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
	"cmp"
	"fmt"
	"reflect"
)

// Min rejects a loaded ordered value below min. It is skipped (never
// fails) when the field did not load at all — combine with Required if
// absence should also be rejected.
func Min[T cmp.Ordered](min T) Extension {
	return &validatorExt{
		check: func(_ *Context, target reflect.Value, loaded bool) (string, bool) {
			if !loaded {
				return "", true
			}
			v, ok := target.Interface().(T)
			if !ok {
				return fmt.Sprintf("Min: target is not %T", min), false
			}
			if v < min {
				return fmt.Sprintf("value %v is below the minimum of %v", v, min), false
			}
			return "", true
		},
	}
}

// Max rejects a loaded ordered value above max.
func Max[T cmp.Ordered](max T) Extension {
	return &validatorExt{
		check: func(_ *Context, target reflect.Value, loaded bool) (string, bool) {
			if !loaded {
				return "", true
			}
			v, ok := target.Interface().(T)
			if !ok {
				return fmt.Sprintf("Max: target is not %T", max), false
			}
			if v > max {
				return fmt.Sprintf("value %v is above the maximum of %v", v, max), false
			}
			return "", true
		},
	}
}

// MinLength rejects a loaded string shorter than n runes.
func MinLength(n int) Extension {
	return &validatorExt{
		check: func(_ *Context, target reflect.Value, loaded bool) (string, bool) {
			if !loaded || target.Kind() != reflect.String {
				return "", true
			}
			if l := len([]rune(target.String())); l < n {
				return fmt.Sprintf("length %d is below the minimum of %d", l, n), false
			}
			return "", true
		},
	}
}

// MaxLength rejects a loaded string longer than n runes.
func MaxLength(n int) Extension {
	return &validatorExt{
		check: func(_ *Context, target reflect.Value, loaded bool) (string, bool) {
			if !loaded || target.Kind() != reflect.String {
				return "", true
			}
			if l := len([]rune(target.String())); l > n {
				return fmt.Sprintf("length %d exceeds the maximum of %d", l, n), false
			}
			return "", true
		},
	}
}

// Validate wraps an arbitrary predicate fn(value) as a field validator,
// the escape hatch for checks that do not fit Min/Max/MinLength/MaxLength.
// fn receives the field's current value (after any refiners already
// applied) and returns ok=true to accept, or a rejection message with
// ok=false.
func Validate[T any](fn func(v T) (message string, ok bool)) Extension {
	return &validatorExt{
		check: func(_ *Context, target reflect.Value, loaded bool) (string, bool) {
			if !loaded {
				return "", true
			}
			v, ok := target.Interface().(T)
			if !ok {
				return fmt.Sprintf("Validate: target is not %T", v), false
			}
			return fn(v)
		},
	}
}

// runStructValidator invokes the operation's whole-value StructValidator
// (if any) against v, wrapping any rejection as a single-entry
// ValidationException the same shape per-field validators produce.
func runStructValidator(opts *Options, v any) error {
	sv := opts.StructValidator()
	if sv == nil {
		return nil
	}
	if err := sv.Validate(v); err != nil {
		return &ValidationException{Errors: []ValidationError{{Path: "", Messages: []string{err.Error()}}}}
	}
	return nil
}
