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
	"reflect"
	"strings"
)

// Fallback is the Go spelling of BitSerializer's refine.h Fallback<T>: if
// the field was not loaded (absent, null, or skipped under a lenient
// policy), target is set to def instead of being left at its prior
// value. It never runs on Save.
func Fallback[T any](def T) Extension {
	return &refinerExt{
		apply: func(target reflect.Value, loaded bool) {
			if loaded {
				return
			}
			if target.CanSet() && target.Type() == reflect.TypeOf(def) {
				target.Set(reflect.ValueOf(def))
			}
		},
	}
}

// Required rejects a field that did not load: absent keys, explicit
// nulls, and values dropped under a Skip policy all count as missing.
// Unlike Fallback, it never changes target; it only records a validation
// message.
func Required() Extension {
	return &validatorExt{
		check: func(_ *Context, _ reflect.Value, loaded bool) (string, bool) {
			if !loaded {
				return "value is required", false
			}
			return "", true
		},
	}
}

// TrimWhitespace strips leading/trailing whitespace from a loaded string
// field. It is a no-op on non-string targets and on Save.
func TrimWhitespace() Extension {
	return stringRefiner(strings.TrimSpace)
}

// ToLower lowercases a loaded string field (no-op on non-string targets
// and on Save).
func ToLower() Extension {
	return stringRefiner(strings.ToLower)
}

// ToUpper uppercases a loaded string field (no-op on non-string targets
// and on Save).
func ToUpper() Extension {
	return stringRefiner(strings.ToUpper)
}

func stringRefiner(fn func(string) string) Extension {
	return &refinerExt{
		apply: func(target reflect.Value, loaded bool) {
			if !loaded || target.Kind() != reflect.String {
				return
			}
			target.SetString(fn(target.String()))
		},
	}
}
