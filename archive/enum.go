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
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// enumRegistry holds the process-wide name<->value tables for every
// registered enum type. It is read-only during operations; writes only
// happen at bootstrap via RegisterEnum.
var (
	enumRegistryMu sync.RWMutex
	enumRegistry   = map[reflect.Type]*enumTable{}
)

type enumTable struct {
	nameToValue map[string]int64 // case-folded name -> underlying value
	valueToName map[int64]string // underlying value -> canonical name
}

// RegisterEnum registers the name<->value pairs for enum type E (any
// type with an underlying integer kind). Call this once at program
// startup. The original C++ library's static-constructor REGISTER_ENUM
// macro is deliberately not reproduced here — package-level mutable
// state populated by init() is exactly the implicit-registration-order
// hazard an explicit startup call avoids.
//
// Example:
//
//	type Color int
//	const (Red Color = iota; Green; Blue)
//	archive.RegisterEnum(map[Color]string{Red: "Red", Green: "Green", Blue: "Blue"})
func RegisterEnum[E ~int | ~int8 | ~int16 | ~int32 | ~int64](values map[E]string) {
	t := reflect.TypeFor[E]()
	table := &enumTable{
		nameToValue: make(map[string]int64, len(values)),
		valueToName: make(map[int64]string, len(values)),
	}
	for v, name := range values {
		table.nameToValue[strings.ToLower(name)] = int64(v)
		table.valueToName[int64(v)] = name
	}

	enumRegistryMu.Lock()
	enumRegistry[t] = table
	enumRegistryMu.Unlock()
}

// IsEnumRegistered reports whether type E has a registration.
func IsEnumRegistered[E ~int | ~int8 | ~int16 | ~int32 | ~int64]() bool {
	enumRegistryMu.RLock()
	defer enumRegistryMu.RUnlock()
	_, ok := enumRegistry[reflect.TypeFor[E]()]
	return ok
}

// EnumToString renders e by its registered name. It fails with
// KindUnregisteredEnum if either the type or the specific value has no
// registration, distinct from a generic type mismatch.
func EnumToString[E ~int | ~int8 | ~int16 | ~int32 | ~int64](e E) (string, error) {
	enumRegistryMu.RLock()
	table, ok := enumRegistry[reflect.TypeFor[E]()]
	enumRegistryMu.RUnlock()
	if !ok {
		return "", NewSerializationError(KindUnregisteredEnum, fmt.Sprintf("enum type %T is not registered", e))
	}
	name, ok := table.valueToName[int64(e)]
	if !ok {
		return "", NewSerializationError(KindUnregisteredEnum, fmt.Sprintf("enum value (%d) is invalid or not registered", e))
	}
	return name, nil
}

// EnumFromString parses name (case-insensitively) into E via the
// registry. Fails with KindUnregisteredEnum if the type or the name is
// not registered.
func EnumFromString[E ~int | ~int8 | ~int16 | ~int32 | ~int64](name string) (E, error) {
	var zero E
	enumRegistryMu.RLock()
	table, ok := enumRegistry[reflect.TypeFor[E]()]
	enumRegistryMu.RUnlock()
	if !ok {
		return zero, NewSerializationError(KindUnregisteredEnum, fmt.Sprintf("enum type %T is not registered", zero))
	}
	v, ok := table.nameToValue[strings.ToLower(name)]
	if !ok {
		return zero, NewSerializationError(KindUnregisteredEnum, fmt.Sprintf("enum value %q is invalid or not registered", name))
	}
	return E(v), nil
}

// IsEnumKind reports whether t has a registration in the enum registry.
// AssignPrimitive uses this to decide whether an integer-kinded target
// should be routed through the enum name lookup instead of numeric
// assignment.
func IsEnumKind(t reflect.Type) bool {
	enumRegistryMu.RLock()
	defer enumRegistryMu.RUnlock()
	_, ok := enumRegistry[t]
	return ok
}

// enumFromStringReflect is the reflect.Type-keyed counterpart of
// EnumFromString, used where the concrete enum type is only known at
// runtime (generic container/scope dispatch code operating on
// reflect.Value rather than a type parameter).
func enumFromStringReflect(t reflect.Type, name string) (int64, error) {
	enumRegistryMu.RLock()
	table, ok := enumRegistry[t]
	enumRegistryMu.RUnlock()
	if !ok {
		return 0, NewSerializationError(KindUnregisteredEnum, fmt.Sprintf("enum type %s is not registered", t))
	}
	v, ok := table.nameToValue[strings.ToLower(name)]
	if !ok {
		return 0, NewSerializationError(KindUnregisteredEnum, fmt.Sprintf("enum value %q is invalid or not registered for %s", name, t))
	}
	return v, nil
}

// lookupEnumName is the reflection-based fallback used by ConvertToString
// for values whose static type is unknown to the caller (e.g. generic
// container serialization code operating on reflect.Value).
func lookupEnumName(v any) (string, bool) {
	t := reflect.TypeOf(v)
	if t == nil {
		return "", false
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return "", false
	}

	enumRegistryMu.RLock()
	table, ok := enumRegistry[t]
	enumRegistryMu.RUnlock()
	if !ok {
		return "", false
	}
	name, ok := table.valueToName[reflect.ValueOf(v).Int()]
	return name, ok
}
