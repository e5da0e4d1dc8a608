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
	"math"
	"reflect"
)

// Loaded is the normalized shape every backend hands to the core when a
// primitive value was read from the source: one of nil, bool, int64,
// uint64, float64, string, or []byte. Backends translate their own
// parsed representation (json.Number, yaml scalar nodes, msgpack wire
// types, ...) into this set before calling AssignPrimitive, so the
// overflow/mismatch policy logic in this file never needs to know which
// backend produced the value.
type Loaded = any

// AssignPrimitive writes loaded into target (which must be addressable
// and settable), applying the mismatch/overflow policies and the
// implicit-widening-conversion rules below. It returns loaded=true if a
// value was actually written.
//
// A nil loaded value always silently fails (loaded becomes false, no
// policy is consulted, no error is returned) — it is never a mismatch
// and never an overflow, regardless of policy.
func AssignPrimitive(ctx *Context, loaded Loaded, target reflect.Value) (bool, error) {
	if loaded == nil {
		return false, nil
	}

	if target.Kind() == reflect.Int || target.Kind() == reflect.Int8 || target.Kind() == reflect.Int16 ||
		target.Kind() == reflect.Int32 || target.Kind() == reflect.Int64 {
		if IsEnumKind(target.Type()) {
			return assignEnum(ctx, loaded, target)
		}
	}

	switch target.Kind() {
	case reflect.Bool:
		return assignBool(ctx, loaded, target)
	case reflect.String:
		return assignString(ctx, loaded, target)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return assignInt(ctx, loaded, target)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return assignUint(ctx, loaded, target)
	case reflect.Float32, reflect.Float64:
		return assignFloat(ctx, loaded, target)
	case reflect.Slice:
		if target.Type().Elem().Kind() == reflect.Uint8 {
			return assignBytes(ctx, loaded, target)
		}
	}

	return mismatched(ctx, fmt.Sprintf("cannot assign %T into %s", loaded, target.Type()))
}

// mismatched applies MismatchedTypesPolicy: ThrowError raises
// KindMismatchedTypes with the current path, Skip returns (false, nil).
func mismatched(ctx *Context, detail string) (bool, error) {
	if ctx.Options().MismatchedTypesPolicy() == MismatchedTypesThrowError {
		return false, NewSerializationError(KindMismatchedTypes, detail).WithPath(ctx.Path())
	}
	return false, nil
}

// overflowed applies OverflowNumberPolicy: ThrowError raises
// KindOverflow with the current path, Skip returns (false, nil).
func overflowed(ctx *Context, detail string) (bool, error) {
	if ctx.Options().OverflowNumberPolicy() == OverflowNumberThrowError {
		return false, NewSerializationError(KindOverflow, detail).WithPath(ctx.Path())
	}
	return false, nil
}

func assignBool(ctx *Context, loaded Loaded, target reflect.Value) (bool, error) {
	switch v := loaded.(type) {
	case bool:
		target.SetBool(v)
		return true, nil
	default:
		return mismatched(ctx, fmt.Sprintf("expected bool, got %T", loaded))
	}
}

func assignString(ctx *Context, loaded Loaded, target reflect.Value) (bool, error) {
	switch v := loaded.(type) {
	case string:
		target.SetString(v)
		return true, nil
	default:
		return mismatched(ctx, fmt.Sprintf("expected string, got %T", loaded))
	}
}

// assignInt handles the implicit-widening rule that a bool loads into
// an integer as 1/0 unconditionally, independent of policy. Float
// sources always fail (float→int always loses precision).
func assignInt(ctx *Context, loaded Loaded, target reflect.Value) (bool, error) {
	var signed int64
	switch v := loaded.(type) {
	case bool:
		if v {
			signed = 1
		}
	case int64:
		signed = v
	case uint64:
		if v > math.MaxInt64 {
			return overflowed(ctx, fmt.Sprintf("value %d overflows int64", v))
		}
		signed = int64(v)
	case float64:
		return overflowed(ctx, fmt.Sprintf("floating-point value %v would lose precision assigned to %s", v, target.Type()))
	case string:
		return mismatched(ctx, fmt.Sprintf("expected integer, got string %q", v))
	default:
		return mismatched(ctx, fmt.Sprintf("expected integer, got %T", loaded))
	}

	if target.OverflowInt(signed) {
		return overflowed(ctx, fmt.Sprintf("value %d overflows %s", signed, target.Type()))
	}
	target.SetInt(signed)
	return true, nil
}

func assignUint(ctx *Context, loaded Loaded, target reflect.Value) (bool, error) {
	var unsigned uint64
	switch v := loaded.(type) {
	case bool:
		if v {
			unsigned = 1
		}
	case int64:
		if v < 0 {
			return overflowed(ctx, fmt.Sprintf("negative value %d cannot fit in %s", v, target.Type()))
		}
		unsigned = uint64(v)
	case uint64:
		unsigned = v
	case float64:
		return overflowed(ctx, fmt.Sprintf("floating-point value %v would lose precision assigned to %s", v, target.Type()))
	case string:
		return mismatched(ctx, fmt.Sprintf("expected unsigned integer, got string %q", v))
	default:
		return mismatched(ctx, fmt.Sprintf("expected unsigned integer, got %T", loaded))
	}

	if target.OverflowUint(unsigned) {
		return overflowed(ctx, fmt.Sprintf("value %d overflows %s", unsigned, target.Type()))
	}
	target.SetUint(unsigned)
	return true, nil
}

// assignFloat widens ints/uints/bools freely (widening to float is
// always safe) and narrows float64->float32 with an overflow check
// against +/-Inf.
func assignFloat(ctx *Context, loaded Loaded, target reflect.Value) (bool, error) {
	var f float64
	switch v := loaded.(type) {
	case bool:
		if v {
			f = 1
		}
	case int64:
		f = float64(v)
	case uint64:
		f = float64(v)
	case float64:
		f = v
	case string:
		return mismatched(ctx, fmt.Sprintf("expected float, got string %q", v))
	default:
		return mismatched(ctx, fmt.Sprintf("expected float, got %T", loaded))
	}

	if target.Kind() == reflect.Float32 {
		if !math.IsInf(f, 0) && (f > math.MaxFloat32 || f < -math.MaxFloat32) {
			return overflowed(ctx, fmt.Sprintf("value %v overflows float32", f))
		}
	}
	target.SetFloat(f)
	return true, nil
}

func assignBytes(ctx *Context, loaded Loaded, target reflect.Value) (bool, error) {
	switch v := loaded.(type) {
	case []byte:
		target.SetBytes(append([]byte(nil), v...))
		return true, nil
	case string:
		target.SetBytes([]byte(v))
		return true, nil
	default:
		return mismatched(ctx, fmt.Sprintf("expected bytes, got %T", loaded))
	}
}

func assignEnum(ctx *Context, loaded Loaded, target reflect.Value) (bool, error) {
	s, ok := loaded.(string)
	if !ok {
		return mismatched(ctx, fmt.Sprintf("expected enum name (string), got %T", loaded))
	}
	v, err := enumFromStringReflect(target.Type(), s)
	if err != nil {
		var serErr *SerializationError
		if ok := asSerializationError(err, &serErr); ok && serErr.Kind == KindUnregisteredEnum {
			if ctx.Options().MismatchedTypesPolicy() == MismatchedTypesThrowError {
				return false, serErr.WithPath(ctx.Path())
			}
			return false, nil
		}
		return mismatched(ctx, err.Error())
	}
	target.SetInt(v)
	return true, nil
}

func asSerializationError(err error, target **SerializationError) bool {
	if se, ok := err.(*SerializationError); ok {
		*target = se
		return true
	}
	return false
}
