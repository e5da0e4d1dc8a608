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
	"time"

	"github.com/rivaas-dev/archive/archive/internal/fieldinfo"
)

// MultiSet is the idiomatic Go spelling of a container that serializes
// like a sequence (array scope) but documents intent: duplicates are
// preserved, unlike map[T]struct{} which collapses them. It carries no
// behavior of its own — a named slice dispatches exactly like []T.
type MultiSet[T any] []T

// BitSet is a sequence of booleans, serializing as an array of bool the
// same way []bool would; the named type only documents intent (a flag
// vector) the way BitSerializer's Bitset<N> does. Unlike Bitset<N>, its
// length is not fixed by the type.
type BitSet []bool

// Pair is the Go spelling of std::pair: two heterogeneous values that
// serialize positionally into a two-element array.
type Pair[A, B any] struct {
	First  A
	Second B
}

// SerializeArray implements ArraySerializable for Pair.
func (p *Pair[A, B]) SerializeArray(c *ArrayCursor) error {
	if _, err := c.Element(0, &p.First); err != nil {
		return err
	}
	if _, err := c.Element(1, &p.Second); err != nil {
		return err
	}
	return nil
}

var (
	timeTimeType     = reflect.TypeFor[time.Time]()
	timeDurationType = reflect.TypeFor[time.Duration]()
	serializableType = reflect.TypeFor[Serializable]()
	arraySerType     = reflect.TypeFor[ArraySerializable]()
)

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isEmptyStructElem(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.NumField() == 0
}

// dispatchObjectField routes one named field through to the correct
// ObjectScope call, recursing through pointers/special types/containers
// until it reaches a scope.Value-compatible primitive.
func dispatchObjectField(ctx *Context, scope ObjectScope, key string, target reflect.Value) (bool, error) {
	if target.Kind() == reflect.Ptr {
		return dispatchOptionalObjectField(ctx, scope, key, target)
	}

	switch target.Type() {
	case timeTimeType:
		return dispatchTimeObjectField(ctx, scope, key, target)
	case timeDurationType:
		return dispatchDurationObjectField(ctx, scope, key, target)
	}

	if fn, ok := lookupObjectCodec(target.Type()); ok {
		return dispatchCustomObjectField(ctx, scope, key, target, fn)
	}

	if target.CanAddr() && target.Addr().Type().Implements(serializableType) {
		return dispatchSerializableObjectField(ctx, scope, key, target)
	}

	switch target.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return dispatchPrimitiveValue(ctx, func(t reflect.Value) (bool, error) { return scope.Value(ctx, key, t) }, target)
	case reflect.Slice:
		if target.Type().Elem().Kind() == reflect.Uint8 {
			return dispatchBinaryObjectField(ctx, scope, key, target)
		}
		return dispatchSliceObjectField(ctx, scope, key, target)
	case reflect.Array:
		return dispatchFixedArrayObjectField(ctx, scope, key, target)
	case reflect.Map:
		return dispatchMapObjectField(ctx, scope, key, target)
	case reflect.Struct:
		return dispatchPlainStructObjectField(ctx, scope, key, target)
	default:
		return mismatched(ctx, fmt.Sprintf("field %q has unsupported kind %s", key, target.Kind()))
	}
}

// dispatchPrimitiveValue applies the enum-save-as-name rule uniformly to
// both object fields and array elements: on Save, an enum-kinded integer
// is rendered through a temporary string reflect.Value instead of its
// numeric value, so every backend sees enums as names without needing
// enum-registry awareness of its own.
func dispatchPrimitiveValue(ctx *Context, write func(reflect.Value) (bool, error), target reflect.Value) (bool, error) {
	if ctx.IsSaving() && isIntKind(target.Kind()) && IsEnumKind(target.Type()) {
		name, ok := lookupEnumName(target.Interface())
		if !ok {
			return mismatched(ctx, fmt.Sprintf("enum value (%d) of %s is not registered", target.Int(), target.Type()))
		}
		return write(reflect.ValueOf(name))
	}
	return write(target)
}

func dispatchOptionalObjectField(ctx *Context, scope ObjectScope, key string, target reflect.Value) (bool, error) {
	if ctx.IsSaving() {
		if target.IsNil() {
			return scope.Value(ctx, key, reflect.Value{})
		}
		return dispatchObjectField(ctx, scope, key, target.Elem())
	}

	tmp := reflect.New(target.Type().Elem()).Elem()
	loaded, err := dispatchObjectField(ctx, scope, key, tmp)
	if err != nil {
		return false, err
	}
	if loaded {
		target.Set(tmp.Addr())
	} else {
		target.Set(reflect.Zero(target.Type()))
	}
	return loaded, nil
}

// dispatchAttributeValue is Attr's counterpart to dispatchObjectField,
// narrowed to AttributeScope's single scalar Value call: it applies the
// same nil-pointer protocol as dispatchOptionalObjectField (Save writes
// a zero reflect.Value for a nil pointer; Load allocates and sets back
// only if a value was read) and the same enum-as-name rule as
// dispatchPrimitiveValue, before handing target to attrs.Value.
func dispatchAttributeValue(ctx *Context, attrs AttributeScope, key string, target reflect.Value) (bool, error) {
	if target.Kind() == reflect.Ptr {
		if ctx.IsSaving() {
			if target.IsNil() {
				return attrs.Value(ctx, key, reflect.Value{})
			}
			return dispatchAttributeValue(ctx, attrs, key, target.Elem())
		}
		tmp := reflect.New(target.Type().Elem()).Elem()
		loaded, err := dispatchAttributeValue(ctx, attrs, key, tmp)
		if err != nil {
			return false, err
		}
		if loaded {
			target.Set(tmp.Addr())
		} else {
			target.Set(reflect.Zero(target.Type()))
		}
		return loaded, nil
	}
	return dispatchPrimitiveValue(ctx, func(t reflect.Value) (bool, error) { return attrs.Value(ctx, key, t) }, target)
}

func dispatchTimeObjectField(ctx *Context, scope ObjectScope, key string, target reflect.Value) (bool, error) {
	t := target.Addr().Interface().(*time.Time)
	if ctx.IsSaving() {
		s := reflect.ValueOf(t.Format(time.RFC3339Nano))
		return scope.Value(ctx, key, s)
	}
	s := reflect.New(reflect.TypeOf("")).Elem()
	loaded, err := scope.Value(ctx, key, s)
	if err != nil || !loaded {
		return loaded, err
	}
	parsed, perr := time.Parse(time.RFC3339Nano, s.String())
	if perr != nil {
		return mismatched(ctx, fmt.Sprintf("field %q is not a valid RFC3339 timestamp: %v", key, perr))
	}
	*t = parsed
	return true, nil
}

func dispatchDurationObjectField(ctx *Context, scope ObjectScope, key string, target reflect.Value) (bool, error) {
	d := target.Addr().Interface().(*time.Duration)
	if ctx.IsSaving() {
		s := reflect.ValueOf(d.String())
		return scope.Value(ctx, key, s)
	}
	s := reflect.New(reflect.TypeOf("")).Elem()
	loaded, err := scope.Value(ctx, key, s)
	if err != nil || !loaded {
		return loaded, err
	}
	parsed, perr := time.ParseDuration(s.String())
	if perr != nil {
		return mismatched(ctx, fmt.Sprintf("field %q is not a valid duration: %v", key, perr))
	}
	*d = parsed
	return true, nil
}

func dispatchCustomObjectField(ctx *Context, scope ObjectScope, key string, target reflect.Value, fn func(*ObjectCursor, reflect.Value) error) (bool, error) {
	nested, err := scope.OpenObjectField(ctx, key)
	if err != nil {
		return false, err
	}
	cursor := newObjectCursor(nested, ctx)
	if err := fn(cursor, target); err != nil {
		return false, err
	}
	return true, nested.Close(ctx)
}

func dispatchSerializableObjectField(ctx *Context, scope ObjectScope, key string, target reflect.Value) (bool, error) {
	nested, err := scope.OpenObjectField(ctx, key)
	if err != nil {
		return false, err
	}
	cursor := newObjectCursor(nested, ctx)
	ser := target.Addr().Interface().(Serializable)
	if err := ser.Serialize(cursor); err != nil {
		return false, err
	}
	return true, nested.Close(ctx)
}

func dispatchBinaryObjectField(ctx *Context, scope ObjectScope, key string, target reflect.Value) (bool, error) {
	return scope.BinaryValue(ctx, key, target)
}

func dispatchSliceObjectField(ctx *Context, scope ObjectScope, key string, target reflect.Value) (bool, error) {
	if ctx.IsSaving() {
		arr, err := scope.OpenArrayField(ctx, key, target.Len())
		if err != nil {
			return false, err
		}
		if err := saveSliceElements(ctx, arr, target); err != nil {
			return false, err
		}
		return true, arr.Close(ctx)
	}

	arr, err := scope.OpenArrayField(ctx, key, 0)
	if err != nil {
		return false, err
	}
	if err := loadSliceElements(ctx, arr, target); err != nil {
		return false, err
	}
	return true, arr.Close(ctx)
}

func saveSliceElements(ctx *Context, arr ArrayScope, target reflect.Value) error {
	for i := 0; i < target.Len(); i++ {
		ctx.PushIndex(i)
		_, err := dispatchArrayElement(ctx, arr, target.Index(i))
		ctx.Pop()
		if err != nil {
			return err
		}
	}
	return nil
}

func loadSliceElements(ctx *Context, arr ArrayScope, target reflect.Value) error {
	elemType := target.Type().Elem()
	out := reflect.MakeSlice(target.Type(), 0, arr.Size(ctx))
	for i := 0; arr.Next(ctx); i++ {
		elem := reflect.New(elemType).Elem()
		ctx.PushIndex(i)
		loaded, err := dispatchArrayElement(ctx, arr, elem)
		ctx.Pop()
		if err != nil {
			return err
		}
		if loaded {
			out = reflect.Append(out, elem)
		}
	}
	target.Set(out)
	return nil
}

func dispatchFixedArrayObjectField(ctx *Context, scope ObjectScope, key string, target reflect.Value) (bool, error) {
	if ctx.IsSaving() {
		arr, err := scope.OpenArrayField(ctx, key, target.Len())
		if err != nil {
			return false, err
		}
		for i := 0; i < target.Len(); i++ {
			ctx.PushIndex(i)
			_, err := dispatchArrayElement(ctx, arr, target.Index(i))
			ctx.Pop()
			if err != nil {
				return false, err
			}
		}
		return true, arr.Close(ctx)
	}

	arr, err := scope.OpenArrayField(ctx, key, 0)
	if err != nil {
		return false, err
	}
	// A source sequence shorter than the fixed array's compile-time
	// length is OutOfRange, not MismatchedTypes, since the array's
	// length is a Go-compile-time invariant rather than a type-kind
	// mismatch.
	i := 0
	for ; i < target.Len() && arr.Next(ctx); i++ {
		ctx.PushIndex(i)
		_, err := dispatchArrayElement(ctx, arr, target.Index(i))
		ctx.Pop()
		if err != nil {
			return false, err
		}
	}
	if i < target.Len() {
		return false, NewSerializationError(KindOutOfRange,
			fmt.Sprintf("source has %d element(s), array field %q needs %d", i, key, target.Len())).WithPath(ctx.Path())
	}
	return true, arr.Close(ctx)
}

func dispatchMapObjectField(ctx *Context, scope ObjectScope, key string, target reflect.Value) (bool, error) {
	if isEmptyStructElem(target.Type().Elem()) {
		return dispatchSetObjectField(ctx, scope, key, target)
	}

	if ctx.IsSaving() {
		nested, err := scope.OpenObjectField(ctx, key)
		if err != nil {
			return false, err
		}
		if err := saveMapFields(ctx, nested, target); err != nil {
			return false, err
		}
		return true, nested.Close(ctx)
	}

	nested, err := scope.OpenObjectField(ctx, key)
	if err != nil {
		return false, err
	}
	if err := loadMapFields(ctx, nested, target); err != nil {
		return false, err
	}
	return true, nested.Close(ctx)
}

// saveMapFields writes every entry of a non-set map into nested, keyed
// by the conversion-facility string form of each map key. Shared by
// dispatchMapObjectField (a map-valued struct field) and entry.go (a
// map used as the whole document root).
func saveMapFields(ctx *Context, nested ObjectScope, target reflect.Value) error {
	elemType := target.Type().Elem()
	iter := target.MapRange()
	for iter.Next() {
		keyStr, err := mapKeyToString(iter.Key())
		if err != nil {
			return err
		}
		ctx.PushName(keyStr)
		// A temporary addressable copy lets struct/slice/pointer values
		// recurse the same way a real struct field would.
		val := reflect.New(elemType).Elem()
		val.Set(iter.Value())
		_, err = dispatchObjectField(ctx, nested, keyStr, val)
		ctx.Pop()
		if err != nil {
			return err
		}
	}
	return nil
}

// loadMapFields is saveMapFields' Load-direction counterpart: it
// enumerates nested's key set (every concrete backend implements
// mapKeysLister) and populates target, a freshly allocated map.
func loadMapFields(ctx *Context, nested ObjectScope, target reflect.Value) error {
	lister, ok := nested.(mapKeysLister)
	if !ok {
		return nil
	}
	keyType := target.Type().Key()
	elemType := target.Type().Elem()
	out := reflect.MakeMap(target.Type())
	for _, mk := range lister.MapKeys(ctx) {
		kv, err := stringToMapKey(keyType, mk)
		if err != nil {
			return err
		}
		val := reflect.New(elemType).Elem()
		ctx.PushName(mk)
		loaded, err := dispatchObjectField(ctx, nested, mk, val)
		ctx.Pop()
		if err != nil {
			return err
		}
		if loaded {
			out.SetMapIndex(kv, val)
		}
	}
	target.Set(out)
	return nil
}

// mapKeysLister is implemented by backend ObjectScopes that can report
// their source's key set ahead of time (every concrete backend in this
// module does), letting dispatchMapObjectField populate a map without
// the core needing a generic "for each remaining key" primitive on
// ObjectScope itself.
type mapKeysLister interface {
	MapKeys(ctx *Context) []string
}

func dispatchSetObjectField(ctx *Context, scope ObjectScope, key string, target reflect.Value) (bool, error) {
	keyType := target.Type().Key()
	if ctx.IsSaving() {
		arr, err := scope.OpenArrayField(ctx, key, target.Len())
		if err != nil {
			return false, err
		}
		i := 0
		iter := target.MapRange()
		for iter.Next() {
			ctx.PushIndex(i)
			_, err := dispatchArrayElement(ctx, arr, iter.Key())
			ctx.Pop()
			i++
			if err != nil {
				return false, err
			}
		}
		return true, arr.Close(ctx)
	}

	arr, err := scope.OpenArrayField(ctx, key, 0)
	if err != nil {
		return false, err
	}
	out := reflect.MakeMapWithSize(target.Type(), arr.Size(ctx))
	for i := 0; arr.Next(ctx); i++ {
		elem := reflect.New(keyType).Elem()
		ctx.PushIndex(i)
		loaded, err := dispatchArrayElement(ctx, arr, elem)
		ctx.Pop()
		if err != nil {
			return false, err
		}
		if loaded {
			out.SetMapIndex(elem, reflect.Zero(target.Type().Elem()))
		}
	}
	target.Set(out)
	return true, nil
}

// mapKeyToString converts a non-string map key (int, enum, ...) into its
// string key representation via the conversion facility, rather than
// rejecting every map whose key type isn't already a string.
func mapKeyToString(k reflect.Value) (string, error) {
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	return ConvertToString(k.Interface())
}

func stringToMapKey(keyType reflect.Type, s string) (reflect.Value, error) {
	if keyType.Kind() == reflect.String {
		return reflect.ValueOf(s).Convert(keyType), nil
	}
	v, err := convertStringTo(s, reflect.Zero(keyType).Interface())
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(v).Convert(keyType), nil
}

// dispatchPlainStructObjectField is the tag-based fallback for a nested
// struct field that does not implement Serializable: it opens a nested
// object scope and walks the cached fieldinfo.StructInfo the same way
// the top-level SaveObject/LoadObject entry points do.
func dispatchPlainStructObjectField(ctx *Context, scope ObjectScope, key string, target reflect.Value) (bool, error) {
	nested, err := scope.OpenObjectField(ctx, key)
	if err != nil {
		return false, err
	}
	if err := serializeStructFields(ctx, newObjectCursor(nested, ctx), target); err != nil {
		return false, err
	}
	return true, nested.Close(ctx)
}

// serializeStructFields is shared by the tag-based struct fallback and
// by the top-level entry points (entry.go) for a type with no
// Serializable method of its own.
func serializeStructFields(ctx *Context, cursor *ObjectCursor, target reflect.Value) error {
	info := fieldinfo.Lookup(target.Type())
	for _, f := range info.Fields {
		fv := target.FieldByIndex(f.Index)
		if ctx.IsSaving() && f.OmitEmpty && fv.IsZero() {
			continue
		}
		if err := cursor.KV(Field(f.Name, fv.Addr().Interface())); err != nil {
			return err
		}
		if ctx.IsCapReached() {
			return nil
		}
	}
	return nil
}

// dispatchArrayElement mirrors dispatchObjectField for a positional
// array element; it shares every special-case (pointers, time, codecs,
// Serializable, nested containers) but calls ArrayScope methods instead
// of ObjectScope ones.
func dispatchArrayElement(ctx *Context, scope ArrayScope, target reflect.Value) (bool, error) {
	if target.Kind() == reflect.Ptr {
		return dispatchOptionalArrayElement(ctx, scope, target)
	}

	switch target.Type() {
	case timeTimeType:
		return dispatchTimeArrayElement(ctx, scope, target)
	case timeDurationType:
		return dispatchDurationArrayElement(ctx, scope, target)
	}

	if fn, ok := lookupArrayCodec(target.Type()); ok {
		nested, err := scope.OpenArrayElement(ctx, 0)
		if err != nil {
			return false, err
		}
		cursor := newArrayCursor(nested, ctx)
		if err := fn(cursor, target); err != nil {
			return false, err
		}
		return true, nested.Close(ctx)
	}

	if target.CanAddr() && target.Addr().Type().Implements(arraySerType) {
		nested, err := scope.OpenArrayElement(ctx, 0)
		if err != nil {
			return false, err
		}
		cursor := newArrayCursor(nested, ctx)
		ser := target.Addr().Interface().(ArraySerializable)
		if err := ser.SerializeArray(cursor); err != nil {
			return false, err
		}
		return true, nested.Close(ctx)
	}

	if target.CanAddr() && target.Addr().Type().Implements(serializableType) {
		nested, err := scope.OpenObjectElement(ctx)
		if err != nil {
			return false, err
		}
		cursor := newObjectCursor(nested, ctx)
		ser := target.Addr().Interface().(Serializable)
		if err := ser.Serialize(cursor); err != nil {
			return false, err
		}
		return true, nested.Close(ctx)
	}

	switch target.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return dispatchPrimitiveValue(ctx, func(t reflect.Value) (bool, error) { return scope.Element(ctx, t) }, target)
	case reflect.Slice:
		if target.Type().Elem().Kind() == reflect.Uint8 {
			return dispatchBinaryArrayElement(ctx, scope, target)
		}
		return dispatchSliceArrayElement(ctx, scope, target)
	case reflect.Array:
		return dispatchFixedArrayArrayElement(ctx, scope, target)
	case reflect.Struct:
		nested, err := scope.OpenObjectElement(ctx)
		if err != nil {
			return false, err
		}
		if err := serializeStructFields(ctx, newObjectCursor(nested, ctx), target); err != nil {
			return false, err
		}
		return true, nested.Close(ctx)
	default:
		return mismatched(ctx, fmt.Sprintf("array element has unsupported kind %s", target.Kind()))
	}
}

func dispatchOptionalArrayElement(ctx *Context, scope ArrayScope, target reflect.Value) (bool, error) {
	if ctx.IsSaving() {
		if target.IsNil() {
			return scope.Element(ctx, reflect.Value{})
		}
		return dispatchArrayElement(ctx, scope, target.Elem())
	}
	tmp := reflect.New(target.Type().Elem()).Elem()
	loaded, err := dispatchArrayElement(ctx, scope, tmp)
	if err != nil {
		return false, err
	}
	if loaded {
		target.Set(tmp.Addr())
	} else {
		target.Set(reflect.Zero(target.Type()))
	}
	return loaded, nil
}

func dispatchTimeArrayElement(ctx *Context, scope ArrayScope, target reflect.Value) (bool, error) {
	t := target.Addr().Interface().(*time.Time)
	if ctx.IsSaving() {
		return scope.Element(ctx, reflect.ValueOf(t.Format(time.RFC3339Nano)))
	}
	s := reflect.New(reflect.TypeOf("")).Elem()
	loaded, err := scope.Element(ctx, s)
	if err != nil || !loaded {
		return loaded, err
	}
	parsed, perr := time.Parse(time.RFC3339Nano, s.String())
	if perr != nil {
		return mismatched(ctx, fmt.Sprintf("element is not a valid RFC3339 timestamp: %v", perr))
	}
	*t = parsed
	return true, nil
}

func dispatchDurationArrayElement(ctx *Context, scope ArrayScope, target reflect.Value) (bool, error) {
	d := target.Addr().Interface().(*time.Duration)
	if ctx.IsSaving() {
		return scope.Element(ctx, reflect.ValueOf(d.String()))
	}
	s := reflect.New(reflect.TypeOf("")).Elem()
	loaded, err := scope.Element(ctx, s)
	if err != nil || !loaded {
		return loaded, err
	}
	parsed, perr := time.ParseDuration(s.String())
	if perr != nil {
		return mismatched(ctx, fmt.Sprintf("element is not a valid duration: %v", perr))
	}
	*d = parsed
	return true, nil
}

func dispatchBinaryArrayElement(ctx *Context, scope ArrayScope, target reflect.Value) (bool, error) {
	return scope.BinaryElement(ctx, target)
}

func dispatchSliceArrayElement(ctx *Context, scope ArrayScope, target reflect.Value) (bool, error) {
	if ctx.IsSaving() {
		nested, err := scope.OpenArrayElement(ctx, target.Len())
		if err != nil {
			return false, err
		}
		if err := saveSliceElements(ctx, nested, target); err != nil {
			return false, err
		}
		return true, nested.Close(ctx)
	}
	nested, err := scope.OpenArrayElement(ctx, 0)
	if err != nil {
		return false, err
	}
	if err := loadSliceElements(ctx, nested, target); err != nil {
		return false, err
	}
	return true, nested.Close(ctx)
}

func dispatchFixedArrayArrayElement(ctx *Context, scope ArrayScope, target reflect.Value) (bool, error) {
	if ctx.IsSaving() {
		nested, err := scope.OpenArrayElement(ctx, target.Len())
		if err != nil {
			return false, err
		}
		for i := 0; i < target.Len(); i++ {
			ctx.PushIndex(i)
			_, err := dispatchArrayElement(ctx, nested, target.Index(i))
			ctx.Pop()
			if err != nil {
				return false, err
			}
		}
		return true, nested.Close(ctx)
	}

	nested, err := scope.OpenArrayElement(ctx, 0)
	if err != nil {
		return false, err
	}
	i := 0
	for ; i < target.Len() && nested.Next(ctx); i++ {
		ctx.PushIndex(i)
		_, err := dispatchArrayElement(ctx, nested, target.Index(i))
		ctx.Pop()
		if err != nil {
			return false, err
		}
	}
	if i < target.Len() {
		return false, NewSerializationError(KindOutOfRange,
			fmt.Sprintf("source has %d element(s), fixed array needs %d", i, target.Len())).WithPath(ctx.Path())
	}
	return true, nested.Close(ctx)
}
