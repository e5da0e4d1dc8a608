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

// Package archivetest is a minimal in-memory stub archive used by the
// core archive package's own tests, the way BitSerializer's
// tests/test_helpers/archive_stub.h backs its core test suite. It
// implements all four scope roles directly over Go values — maps,
// slices, and the Loaded primitive set — with no text encoding at all,
// so core tests can exercise dispatch, policy, and validation logic
// without depending on any of the real wire-format backends.
package archivetest

import (
	"fmt"
	"reflect"

	"github.com/rivaas-dev/archive/archive"
)

// object is an insertion-ordered string-keyed map, so a Save followed
// by re-reading the tree reproduces field order for assertions.
type object struct {
	keys []string
	vals map[string]any
}

func newObject() *object {
	return &object{vals: map[string]any{}}
}

func (o *object) set(key string, v any) {
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

func (o *object) get(key string) (any, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// array is an ordered value sequence.
type array struct {
	elems []any
}

// Format is the archive.FormatBinding marker for the stub backend.
type Format struct{}

var _ archive.FormatBinding = Format{}

// Traits reports the stub's static properties: narrow string keys only,
// '/' path separator, not a binary format.
func (Format) Traits() archive.Traits {
	return archive.Traits{
		Kind:             archive.KindStub,
		PreferredKeyType: archive.KeyNarrowString,
		AcceptedKeyTypes: []archive.KeyType{archive.KeyNarrowString},
		PathSeparator:    '/',
		Binary:           false,
	}
}

// NewRootScope builds a stub root scope. On Save, io is ignored and a
// fresh empty document is grown as the caller writes to it — retrieve
// it afterward with Doc. On Load, io must be the pre-built document
// tree (the *object/*array/primitive value the test wants to read
// back), since the stub backend never touches bytes.
func (Format) NewRootScope(mode archive.Mode, ctx *archive.Context, io any) (archive.RootScope, error) {
	if mode == archive.Load {
		doc, _ := io.(any)
		return &rootScope{mode: mode, doc: &doc}, nil
	}
	var doc any
	return &rootScope{mode: mode, doc: &doc}, nil
}

// NewSaveScope is a lower-level convenience constructor used directly
// by core tests that don't need the full LoadObject/SaveObject entry
// points: it returns a root scope ready to accept writes, plus the doc
// pointer a test reads back after Finalize.
func NewSaveScope() (archive.RootScope, *any) {
	var doc any
	return &rootScope{mode: archive.Save, doc: &doc}, &doc
}

// NewLoadScope wraps an existing document tree (built with Obj/Arr
// below, or plain Go values) for reading back with a Serializable.
func NewLoadScope(doc any) archive.RootScope {
	return &rootScope{mode: archive.Load, doc: &doc}
}

// Obj builds an object node for use in a preset Load document.
func Obj(pairs ...any) *object {
	o := newObject()
	for i := 0; i+1 < len(pairs); i += 2 {
		o.set(pairs[i].(string), pairs[i+1])
	}
	return o
}

// Arr builds an array node for use in a preset Load document.
func Arr(elems ...any) *array {
	return &array{elems: elems}
}

// rootScope is the stub's RootScope.
type rootScope struct {
	mode archive.Mode
	doc  *any
}

func (r *rootScope) Mode() archive.Mode { return r.mode }

func (r *rootScope) OpenObject(ctx *archive.Context) (archive.ObjectScope, error) {
	if r.mode == archive.Save {
		o := newObject()
		*r.doc = o
		return &objectScope{mode: r.mode, obj: o}, nil
	}
	o, ok := (*r.doc).(*object)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, "root value is not object-shaped").WithPath(ctx.Path())
	}
	return &objectScope{mode: r.mode, obj: o}, nil
}

func (r *rootScope) OpenArray(ctx *archive.Context, size int) (archive.ArrayScope, error) {
	if r.mode == archive.Save {
		a := &array{elems: make([]any, 0, size)}
		*r.doc = a
		return &arrayScope{mode: r.mode, arr: a}, nil
	}
	a, ok := (*r.doc).(*array)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, "root value is not array-shaped").WithPath(ctx.Path())
	}
	return &arrayScope{mode: r.mode, arr: a}, nil
}

func (r *rootScope) Finalize(*archive.Context) error { return nil }

// objectScope is the stub's ObjectScope.
type objectScope struct {
	mode archive.Mode
	obj  *object
	pos  int
}

var _ interface {
	MapKeys(ctx *archive.Context) []string
} = (*objectScope)(nil)

func (s *objectScope) Mode() archive.Mode { return s.mode }

func (s *objectScope) HasKey(ctx *archive.Context, key string) bool {
	if s.mode == archive.Save {
		return false
	}
	_, ok := s.obj.get(key)
	return ok
}

func (s *objectScope) Value(ctx *archive.Context, key string, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		s.obj.set(key, toLoaded(target))
		return true, nil
	}
	v, ok := s.obj.get(key)
	if !ok || v == nil {
		return false, nil
	}
	return archive.AssignPrimitive(ctx, v, target)
}

func (s *objectScope) OpenObjectField(ctx *archive.Context, key string) (archive.ObjectScope, error) {
	if s.mode == archive.Save {
		nested := newObject()
		s.obj.set(key, nested)
		return &objectScope{mode: s.mode, obj: nested}, nil
	}
	v, ok := s.obj.get(key)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("key %q absent", key)).WithPath(ctx.Path())
	}
	nested, ok := v.(*object)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("key %q is not object-shaped", key)).WithPath(ctx.Path())
	}
	return &objectScope{mode: s.mode, obj: nested}, nil
}

func (s *objectScope) OpenArrayField(ctx *archive.Context, key string, size int) (archive.ArrayScope, error) {
	if s.mode == archive.Save {
		nested := &array{elems: make([]any, 0, size)}
		s.obj.set(key, nested)
		return &arrayScope{mode: s.mode, arr: nested}, nil
	}
	v, ok := s.obj.get(key)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("key %q absent", key)).WithPath(ctx.Path())
	}
	nested, ok := v.(*array)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("key %q is not array-shaped", key)).WithPath(ctx.Path())
	}
	return &arrayScope{mode: s.mode, arr: nested}, nil
}

func (s *objectScope) OpenAttributesField(ctx *archive.Context) (archive.AttributeScope, error) {
	return &attributeScope{mode: s.mode, obj: s.obj}, nil
}

func (s *objectScope) BinaryValue(ctx *archive.Context, key string, target reflect.Value) (bool, error) {
	return s.Value(ctx, key, target)
}

func (s *objectScope) Close(*archive.Context) error { return nil }

// MapKeys lets container.go's loadMapFields enumerate this object's
// keys generically (the stub implements mapKeysLister).
func (s *objectScope) MapKeys(*archive.Context) []string {
	return append([]string(nil), s.obj.keys...)
}

// arrayScope is the stub's ArrayScope.
type arrayScope struct {
	mode archive.Mode
	arr  *array
	pos  int
}

func (s *arrayScope) Mode() archive.Mode { return s.mode }

func (s *arrayScope) Size(*archive.Context) int {
	if s.mode == archive.Save {
		return 0
	}
	return len(s.arr.elems)
}

func (s *arrayScope) Next(*archive.Context) bool {
	if s.mode == archive.Save {
		return true
	}
	return s.pos < len(s.arr.elems)
}

func (s *arrayScope) Element(ctx *archive.Context, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		s.arr.elems = append(s.arr.elems, toLoaded(target))
		return true, nil
	}
	if s.pos >= len(s.arr.elems) {
		return false, nil
	}
	v := s.arr.elems[s.pos]
	s.pos++
	if v == nil {
		return false, nil
	}
	return archive.AssignPrimitive(ctx, v, target)
}

func (s *arrayScope) OpenObjectElement(ctx *archive.Context) (archive.ObjectScope, error) {
	if s.mode == archive.Save {
		nested := newObject()
		s.arr.elems = append(s.arr.elems, nested)
		return &objectScope{mode: s.mode, obj: nested}, nil
	}
	if s.pos >= len(s.arr.elems) {
		return nil, archive.NewSerializationError(archive.KindOutOfRange, "array exhausted").WithPath(ctx.Path())
	}
	v := s.arr.elems[s.pos]
	s.pos++
	nested, ok := v.(*object)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, "element is not object-shaped").WithPath(ctx.Path())
	}
	return &objectScope{mode: s.mode, obj: nested}, nil
}

func (s *arrayScope) OpenArrayElement(ctx *archive.Context, size int) (archive.ArrayScope, error) {
	if s.mode == archive.Save {
		nested := &array{elems: make([]any, 0, size)}
		s.arr.elems = append(s.arr.elems, nested)
		return &arrayScope{mode: s.mode, arr: nested}, nil
	}
	if s.pos >= len(s.arr.elems) {
		return nil, archive.NewSerializationError(archive.KindOutOfRange, "array exhausted").WithPath(ctx.Path())
	}
	v := s.arr.elems[s.pos]
	s.pos++
	nested, ok := v.(*array)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, "element is not array-shaped").WithPath(ctx.Path())
	}
	return &arrayScope{mode: s.mode, arr: nested}, nil
}

func (s *arrayScope) BinaryElement(ctx *archive.Context, target reflect.Value) (bool, error) {
	return s.Element(ctx, target)
}

func (s *arrayScope) Close(*archive.Context) error { return nil }

// attributeScope is the stub's AttributeScope, backed by the same
// object node as its owning element (attributes and children share one
// flat namespace in the stub, since it has no markup distinction).
type attributeScope struct {
	mode archive.Mode
	obj  *object
}

func (s *attributeScope) Mode() archive.Mode { return s.mode }

func (s *attributeScope) Value(ctx *archive.Context, key string, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		s.obj.set("@"+key, toLoaded(target))
		return true, nil
	}
	v, ok := s.obj.get("@" + key)
	if !ok || v == nil {
		return false, nil
	}
	return archive.AssignPrimitive(ctx, v, target)
}

func (s *attributeScope) Close(*archive.Context) error { return nil }

// toLoaded converts a Save-mode target into the Loaded primitive shape
// archive.AssignPrimitive expects.
func toLoaded(target reflect.Value) any {
	switch target.Kind() {
	case reflect.Bool:
		return target.Bool()
	case reflect.String:
		return target.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return target.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return target.Uint()
	case reflect.Float32, reflect.Float64:
		return target.Float()
	case reflect.Slice:
		if target.Type().Elem().Kind() == reflect.Uint8 {
			return append([]byte(nil), target.Bytes()...)
		}
	}
	return nil
}
