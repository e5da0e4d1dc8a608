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
)

// Extension is a closed interface: the only implementations are the
// validator and refiner types returned by the functions in refine.go and
// validate.go. It exists so Field's variadic parameter can accept either
// kind through one shared extension slot, without two separate call
// shapes for validators versus refiners.
type Extension interface {
	isExtension()
}

// validatorExt wraps a field-level validator: it inspects the field
// after a Load attempt and may append a message to the Context.
type validatorExt struct {
	check func(ctx *Context, target reflect.Value, loaded bool) (message string, ok bool)
}

func (*validatorExt) isExtension() {}

// refinerExt wraps a field-level refiner: it may rewrite target after a
// Load attempt, regardless of whether loaded is true.
type refinerExt struct {
	apply func(target reflect.Value, loaded bool)
}

func (*refinerExt) isExtension() {}

// KeyValue binds one field's name to its Go value and the extensions
// (validators/refiners) attached to it, the Go spelling of
// BitSerializer's KeyValue(name, field, validators...) call.
type KeyValue struct {
	name       string
	target     reflect.Value
	extensions []Extension
}

// Field builds a KeyValue. target must be a non-nil pointer to the
// field being bound; Field panics on a non-pointer target since that is
// always a caller bug, never a data-dependent failure.
func Field(name string, target any, extensions ...Extension) KeyValue {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		panic(fmt.Sprintf("archive.Field(%q): target must be a non-nil pointer, got %T", name, target))
	}
	return KeyValue{name: name, target: v.Elem(), extensions: extensions}
}

// ObjectCursor is what a Serializable's Serialize method receives: an
// ObjectScope plus the operation's Context, bundled so user code never
// touches Context directly. Its zero value is not usable; construct one
// only via the entry points in entry.go or recursively via container.go.
type ObjectCursor struct {
	scope ObjectScope
	ctx   *Context
}

// newObjectCursor wraps scope/ctx for one nested object level.
func newObjectCursor(scope ObjectScope, ctx *Context) *ObjectCursor {
	return &ObjectCursor{scope: scope, ctx: ctx}
}

// Context exposes the underlying operation Context for advanced callers
// (e.g. a validator that needs IsLoading).
func (c *ObjectCursor) Context() *Context { return c.ctx }

// Mode reports the active Save/Load direction.
func (c *ObjectCursor) Mode() Mode { return c.ctx.Mode() }

// KV serializes one bound field: it pushes the field's name onto the
// path, dispatches target by its Go kind (primitive, nested
// object/array/map, pointer, registered codec, Serializable, ...), runs
// the field's validators and refiners, and pops the path again. Once
// the validation error cap is reached during Load, KV does nothing.
func (c *ObjectCursor) KV(kv KeyValue) error {
	if c.ctx.IsLoading() && c.ctx.IsCapReached() {
		return nil
	}
	c.ctx.PushName(kv.name)
	defer c.ctx.Pop()

	loaded, err := dispatchObjectField(c.ctx, c.scope, kv.name, kv.target)
	if err != nil {
		return err
	}

	if c.ctx.IsLoading() {
		for _, ext := range kv.extensions {
			if v, ok := ext.(*refinerExt); ok {
				v.apply(kv.target, loaded)
				loaded = true
			}
		}
		for _, ext := range kv.extensions {
			if v, ok := ext.(*validatorExt); ok {
				if msg, ok := v.check(c.ctx, kv.target, loaded); !ok {
					c.ctx.AddValidationError(msg)
					if c.ctx.IsCapReached() {
						return nil
					}
				}
			}
		}
	}
	return nil
}

// HasKey reports whether name is present in the source during Load.
func (c *ObjectCursor) HasKey(name string) bool { return c.scope.HasKey(c.ctx, name) }

// Attr binds a field to this object's attribute scope rather than a
// child element, meaningful only for archive/xml; other backends reject
// it with KindUnsupportedEncoding (see AttributeScope's doc comment).
func (c *ObjectCursor) Attr(kv KeyValue) error {
	attrs, err := c.scope.OpenAttributesField(c.ctx)
	if err != nil {
		return err
	}
	c.ctx.PushName(kv.name)
	loaded, err := dispatchAttributeValue(c.ctx, attrs, kv.name, kv.target)
	c.ctx.Pop()
	if err != nil {
		return err
	}
	if c.ctx.IsLoading() {
		for _, ext := range kv.extensions {
			if v, ok := ext.(*refinerExt); ok {
				v.apply(kv.target, loaded)
				loaded = true
			}
		}
		for _, ext := range kv.extensions {
			if v, ok := ext.(*validatorExt); ok {
				if msg, ok := v.check(c.ctx, kv.target, loaded); !ok {
					c.ctx.AddValidationError(msg)
				}
			}
		}
	}
	return attrs.Close(c.ctx)
}

// ArrayCursor is the array-scope counterpart of ObjectCursor, passed to
// ArraySerializable.SerializeArray implementations (such as
// archive.Pair) and used internally by container.go for []T traversal.
type ArrayCursor struct {
	scope ArrayScope
	ctx   *Context
}

func newArrayCursor(scope ArrayScope, ctx *Context) *ArrayCursor {
	return &ArrayCursor{scope: scope, ctx: ctx}
}

// Context exposes the underlying operation Context.
func (c *ArrayCursor) Context() *Context { return c.ctx }

// Mode reports the active Save/Load direction.
func (c *ArrayCursor) Mode() Mode { return c.ctx.Mode() }

// Size reports the element count available to read during Load.
func (c *ArrayCursor) Size() int { return c.scope.Size(c.ctx) }

// Element serializes one positional value at the cursor's current
// index, advancing it. index is used only to maintain the Context path.
func (c *ArrayCursor) Element(index int, target any) (bool, error) {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		panic(fmt.Sprintf("archive.ArrayCursor.Element(%d): target must be a non-nil pointer, got %T", index, target))
	}
	c.ctx.PushIndex(index)
	defer c.ctx.Pop()
	return dispatchArrayElement(c.ctx, c.scope, v.Elem())
}
