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

import "reflect"

// BaseBinding is the value archive.BaseObject returns; it only has
// meaning passed to ObjectCursor.Base.
type BaseBinding struct {
	apply func(c *ObjectCursor) error
}

// BaseObject is the Go spelling of BitSerializer's BaseObject<TBase>
// wrapper: it binds an embedded "base" struct so its fields serialize
// inline at the current object's scope level rather than as a nested
// child object, the Go-composition replacement for C++ inheritance.
func BaseObject[B any](self *B) BaseBinding {
	return BaseBinding{
		apply: func(c *ObjectCursor) error {
			if ser, ok := any(self).(Serializable); ok {
				return ser.Serialize(c)
			}
			return serializeStructFields(c.ctx, c, reflect.ValueOf(self).Elem())
		},
	}
}

// Base applies a BaseBinding built by BaseObject, serializing the base
// type's fields at this cursor's current scope level.
func (c *ObjectCursor) Base(b BaseBinding) error {
	return b.apply(c)
}
