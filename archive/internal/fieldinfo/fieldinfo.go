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

// Package fieldinfo caches parsed struct field metadata keyed by
// reflect.Type, so the archive core's tag-based fallback serializer
// (used for types that do not implement archive.Serializable) does not
// re-walk a struct's fields and re-parse its tags on every operation.
package fieldinfo

import (
	"maps"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
)

// Field describes one struct field bound by the "archive" tag.
type Field struct {
	Index     []int // reflect.Value.FieldByIndex path
	Name      string
	OmitEmpty bool
	Skip      bool
}

// StructInfo is the parsed, cached shape of one struct type.
type StructInfo struct {
	Fields []Field
}

// RCU pattern: atomic pointer to an immutable map, mutated only via
// copy-on-write under cacheMu, generalized from (reflect.Type, tag-name)
// keys to reflect.Type alone since the archive tag name is fixed.
var (
	cachePtr atomic.Pointer[map[reflect.Type]*StructInfo]
	cacheMu  sync.Mutex
)

func init() {
	m := make(map[reflect.Type]*StructInfo)
	cachePtr.Store(&m)
}

// Lookup returns the cached StructInfo for t (which must be a struct
// type, not a pointer), parsing and caching it on first use.
func Lookup(t reflect.Type) *StructInfo {
	m := cachePtr.Load()
	if si, ok := (*m)[t]; ok {
		return si
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()

	m = cachePtr.Load()
	if si, ok := (*m)[t]; ok {
		return si
	}

	si := parse(t)

	newMap := make(map[reflect.Type]*StructInfo, len(*m)+1)
	maps.Copy(newMap, *m)
	newMap[t] = si
	cachePtr.Store(&newMap)

	return si
}

// parse walks t's exported fields, reading the `archive:"name,omitempty"`
// tag (falling back to the Go field name when the tag is absent), the
// same comma-separated option grammar encoding/json uses.
func parse(t reflect.Type) *StructInfo {
	si := &StructInfo{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" && !f.Anonymous {
			continue // unexported
		}

		tag, ok := f.Tag.Lookup("archive")
		name := f.Name
		omitEmpty := false
		skip := false

		if ok {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" && len(parts) == 1 {
				skip = true
			} else {
				if parts[0] != "" {
					name = parts[0]
				}
				for _, opt := range parts[1:] {
					if opt == "omitempty" {
						omitEmpty = true
					}
				}
			}
		}

		if skip {
			continue
		}

		si.Fields = append(si.Fields, Field{
			Index:     append([]int(nil), f.Index...),
			Name:      name,
			OmitEmpty: omitEmpty,
		})
	}
	return si
}
