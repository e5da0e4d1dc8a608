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

	"github.com/rivaas-dev/archive/archive/internal/fieldinfo"
)

// WarmupCache pre-parses the archive tags of the given struct values so
// the first real Load/Save of each type does not pay the reflection
// parsing cost. Invalid (non-struct) values are silently skipped, the
// same relaxed contract as a cache warmup helper, tolerating whatever
// values a caller happens to pass at startup.
func WarmupCache(values ...any) {
	for _, v := range values {
		t := reflect.TypeOf(v)
		if t == nil {
			continue
		}
		if t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			continue
		}
		fieldinfo.Lookup(t)
	}
}
