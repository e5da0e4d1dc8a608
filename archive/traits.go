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

// KeyType enumerates the key representations a backend can accept.
type KeyType int

const (
	// KeyNarrowString is a UTF-8 Go string key (the common case).
	KeyNarrowString KeyType = iota
	// KeyWideString is a key that must round-trip through UTF-16/UTF-32.
	KeyWideString
)

// Traits describes the static, format-specific properties of a backend.
// Every FormatBinding returns a Traits value from its Traits method; the
// core never special-cases a format by name, only by these properties.
type Traits struct {
	// Kind identifies the format for diagnostics and enum-style lookups.
	Kind ArchiveKind

	// PreferredKeyType is the key representation the backend emits when
	// given a choice (almost always KeyNarrowString in Go).
	PreferredKeyType KeyType

	// AcceptedKeyTypes lists every key representation the backend can
	// consume without a conversion-facility round-trip.
	AcceptedKeyTypes []KeyType

	// PreferredOutputIsStream reports whether the backend would rather
	// write to an io.Writer than build an in-memory []byte. No backend in
	// this repository sets it; the field lets a future backend (e.g. a
	// chunked CSV writer) declare it.
	PreferredOutputIsStream bool

	// PathSeparator is the byte used to join path segments in
	// Context.Path for this format. Every backend in this repository
	// uses '/'.
	PathSeparator byte

	// Binary reports whether the wire format is non-human-readable,
	// which gates UTF transcoding and binary-blob scope handling.
	Binary bool
}

// AcceptsKeyType reports whether kt is in t.AcceptedKeyTypes.
func (t Traits) AcceptsKeyType(kt KeyType) bool {
	for _, k := range t.AcceptedKeyTypes {
		if k == kt {
			return true
		}
	}
	return false
}
