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

// Package msgpack is the MessagePack archive backend, built on
// github.com/vmihailenco/msgpack/v5. On Save, instead of a whole-value
// Marshal call, this backend drives the library's low-level Encoder
// directly so the core's scope-driven traversal controls field-by-field
// emission. On Load it unmarshals the whole payload into a generic tree
// of maps, slices and scalars, which the scopes then walk.
//
// MessagePack map/array headers declare their element count up front.
// Array counts are always known ahead of time (callers pass target.Len()
// into OpenArrayField/OpenArrayElement); object field counts are not, so
// Save writes each object's body into a scratch buffer and prepends the
// map-length header once the body is complete and the count is known —
// simpler than running the user's Serialize method twice to first count
// fields and then emit them, and correct for both static (tagged
// struct) and dynamic (hand-written Serialize) field sets alike.
package msgpack

import (
	"bytes"
	"fmt"
	"io"
	"reflect"

	"github.com/rivaas-dev/archive/archive"
	mp "github.com/vmihailenco/msgpack/v5"
)

// Format is the archive.FormatBinding marker for the MessagePack backend.
type Format struct{}

var _ archive.FormatBinding = Format{}

// Traits reports MessagePack's static properties: a binary wire format,
// so entry.go never routes it through the text stream's UTF transcoding.
func (Format) Traits() archive.Traits {
	return archive.Traits{
		Kind:             archive.KindMsgPack,
		PreferredKeyType: archive.KeyNarrowString,
		AcceptedKeyTypes: []archive.KeyType{archive.KeyNarrowString},
		PathSeparator:    '/',
		Binary:           true,
	}
}

// NewRootScope builds a MessagePack root scope. On Save, io must be an
// io.Writer. On Load, io must be the raw (un-decoded) message bytes;
// the whole document is unmarshaled into a generic Go value tree once,
// up front, since MessagePack's map header declares the field count and
// order the core's key-addressed ObjectScope.Value doesn't guarantee to
// match.
func (Format) NewRootScope(mode archive.Mode, ctx *archive.Context, ioArg any) (archive.RootScope, error) {
	if mode == archive.Save {
		w, ok := ioArg.(io.Writer)
		if !ok {
			return nil, archive.NewSerializationError(archive.KindInputOutputError, fmt.Sprintf("msgpack.Format: Save requires an io.Writer sink, got %T", ioArg))
		}
		return &rootScope{mode: mode, w: w}, nil
	}

	raw, ok := ioArg.([]byte)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindInputOutputError, fmt.Sprintf("msgpack.Format: Load requires raw message bytes, got %T", ioArg))
	}
	var doc any
	if err := mp.Unmarshal(raw, &doc); err != nil {
		return nil, archive.NewSerializationError(archive.KindParsingError, err.Error())
	}
	return &rootScope{mode: mode, doc: doc}, nil
}

type rootScope struct {
	mode archive.Mode
	w    io.Writer
	doc  any
}

func (r *rootScope) Mode() archive.Mode { return r.mode }

func (r *rootScope) OpenObject(ctx *archive.Context) (archive.ObjectScope, error) {
	if r.mode == archive.Save {
		return newObjectSaveScope(r.w), nil
	}
	m, ok := r.doc.(map[string]any)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, "root value is not a MessagePack map").WithPath(ctx.Path())
	}
	return newObjectLoadScope(m), nil
}

func (r *rootScope) OpenArray(ctx *archive.Context, size int) (archive.ArrayScope, error) {
	if r.mode == archive.Save {
		return newArraySaveScope(r.w, size), nil
	}
	a, ok := r.doc.([]any)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, "root value is not a MessagePack array").WithPath(ctx.Path())
	}
	return &arrayScope{mode: r.mode, elems: a}, nil
}

func (r *rootScope) Finalize(*archive.Context) error { return nil }

// objectScope is the MessagePack ObjectScope. Save buffers the body
// (key/value pairs already encoded) and flushes "map header + body" to
// the real writer on Close. Load holds the already-unmarshaled map.
type objectScope struct {
	mode archive.Mode

	// Save fields: body accumulates encoded pairs; dst is where Close
	// writes the final "header + body" once count is known.
	body  bytes.Buffer
	enc   *mp.Encoder
	count int
	dst   io.Writer

	// Load fields.
	m    map[string]any
	keys []string
}

func newObjectSaveScope(dst io.Writer) *objectScope {
	s := &objectScope{mode: archive.Save, dst: dst}
	s.enc = mp.NewEncoder(&s.body)
	return s
}

func newObjectLoadScope(m map[string]any) *objectScope {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return &objectScope{mode: archive.Load, m: m, keys: keys}
}

var _ interface {
	MapKeys(ctx *archive.Context) []string
} = (*objectScope)(nil)

func (s *objectScope) Mode() archive.Mode { return s.mode }

func (s *objectScope) HasKey(ctx *archive.Context, key string) bool {
	if s.mode == archive.Save {
		return false
	}
	_, ok := s.m[key]
	return ok
}

func (s *objectScope) MapKeys(*archive.Context) []string {
	return append([]string(nil), s.keys...)
}

func (s *objectScope) writeKey(key string) error {
	if err := s.enc.EncodeString(key); err != nil {
		return archive.NewSerializationError(archive.KindInputOutputError, err.Error())
	}
	s.count++
	return nil
}

func (s *objectScope) Value(ctx *archive.Context, key string, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		if err := s.writeKey(key); err != nil {
			return false, err
		}
		return true, encodeScalar(s.enc, target)
	}
	v, ok := s.m[key]
	if !ok || v == nil {
		return false, nil
	}
	loaded, err := toLoaded(v)
	if err != nil {
		return false, err
	}
	return archive.AssignPrimitive(ctx, loaded, target)
}

func (s *objectScope) OpenObjectField(ctx *archive.Context, key string) (archive.ObjectScope, error) {
	if s.mode == archive.Save {
		if err := s.writeKey(key); err != nil {
			return nil, err
		}
		return newObjectSaveScope(&s.body), nil
	}
	v, ok := s.m[key]
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("key %q absent", key)).WithPath(ctx.Path())
	}
	nested, ok := v.(map[string]any)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("key %q is not a map", key)).WithPath(ctx.Path())
	}
	return newObjectLoadScope(nested), nil
}

func (s *objectScope) OpenArrayField(ctx *archive.Context, key string, size int) (archive.ArrayScope, error) {
	if s.mode == archive.Save {
		if err := s.writeKey(key); err != nil {
			return nil, err
		}
		return newArraySaveScope(&s.body, size), nil
	}
	v, ok := s.m[key]
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("key %q absent", key)).WithPath(ctx.Path())
	}
	nested, ok := v.([]any)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("key %q is not an array", key)).WithPath(ctx.Path())
	}
	return &arrayScope{mode: s.mode, elems: nested}, nil
}

// OpenAttributesField rejects every call: MessagePack has no
// attribute/element distinction.
func (s *objectScope) OpenAttributesField(ctx *archive.Context) (archive.AttributeScope, error) {
	return rejectingAttrScope{mode: s.mode}, nil
}

func (s *objectScope) BinaryValue(ctx *archive.Context, key string, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		if err := s.writeKey(key); err != nil {
			return false, err
		}
		if err := s.enc.EncodeBytes(target.Bytes()); err != nil {
			return false, archive.NewSerializationError(archive.KindInputOutputError, err.Error())
		}
		return true, nil
	}
	v, ok := s.m[key]
	if !ok || v == nil {
		return false, nil
	}
	raw, ok := v.([]byte)
	if !ok {
		return false, archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("key %q is not binary", key)).WithPath(ctx.Path())
	}
	target.SetBytes(append([]byte(nil), raw...))
	return true, nil
}

// Close flushes "map header + buffered body" to dst once this scope's
// final pair count is known (Save only).
func (s *objectScope) Close(*archive.Context) error {
	if s.mode != archive.Save {
		return nil
	}
	header := mp.NewEncoder(s.dst)
	if err := header.EncodeMapLen(s.count); err != nil {
		return archive.NewSerializationError(archive.KindInputOutputError, err.Error())
	}
	if _, err := s.dst.Write(s.body.Bytes()); err != nil {
		return archive.NewSerializationError(archive.KindInputOutputError, err.Error())
	}
	return nil
}

// arrayScope is the MessagePack ArrayScope. Unlike objects, the element
// count is always known ahead of time (Go slice/array Len()), so Save
// writes the array header immediately rather than buffering.
type arrayScope struct {
	mode archive.Mode
	enc  *mp.Encoder
	dst  io.Writer

	elems []any
	pos   int
}

func newArraySaveScope(w io.Writer, size int) *arrayScope {
	enc := mp.NewEncoder(w)
	_ = enc.EncodeArrayLen(size)
	return &arrayScope{mode: archive.Save, enc: enc, dst: w}
}

func (s *arrayScope) Mode() archive.Mode { return s.mode }

func (s *arrayScope) Size(*archive.Context) int {
	if s.mode == archive.Save {
		return 0
	}
	return len(s.elems)
}

func (s *arrayScope) Next(*archive.Context) bool {
	if s.mode == archive.Save {
		return true
	}
	return s.pos < len(s.elems)
}

func (s *arrayScope) Element(ctx *archive.Context, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		return true, encodeScalar(s.enc, target)
	}
	if s.pos >= len(s.elems) {
		return false, nil
	}
	v := s.elems[s.pos]
	s.pos++
	if v == nil {
		return false, nil
	}
	loaded, err := toLoaded(v)
	if err != nil {
		return false, err
	}
	return archive.AssignPrimitive(ctx, loaded, target)
}

func (s *arrayScope) OpenObjectElement(ctx *archive.Context) (archive.ObjectScope, error) {
	if s.mode == archive.Save {
		return newObjectSaveScope(s.dst), nil
	}
	if s.pos >= len(s.elems) {
		return nil, archive.NewSerializationError(archive.KindOutOfRange, "array exhausted").WithPath(ctx.Path())
	}
	v := s.elems[s.pos]
	s.pos++
	nested, ok := v.(map[string]any)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, "element is not a map").WithPath(ctx.Path())
	}
	return newObjectLoadScope(nested), nil
}

func (s *arrayScope) OpenArrayElement(ctx *archive.Context, size int) (archive.ArrayScope, error) {
	if s.mode == archive.Save {
		return newArraySaveScope(s.dst, size), nil
	}
	if s.pos >= len(s.elems) {
		return nil, archive.NewSerializationError(archive.KindOutOfRange, "array exhausted").WithPath(ctx.Path())
	}
	v := s.elems[s.pos]
	s.pos++
	nested, ok := v.([]any)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, "element is not an array").WithPath(ctx.Path())
	}
	return &arrayScope{mode: s.mode, elems: nested}, nil
}

func (s *arrayScope) BinaryElement(ctx *archive.Context, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		if err := s.enc.EncodeBytes(target.Bytes()); err != nil {
			return false, archive.NewSerializationError(archive.KindInputOutputError, err.Error())
		}
		return true, nil
	}
	if s.pos >= len(s.elems) {
		return false, nil
	}
	v := s.elems[s.pos]
	s.pos++
	if v == nil {
		return false, nil
	}
	raw, ok := v.([]byte)
	if !ok {
		return false, archive.NewSerializationError(archive.KindMismatchedTypes, "element is not binary").WithPath(ctx.Path())
	}
	target.SetBytes(append([]byte(nil), raw...))
	return true, nil
}

func (s *arrayScope) Close(*archive.Context) error { return nil }

type rejectingAttrScope struct{ mode archive.Mode }

func (r rejectingAttrScope) Mode() archive.Mode { return r.mode }

func (r rejectingAttrScope) Value(ctx *archive.Context, key string, target reflect.Value) (bool, error) {
	return false, archive.NewSerializationError(archive.KindUnsupportedEncoding, "MessagePack has no attribute scope; bind this field as a regular value instead").WithPath(ctx.Path())
}

func (r rejectingAttrScope) Close(*archive.Context) error { return nil }

// encodeScalar encodes target's current primitive value (or an enum
// already rendered as its name string by container.go) through the
// library's generic Encode, which already chooses the minimal wire
// representation for compact binary framing.
func encodeScalar(enc *mp.Encoder, target reflect.Value) error {
	if !target.IsValid() {
		if err := enc.EncodeNil(); err != nil {
			return archive.NewSerializationError(archive.KindInputOutputError, err.Error())
		}
		return nil
	}
	if err := enc.Encode(target.Interface()); err != nil {
		return archive.NewSerializationError(archive.KindInputOutputError, err.Error())
	}
	return nil
}

// toLoaded normalizes the various concrete Go integer/float kinds
// msgpack.Unmarshal produces for a generic `any` target into the Loaded
// primitive shape (int64/uint64/float64/bool/string/[]byte/nil).
func toLoaded(v any) (any, error) {
	switch t := v.(type) {
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case uint8:
		return uint64(t), nil
	case uint16:
		return uint64(t), nil
	case uint32:
		return uint64(t), nil
	case uint64:
		return t, nil
	case uint:
		return uint64(t), nil
	case float32:
		return float64(t), nil
	case float64:
		return t, nil
	case bool, string, []byte, nil:
		return t, nil
	default:
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("unsupported MessagePack scalar type %T", v))
	}
}
