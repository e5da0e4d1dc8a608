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

// Package json is the JSON archive backend. It builds on encoding/json
// only for scalar encoding and number parsing (no third-party JSON tree
// library is present anywhere in the example corpus for this format,
// see DESIGN.md); object/array traversal and field ordering on Save are
// handled by hand-rolled incremental scopes so sibling fields are
// written in binding order rather than encoding/json's alphabetical map
// key sort.
package json

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/rivaas-dev/archive/archive"
)

var _ archive.Reformatter = Format{}

// Format is the archive.FormatBinding marker for the JSON backend.
type Format struct{}

var _ archive.FormatBinding = Format{}

// Traits reports JSON's static properties: narrow string keys only,
// '/' path separator, a text (non-binary) wire format.
func (Format) Traits() archive.Traits {
	return archive.Traits{
		Kind:             archive.KindJSON,
		PreferredKeyType: archive.KeyNarrowString,
		AcceptedKeyTypes: []archive.KeyType{archive.KeyNarrowString},
		PathSeparator:    '/',
		Binary:           false,
	}
}

// Reformat re-indents compact JSON using encoding/json.Indent, the
// stdlib's own pretty-printer, per FormatOptions' padding_char repeated
// padding_char_num times per indentation level. It implements
// archive.Reformatter.
func (Format) Reformat(compact []byte, opts archive.FormatOptions) ([]byte, error) {
	indent := strings.Repeat(string(opts.PaddingChar), opts.PaddingCharNum)
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", indent); err != nil {
		return nil, archive.NewSerializationError(archive.KindParsingError, err.Error())
	}
	return buf.Bytes(), nil
}

// NewRootScope builds a JSON root scope. On Save, io must be an
// io.Writer (entry.go passes a *bytes.Buffer); output streams directly
// into it rather than buffering an intermediate tree. On Load, io must
// be the decoded UTF-8 document text; it is parsed eagerly with
// json.Number precision preserved so the conversion facility can
// distinguish integers from floats.
func (Format) NewRootScope(mode archive.Mode, ctx *archive.Context, ioArg any) (archive.RootScope, error) {
	if mode == archive.Save {
		w, ok := ioArg.(io.Writer)
		if !ok {
			return nil, archive.NewSerializationError(archive.KindInputOutputError, fmt.Sprintf("json.Format: Save requires an io.Writer sink, got %T", ioArg))
		}
		return &rootScope{mode: mode, w: w}, nil
	}

	text, ok := ioArg.(string)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindInputOutputError, fmt.Sprintf("json.Format: Load requires decoded document text, got %T", ioArg))
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
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
		if err := writeRaw(r.w, "{"); err != nil {
			return nil, err
		}
		return &objectScope{mode: r.mode, w: r.w}, nil
	}
	m, ok := r.doc.(map[string]any)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, "root JSON value is not an object").WithPath(ctx.Path())
	}
	return newObjectLoadScope(m), nil
}

func (r *rootScope) OpenArray(ctx *archive.Context, size int) (archive.ArrayScope, error) {
	if r.mode == archive.Save {
		if err := writeRaw(r.w, "["); err != nil {
			return nil, err
		}
		return &arrayScope{mode: r.mode, w: r.w}, nil
	}
	a, ok := r.doc.([]any)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, "root JSON value is not an array").WithPath(ctx.Path())
	}
	return &arrayScope{mode: r.mode, elems: a}, nil
}

// Finalize does nothing on Save: OpenObject/OpenArray's returned scope
// already wrote its own closing "}"/"]" via Close, so there is no
// trailing terminator left for the root to emit here.
func (r *rootScope) Finalize(*archive.Context) error {
	return nil
}

// objectScope is the JSON ObjectScope. Save mode streams directly;
// Load mode holds the parsed map.
type objectScope struct {
	mode archive.Mode

	// Save fields.
	w        io.Writer
	wroteAny bool

	// Load fields.
	m    map[string]any
	keys []string
}

func newObjectLoadScope(m map[string]any) *objectScope {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
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
	if s.wroteAny {
		if err := writeRaw(s.w, ","); err != nil {
			return err
		}
	}
	s.wroteAny = true
	kb, _ := json.Marshal(key)
	return writeRaw(s.w, string(kb)+":")
}

func (s *objectScope) Value(ctx *archive.Context, key string, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		if err := s.writeKey(key); err != nil {
			return false, err
		}
		if !target.IsValid() {
			return true, writeRaw(s.w, "null")
		}
		return true, writeScalar(s.w, target)
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
		if err := writeRaw(s.w, "{"); err != nil {
			return nil, err
		}
		return &objectScope{mode: s.mode, w: s.w}, nil
	}
	v, ok := s.m[key]
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("key %q absent", key)).WithPath(ctx.Path())
	}
	nested, ok := v.(map[string]any)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("key %q is not an object", key)).WithPath(ctx.Path())
	}
	return newObjectLoadScope(nested), nil
}

func (s *objectScope) OpenArrayField(ctx *archive.Context, key string, size int) (archive.ArrayScope, error) {
	if s.mode == archive.Save {
		if err := s.writeKey(key); err != nil {
			return nil, err
		}
		if err := writeRaw(s.w, "["); err != nil {
			return nil, err
		}
		return &arrayScope{mode: s.mode, w: s.w}, nil
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

// OpenAttributesField rejects every call: JSON has no attribute/element
// distinction, so a binding that uses archive.ObjectCursor.Attr against
// this backend fails loudly instead of silently dropping the field.
func (s *objectScope) OpenAttributesField(ctx *archive.Context) (archive.AttributeScope, error) {
	return rejectingAttrScope{mode: s.mode}, nil
}

func (s *objectScope) BinaryValue(ctx *archive.Context, key string, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		enc := base64.StdEncoding.EncodeToString(target.Bytes())
		if err := s.writeKey(key); err != nil {
			return false, err
		}
		eb, _ := json.Marshal(enc)
		return true, writeRaw(s.w, string(eb))
	}
	v, ok := s.m[key]
	if !ok || v == nil {
		return false, nil
	}
	str, ok := v.(string)
	if !ok {
		return false, archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("key %q is not a base64 string", key)).WithPath(ctx.Path())
	}
	raw, err := base64.StdEncoding.DecodeString(str)
	if err != nil {
		return false, archive.NewSerializationError(archive.KindParsingError, err.Error()).WithPath(ctx.Path())
	}
	target.SetBytes(raw)
	return true, nil
}

func (s *objectScope) Close(*archive.Context) error {
	if s.mode == archive.Save {
		return writeRaw(s.w, "}")
	}
	return nil
}

// arrayScope is the JSON ArrayScope.
type arrayScope struct {
	mode archive.Mode

	w        io.Writer
	wroteAny bool

	elems []any
	pos   int
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

func (s *arrayScope) writeComma() error {
	if s.wroteAny {
		if err := writeRaw(s.w, ","); err != nil {
			return err
		}
	}
	s.wroteAny = true
	return nil
}

func (s *arrayScope) Element(ctx *archive.Context, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		if err := s.writeComma(); err != nil {
			return false, err
		}
		if !target.IsValid() {
			return true, writeRaw(s.w, "null")
		}
		return true, writeScalar(s.w, target)
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
		if err := s.writeComma(); err != nil {
			return nil, err
		}
		if err := writeRaw(s.w, "{"); err != nil {
			return nil, err
		}
		return &objectScope{mode: s.mode, w: s.w}, nil
	}
	if s.pos >= len(s.elems) {
		return nil, archive.NewSerializationError(archive.KindOutOfRange, "array exhausted").WithPath(ctx.Path())
	}
	v := s.elems[s.pos]
	s.pos++
	nested, ok := v.(map[string]any)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, "element is not an object").WithPath(ctx.Path())
	}
	return newObjectLoadScope(nested), nil
}

func (s *arrayScope) OpenArrayElement(ctx *archive.Context, size int) (archive.ArrayScope, error) {
	if s.mode == archive.Save {
		if err := s.writeComma(); err != nil {
			return nil, err
		}
		if err := writeRaw(s.w, "["); err != nil {
			return nil, err
		}
		return &arrayScope{mode: s.mode, w: s.w}, nil
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
		enc := base64.StdEncoding.EncodeToString(target.Bytes())
		if err := s.writeComma(); err != nil {
			return false, err
		}
		eb, _ := json.Marshal(enc)
		return true, writeRaw(s.w, string(eb))
	}
	if s.pos >= len(s.elems) {
		return false, nil
	}
	v := s.elems[s.pos]
	s.pos++
	if v == nil {
		return false, nil
	}
	str, ok := v.(string)
	if !ok {
		return false, archive.NewSerializationError(archive.KindMismatchedTypes, "element is not a base64 string").WithPath(ctx.Path())
	}
	raw, err := base64.StdEncoding.DecodeString(str)
	if err != nil {
		return false, archive.NewSerializationError(archive.KindParsingError, err.Error()).WithPath(ctx.Path())
	}
	target.SetBytes(raw)
	return true, nil
}

func (s *arrayScope) Close(*archive.Context) error {
	if s.mode == archive.Save {
		return writeRaw(s.w, "]")
	}
	return nil
}

// rejectingAttrScope implements AttributeScope for every backend that
// has no attribute/element distinction; it fails loudly on Value rather
// than silently discarding the bound field.
type rejectingAttrScope struct {
	mode archive.Mode
}

func (r rejectingAttrScope) Mode() archive.Mode { return r.mode }

func (r rejectingAttrScope) Value(ctx *archive.Context, key string, target reflect.Value) (bool, error) {
	return false, archive.NewSerializationError(archive.KindUnsupportedEncoding, "JSON has no attribute scope; bind this field as a regular value instead").WithPath(ctx.Path())
}

func (r rejectingAttrScope) Close(*archive.Context) error { return nil }

// writeRaw writes s to w, wrapping any I/O failure as KindInputOutputError.
func writeRaw(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return archive.NewSerializationError(archive.KindInputOutputError, err.Error())
	}
	return nil
}

// writeScalar encodes target's current value (bool/string/int*/uint*/
// float*, or an enum-kinded int already converted to its name string by
// container.go's dispatchPrimitiveValue) as JSON text.
func writeScalar(w io.Writer, target reflect.Value) error {
	switch target.Kind() {
	case reflect.Bool:
		return writeRaw(w, strconv.FormatBool(target.Bool()))
	case reflect.String:
		b, err := json.Marshal(target.String())
		if err != nil {
			return archive.NewSerializationError(archive.KindInputOutputError, err.Error())
		}
		return writeRaw(w, string(b))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return writeRaw(w, strconv.FormatInt(target.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return writeRaw(w, strconv.FormatUint(target.Uint(), 10))
	case reflect.Float32:
		return writeRaw(w, strconv.FormatFloat(target.Float(), 'g', -1, 32))
	case reflect.Float64:
		return writeRaw(w, strconv.FormatFloat(target.Float(), 'g', -1, 64))
	default:
		return archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("cannot write %s as a JSON scalar", target.Type()))
	}
}

// toLoaded converts a value produced by json.Decoder (with UseNumber)
// into the Loaded primitive shape: json.Number becomes int64 when it
// parses as one, uint64 when it is a too-large-for-int64 non-negative
// integer, otherwise float64.
func toLoaded(v any) (any, error) {
	n, ok := v.(json.Number)
	if !ok {
		return v, nil
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
		return u, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, archive.NewSerializationError(archive.KindParsingError, fmt.Sprintf("invalid JSON number %q", string(n)))
	}
	return f, nil
}
