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

// Package csv is the CSV archive backend, built on encoding/csv only —
// no third-party CSV library is present anywhere in the example corpus
// for this format, see DESIGN.md. CSV's table shape constrains this
// backend more than any other: the root value must be array-shaped (a
// slice/array of rows), each row must be flat (no nested object/array
// fields, no attributes), and every row is expected to share the same
// set of columns — the first row written fixes the header, and later
// rows are reordered to match it. An empty string column is treated as
// an absent/null value on Load, the conventional CSV reading for both
// since CSV cannot otherwise distinguish "" from "not present."
package csv

import (
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/rivaas-dev/archive/archive"
)

const scalarColumn = "value"

// Format is the archive.FormatBinding marker for the CSV backend.
type Format struct{}

var _ archive.FormatBinding = Format{}

// Traits reports CSV's static properties: narrow string keys (column
// headers), '/' path separator, a text (non-binary) wire format.
func (Format) Traits() archive.Traits {
	return archive.Traits{
		Kind:             archive.KindCSV,
		PreferredKeyType: archive.KeyNarrowString,
		AcceptedKeyTypes: []archive.KeyType{archive.KeyNarrowString},
		PathSeparator:    '/',
		Binary:           false,
	}
}

// NewRootScope builds a CSV root scope. On Save, io must be an
// io.Writer. On Load, io must be the decoded UTF-8 document text; it is
// parsed eagerly via encoding/csv, with the first record taken as the
// column header.
func (Format) NewRootScope(mode archive.Mode, ctx *archive.Context, ioArg any) (archive.RootScope, error) {
	if mode == archive.Save {
		w, ok := ioArg.(io.Writer)
		if !ok {
			return nil, archive.NewSerializationError(archive.KindInputOutputError, fmt.Sprintf("csv.Format: Save requires an io.Writer sink, got %T", ioArg))
		}
		return &rootScope{mode: mode, w: csv.NewWriter(w)}, nil
	}

	text, ok := ioArg.(string)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindInputOutputError, fmt.Sprintf("csv.Format: Load requires decoded document text, got %T", ioArg))
	}
	records, err := csv.NewReader(strings.NewReader(text)).ReadAll()
	if err != nil {
		return nil, archive.NewSerializationError(archive.KindParsingError, err.Error())
	}
	if len(records) == 0 {
		return &rootScope{mode: mode}, nil
	}
	return &rootScope{mode: mode, header: records[0], rows: records[1:]}, nil
}

type rootScope struct {
	mode archive.Mode
	w    *csv.Writer

	header []string
	rows   [][]string
}

func (r *rootScope) Mode() archive.Mode { return r.mode }

func (r *rootScope) OpenObject(ctx *archive.Context) (archive.ObjectScope, error) {
	return nil, archive.NewSerializationError(archive.KindUnsupportedEncoding, "CSV documents must be a root-level array of rows, not a single object").WithPath(ctx.Path())
}

func (r *rootScope) OpenArray(ctx *archive.Context, size int) (archive.ArrayScope, error) {
	if r.mode == archive.Save {
		return &arrayScope{mode: archive.Save, w: r.w}, nil
	}
	return &arrayScope{mode: archive.Load, header: r.header, rows: r.rows}, nil
}

func (r *rootScope) Finalize(*archive.Context) error {
	if r.mode != archive.Save {
		return nil
	}
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		return archive.NewSerializationError(archive.KindInputOutputError, err.Error())
	}
	return nil
}

// arrayScope is the CSV ArrayScope: the sequence of rows. Save buffers
// each row's header-ordered values and writes the header on the first
// row; Load holds the parsed header/rows.
type arrayScope struct {
	mode archive.Mode
	w    *csv.Writer

	header       []string
	headerFixed  bool
	rows         [][]string
	pos          int
}

func (s *arrayScope) Mode() archive.Mode { return s.mode }

func (s *arrayScope) Size(*archive.Context) int {
	if s.mode == archive.Save {
		return 0
	}
	return len(s.rows)
}

func (s *arrayScope) Next(*archive.Context) bool {
	if s.mode == archive.Save {
		return true
	}
	return s.pos < len(s.rows)
}

// Element treats the whole document as a single "value" column — a
// scalar row — for a root/nested array of plain scalars rather than
// row objects.
func (s *arrayScope) Element(ctx *archive.Context, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		text, err := scalarText(target)
		if err != nil {
			return false, err
		}
		return true, s.writeRow([]string{scalarColumn}, map[string]string{scalarColumn: text})
	}
	if s.pos >= len(s.rows) {
		return false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	idx := indexOf(s.header, scalarColumn)
	if idx < 0 || idx >= len(row) || row[idx] == "" {
		return false, nil
	}
	loaded, cerr := textToLoaded(target, row[idx])
	if cerr != nil {
		return false, cerr.WithPath(ctx.Path())
	}
	return archive.AssignPrimitive(ctx, loaded, target)
}

func (s *arrayScope) OpenObjectElement(ctx *archive.Context) (archive.ObjectScope, error) {
	if s.mode == archive.Save {
		return &objectScope{mode: archive.Save, arr: s, vals: map[string]string{}}, nil
	}
	if s.pos >= len(s.rows) {
		return nil, archive.NewSerializationError(archive.KindOutOfRange, "row array exhausted").WithPath(ctx.Path())
	}
	row := s.rows[s.pos]
	s.pos++
	return &objectScope{mode: archive.Load, header: s.header, row: row}, nil
}

func (s *arrayScope) OpenArrayElement(ctx *archive.Context, size int) (archive.ArrayScope, error) {
	return nil, archive.NewSerializationError(archive.KindUnsupportedEncoding, "CSV rows cannot contain a nested array column").WithPath(ctx.Path())
}

func (s *arrayScope) BinaryElement(ctx *archive.Context, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		enc := base64.StdEncoding.EncodeToString(target.Bytes())
		return true, s.writeRow([]string{scalarColumn}, map[string]string{scalarColumn: enc})
	}
	if s.pos >= len(s.rows) {
		return false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	idx := indexOf(s.header, scalarColumn)
	if idx < 0 || idx >= len(row) || row[idx] == "" {
		return false, nil
	}
	raw, err := base64.StdEncoding.DecodeString(row[idx])
	if err != nil {
		return false, archive.NewSerializationError(archive.KindParsingError, err.Error()).WithPath(ctx.Path())
	}
	target.SetBytes(raw)
	return true, nil
}

func (s *arrayScope) Close(*archive.Context) error { return nil }

// writeRow fixes the header on the first row written and writes every
// subsequent row reordered to match it; a row with a column absent from
// the header fails with KindMismatchedTypes rather than silently
// dropping data.
func (s *arrayScope) writeRow(order []string, vals map[string]string) error {
	if !s.headerFixed {
		s.header = order
		s.headerFixed = true
		if err := s.w.Write(s.header); err != nil {
			return archive.NewSerializationError(archive.KindInputOutputError, err.Error())
		}
	}
	record := make([]string, len(s.header))
	for i, col := range s.header {
		v, ok := vals[col]
		if !ok {
			continue
		}
		record[i] = v
		delete(vals, col)
	}
	if len(vals) > 0 {
		var extra []string
		for k := range vals {
			extra = append(extra, k)
		}
		return archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("row has column(s) %v not present in the first row's header", extra))
	}
	if err := s.w.Write(record); err != nil {
		return archive.NewSerializationError(archive.KindInputOutputError, err.Error())
	}
	return nil
}

// objectScope is the CSV ObjectScope: one flat row. Save accumulates
// key/value pairs in field order and flushes the row via the owning
// arrayScope on Close; Load reads from the already-split row slice
// addressed by the shared header.
type objectScope struct {
	mode archive.Mode

	// Save fields.
	arr   *arrayScope
	order []string
	vals  map[string]string

	// Load fields.
	header []string
	row    []string
}

func (s *objectScope) Mode() archive.Mode { return s.mode }

func (s *objectScope) HasKey(ctx *archive.Context, key string) bool {
	if s.mode == archive.Save {
		return false
	}
	idx := indexOf(s.header, key)
	return idx >= 0 && idx < len(s.row) && s.row[idx] != ""
}

func (s *objectScope) MapKeys(*archive.Context) []string {
	return append([]string(nil), s.header...)
}

func (s *objectScope) Value(ctx *archive.Context, key string, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		text, err := scalarText(target)
		if err != nil {
			return false, err
		}
		s.set(key, text)
		return true, nil
	}
	idx := indexOf(s.header, key)
	if idx < 0 || idx >= len(s.row) || s.row[idx] == "" {
		return false, nil
	}
	loaded, cerr := textToLoaded(target, s.row[idx])
	if cerr != nil {
		return false, cerr.WithPath(ctx.Path())
	}
	return archive.AssignPrimitive(ctx, loaded, target)
}

func (s *objectScope) set(key, val string) {
	if _, exists := s.vals[key]; !exists {
		s.order = append(s.order, key)
	}
	s.vals[key] = val
}

func (s *objectScope) OpenObjectField(ctx *archive.Context, key string) (archive.ObjectScope, error) {
	return nil, archive.NewSerializationError(archive.KindUnsupportedEncoding, "CSV rows cannot contain a nested object column").WithPath(ctx.Path())
}

func (s *objectScope) OpenArrayField(ctx *archive.Context, key string, size int) (archive.ArrayScope, error) {
	return nil, archive.NewSerializationError(archive.KindUnsupportedEncoding, "CSV rows cannot contain a nested array column").WithPath(ctx.Path())
}

func (s *objectScope) OpenAttributesField(ctx *archive.Context) (archive.AttributeScope, error) {
	return rejectingAttrScope{mode: s.mode}, nil
}

func (s *objectScope) BinaryValue(ctx *archive.Context, key string, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		s.set(key, base64.StdEncoding.EncodeToString(target.Bytes()))
		return true, nil
	}
	idx := indexOf(s.header, key)
	if idx < 0 || idx >= len(s.row) || s.row[idx] == "" {
		return false, nil
	}
	raw, err := base64.StdEncoding.DecodeString(s.row[idx])
	if err != nil {
		return false, archive.NewSerializationError(archive.KindParsingError, err.Error()).WithPath(ctx.Path())
	}
	target.SetBytes(raw)
	return true, nil
}

func (s *objectScope) Close(ctx *archive.Context) error {
	if s.mode != archive.Save {
		return nil
	}
	return s.arr.writeRow(s.order, s.vals)
}

type rejectingAttrScope struct{ mode archive.Mode }

func (r rejectingAttrScope) Mode() archive.Mode { return r.mode }

func (r rejectingAttrScope) Value(ctx *archive.Context, key string, target reflect.Value) (bool, error) {
	return false, archive.NewSerializationError(archive.KindUnsupportedEncoding, "CSV has no attribute scope; bind this field as a regular column instead").WithPath(ctx.Path())
}

func (r rejectingAttrScope) Close(*archive.Context) error { return nil }

func indexOf(header []string, key string) int {
	for i, h := range header {
		if h == key {
			return i
		}
	}
	return -1
}

// scalarText renders target's current primitive value as a CSV field.
func scalarText(target reflect.Value) (string, error) {
	if !target.IsValid() {
		return "", nil
	}
	switch target.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(target.Bool()), nil
	case reflect.String:
		return target.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(target.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(target.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(target.Float(), 'g', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(target.Float(), 'g', -1, 64), nil
	default:
		return "", archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("cannot write %s as a CSV field", target.Type()))
	}
}

// textToLoaded parses a CSV field into the Loaded shape matching
// target's Go kind, mirroring archive/xml's textToLoaded.
func textToLoaded(target reflect.Value, raw string) (any, *archive.SerializationError) {
	if target.Kind() >= reflect.Int && target.Kind() <= reflect.Int64 && archive.IsEnumKind(target.Type()) {
		return raw, nil
	}
	switch target.Kind() {
	case reflect.Bool:
		v, err := archive.ConvertTo[bool](raw)
		if err != nil {
			return convErr(err, raw)
		}
		return v, nil
	case reflect.String:
		return raw, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := archive.ConvertTo[int64](raw)
		if err != nil {
			return convErr(err, raw)
		}
		return v, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := archive.ConvertTo[uint64](raw)
		if err != nil {
			return convErr(err, raw)
		}
		return v, nil
	case reflect.Float32, reflect.Float64:
		v, err := archive.ConvertTo[float64](raw)
		if err != nil {
			return convErr(err, raw)
		}
		return v, nil
	default:
		return raw, nil
	}
}

// convErr handles a failed conversion of raw: a number out of the
// target's range fails with KindOverflow; any other failure hands raw on
// as a string, so AssignPrimitive applies the mismatched-types policy.
func convErr(err error, raw string) (any, *archive.SerializationError) {
	if errors.Is(err, archive.ErrConvOutOfRange) {
		return nil, archive.NewSerializationError(archive.KindOverflow, fmt.Sprintf("%q: %v", raw, err))
	}
	return raw, nil
}
