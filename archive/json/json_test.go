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

package json_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivaas-dev/archive/archive"
	"github.com/rivaas-dev/archive/archive/json"
)

type point struct {
	X int32
	Y int32
}

func (p *point) Serialize(c *archive.ObjectCursor) error {
	if err := c.KV(archive.Field("x", &p.X)); err != nil {
		return err
	}
	return c.KV(archive.Field("y", &p.Y))
}

// S1: JSON round-trip of a point.
func TestRoundTripPoint(t *testing.T) {
	in := point{X: -7, Y: 42}
	out, err := archive.SaveObjectBytes[point, json.Format](&in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":-7,"y":42}`, string(out))

	var loaded point
	require.NoError(t, archive.LoadObject[point, json.Format](&loaded, archive.ByteSource(out)))
	assert.Equal(t, in, loaded)
}

// S2: Save with formatting produces indented output.
func TestSaveWithFormatting(t *testing.T) {
	in := point{X: -7, Y: 42}
	out, err := archive.SaveObjectBytes[point, json.Format](&in, archive.WithFormat(' ', 2))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"x\": -7,\n  \"y\": 42\n}", string(out))
}

type requiredName struct {
	Name string
}

func (r *requiredName) Serialize(c *archive.ObjectCursor) error {
	return c.KV(archive.Field("name", &r.Name, archive.Required()))
}

// S3: a required field missing from the source completes traversal,
// then throws a single-entry ValidationException at "/name".
func TestRequiredMissing(t *testing.T) {
	var out requiredName
	err := archive.LoadObject[requiredName, json.Format](&out, archive.ByteSource([]byte(`{}`)))

	var verr *archive.ValidationException
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "/name", verr.Errors[0].Path)
}

type requiredAge struct {
	Age int32
}

func (r *requiredAge) Serialize(c *archive.ObjectCursor) error {
	return c.KV(archive.Field("age", &r.Age, archive.Required()))
}

// S4: a mismatched-type field under Skip stays at its zero value and
// Required sees it as not-loaded.
func TestMismatchedSkip(t *testing.T) {
	var out requiredAge
	err := archive.LoadObject[requiredAge, json.Format](&out, archive.ByteSource([]byte(`{"age":"not a number"}`)),
		archive.WithMismatchedTypesPolicy(archive.MismatchedTypesSkip))

	var verr *archive.ValidationException
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "/age", verr.Errors[0].Path)
	assert.Equal(t, int32(0), out.Age)
}

func TestMismatchedThrow(t *testing.T) {
	var out requiredAge
	err := archive.LoadObject[requiredAge, json.Format](&out, archive.ByteSource([]byte(`{"age":"not a number"}`)))

	var serr *archive.SerializationError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, archive.KindMismatchedTypes, serr.Kind)
}

type colorEnum int

const (
	colorRed colorEnum = iota
	colorBlue
)

type enumHolder struct {
	C colorEnum
}

func (e *enumHolder) Serialize(c *archive.ObjectCursor) error {
	return c.KV(archive.Field("c", &e.C))
}

// S5: loading an unregistered enum value throws KindUnregisteredEnum.
func TestEnumUnregistered(t *testing.T) {
	archive.RegisterEnum(map[colorEnum]string{colorRed: "Red", colorBlue: "Blue"})

	var out enumHolder
	err := archive.LoadObject[enumHolder, json.Format](&out, archive.ByteSource([]byte(`{"c":"Green"}`)))

	var serr *archive.SerializationError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, archive.KindUnregisteredEnum, serr.Kind)
}

func TestEnumRoundTrip(t *testing.T) {
	archive.RegisterEnum(map[colorEnum]string{colorRed: "Red", colorBlue: "Blue"})

	in := enumHolder{C: colorBlue}
	out, err := archive.SaveObjectBytes[enumHolder, json.Format](&in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"c":"Blue"}`, string(out))

	var loaded enumHolder
	require.NoError(t, archive.LoadObject[enumHolder, json.Format](&loaded, archive.ByteSource(out)))
	assert.Equal(t, colorBlue, loaded.C)
}

// S6: overflow in a fixed-size array under ThrowError fails at the
// offending index; under Skip, earlier elements still apply and later
// ones stay at their zero value.
func TestOverflowInArray(t *testing.T) {
	err := archive.LoadObject[[2]uint8, json.Format](new([2]uint8), archive.ByteSource([]byte(`[1,99999]`)))
	var serr *archive.SerializationError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, archive.KindOverflow, serr.Kind)
	assert.Equal(t, "/1", serr.Path)

	var out [2]uint8
	err = archive.LoadObject[[2]uint8, json.Format](&out, archive.ByteSource([]byte(`[1,99999]`)),
		archive.WithOverflowNumberPolicy(archive.OverflowNumberSkip))
	require.NoError(t, err)
	assert.Equal(t, [2]uint8{1, 0}, out)
}

// Nested struct fields and string slices round-trip without a custom
// Serializable, via the struct-field reflection fallback.
func TestNestedStructAndSliceFallback(t *testing.T) {
	type inner struct {
		Label string
	}
	type withNested struct {
		Inner inner
		Tags  []string
	}

	in := withNested{Inner: inner{Label: "x"}, Tags: []string{"a", "b", "c"}}
	out, err := archive.SaveObjectBytes[withNested, json.Format](&in)
	require.NoError(t, err)

	var loaded withNested
	require.NoError(t, archive.LoadObject[withNested, json.Format](&loaded, archive.ByteSource(out)))
	assert.Equal(t, in, loaded)
}

func TestBinaryFieldRoundTrip(t *testing.T) {
	type withBytes struct {
		Blob []byte
	}
	in := withBytes{Blob: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	out, err := archive.SaveObjectBytes[withBytes, json.Format](&in)
	require.NoError(t, err)

	var loaded withBytes
	require.NoError(t, archive.LoadObject[withBytes, json.Format](&loaded, archive.ByteSource(out)))
	assert.Equal(t, in.Blob, loaded.Blob)
}

// A zero-valued field tagged omitempty is dropped from Save output via
// the struct-field reflection fallback; a non-zero value is kept.
func TestOmitEmptyFallback(t *testing.T) {
	type withOptional struct {
		Name string
		Note string `archive:"note,omitempty"`
	}

	out, err := archive.SaveObjectBytes[withOptional, json.Format](&withOptional{Name: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Name":"x"}`, string(out))

	out, err = archive.SaveObjectBytes[withOptional, json.Format](&withOptional{Name: "x", Note: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Name":"x","note":"hi"}`, string(out))
}

// record carries a uuid.UUID field, a user type with an underlying
// [16]byte array kind that the container's reflection-based dispatch
// would otherwise serialize element-by-element. Its Serialize method
// instead binds the field as a single string value: Save renders it
// through the conversion facility (uuid.UUID's encoding.TextMarshaler),
// and Load parses it back with uuid.Parse.
type record struct {
	ID    uuid.UUID
	Label string
}

func (r *record) Serialize(c *archive.ObjectCursor) error {
	if c.Mode() == archive.Save {
		s, err := archive.ConvertToString(r.ID)
		if err != nil {
			return err
		}
		if err := c.KV(archive.Field("id", &s)); err != nil {
			return err
		}
	} else {
		var s string
		if err := c.KV(archive.Field("id", &s)); err != nil {
			return err
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return archive.NewSerializationError(archive.KindMismatchedTypes, err.Error()).WithPath(c.Context().Path())
		}
		r.ID = id
	}
	return c.KV(archive.Field("label", &r.Label))
}

// A uuid.UUID field round-trips as a plain JSON string, not as a byte
// array.
func TestUUIDFieldRoundTrip(t *testing.T) {
	id := uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")
	in := record{ID: id, Label: "widget"}
	out, err := archive.SaveObjectBytes[record, json.Format](&in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"f47ac10b-58cc-4372-a567-0e02b2c3d479","label":"widget"}`, string(out))

	var loaded record
	require.NoError(t, archive.LoadObject[record, json.Format](&loaded, archive.ByteSource(out)))
	assert.Equal(t, in, loaded)
}
