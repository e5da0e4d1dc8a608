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

package xml_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivaas-dev/archive/archive"
	"github.com/rivaas-dev/archive/archive/xml"
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

// S1: round-trip of a point under the synthetic "root" element.
func TestRoundTripPoint(t *testing.T) {
	in := point{X: -7, Y: 42}
	out, err := archive.SaveObjectBytes[point, xml.Format](&in)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<x>-7</x>")
	assert.Contains(t, string(out), "<y>42</y>")

	var loaded point
	require.NoError(t, archive.LoadObject[point, xml.Format](&loaded, archive.ByteSource(out)))
	assert.Equal(t, in, loaded)
}

// S2: Save with formatting indents the synthetic root element's
// children.
func TestSaveWithFormatting(t *testing.T) {
	in := point{X: -7, Y: 42}
	out, err := archive.SaveObjectBytes[point, xml.Format](&in, archive.WithFormat(' ', 2))
	require.NoError(t, err)
	assert.Equal(t, "<root>\n  <x>-7</x>\n  <y>42</y>\n</root>", string(out))

	var loaded point
	require.NoError(t, archive.LoadObject[point, xml.Format](&loaded, archive.ByteSource(out)))
	assert.Equal(t, in, loaded)
}

type requiredName struct {
	Name string
}

func (r *requiredName) Serialize(c *archive.ObjectCursor) error {
	return c.KV(archive.Field("name", &r.Name, archive.Required()))
}

func TestRequiredMissing(t *testing.T) {
	var out requiredName
	err := archive.LoadObject[requiredName, xml.Format](&out, archive.ByteSource([]byte("<root></root>")))

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

func TestMismatchedSkip(t *testing.T) {
	var out requiredAge
	err := archive.LoadObject[requiredAge, xml.Format](&out, archive.ByteSource([]byte("<root><age>not a number</age></root>")),
		archive.WithMismatchedTypesPolicy(archive.MismatchedTypesSkip))

	var verr *archive.ValidationException
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "/age", verr.Errors[0].Path)
	assert.Equal(t, int32(0), out.Age)
}

func TestOverflowInArraySkip(t *testing.T) {
	var out [2]uint8
	err := archive.LoadObject[[2]uint8, xml.Format](&out,
		archive.ByteSource([]byte("<root><item>1</item><item>99999</item></root>")),
		archive.WithOverflowNumberPolicy(archive.OverflowNumberSkip))
	require.NoError(t, err)
	assert.Equal(t, [2]uint8{1, 0}, out)
}

func TestNestedStructAndSliceFallback(t *testing.T) {
	type inner struct {
		Label string
	}
	type withNested struct {
		Inner inner
		Tags  []string
	}

	in := withNested{Inner: inner{Label: "x"}, Tags: []string{"a", "b", "c"}}
	out, err := archive.SaveObjectBytes[withNested, xml.Format](&in)
	require.NoError(t, err)

	var loaded withNested
	require.NoError(t, archive.LoadObject[withNested, xml.Format](&loaded, archive.ByteSource(out)))
	assert.Equal(t, in, loaded)
}

// taggedPoint exercises the attribute scope, XML's one capability the
// other text backends reject outright.
type taggedPoint struct {
	ID string
	X  int32
}

func (p *taggedPoint) Serialize(c *archive.ObjectCursor) error {
	if err := c.Attr(archive.Field("id", &p.ID)); err != nil {
		return err
	}
	return c.KV(archive.Field("x", &p.X))
}

func TestAttributeRoundTrip(t *testing.T) {
	in := taggedPoint{ID: "p1", X: 5}
	out, err := archive.SaveObjectBytes[taggedPoint, xml.Format](&in)
	require.NoError(t, err)
	assert.Contains(t, string(out), `id="p1"`)

	var loaded taggedPoint
	require.NoError(t, archive.LoadObject[taggedPoint, xml.Format](&loaded, archive.ByteSource(out)))
	assert.Equal(t, in, loaded)
}

// optionalTaggedPoint binds a *string attribute, exercising Attr's
// nil-pointer handling (Save dereferences a non-nil pointer and writes
// an empty string for a nil one; Load never hands AssignPrimitive a
// pointer-kinded reflect.Value).
type optionalTaggedPoint struct {
	Label *string
	X     int32
}

func (p *optionalTaggedPoint) Serialize(c *archive.ObjectCursor) error {
	if err := c.Attr(archive.Field("label", &p.Label)); err != nil {
		return err
	}
	return c.KV(archive.Field("x", &p.X))
}

func TestOptionalAttributeRoundTrip(t *testing.T) {
	label := "widget"
	in := optionalTaggedPoint{Label: &label, X: 5}
	out, err := archive.SaveObjectBytes[optionalTaggedPoint, xml.Format](&in)
	require.NoError(t, err)
	assert.Contains(t, string(out), `label="widget"`)

	var loaded optionalTaggedPoint
	require.NoError(t, archive.LoadObject[optionalTaggedPoint, xml.Format](&loaded, archive.ByteSource(out)))
	require.NotNil(t, loaded.Label)
	assert.Equal(t, "widget", *loaded.Label)
}

// A nil pointer attribute saves without error, as an empty string
// (attributes have no null representation).
func TestOptionalAttributeNilOnSave(t *testing.T) {
	in := optionalTaggedPoint{Label: nil, X: 5}
	out, err := archive.SaveObjectBytes[optionalTaggedPoint, xml.Format](&in)
	require.NoError(t, err)
	assert.Contains(t, string(out), `label=""`)
}

// A []byte field round-trips through its base64 element text.
func TestBinaryFieldRoundTrip(t *testing.T) {
	type withBytes struct {
		Blob []byte
	}
	in := withBytes{Blob: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	out, err := archive.SaveObjectBytes[withBytes, xml.Format](&in)
	require.NoError(t, err)

	var loaded withBytes
	require.NoError(t, archive.LoadObject[withBytes, xml.Format](&loaded, archive.ByteSource(out)))
	assert.Equal(t, in.Blob, loaded.Blob)
}
