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

package msgpack_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivaas-dev/archive/archive"
	"github.com/rivaas-dev/archive/archive/msgpack"
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

// S1: MessagePack round-trip of a point, map-header-then-body framing.
func TestRoundTripPoint(t *testing.T) {
	in := point{X: -7, Y: 42}
	out, err := archive.SaveObjectBytes[point, msgpack.Format](&in)
	require.NoError(t, err)

	var loaded point
	require.NoError(t, archive.LoadObject[point, msgpack.Format](&loaded, archive.ByteSource(out)))
	assert.Equal(t, in, loaded)
}

type requiredName struct {
	Name string
}

func (r *requiredName) Serialize(c *archive.ObjectCursor) error {
	return c.KV(archive.Field("name", &r.Name, archive.Required()))
}

func TestRequiredMissing(t *testing.T) {
	empty, err := archive.SaveObjectBytes[struct{}, msgpack.Format](&struct{}{})
	require.NoError(t, err)

	var out requiredName
	err = archive.LoadObject[requiredName, msgpack.Format](&out, archive.ByteSource(empty))

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

type stringAge struct {
	Age string
}

func (r *stringAge) Serialize(c *archive.ObjectCursor) error {
	return c.KV(archive.Field("age", &r.Age))
}

// S4: a mismatched-type field (string wire value against an int32
// target) stays at its zero value under Skip and throws under the
// default ThrowError policy.
func TestMismatchedSkip(t *testing.T) {
	encoded, err := archive.SaveObjectBytes[stringAge, msgpack.Format](&stringAge{Age: "not a number"})
	require.NoError(t, err)

	var out requiredAge
	err = archive.LoadObject[requiredAge, msgpack.Format](&out, archive.ByteSource(encoded),
		archive.WithMismatchedTypesPolicy(archive.MismatchedTypesSkip))

	var verr *archive.ValidationException
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "/age", verr.Errors[0].Path)
	assert.Equal(t, int32(0), out.Age)
}

func TestMismatchedThrow(t *testing.T) {
	encoded, err := archive.SaveObjectBytes[stringAge, msgpack.Format](&stringAge{Age: "not a number"})
	require.NoError(t, err)

	var out requiredAge
	err = archive.LoadObject[requiredAge, msgpack.Format](&out, archive.ByteSource(encoded))

	var serr *archive.SerializationError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, archive.KindMismatchedTypes, serr.Kind)
}

// S6: overflow in a fixed-size array under ThrowError fails at the
// offending index; under Skip, earlier elements still apply.
func TestOverflowInArray(t *testing.T) {
	in := [2]int32{1, 99999}
	encoded, err := archive.SaveObjectBytes[[2]int32, msgpack.Format](&in)
	require.NoError(t, err)

	err = archive.LoadObject[[2]uint8, msgpack.Format](new([2]uint8), archive.ByteSource(encoded))
	var serr *archive.SerializationError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, archive.KindOverflow, serr.Kind)
	assert.Equal(t, "/1", serr.Path)

	var out [2]uint8
	err = archive.LoadObject[[2]uint8, msgpack.Format](&out, archive.ByteSource(encoded),
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
	out, err := archive.SaveObjectBytes[withNested, msgpack.Format](&in)
	require.NoError(t, err)

	var loaded withNested
	require.NoError(t, archive.LoadObject[withNested, msgpack.Format](&loaded, archive.ByteSource(out)))
	assert.Equal(t, in, loaded)
}

func TestBinaryFieldRoundTrip(t *testing.T) {
	type withBytes struct {
		Blob []byte
	}
	in := withBytes{Blob: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	out, err := archive.SaveObjectBytes[withBytes, msgpack.Format](&in)
	require.NoError(t, err)

	var loaded withBytes
	require.NoError(t, archive.LoadObject[withBytes, msgpack.Format](&loaded, archive.ByteSource(out)))
	assert.Equal(t, in.Blob, loaded.Blob)
}
