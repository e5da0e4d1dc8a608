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

package yaml_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivaas-dev/archive/archive"
	"github.com/rivaas-dev/archive/archive/yaml"
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

func TestRoundTripPoint(t *testing.T) {
	in := point{X: -7, Y: 42}
	out, err := archive.SaveObjectBytes[point, yaml.Format](&in)
	require.NoError(t, err)

	var loaded point
	require.NoError(t, archive.LoadObject[point, yaml.Format](&loaded, archive.ByteSource(out)))
	assert.Equal(t, in, loaded)
}

type withPoint struct {
	P point
}

// S2: Save with formatting re-renders a nested document at the
// requested indent width, via the struct-field reflection fallback.
func TestSaveWithFormatting(t *testing.T) {
	in := withPoint{P: point{X: -7, Y: 42}}
	out, err := archive.SaveObjectBytes[withPoint, yaml.Format](&in, archive.WithFormat(' ', 4))
	require.NoError(t, err)
	assert.Equal(t, "P:\n    x: -7\n    y: 42\n", string(out))

	var loaded withPoint
	require.NoError(t, archive.LoadObject[withPoint, yaml.Format](&loaded, archive.ByteSource(out)))
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
	err := archive.LoadObject[requiredName, yaml.Format](&out, archive.ByteSource([]byte("{}\n")))

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
	err := archive.LoadObject[requiredAge, yaml.Format](&out, archive.ByteSource([]byte("age: not a number\n")),
		archive.WithMismatchedTypesPolicy(archive.MismatchedTypesSkip))

	var verr *archive.ValidationException
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "/age", verr.Errors[0].Path)
	assert.Equal(t, int32(0), out.Age)
}

func TestOverflowInArraySkip(t *testing.T) {
	var out [2]uint8
	err := archive.LoadObject[[2]uint8, yaml.Format](&out, archive.ByteSource([]byte("- 1\n- 99999\n")),
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
	out, err := archive.SaveObjectBytes[withNested, yaml.Format](&in)
	require.NoError(t, err)

	var loaded withNested
	require.NoError(t, archive.LoadObject[withNested, yaml.Format](&loaded, archive.ByteSource(out)))
	assert.Equal(t, in, loaded)
}
