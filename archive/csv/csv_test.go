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

package csv_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivaas-dev/archive/archive"
	"github.com/rivaas-dev/archive/archive/csv"
)

type row struct {
	Name string
	Age  int32
}

func (r *row) Serialize(c *archive.ObjectCursor) error {
	if err := c.KV(archive.Field("name", &r.Name)); err != nil {
		return err
	}
	return c.KV(archive.Field("age", &r.Age))
}

// S1: a root array of flat rows round-trips through one shared header.
func TestRoundTripRows(t *testing.T) {
	in := []row{{Name: "ann", Age: 30}, {Name: "bo", Age: 41}}
	out, err := archive.SaveObjectBytes[[]row, csv.Format](&in)
	require.NoError(t, err)
	assert.Contains(t, string(out), "name,age")

	var loaded []row
	require.NoError(t, archive.LoadObject[[]row, csv.Format](&loaded, archive.ByteSource(out)))
	assert.Equal(t, in, loaded)
}

// A root-level object is rejected: CSV documents must be an array of
// rows.
func TestRootObjectRejected(t *testing.T) {
	type single struct{ Name string }
	err := archive.SaveObject[single, csv.Format](&single{Name: "ann"}, archive.ByteSink{Buf: new([]byte)})

	var serr *archive.SerializationError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, archive.KindUnsupportedEncoding, serr.Kind)
}

type requiredRow struct {
	Name string
}

func (r *requiredRow) Serialize(c *archive.ObjectCursor) error {
	return c.KV(archive.Field("name", &r.Name, archive.Required()))
}

// An empty-string column is treated as absent, so Required() fires on
// it the same as a missing key.
func TestRequiredEmptyColumn(t *testing.T) {
	var out []requiredRow
	err := archive.LoadObject[[]requiredRow, csv.Format](&out, archive.ByteSource([]byte("name\n\"\"\n")))

	var verr *archive.ValidationException
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "/0/name", verr.Errors[0].Path)
}

type requiredAge struct {
	Age int32
}

func (r *requiredAge) Serialize(c *archive.ObjectCursor) error {
	return c.KV(archive.Field("age", &r.Age, archive.Required()))
}

func TestMismatchedSkip(t *testing.T) {
	var out []requiredAge
	err := archive.LoadObject[[]requiredAge, csv.Format](&out,
		archive.ByteSource([]byte("age\nnot a number\n")),
		archive.WithMismatchedTypesPolicy(archive.MismatchedTypesSkip))

	var verr *archive.ValidationException
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "/0/age", verr.Errors[0].Path)
	assert.Equal(t, int32(0), out[0].Age)
}

func TestPlainStructRowsRoundTrip(t *testing.T) {
	type wide struct {
		A string
		B string
	}
	in := []wide{{A: "x", B: "y"}}
	out, err := archive.SaveObjectBytes[[]wide, csv.Format](&in)
	require.NoError(t, err)
	assert.Contains(t, string(out), "A,B")

	var loaded []wide
	require.NoError(t, archive.LoadObject[[]wide, csv.Format](&loaded, archive.ByteSource(out)))
	assert.Equal(t, in, loaded)
}
