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

package archiveerrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivaas-dev/archive/archive"
	"github.com/rivaas-dev/archive/archive/json"
	"github.com/rivaas-dev/archive/internal/archiveerrors"
)

type requiredName struct {
	Name string
	Age  int32
}

func (r *requiredName) Serialize(c *archive.ObjectCursor) error {
	if err := c.KV(archive.Field("name", &r.Name, archive.Required())); err != nil {
		return err
	}
	return c.KV(archive.Field("age", &r.Age, archive.Required()))
}

// Render flattens a real ValidationException (two missing required
// fields) from a real LoadObject call into a sorted Fields list.
func TestRenderValidationException(t *testing.T) {
	var out requiredName
	err := archive.LoadObject[requiredName, json.Format](&out, archive.ByteSource([]byte(`{}`)))
	require.Error(t, err)

	report := archiveerrors.Render(err)
	assert.Equal(t, archive.KindValidationError.String(), report.Kind)
	require.Len(t, report.Fields, 2)
	assert.True(t, report.HasField("/age"))
	assert.True(t, report.HasField("/name"))
}

// Render classifies a real SerializationError (parse failure) with its
// Kind and Path carried through.
func TestRenderSerializationError(t *testing.T) {
	var out requiredName
	err := archive.LoadObject[requiredName, json.Format](&out, archive.ByteSource([]byte(`not json`)))
	require.Error(t, err)

	report := archiveerrors.Render(err)
	assert.Equal(t, archive.KindParsingError.String(), report.Kind)
	assert.Empty(t, report.Fields)
}

func TestRenderUnknownError(t *testing.T) {
	report := archiveerrors.Render(errors.New("boom"))
	assert.Equal(t, "", report.Kind)
	assert.Equal(t, "boom", report.Message)
}

func TestRenderNilError(t *testing.T) {
	assert.Equal(t, archiveerrors.Report{}, archiveerrors.Render(nil))
}
