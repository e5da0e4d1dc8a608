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

// White-box tests (package archive, not archive_test) so they can build
// an ObjectCursor directly via the unexported newObjectCursor, the way
// container.go itself does, without going through a real wire format.
package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivaas-dev/archive/archive/archivetest"
)

type stubPoint struct {
	X int32
	Y int32
}

func (p *stubPoint) Serialize(c *ObjectCursor) error {
	if err := c.KV(Field("x", &p.X)); err != nil {
		return err
	}
	return c.KV(Field("y", &p.Y))
}

// A value round-trips through the in-memory stub backend exactly as it
// would through a real wire format, exercising field dispatch without
// any text encoding involved.
func TestStubRoundTripPoint(t *testing.T) {
	saveScope, doc := archivetest.NewSaveScope()
	saveCtx := NewContext(NewOptions(), Save, archivetest.Format{}.Traits())

	in := stubPoint{X: -7, Y: 42}
	saveRoot, err := saveScope.OpenObject(saveCtx)
	require.NoError(t, err)
	require.NoError(t, in.Serialize(newObjectCursor(saveRoot, saveCtx)))
	require.NoError(t, saveRoot.Close(saveCtx))
	require.NoError(t, saveScope.Finalize(saveCtx))

	loadScope := archivetest.NewLoadScope(*doc)
	loadCtx := NewContext(NewOptions(), Load, archivetest.Format{}.Traits())
	loadRoot, err := loadScope.OpenObject(loadCtx)
	require.NoError(t, err)

	var out stubPoint
	require.NoError(t, out.Serialize(newObjectCursor(loadRoot, loadCtx)))
	assert.Equal(t, in, out)
}

type stubRequiredName struct {
	Name string
}

func (r *stubRequiredName) Serialize(c *ObjectCursor) error {
	return c.KV(Field("name", &r.Name, Required()))
}

// A missing required field loaded from a preset document tree (built
// directly with archivetest.Obj, bypassing any wire format entirely) is
// accumulated as a ValidationException by Context.Finalize, the same as
// it would be from a real format's decoded bytes.
func TestStubRequiredMissingFromPresetDoc(t *testing.T) {
	loadScope := archivetest.NewLoadScope(archivetest.Obj())
	loadCtx := NewContext(NewOptions(), Load, archivetest.Format{}.Traits())
	loadRoot, err := loadScope.OpenObject(loadCtx)
	require.NoError(t, err)

	var out stubRequiredName
	require.NoError(t, out.Serialize(newObjectCursor(loadRoot, loadCtx)))

	err = loadCtx.Finalize()
	require.Error(t, err)
	var verr *ValidationException
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "/name", verr.Errors[0].Path)
}

type stubWithArray struct {
	Tags []string
}

func (w *stubWithArray) Serialize(c *ObjectCursor) error {
	return c.KV(Field("tags", &w.Tags))
}

// A nested array field round-trips through the stub's array node the
// same way an object field does.
func TestStubArrayFieldRoundTrip(t *testing.T) {
	saveScope, doc := archivetest.NewSaveScope()
	saveCtx := NewContext(NewOptions(), Save, archivetest.Format{}.Traits())

	in := stubWithArray{Tags: []string{"a", "b", "c"}}
	saveRoot, err := saveScope.OpenObject(saveCtx)
	require.NoError(t, err)
	require.NoError(t, in.Serialize(newObjectCursor(saveRoot, saveCtx)))

	loadScope := archivetest.NewLoadScope(*doc)
	loadCtx := NewContext(NewOptions(), Load, archivetest.Format{}.Traits())
	loadRoot, err := loadScope.OpenObject(loadCtx)
	require.NoError(t, err)

	var out stubWithArray
	require.NoError(t, out.Serialize(newObjectCursor(loadRoot, loadCtx)))
	assert.Equal(t, in.Tags, out.Tags)
}
