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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivaas-dev/archive/archive"
	"github.com/rivaas-dev/archive/archive/json"
	"github.com/rivaas-dev/archive/internal/archiveerrors"
)

// person has no per-field Required()/Validate() extensions of its own;
// its shape is only checked by the whole-value validator.Struct pass
// below, via `validate` struct tags.
type person struct {
	Name string `validate:"required"`
	Age  int32  `validate:"gte=0,lte=150"`
}

func (p *person) Serialize(c *archive.ObjectCursor) error {
	if err := c.KV(archive.Field("name", &p.Name)); err != nil {
		return err
	}
	return c.KV(archive.Field("age", &p.Age))
}

// A StructValidator backed by go-playground/validator rejects a value
// that round-trips cleanly through the per-field archive machinery but
// violates its `validate` struct tags.
func TestStructValidatorRejectsInvalidAge(t *testing.T) {
	sv := archiveerrors.NewStructValidator()
	var out person
	err := archive.LoadObject[person, json.Format](&out, archive.ByteSource([]byte(`{"name":"Ada","age":-1}`)),
		archive.WithStructValidator(sv))
	require.Error(t, err)

	report := archiveerrors.Render(err)
	assert.Equal(t, archive.KindValidationError.String(), report.Kind)
}

// A value satisfying its validate tags loads without triggering the
// StructValidator rejection path.
func TestStructValidatorAcceptsValidValue(t *testing.T) {
	sv := archiveerrors.NewStructValidator()
	var out person
	err := archive.LoadObject[person, json.Format](&out, archive.ByteSource([]byte(`{"name":"Ada","age":36}`)),
		archive.WithStructValidator(sv))
	require.NoError(t, err)
	assert.Equal(t, "Ada", out.Name)
	assert.Equal(t, int32(36), out.Age)
}
