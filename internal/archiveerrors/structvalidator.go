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

package archiveerrors

import (
	"github.com/go-playground/validator/v10"

	"github.com/rivaas-dev/archive/archive"
)

// StructValidator adapts github.com/go-playground/validator/v10 to
// archive.StructValidator, so a loaded value's `validate:"..."` struct
// tags are checked once the per-field KeyValue validators and refiners
// have all run.
type StructValidator struct {
	v *validator.Validate
}

var _ archive.StructValidator = (*StructValidator)(nil)

// NewStructValidator builds a StructValidator backed by a fresh
// validator.Validate instance.
func NewStructValidator() *StructValidator {
	return &StructValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate runs validator.Validate.Struct against v, which must be a
// struct or a pointer to one; any other shape is rejected by the
// underlying library with its own error.
func (s *StructValidator) Validate(v any) error {
	return s.v.Struct(v)
}
