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

package archive_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivaas-dev/archive/archive"
)

// "AB" + one high surrogate unit with no low surrogate after it (invalid
// on its own) + "CD", as UTF-16LE code units.
var utf16leWithBadUnit = []byte{
	0x41, 0x00, // A
	0x42, 0x00, // B
	0x00, 0xD8, // unpaired surrogate, invalid
	0x43, 0x00, // C
	0x44, 0x00, // D
}

// UtfSkip drops only the one invalid code unit and keeps decoding the
// rest of the stream, rather than discarding everything after the first
// error.
func TestDecodeUTFStreamSkipResumesAfterBadUnit(t *testing.T) {
	s, err := archive.DecodeUTFStream(utf16leWithBadUnit, archive.Utf16LE, archive.UtfSkip, '?')
	require.NoError(t, err)
	assert.Equal(t, "ABCD", s)
}

// UtfWriteErrorMark substitutes the mark at the point of the bad unit
// and keeps decoding the rest of the stream.
func TestDecodeUTFStreamWriteErrorMarkResumesAfterBadUnit(t *testing.T) {
	s, err := archive.DecodeUTFStream(utf16leWithBadUnit, archive.Utf16LE, archive.UtfWriteErrorMark, '?')
	require.NoError(t, err)
	assert.Equal(t, "AB?CD", s)
}

// UtfThrowError aborts on the first invalid code unit.
func TestDecodeUTFStreamThrowError(t *testing.T) {
	_, err := archive.DecodeUTFStream(utf16leWithBadUnit, archive.Utf16LE, archive.UtfThrowError, '?')
	require.Error(t, err)
}
