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

package archive

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeUTFStream transcodes raw into a UTF-8 Go string according to enc,
// honoring policy: ThrowError aborts with KindUtfEncodingError, Skip
// drops invalid sequences, WriteErrorMark substitutes errorMark. UTF-8
// input is validated byte-for-byte; UTF-16/32 input is transcoded via
// golang.org/x/text (UTF-16) or the rune-level codec below (UTF-32, which
// x/text does not provide a Transformer for).
func DecodeUTFStream(raw []byte, enc StreamEncoding, policy UtfEncodingErrorPolicy, errorMark rune) (string, error) {
	switch enc {
	case Utf8:
		return decodeUTF8(raw, policy, errorMark)
	case Utf16LE:
		return decodeViaTransformer(raw, unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder(), policy, errorMark)
	case Utf16BE:
		return decodeViaTransformer(raw, unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder(), policy, errorMark)
	case Utf32LE:
		return decodeUTF32(raw, false, policy, errorMark)
	case Utf32BE:
		return decodeUTF32(raw, true, policy, errorMark)
	default:
		return "", NewSerializationError(KindUnsupportedEncoding, fmt.Sprintf("unsupported stream encoding %v", enc))
	}
}

// EncodeUTFStream is the inverse of DecodeUTFStream: it renders a UTF-8
// Go string as raw bytes in the requested stream encoding.
func EncodeUTFStream(s string, enc StreamEncoding) ([]byte, error) {
	switch enc {
	case Utf8:
		return []byte(s), nil
	case Utf16LE:
		b, _, err := transform.Bytes(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder(), []byte(s))
		if err != nil {
			return nil, NewSerializationError(KindUtfEncodingError, err.Error())
		}
		return b, nil
	case Utf16BE:
		b, _, err := transform.Bytes(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder(), []byte(s))
		if err != nil {
			return nil, NewSerializationError(KindUtfEncodingError, err.Error())
		}
		return b, nil
	case Utf32LE:
		return encodeUTF32(s, false), nil
	case Utf32BE:
		return encodeUTF32(s, true), nil
	default:
		return nil, NewSerializationError(KindUnsupportedEncoding, fmt.Sprintf("unsupported stream encoding %v", enc))
	}
}

// decodeUTF8 validates raw as UTF-8, applying policy to any invalid
// sequence. Surrogate halves encoded as WTF-8 are treated as invalid —
// valid UTF-8 never contains an unpaired surrogate, so this is just
// utf8.Valid's own definition of well-formedness.
func decodeUTF8(raw []byte, policy UtfEncodingErrorPolicy, errorMark rune) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}

	var out []rune
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		if r == utf8.RuneError && size <= 1 {
			switch policy {
			case UtfThrowError:
				return "", NewSerializationError(KindUtfEncodingError, fmt.Sprintf("invalid UTF-8 byte at offset %d", i))
			case UtfSkip:
				i++
				continue
			case UtfWriteErrorMark:
				out = append(out, errorMark)
				i++
				continue
			}
		}
		out = append(out, r)
		i += size
	}
	return string(out), nil
}

// decodeViaTransformer runs raw through a golang.org/x/text Transformer
// (used for UTF-16), one invalid 2-byte code unit at a time, so a
// single bad code unit is skipped/marked per policy and decoding
// resumes with the rest of the buffer instead of discarding everything
// after the first error.
func decodeViaTransformer(raw []byte, t transform.Transformer, policy UtfEncodingErrorPolicy, errorMark rune) (string, error) {
	var out []byte
	for len(raw) > 0 {
		dst, n, err := transform.Bytes(t, raw)
		out = append(out, dst...)
		if err == nil {
			break
		}
		switch policy {
		case UtfThrowError:
			return "", NewSerializationError(KindUtfEncodingError, err.Error())
		case UtfSkip:
			// Drop just the bad code unit and resume after it.
		case UtfWriteErrorMark:
			out = append(out, []byte(string(errorMark))...)
		default:
			return "", NewSerializationError(KindUtfEncodingError, err.Error())
		}
		skip := n + 2
		if skip >= len(raw) {
			raw = nil
		} else {
			raw = raw[skip:]
		}
		t.Reset()
	}
	return string(out), nil
}

// decodeUTF32 decodes raw as a sequence of 4-byte UTF-32 code points.
// golang.org/x/text does not ship a UTF-32 Transformer, so this is a
// direct rune-level codec over the standard library's utf8 package (see
// DESIGN.md for why this one piece remains stdlib-only).
func decodeUTF32(raw []byte, bigEndian bool, policy UtfEncodingErrorPolicy, errorMark rune) (string, error) {
	if len(raw)%4 != 0 {
		if policy == UtfThrowError {
			return "", NewSerializationError(KindUtfEncodingError, "UTF-32 stream length is not a multiple of 4")
		}
		raw = raw[:len(raw)-(len(raw)%4)]
	}

	var out []rune
	for i := 0; i < len(raw); i += 4 {
		var cp uint32
		if bigEndian {
			cp = uint32(raw[i])<<24 | uint32(raw[i+1])<<16 | uint32(raw[i+2])<<8 | uint32(raw[i+3])
		} else {
			cp = uint32(raw[i]) | uint32(raw[i+1])<<8 | uint32(raw[i+2])<<16 | uint32(raw[i+3])<<24
		}
		r := rune(cp)
		if cp > utf8.MaxRune || (cp >= 0xD800 && cp <= 0xDFFF) {
			switch policy {
			case UtfThrowError:
				return "", NewSerializationError(KindUtfEncodingError, fmt.Sprintf("invalid UTF-32 code point at offset %d", i))
			case UtfSkip:
				continue
			case UtfWriteErrorMark:
				r = errorMark
			}
		}
		out = append(out, r)
	}
	return string(out), nil
}

// encodeUTF32 renders s as 4-byte UTF-32 code points.
func encodeUTF32(s string, bigEndian bool) []byte {
	out := make([]byte, 0, len(s)*4)
	for _, r := range s {
		cp := uint32(r)
		if bigEndian {
			out = append(out, byte(cp>>24), byte(cp>>16), byte(cp>>8), byte(cp))
		} else {
			out = append(out, byte(cp), byte(cp>>8), byte(cp>>16), byte(cp>>24))
		}
	}
	return out
}
