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
	"bytes"
	"fmt"
	"io"
	"os"
	"reflect"
)

// Format is the constraint every archive/<format> package's exported
// marker type satisfies (json.Format, yaml.Format, xml.Format,
// msgpack.Format, csv.Format): a zero-sized value advertising the
// backend's Traits and constructing root scopes bound to one I/O
// endpoint.
type Format interface {
	FormatBinding
}

// Source is the input half of the Source/Sink union; exactly one of
// ByteSource or StreamSource should be used per call.
type Source interface{ isSource() }

// ByteSource reads from an in-memory byte slice.
type ByteSource []byte

func (ByteSource) isSource() {}

// StreamSource reads from an io.Reader, consumed fully before parsing
// begins (every backend in this module parses eagerly or tokenizes a
// fully-buffered input; true streaming parse is out of scope).
type StreamSource struct{ io.Reader }

func (StreamSource) isSource() {}

// Sink is the output half of the Source/Sink union.
type Sink interface{ isSink() }

// ByteSink collects output into *Buf, replacing its previous contents.
type ByteSink struct{ Buf *[]byte }

func (ByteSink) isSink() {}

// StreamSink writes output to an io.Writer.
type StreamSink struct{ io.Writer }

func (StreamSink) isSink() {}

// LoadObject parses src (per backend F) into *v, applying opts. Returns
// a *SerializationError for a structural/conversion failure or a
// *ValidationException if one or more fields failed validation.
func LoadObject[T any, F Format](v *T, src Source, opts ...Option) error {
	var binding F
	fb := any(binding).(FormatBinding)

	raw, err := readSource(src)
	if err != nil {
		return NewSerializationError(KindInputOutputError, err.Error())
	}

	options := NewOptions(opts...)
	traits := fb.Traits()
	ctx := NewContext(options, Load, traits)
	options.Logger().Debug("archive: load begin", "format", traits.Kind.String())

	// Binary formats (MsgPack) carry their own framing and must never be
	// run through the text stream's UTF transcoding; only text formats
	// (JSON/XML/YAML/CSV) opt into it.
	var source any = raw
	if !traits.Binary {
		decoded, err := DecodeUTFStream(raw, options.StreamOptions().Encoding, options.UtfEncodingErrorPolicy(), options.ErrorMark())
		if err != nil {
			return err
		}
		source = decoded
	}

	root, err := fb.NewRootScope(Load, ctx, source)
	if err != nil {
		return err
	}

	if err := loadRoot(ctx, root, reflect.ValueOf(v).Elem()); err != nil {
		return err
	}
	if err := root.Finalize(ctx); err != nil {
		return err
	}
	if err := ctx.Finalize(); err != nil {
		return err
	}
	if err := runStructValidator(options, v); err != nil {
		return err
	}
	options.Logger().Debug("archive: load end")
	return nil
}

// SaveObject serializes *v (per backend F) into sink, applying opts.
func SaveObject[T any, F Format](v *T, sink Sink, opts ...Option) error {
	var binding F
	fb := any(binding).(FormatBinding)

	options := NewOptions(opts...)
	traits := fb.Traits()
	ctx := NewContext(options, Save, traits)
	options.Logger().Debug("archive: save begin", "format", traits.Kind.String())

	var buf bytes.Buffer
	root, err := fb.NewRootScope(Save, ctx, &buf)
	if err != nil {
		return err
	}

	if err := saveRoot(ctx, root, reflect.ValueOf(v).Elem()); err != nil {
		return err
	}
	if err := root.Finalize(ctx); err != nil {
		return err
	}
	if err := ctx.Finalize(); err != nil {
		return err
	}

	out := buf.Bytes()
	if options.FormatOptions().EnableFormat {
		if rf, ok := fb.(Reformatter); ok {
			out, err = rf.Reformat(out, options.FormatOptions())
			if err != nil {
				return err
			}
		}
	}
	if !traits.Binary {
		out, err = EncodeUTFStream(string(out), options.StreamOptions().Encoding)
		if err != nil {
			return err
		}
		if options.StreamOptions().WriteBOM {
			out = append(bomFor(options.StreamOptions().Encoding), out...)
		}
	}

	options.Logger().Debug("archive: save end")
	return writeSink(sink, out)
}

// SaveObjectBytes is SaveObject without a caller-supplied Sink.
func SaveObjectBytes[T any, F Format](v *T, opts ...Option) ([]byte, error) {
	var out []byte
	if err := SaveObject[T, F](v, ByteSink{Buf: &out}, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadObjectFromFile reads path and loads it into *v.
func LoadObjectFromFile[T any, F Format](v *T, path string, opts ...Option) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewSerializationError(KindInputOutputError, err.Error())
	}
	return LoadObject[T, F](v, ByteSource(data), opts...)
}

// SaveObjectToFile serializes *v and writes it to path. If overwrite is
// false and path already exists, it fails with KindInputOutputError
// rather than silently clobbering the caller's file.
func SaveObjectToFile[T any, F Format](v *T, path string, overwrite bool, opts ...Option) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return NewSerializationError(KindInputOutputError, err.Error())
	}
	defer f.Close()
	return SaveObject[T, F](v, StreamSink{Writer: f}, opts...)
}

func readSource(src Source) ([]byte, error) {
	switch s := src.(type) {
	case ByteSource:
		return []byte(s), nil
	case StreamSource:
		return io.ReadAll(s.Reader)
	default:
		return nil, fmt.Errorf("archive: unsupported Source %T", src)
	}
}

func writeSink(sink Sink, data []byte) error {
	switch s := sink.(type) {
	case ByteSink:
		*s.Buf = data
		return nil
	case StreamSink:
		_, err := s.Writer.Write(data)
		if err != nil {
			return NewSerializationError(KindInputOutputError, err.Error())
		}
		return nil
	default:
		return fmt.Errorf("archive: unsupported Sink %T", sink)
	}
}

func bomFor(enc StreamEncoding) []byte {
	switch enc {
	case Utf16LE:
		return []byte{0xFF, 0xFE}
	case Utf16BE:
		return []byte{0xFE, 0xFF}
	case Utf32LE:
		return []byte{0xFF, 0xFE, 0x00, 0x00}
	case Utf32BE:
		return []byte{0x00, 0x00, 0xFE, 0xFF}
	default:
		return []byte{0xEF, 0xBB, 0xBF}
	}
}

// loadRoot and saveRoot dispatch the top-level value, which may be
// object-shaped (the common case: a struct), array-shaped (a slice or
// fixed array document), or a non-set map used as the whole document.
func loadRoot(ctx *Context, root RootScope, target reflect.Value) error {
	switch target.Kind() {
	case reflect.Struct:
		obj, err := root.OpenObject(ctx)
		if err != nil {
			return err
		}
		cursor := newObjectCursor(obj, ctx)
		if ser, ok := target.Addr().Interface().(Serializable); ok {
			if err := ser.Serialize(cursor); err != nil {
				return err
			}
		} else if err := serializeStructFields(ctx, cursor, target); err != nil {
			return err
		}
		return obj.Close(ctx)

	case reflect.Map:
		obj, err := root.OpenObject(ctx)
		if err != nil {
			return err
		}
		if err := loadMapFields(ctx, obj, target); err != nil {
			return err
		}
		return obj.Close(ctx)

	case reflect.Slice, reflect.Array:
		arr, err := root.OpenArray(ctx, 0)
		if err != nil {
			return err
		}
		if target.Kind() == reflect.Slice {
			if err := loadSliceElements(ctx, arr, target); err != nil {
				return err
			}
		} else {
			i := 0
			for ; i < target.Len() && arr.Next(ctx); i++ {
				ctx.PushIndex(i)
				_, err := dispatchArrayElement(ctx, arr, target.Index(i))
				ctx.Pop()
				if err != nil {
					return err
				}
			}
			if i < target.Len() {
				return NewSerializationError(KindOutOfRange, "root array is shorter than the fixed-size destination")
			}
		}
		return arr.Close(ctx)

	default:
		return NewSerializationError(KindMismatchedTypes, fmt.Sprintf("unsupported root value kind %s", target.Kind()))
	}
}

func saveRoot(ctx *Context, root RootScope, target reflect.Value) error {
	switch target.Kind() {
	case reflect.Struct:
		obj, err := root.OpenObject(ctx)
		if err != nil {
			return err
		}
		cursor := newObjectCursor(obj, ctx)
		if ser, ok := target.Addr().Interface().(Serializable); ok {
			if err := ser.Serialize(cursor); err != nil {
				return err
			}
		} else if err := serializeStructFields(ctx, cursor, target); err != nil {
			return err
		}
		return obj.Close(ctx)

	case reflect.Map:
		obj, err := root.OpenObject(ctx)
		if err != nil {
			return err
		}
		if err := saveMapFields(ctx, obj, target); err != nil {
			return err
		}
		return obj.Close(ctx)

	case reflect.Slice, reflect.Array:
		arr, err := root.OpenArray(ctx, target.Len())
		if err != nil {
			return err
		}
		for i := 0; i < target.Len(); i++ {
			ctx.PushIndex(i)
			_, err := dispatchArrayElement(ctx, arr, target.Index(i))
			ctx.Pop()
			if err != nil {
				return err
			}
		}
		return arr.Close(ctx)

	default:
		return NewSerializationError(KindMismatchedTypes, fmt.Sprintf("unsupported root value kind %s", target.Kind()))
	}
}
