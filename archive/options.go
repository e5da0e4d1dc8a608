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

// MismatchedTypesPolicy controls what happens when a loaded value's kind
// is incompatible with the target field.
type MismatchedTypesPolicy int

const (
	// MismatchedTypesThrowError aborts the operation with KindMismatchedTypes.
	MismatchedTypesThrowError MismatchedTypesPolicy = iota
	// MismatchedTypesSkip leaves the field untouched and reports "not loaded".
	MismatchedTypesSkip
)

// OverflowNumberPolicy controls what happens when a numeric value does
// not fit the target numeric range.
type OverflowNumberPolicy int

const (
	// OverflowNumberThrowError aborts the operation with KindOverflow.
	OverflowNumberThrowError OverflowNumberPolicy = iota
	// OverflowNumberSkip leaves the field untouched and reports "not loaded".
	OverflowNumberSkip
)

// UtfEncodingErrorPolicy controls what happens on an invalid UTF sequence
// during encode or decode.
type UtfEncodingErrorPolicy int

const (
	// UtfThrowError aborts the operation with KindUtfEncodingError.
	UtfThrowError UtfEncodingErrorPolicy = iota
	// UtfSkip drops the invalid sequence and continues.
	UtfSkip
	// UtfWriteErrorMark substitutes the error mark (DefaultErrorMark
	// unless set with WithErrorMark) and continues.
	UtfWriteErrorMark
)

// DefaultErrorMark is the marker substituted for an invalid UTF sequence
// under UtfWriteErrorMark, a Unicode box-drawing replacement character.
const DefaultErrorMark = '�'

// FormatOptions controls pretty-printing for text formats that support
// it (JSON, XML, YAML). Binary/flat formats (MsgPack, CSV) ignore it.
type FormatOptions struct {
	EnableFormat  bool
	PaddingChar   rune
	PaddingCharNum int
}

// StreamEncoding is the byte encoding used for stream Sink/Source I/O.
type StreamEncoding int

const (
	Utf8 StreamEncoding = iota
	Utf16LE
	Utf16BE
	Utf32LE
	Utf32BE
)

// StreamOptions controls stream-level byte encoding.
type StreamOptions struct {
	Encoding StreamEncoding
	WriteBOM bool
}

// Logger is the minimal structured-logging surface Options.Logger
// accepts, compatible with *slog.Logger's method set so callers can pass
// one directly. Grounded in rivaas.dev/logging's Logger interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// StructValidator validates an entire bound value after a Load
// completes, independent of the per-field KeyValue validators. This is
// the optional whole-object hook, e.g. backed by
// github.com/go-playground/validator/v10's struct-tag validation.
type StructValidator interface {
	Validate(v any) error
}

// Options is the immutable configuration for one or more serialization
// operations. Build one with NewOptions and the With* functional options
// below; the zero value is never used directly by callers.
type Options struct {
	mismatchedTypesPolicy MismatchedTypesPolicy
	overflowNumberPolicy  OverflowNumberPolicy
	utfEncodingErrorPolicy UtfEncodingErrorPolicy
	errorMark              rune
	validationMaxErrors    uint

	formatOptions FormatOptions
	streamOptions StreamOptions

	logger          Logger
	structValidator StructValidator
}

// Option configures an Options value.
type Option func(*Options)

// DefaultOptions returns the baseline configuration: ThrowError for
// mismatched types, overflow, and UTF errors; unbounded validation error
// accumulation; compact (unformatted) output; UTF-8 streams without BOM.
func DefaultOptions() *Options {
	return &Options{
		mismatchedTypesPolicy:  MismatchedTypesThrowError,
		overflowNumberPolicy:   OverflowNumberThrowError,
		utfEncodingErrorPolicy: UtfThrowError,
		errorMark:              DefaultErrorMark,
		validationMaxErrors:    0,
		formatOptions:          FormatOptions{},
		streamOptions:          StreamOptions{Encoding: Utf8},
		logger:                 noopLogger{},
	}
}

// NewOptions builds an Options from DefaultOptions plus the given
// functional options, applied in order.
func NewOptions(opts ...Option) *Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithMismatchedTypesPolicy sets the mismatched-type handling policy.
func WithMismatchedTypesPolicy(p MismatchedTypesPolicy) Option {
	return func(o *Options) { o.mismatchedTypesPolicy = p }
}

// WithOverflowNumberPolicy sets the numeric-overflow handling policy.
func WithOverflowNumberPolicy(p OverflowNumberPolicy) Option {
	return func(o *Options) { o.overflowNumberPolicy = p }
}

// WithUtfEncodingErrorPolicy sets the UTF decode/encode error policy.
func WithUtfEncodingErrorPolicy(p UtfEncodingErrorPolicy) Option {
	return func(o *Options) { o.utfEncodingErrorPolicy = p }
}

// WithErrorMark overrides DefaultErrorMark for UtfWriteErrorMark.
func WithErrorMark(r rune) Option {
	return func(o *Options) { o.errorMark = r }
}

// WithValidationMaxErrors bounds the number of accumulated validation
// errors before the operation aborts early. 0 means unbounded.
func WithValidationMaxErrors(n uint) Option {
	return func(o *Options) { o.validationMaxErrors = n }
}

// WithFormat enables pretty-printing with the given padding character
// repeated padCharNum times per indent level.
func WithFormat(padChar rune, padCharNum int) Option {
	return func(o *Options) {
		o.formatOptions = FormatOptions{EnableFormat: true, PaddingChar: padChar, PaddingCharNum: padCharNum}
	}
}

// WithStreamEncoding sets the stream byte encoding and whether a BOM is
// written on Save.
func WithStreamEncoding(enc StreamEncoding, writeBOM bool) Option {
	return func(o *Options) { o.streamOptions = StreamOptions{Encoding: enc, WriteBOM: writeBOM} }
}

// WithLogger installs a structured logger; nil restores the no-op
// logger rather than panicking on first use.
func WithLogger(l Logger) Option {
	return func(o *Options) {
		if l == nil {
			l = noopLogger{}
		}
		o.logger = l
	}
}

// WithStructValidator installs a whole-value validator run once, after a
// Load completes and before the top-level entry point returns.
func WithStructValidator(v StructValidator) Option {
	return func(o *Options) { o.structValidator = v }
}

// MismatchedTypesPolicy returns the configured policy.
func (o *Options) MismatchedTypesPolicy() MismatchedTypesPolicy { return o.mismatchedTypesPolicy }

// OverflowNumberPolicy returns the configured policy.
func (o *Options) OverflowNumberPolicy() OverflowNumberPolicy { return o.overflowNumberPolicy }

// UtfEncodingErrorPolicy returns the configured policy.
func (o *Options) UtfEncodingErrorPolicy() UtfEncodingErrorPolicy { return o.utfEncodingErrorPolicy }

// ErrorMark returns the configured UTF error-substitution rune.
func (o *Options) ErrorMark() rune { return o.errorMark }

// ValidationMaxErrors returns the configured cap, 0 meaning unbounded.
func (o *Options) ValidationMaxErrors() uint { return o.validationMaxErrors }

// FormatOptions returns the configured pretty-print settings.
func (o *Options) FormatOptions() FormatOptions { return o.formatOptions }

// StreamOptions returns the configured stream encoding settings.
func (o *Options) StreamOptions() StreamOptions { return o.streamOptions }

// Logger returns the configured logger (never nil).
func (o *Options) Logger() Logger { return o.logger }

// StructValidator returns the configured whole-value validator, or nil.
func (o *Options) StructValidator() StructValidator { return o.structValidator }
