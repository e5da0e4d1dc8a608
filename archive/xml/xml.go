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

// Package xml is the XML archive backend, and the only backend that
// implements a real (non-rejecting) AttributeScope: XML attributes map
// onto archive.ObjectCursor.Attr the way its element children map onto
// archive.ObjectCursor.KV. It builds on encoding/xml only — no
// third-party XML tree library is present anywhere in the example
// corpus for this format, see DESIGN.md — tokenizing eagerly into a
// small in-memory element tree on Load (encoding/xml has no generic
// "any" document decode the way encoding/json does) and, on Save,
// buffering each element's body until its Close writes the whole
// element to its parent.
//
// Every document has a single synthetic root element named "root";
// archive.LoadObject/SaveObject bind a whole Go value, not one element,
// so there is no user-supplied root tag name to reuse. A value-bearing
// element with no children, attributes, or text is ambiguous between
// "empty string" and "absent/null" at the XML token level (a
// self-closed tag and an explicit open/close pair are indistinguishable
// once tokenized), so Save marks a nil optional field with an explicit
// nil="true" attribute and Load treats that marker as "absent" rather
// than guessing from shape.
package xml

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/rivaas-dev/archive/archive"
)

var stdBase64 = base64.StdEncoding

const (
	rootTag    = "root"
	itemTag    = "item"
	nilAttr    = "nil"
)

// Format is the archive.FormatBinding marker for the XML backend.
type Format struct{}

var _ archive.FormatBinding = Format{}
var _ archive.Reformatter = Format{}

// Reformat re-indents the compact document by re-tokenizing it through
// encoding/xml's own Decoder/Encoder pair with Encoder.Indent set per
// FormatOptions' padding_char/padding_char_num. It implements
// archive.Reformatter.
func (Format) Reformat(compact []byte, opts archive.FormatOptions) ([]byte, error) {
	indent := strings.Repeat(string(opts.PaddingChar), opts.PaddingCharNum)
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", indent)
	dec := xml.NewDecoder(bytes.NewReader(compact))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, archive.NewSerializationError(archive.KindParsingError, err.Error())
		}
		if err := enc.EncodeToken(tok); err != nil {
			return nil, archive.NewSerializationError(archive.KindInputOutputError, err.Error())
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, archive.NewSerializationError(archive.KindInputOutputError, err.Error())
	}
	return buf.Bytes(), nil
}

// Traits reports XML's static properties: narrow string keys (element
// and attribute names), '/' path separator, a text (non-binary) wire
// format.
func (Format) Traits() archive.Traits {
	return archive.Traits{
		Kind:             archive.KindXML,
		PreferredKeyType: archive.KeyNarrowString,
		AcceptedKeyTypes: []archive.KeyType{archive.KeyNarrowString},
		PathSeparator:    '/',
		Binary:           false,
	}
}

// NewRootScope builds an XML root scope. On Save, io must be an
// io.Writer. On Load, io must be the decoded UTF-8 document text; it is
// tokenized eagerly into an elemNode tree.
func (Format) NewRootScope(mode archive.Mode, ctx *archive.Context, ioArg any) (archive.RootScope, error) {
	if mode == archive.Save {
		w, ok := ioArg.(io.Writer)
		if !ok {
			return nil, archive.NewSerializationError(archive.KindInputOutputError, fmt.Sprintf("xml.Format: Save requires an io.Writer sink, got %T", ioArg))
		}
		return &rootScope{mode: mode, w: w}, nil
	}

	text, ok := ioArg.(string)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindInputOutputError, fmt.Sprintf("xml.Format: Load requires decoded document text, got %T", ioArg))
	}
	root, err := parseElem(strings.NewReader(text))
	if err != nil {
		return nil, archive.NewSerializationError(archive.KindParsingError, err.Error())
	}
	return &rootScope{mode: mode, root: root}, nil
}

// elemNode is the minimal XML element tree this backend needs: ordered
// attributes, ordered children (duplicates by name preserved, since
// repeated same-name children are how array fields round-trip), and
// concatenated character data. Mixed content (text interleaved with
// child elements) is not modeled; the element is read either as a
// scalar's text or as a container of children, never both.
type elemNode struct {
	name     string
	attrs    map[string]string
	attrKeys []string
	children []*elemNode
	text     string
}

func parseElem(r io.Reader) (*elemNode, error) {
	dec := xml.NewDecoder(r)
	var root *elemNode
	var stack []*elemNode
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &elemNode{name: t.Name.Local, attrs: map[string]string{}}
			for _, a := range t.Attr {
				n.attrs[a.Name.Local] = a.Value
				n.attrKeys = append(n.attrKeys, a.Name.Local)
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			} else {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack[len(stack)-1].text = strings.TrimSpace(stack[len(stack)-1].text)
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("xml: document has no root element")
	}
	return root, nil
}

func (n *elemNode) childrenNamed(name string) []*elemNode {
	var out []*elemNode
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func (n *elemNode) childNamed(name string) (*elemNode, bool) {
	for _, c := range n.children {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

func (n *elemNode) isNil() bool {
	return n.attrs[nilAttr] == "true"
}

type rootScope struct {
	mode archive.Mode
	w    io.Writer
	root *elemNode
}

func (r *rootScope) Mode() archive.Mode { return r.mode }

func (r *rootScope) OpenObject(*archive.Context) (archive.ObjectScope, error) {
	if r.mode == archive.Save {
		return newObjectSaveScope(rootTag, r.w), nil
	}
	return newObjectLoadScope(r.root), nil
}

func (r *rootScope) OpenArray(ctx *archive.Context, size int) (archive.ArrayScope, error) {
	if r.mode == archive.Save {
		return newArraySaveScopeWrapped(r.w, rootTag, itemTag), nil
	}
	return &arrayScope{mode: archive.Load, elems: r.root.childrenNamed(itemTag)}, nil
}

func (r *rootScope) Finalize(*archive.Context) error { return nil }

// objectScope is the XML ObjectScope. Save buffers this element's body
// (child elements already written) and its collected attributes, then
// flushes the whole "<tag attrs>body</tag>" unit to dst on Close, so
// OpenAttributesField calls made after child fields still land in the
// opening tag. Load holds the matching elemNode.
type objectScope struct {
	mode archive.Mode

	// Save fields.
	tag      string
	dst      io.Writer
	body     bytes.Buffer
	attrKeys []string
	attrVals map[string]string

	// Load fields.
	elem *elemNode
}

func newObjectSaveScope(tag string, dst io.Writer) *objectScope {
	return &objectScope{mode: archive.Save, tag: tag, dst: dst, attrVals: map[string]string{}}
}

func newObjectLoadScope(elem *elemNode) *objectScope {
	return &objectScope{mode: archive.Load, elem: elem}
}

var _ interface {
	MapKeys(ctx *archive.Context) []string
} = (*objectScope)(nil)

func (s *objectScope) Mode() archive.Mode { return s.mode }

func (s *objectScope) HasKey(ctx *archive.Context, key string) bool {
	if s.mode == archive.Save {
		return false
	}
	_, ok := s.elem.childNamed(key)
	return ok
}

func (s *objectScope) MapKeys(*archive.Context) []string {
	seen := map[string]bool{}
	var keys []string
	for _, c := range s.elem.children {
		if !seen[c.name] {
			seen[c.name] = true
			keys = append(keys, c.name)
		}
	}
	return keys
}

func (s *objectScope) Value(ctx *archive.Context, key string, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		return true, writeValueElem(&s.body, key, target)
	}
	child, ok := s.elem.childNamed(key)
	if !ok || child.isNil() {
		return false, nil
	}
	loaded, err := textToLoaded(target, child.text)
	if err != nil {
		return false, err.WithPath(ctx.Path())
	}
	return archive.AssignPrimitive(ctx, loaded, target)
}

func (s *objectScope) OpenObjectField(ctx *archive.Context, key string) (archive.ObjectScope, error) {
	if s.mode == archive.Save {
		return newObjectSaveScope(key, &s.body), nil
	}
	child, ok := s.elem.childNamed(key)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("element %q absent", key)).WithPath(ctx.Path())
	}
	return newObjectLoadScope(child), nil
}

func (s *objectScope) OpenArrayField(ctx *archive.Context, key string, size int) (archive.ArrayScope, error) {
	if s.mode == archive.Save {
		return newArraySaveScopeInline(&s.body, key), nil
	}
	return &arrayScope{mode: archive.Load, elems: s.elem.childrenNamed(key)}, nil
}

// OpenAttributesField returns a scope bound to this element's attribute
// set: on Save, Value calls accumulate into attrKeys/attrVals, flushed
// into the opening tag by Close; on Load, Value reads s.elem.attrs.
func (s *objectScope) OpenAttributesField(ctx *archive.Context) (archive.AttributeScope, error) {
	return &attributeScope{mode: s.mode, owner: s, elem: s.elem}, nil
}

func (s *objectScope) BinaryValue(ctx *archive.Context, key string, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		enc := base64Encode(target.Bytes())
		return true, writeTextElem(&s.body, key, enc)
	}
	child, ok := s.elem.childNamed(key)
	if !ok || child.isNil() {
		return false, nil
	}
	raw, err := base64Decode(child.text)
	if err != nil {
		return false, archive.NewSerializationError(archive.KindParsingError, err.Error()).WithPath(ctx.Path())
	}
	target.SetBytes(raw)
	return true, nil
}

// Close flushes "<tag attrs>body</tag>" to dst (Save only).
func (s *objectScope) Close(*archive.Context) error {
	if s.mode != archive.Save {
		return nil
	}
	if err := writeOpenTag(s.dst, s.tag, s.attrKeys, s.attrVals); err != nil {
		return err
	}
	if _, err := s.dst.Write(s.body.Bytes()); err != nil {
		return ioErr(err)
	}
	return writeRaw(s.dst, "</"+s.tag+">")
}

// arrayScope is the XML ArrayScope. Elements are repeated siblings
// sharing one tag name (the common XML array convention); there is no
// enclosing wrapper unless this arrayScope is itself one element of an
// outer array (OpenArrayElement/root array), in which case it buffers
// its own body and wraps it under wrapTag on Close.
type arrayScope struct {
	mode        archive.Mode
	elementName string
	dst         io.Writer

	wrapTag string
	wrapDst io.Writer
	body    bytes.Buffer

	elems []*elemNode
	pos   int
}

func newArraySaveScopeInline(dst io.Writer, elementName string) *arrayScope {
	return &arrayScope{mode: archive.Save, elementName: elementName, dst: dst}
}

func newArraySaveScopeWrapped(wrapDst io.Writer, wrapTag, elementName string) *arrayScope {
	s := &arrayScope{mode: archive.Save, elementName: elementName, wrapTag: wrapTag, wrapDst: wrapDst}
	s.dst = &s.body
	return s
}

func (s *arrayScope) Mode() archive.Mode { return s.mode }

func (s *arrayScope) Size(*archive.Context) int {
	if s.mode == archive.Save {
		return 0
	}
	return len(s.elems)
}

func (s *arrayScope) Next(*archive.Context) bool {
	if s.mode == archive.Save {
		return true
	}
	return s.pos < len(s.elems)
}

func (s *arrayScope) Element(ctx *archive.Context, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		return true, writeValueElem(s.dst, s.elementName, target)
	}
	if s.pos >= len(s.elems) {
		return false, nil
	}
	elem := s.elems[s.pos]
	s.pos++
	if elem.isNil() {
		return false, nil
	}
	loaded, err := textToLoaded(target, elem.text)
	if err != nil {
		return false, err.WithPath(ctx.Path())
	}
	return archive.AssignPrimitive(ctx, loaded, target)
}

func (s *arrayScope) OpenObjectElement(ctx *archive.Context) (archive.ObjectScope, error) {
	if s.mode == archive.Save {
		return newObjectSaveScope(s.elementName, s.dst), nil
	}
	if s.pos >= len(s.elems) {
		return nil, archive.NewSerializationError(archive.KindOutOfRange, "array exhausted").WithPath(ctx.Path())
	}
	elem := s.elems[s.pos]
	s.pos++
	return newObjectLoadScope(elem), nil
}

func (s *arrayScope) OpenArrayElement(ctx *archive.Context, size int) (archive.ArrayScope, error) {
	if s.mode == archive.Save {
		return newArraySaveScopeWrapped(s.dst, s.elementName, itemTag), nil
	}
	if s.pos >= len(s.elems) {
		return nil, archive.NewSerializationError(archive.KindOutOfRange, "array exhausted").WithPath(ctx.Path())
	}
	elem := s.elems[s.pos]
	s.pos++
	return &arrayScope{mode: archive.Load, elems: elem.childrenNamed(itemTag)}, nil
}

func (s *arrayScope) BinaryElement(ctx *archive.Context, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		return true, writeTextElem(s.dst, s.elementName, base64Encode(target.Bytes()))
	}
	if s.pos >= len(s.elems) {
		return false, nil
	}
	elem := s.elems[s.pos]
	s.pos++
	if elem.isNil() {
		return false, nil
	}
	raw, err := base64Decode(elem.text)
	if err != nil {
		return false, archive.NewSerializationError(archive.KindParsingError, err.Error()).WithPath(ctx.Path())
	}
	target.SetBytes(raw)
	return true, nil
}

// Close flushes the buffered "<wrapTag>body</wrapTag>" unit when this
// arrayScope is itself one element of an outer array; a plain inline
// array (direct sibling elements, no wrapper) has nothing to flush.
func (s *arrayScope) Close(*archive.Context) error {
	if s.mode != archive.Save || s.wrapTag == "" {
		return nil
	}
	if err := writeRaw(s.wrapDst, "<"+s.wrapTag+">"); err != nil {
		return err
	}
	if _, err := s.wrapDst.Write(s.body.Bytes()); err != nil {
		return ioErr(err)
	}
	return writeRaw(s.wrapDst, "</"+s.wrapTag+">")
}

// attributeScope binds archive.ObjectCursor.Attr to XML attributes,
// this backend's one real (non-rejecting) AttributeScope implementation.
type attributeScope struct {
	mode  archive.Mode
	owner *objectScope
	elem  *elemNode
}

func (a *attributeScope) Mode() archive.Mode { return a.mode }

func (a *attributeScope) Value(ctx *archive.Context, key string, target reflect.Value) (bool, error) {
	if a.mode == archive.Save {
		str, err := archive.ConvertToString(currentValue(target))
		if err != nil {
			return false, archive.NewSerializationError(archive.KindMismatchedTypes, err.Error()).WithPath(ctx.Path())
		}
		if _, exists := a.owner.attrVals[key]; !exists {
			a.owner.attrKeys = append(a.owner.attrKeys, key)
		}
		a.owner.attrVals[key] = str
		return true, nil
	}
	raw, ok := a.elem.attrs[key]
	if !ok {
		return false, nil
	}
	loaded, err := textToLoaded(target, raw)
	if err != nil {
		return false, err.WithPath(ctx.Path())
	}
	return archive.AssignPrimitive(ctx, loaded, target)
}

func (a *attributeScope) Close(*archive.Context) error { return nil }

// currentValue returns target's boxed value, or "" for an invalid
// (nil-pointer) target — attributes have no null representation, so a
// nil optional attribute is written as an empty string.
func currentValue(target reflect.Value) any {
	if !target.IsValid() {
		return ""
	}
	return target.Interface()
}

// writeOpenTag writes "<tag k="v" ...>" (no trailing newline); attribute
// values are escaped the same as element text.
func writeOpenTag(w io.Writer, tag string, keys []string, vals map[string]string) error {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(tag)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteString(`="`)
		var esc bytes.Buffer
		_ = xml.EscapeText(&esc, []byte(vals[k]))
		b.Write(esc.Bytes())
		b.WriteByte('"')
	}
	b.WriteByte('>')
	return writeRaw(w, b.String())
}

// writeValueElem writes "<tag>value</tag>" or, for an invalid (nil
// pointer) target, the nil="true" marker element.
func writeValueElem(w io.Writer, tag string, target reflect.Value) error {
	if !target.IsValid() {
		return writeRaw(w, fmt.Sprintf(`<%s %s="true"></%s>`, tag, nilAttr, tag))
	}
	str, err := scalarText(target)
	if err != nil {
		return err
	}
	return writeTextElem(w, tag, str)
}

func writeTextElem(w io.Writer, tag, text string) error {
	var esc bytes.Buffer
	if err := xml.EscapeText(&esc, []byte(text)); err != nil {
		return ioErr(err)
	}
	return writeRaw(w, "<"+tag+">"+esc.String()+"</"+tag+">")
}

func writeRaw(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return ioErr(err)
	}
	return nil
}

func ioErr(err error) error {
	return archive.NewSerializationError(archive.KindInputOutputError, err.Error())
}

// scalarText renders target's current primitive value (or an enum's
// name string, already substituted by container.go's
// dispatchPrimitiveValue) as element/attribute text.
func scalarText(target reflect.Value) (string, error) {
	switch target.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(target.Bool()), nil
	case reflect.String:
		return target.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(target.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(target.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(target.Float(), 'g', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(target.Float(), 'g', -1, 64), nil
	default:
		return "", archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("cannot write %s as XML text", target.Type()))
	}
}

// textToLoaded parses raw element/attribute text into the Loaded shape
// matching target's Go kind, using the conversion facility. Text that
// does not parse as that kind is left as a string, so AssignPrimitive
// applies the mismatched-types policy to it. Enum-kinded int targets are
// left as the raw name string: AssignPrimitive's enum path resolves the
// name itself.
func textToLoaded(target reflect.Value, raw string) (any, *archive.SerializationError) {
	if target.Kind() >= reflect.Int && target.Kind() <= reflect.Int64 && archive.IsEnumKind(target.Type()) {
		return raw, nil
	}
	switch target.Kind() {
	case reflect.Bool:
		v, err := archive.ConvertTo[bool](raw)
		if err != nil {
			return convErr(err, raw)
		}
		return v, nil
	case reflect.String:
		return raw, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := archive.ConvertTo[int64](raw)
		if err != nil {
			return convErr(err, raw)
		}
		return v, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := archive.ConvertTo[uint64](raw)
		if err != nil {
			return convErr(err, raw)
		}
		return v, nil
	case reflect.Float32, reflect.Float64:
		v, err := archive.ConvertTo[float64](raw)
		if err != nil {
			return convErr(err, raw)
		}
		return v, nil
	default:
		return raw, nil
	}
}

// convErr handles a conversion error from the archive package's
// sentinel-wrapped errors: ErrConvOutOfRange becomes a KindOverflow
// SerializationError; ErrInvalidArgument/ErrConversionFailed hand raw on
// as a string, so AssignPrimitive applies the mismatched-types policy.
func convErr(err error, raw string) (any, *archive.SerializationError) {
	if errors.Is(err, archive.ErrConvOutOfRange) {
		return nil, archive.NewSerializationError(archive.KindOverflow, fmt.Sprintf("%q: %v", raw, err))
	}
	return raw, nil
}

func base64Encode(b []byte) string {
	return stdBase64.EncodeToString(b)
}

func base64Decode(s string) ([]byte, error) {
	return stdBase64.DecodeString(s)
}
