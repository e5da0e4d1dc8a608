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

// Package yaml is the YAML archive backend, built on gopkg.in/yaml.v3.
// Save mode builds a yaml.Node tree incrementally (preserving field order, unlike
// marshaling a Go map) and lets the library render it; Load mode decodes
// into a yaml.Node tree and walks it directly so scalar tags (!!int,
// !!float, !!bool, !!str) drive Loaded classification without a second
// guessing pass.
package yaml

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"strconv"

	"github.com/rivaas-dev/archive/archive"
	yamlv3 "gopkg.in/yaml.v3"
)

// Format is the archive.FormatBinding marker for the YAML backend.
type Format struct{}

var _ archive.FormatBinding = Format{}
var _ archive.Reformatter = Format{}

// Reformat re-renders the document with the indent width FormatOptions
// requests. yaml.v3's Encoder always emits with its own default indent
// unless told otherwise, so honoring PaddingCharNum means decoding the
// already-encoded bytes back into a node tree and re-encoding with
// SetIndent; PaddingChar is ignored since YAML indentation is always
// spaces. It implements archive.Reformatter.
func (Format) Reformat(compact []byte, opts archive.FormatOptions) ([]byte, error) {
	var doc yamlv3.Node
	if err := yamlv3.Unmarshal(compact, &doc); err != nil {
		return nil, archive.NewSerializationError(archive.KindParsingError, err.Error())
	}
	indent := opts.PaddingCharNum
	if indent <= 0 {
		indent = 2
	}
	var buf bytes.Buffer
	enc := yamlv3.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(&doc); err != nil {
		return nil, archive.NewSerializationError(archive.KindInputOutputError, err.Error())
	}
	if err := enc.Close(); err != nil {
		return nil, archive.NewSerializationError(archive.KindInputOutputError, err.Error())
	}
	return buf.Bytes(), nil
}

// Traits reports YAML's static properties.
func (Format) Traits() archive.Traits {
	return archive.Traits{
		Kind:             archive.KindYAML,
		PreferredKeyType: archive.KeyNarrowString,
		AcceptedKeyTypes: []archive.KeyType{archive.KeyNarrowString},
		PathSeparator:    '/',
		Binary:           false,
	}
}

// NewRootScope builds a YAML root scope. On Save, io must be an
// io.Writer; the document is emitted via yaml.Encoder once Finalize
// runs. On Load, io must be the decoded UTF-8 document text.
func (Format) NewRootScope(mode archive.Mode, ctx *archive.Context, ioArg any) (archive.RootScope, error) {
	if mode == archive.Save {
		w, ok := ioArg.(io.Writer)
		if !ok {
			return nil, archive.NewSerializationError(archive.KindInputOutputError, fmt.Sprintf("yaml.Format: Save requires an io.Writer sink, got %T", ioArg))
		}
		return &rootScope{mode: mode, w: w}, nil
	}

	text, ok := ioArg.(string)
	if !ok {
		return nil, archive.NewSerializationError(archive.KindInputOutputError, fmt.Sprintf("yaml.Format: Load requires decoded document text, got %T", ioArg))
	}
	var doc yamlv3.Node
	if err := yamlv3.Unmarshal([]byte(text), &doc); err != nil {
		return nil, archive.NewSerializationError(archive.KindParsingError, err.Error())
	}
	root := &doc
	if doc.Kind == yamlv3.DocumentNode && len(doc.Content) == 1 {
		root = doc.Content[0]
	}
	return &rootScope{mode: mode, loadNode: root}, nil
}

type rootScope struct {
	mode     archive.Mode
	w        io.Writer
	node     *yamlv3.Node // Save: the node built during traversal
	loadNode *yamlv3.Node // Load: the parsed document
}

func (r *rootScope) Mode() archive.Mode { return r.mode }

func (r *rootScope) OpenObject(ctx *archive.Context) (archive.ObjectScope, error) {
	if r.mode == archive.Save {
		n := &yamlv3.Node{Kind: yamlv3.MappingNode, Tag: "!!map"}
		r.node = n
		return &objectScope{mode: r.mode, node: n}, nil
	}
	if r.loadNode == nil || r.loadNode.Kind != yamlv3.MappingNode {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, "root YAML value is not a mapping").WithPath(ctx.Path())
	}
	return newObjectLoadScope(r.loadNode), nil
}

func (r *rootScope) OpenArray(ctx *archive.Context, size int) (archive.ArrayScope, error) {
	if r.mode == archive.Save {
		n := &yamlv3.Node{Kind: yamlv3.SequenceNode, Tag: "!!seq"}
		r.node = n
		return &arrayScope{mode: r.mode, node: n}, nil
	}
	if r.loadNode == nil || r.loadNode.Kind != yamlv3.SequenceNode {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, "root YAML value is not a sequence").WithPath(ctx.Path())
	}
	return &arrayScope{mode: r.mode, elems: r.loadNode.Content}, nil
}

func (r *rootScope) Finalize(*archive.Context) error {
	if r.mode != archive.Save {
		return nil
	}
	enc := yamlv3.NewEncoder(r.w)
	defer enc.Close()
	if err := enc.Encode(r.node); err != nil {
		return archive.NewSerializationError(archive.KindInputOutputError, err.Error())
	}
	return nil
}

// objectScope is the YAML ObjectScope, backed by a yaml.Node mapping in
// both directions: Save appends key/value node pairs to Content in
// binding order, Load reads Content pairs built by the parser.
type objectScope struct {
	mode archive.Mode
	node *yamlv3.Node // Save

	keys []string // Load: key order as parsed
	vals map[string]*yamlv3.Node
}

func newObjectLoadScope(n *yamlv3.Node) *objectScope {
	s := &objectScope{mode: archive.Load, vals: map[string]*yamlv3.Node{}}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i].Value
		s.keys = append(s.keys, k)
		s.vals[k] = n.Content[i+1]
	}
	return s
}

var _ interface {
	MapKeys(ctx *archive.Context) []string
} = (*objectScope)(nil)

func (s *objectScope) Mode() archive.Mode { return s.mode }

func (s *objectScope) HasKey(ctx *archive.Context, key string) bool {
	if s.mode == archive.Save {
		return false
	}
	_, ok := s.vals[key]
	return ok
}

func (s *objectScope) MapKeys(*archive.Context) []string {
	return append([]string(nil), s.keys...)
}

func (s *objectScope) appendKeyNode(key string, valueNode *yamlv3.Node) {
	s.node.Content = append(s.node.Content, &yamlv3.Node{Kind: yamlv3.ScalarNode, Tag: "!!str", Value: key}, valueNode)
}

func (s *objectScope) Value(ctx *archive.Context, key string, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		s.appendKeyNode(key, scalarNode(target))
		return true, nil
	}
	n, ok := s.vals[key]
	if !ok || n == nil || n.Tag == "!!null" {
		return false, nil
	}
	loaded, err := toLoaded(n)
	if err != nil {
		return false, err
	}
	return archive.AssignPrimitive(ctx, loaded, target)
}

func (s *objectScope) OpenObjectField(ctx *archive.Context, key string) (archive.ObjectScope, error) {
	if s.mode == archive.Save {
		n := &yamlv3.Node{Kind: yamlv3.MappingNode, Tag: "!!map"}
		s.appendKeyNode(key, n)
		return &objectScope{mode: s.mode, node: n}, nil
	}
	n, ok := s.vals[key]
	if !ok || n.Kind != yamlv3.MappingNode {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("key %q is not a mapping", key)).WithPath(ctx.Path())
	}
	return newObjectLoadScope(n), nil
}

func (s *objectScope) OpenArrayField(ctx *archive.Context, key string, size int) (archive.ArrayScope, error) {
	if s.mode == archive.Save {
		n := &yamlv3.Node{Kind: yamlv3.SequenceNode, Tag: "!!seq"}
		s.appendKeyNode(key, n)
		return &arrayScope{mode: s.mode, node: n}, nil
	}
	n, ok := s.vals[key]
	if !ok || n.Kind != yamlv3.SequenceNode {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, fmt.Sprintf("key %q is not a sequence", key)).WithPath(ctx.Path())
	}
	return &arrayScope{mode: s.mode, elems: n.Content}, nil
}

func (s *objectScope) OpenAttributesField(ctx *archive.Context) (archive.AttributeScope, error) {
	return yamlRejectingAttr{mode: s.mode}, nil
}

func (s *objectScope) BinaryValue(ctx *archive.Context, key string, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		s.appendKeyNode(key, &yamlv3.Node{Kind: yamlv3.ScalarNode, Tag: "!!binary", Value: encodeBinary(target.Bytes())})
		return true, nil
	}
	n, ok := s.vals[key]
	if !ok || n == nil || n.Tag == "!!null" {
		return false, nil
	}
	raw, err := decodeBinary(n.Value)
	if err != nil {
		return false, archive.NewSerializationError(archive.KindParsingError, err.Error()).WithPath(ctx.Path())
	}
	target.SetBytes(raw)
	return true, nil
}

func (s *objectScope) Close(*archive.Context) error { return nil }

// arrayScope is the YAML ArrayScope.
type arrayScope struct {
	mode archive.Mode
	node *yamlv3.Node // Save

	elems []*yamlv3.Node // Load
	pos   int
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
		s.node.Content = append(s.node.Content, scalarNode(target))
		return true, nil
	}
	if s.pos >= len(s.elems) {
		return false, nil
	}
	n := s.elems[s.pos]
	s.pos++
	if n == nil || n.Tag == "!!null" {
		return false, nil
	}
	loaded, err := toLoaded(n)
	if err != nil {
		return false, err
	}
	return archive.AssignPrimitive(ctx, loaded, target)
}

func (s *arrayScope) OpenObjectElement(ctx *archive.Context) (archive.ObjectScope, error) {
	if s.mode == archive.Save {
		n := &yamlv3.Node{Kind: yamlv3.MappingNode, Tag: "!!map"}
		s.node.Content = append(s.node.Content, n)
		return &objectScope{mode: s.mode, node: n}, nil
	}
	if s.pos >= len(s.elems) {
		return nil, archive.NewSerializationError(archive.KindOutOfRange, "sequence exhausted").WithPath(ctx.Path())
	}
	n := s.elems[s.pos]
	s.pos++
	if n.Kind != yamlv3.MappingNode {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, "element is not a mapping").WithPath(ctx.Path())
	}
	return newObjectLoadScope(n), nil
}

func (s *arrayScope) OpenArrayElement(ctx *archive.Context, size int) (archive.ArrayScope, error) {
	if s.mode == archive.Save {
		n := &yamlv3.Node{Kind: yamlv3.SequenceNode, Tag: "!!seq"}
		s.node.Content = append(s.node.Content, n)
		return &arrayScope{mode: s.mode, node: n}, nil
	}
	if s.pos >= len(s.elems) {
		return nil, archive.NewSerializationError(archive.KindOutOfRange, "sequence exhausted").WithPath(ctx.Path())
	}
	n := s.elems[s.pos]
	s.pos++
	if n.Kind != yamlv3.SequenceNode {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, "element is not a sequence").WithPath(ctx.Path())
	}
	return &arrayScope{mode: s.mode, elems: n.Content}, nil
}

func (s *arrayScope) BinaryElement(ctx *archive.Context, target reflect.Value) (bool, error) {
	if s.mode == archive.Save {
		s.node.Content = append(s.node.Content, &yamlv3.Node{Kind: yamlv3.ScalarNode, Tag: "!!binary", Value: encodeBinary(target.Bytes())})
		return true, nil
	}
	if s.pos >= len(s.elems) {
		return false, nil
	}
	n := s.elems[s.pos]
	s.pos++
	if n == nil || n.Tag == "!!null" {
		return false, nil
	}
	raw, err := decodeBinary(n.Value)
	if err != nil {
		return false, archive.NewSerializationError(archive.KindParsingError, err.Error()).WithPath(ctx.Path())
	}
	target.SetBytes(raw)
	return true, nil
}

func (s *arrayScope) Close(*archive.Context) error { return nil }

type yamlRejectingAttr struct{ mode archive.Mode }

func (r yamlRejectingAttr) Mode() archive.Mode { return r.mode }

func (r yamlRejectingAttr) Value(ctx *archive.Context, key string, target reflect.Value) (bool, error) {
	return false, archive.NewSerializationError(archive.KindUnsupportedEncoding, "YAML has no attribute scope; bind this field as a regular value instead").WithPath(ctx.Path())
}

func (r yamlRejectingAttr) Close(*archive.Context) error { return nil }

// scalarNode renders target as a yaml.Node scalar, letting the yaml.v3
// encoder choose the final tag/style (it round-trips bool/int/float/
// string correctly given a plain Go-typed Value field).
func scalarNode(target reflect.Value) *yamlv3.Node {
	if !target.IsValid() {
		return &yamlv3.Node{Kind: yamlv3.ScalarNode, Tag: "!!null", Value: "null"}
	}
	var n yamlv3.Node
	_ = n.Encode(target.Interface())
	return &n
}

// encodeBinary/decodeBinary round-trip a []byte through YAML's !!binary
// base64 scalar form.
func encodeBinary(b []byte) string {
	n := yamlv3.Node{}
	_ = n.Encode(b)
	return n.Value
}

func decodeBinary(s string) ([]byte, error) {
	n := yamlv3.Node{Kind: yamlv3.ScalarNode, Tag: "!!binary", Value: s}
	var out []byte
	if err := n.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// toLoaded classifies a scalar yaml.Node by its resolved tag into the
// Loaded primitive shape.
func toLoaded(n *yamlv3.Node) (any, error) {
	if n.Kind != yamlv3.ScalarNode {
		return nil, archive.NewSerializationError(archive.KindMismatchedTypes, "expected a scalar YAML value")
	}
	switch n.Tag {
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, archive.NewSerializationError(archive.KindParsingError, err.Error())
		}
		return b, nil
	case "!!int":
		if i, err := strconv.ParseInt(n.Value, 0, 64); err == nil {
			return i, nil
		}
		if u, err := strconv.ParseUint(n.Value, 0, 64); err == nil {
			return u, nil
		}
		return nil, archive.NewSerializationError(archive.KindParsingError, fmt.Sprintf("invalid YAML integer %q", n.Value))
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, archive.NewSerializationError(archive.KindParsingError, err.Error())
		}
		return f, nil
	case "!!binary":
		return decodeBinary(n.Value)
	default:
		return n.Value, nil
	}
}
