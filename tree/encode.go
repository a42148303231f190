/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrEmptyDocument is returned when decoding input that holds no tree.
var ErrEmptyDocument = errors.New("empty parse tree document")

// Marshal encodes n as JSON. In-memory and on-disk output share this
// encoding: two-space indent, no HTML escaping, trailing newline.
func Marshal(n *Node) ([]byte, error) {
	if n == nil {
		return nil, ErrEmptyDocument
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(n); err != nil {
		return nil, fmt.Errorf("encoding parse tree: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a tree previously produced by Marshal.
func Unmarshal(data []byte) (*Node, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, ErrEmptyDocument
	}
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decoding parse tree: %w", err)
	}
	return &n, nil
}

// MarshalYAML encodes the tree as a YAML document.
func MarshalYAML(n *Node) ([]byte, error) {
	if n == nil {
		return nil, ErrEmptyDocument
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return nil, fmt.Errorf("encoding parse tree: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding parse tree: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a tree produced by MarshalYAML.
func UnmarshalYAML(data []byte) (*Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}
	var n Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decoding parse tree: %w", err)
	}
	return &n, nil
}
