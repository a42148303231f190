/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package source turns raw file bytes into the UTF-8 text the grammar
// compiler and the parse engine operate on.
package source

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrInvalidUTF8 is returned for input that is neither BOM-marked UTF-16
// nor valid UTF-8.
var ErrInvalidUTF8 = errors.New("input is not valid UTF-8")

// Decode converts file contents to text. A UTF-8 byte order mark is
// stripped, BOM-marked UTF-16 (either endianness) is transcoded, and anything
// else must already be valid UTF-8.
func Decode(data []byte) (string, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return "", fmt.Errorf("decoding input: %w", err)
	}
	if !utf8.Valid(out) {
		return "", ErrInvalidUTF8
	}
	return string(out), nil
}
