/*
 * Copyright (c) SAS Institute Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package der is a strict Distinguished Encoding Rules codec. Decoding
// rejects anything that is not canonical DER (indefinite lengths, non-minimal
// lengths, overruns, excessive nesting) so that re-encoding a decoded value
// always reproduces the input bytes exactly.
package der

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrMalformedLength    = errors.New("der: malformed length")
	ErrMalformedStructure = errors.New("der: malformed structure")
	ErrOutputTooSmall     = errors.New("der: output buffer too small")
)

// DefaultMaxDepth bounds the nesting of constructed values accepted by Decode.
const DefaultMaxDepth = 32

type Class byte

const (
	ClassUniversal       Class = 0
	ClassApplication     Class = 1
	ClassContextSpecific Class = 2
	ClassPrivate         Class = 3
)

// Universal tag numbers
const (
	TagBoolean         = 1
	TagInteger         = 2
	TagBitString       = 3
	TagOctetString     = 4
	TagNull            = 5
	TagOID             = 6
	TagUTF8String      = 12
	TagSequence        = 16
	TagSet             = 17
	TagPrintableString = 19
	TagIA5String       = 22
	TagUTCTime         = 23
	TagGeneralizedTime = 24
)

// Value is a single decoded or constructed DER element.
type Value interface {
	Class() Class
	Tag() int
	IsConstructed() bool
	// Content returns the content octets, excluding identifier and length.
	Content() []byte
	// EncodedLen returns the length in bytes of the full encoding.
	EncodedLen() int
	// Encode writes the full encoding of the value.
	Encode(w ValueWriter) error
}

// ValueWriter is the sink for Encode.
type ValueWriter interface {
	io.Writer
	io.ByteWriter
}

// SyntaxError reports where in the input a decoding failure happened. It
// unwraps to one of the package sentinels.
type SyntaxError struct {
	Offset int
	Msg    string
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s at offset %d", e.Err, e.Msg, e.Offset)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

func lengthError(offset int, msg string) error {
	return &SyntaxError{Offset: offset, Msg: msg, Err: ErrMalformedLength}
}

func structureError(offset int, msg string) error {
	return &SyntaxError{Offset: offset, Msg: msg, Err: ErrMalformedStructure}
}
