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

package der

import (
	"encoding/asn1"
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

func Sequence(members ...Value) *Constructed {
	return NewConstructed(ClassUniversal, TagSequence, members...)
}

// Set returns a SET OF with members sorted into canonical DER order.
func Set(members ...Value) *Constructed {
	sorted := make([]Value, len(members))
	copy(sorted, members)
	sortValues(sorted)
	return NewConstructed(ClassUniversal, TagSet, sorted...)
}

// Explicit wraps v in a context-specific constructed tag.
func Explicit(tag int, v Value) *Constructed {
	return NewConstructed(ClassContextSpecific, tag, v)
}

// Implicit replaces the identifier of v with a context-specific tag.
func Implicit(tag int, v Value) Value {
	return Retag(v, ClassContextSpecific, tag)
}

func OctetString(b []byte) *Primitive {
	return NewPrimitive(ClassUniversal, TagOctetString, b)
}

func Null() *Primitive {
	return NewPrimitive(ClassUniversal, TagNull, nil)
}

func PrintableString(s string) *Primitive {
	return NewPrimitive(ClassUniversal, TagPrintableString, []byte(s))
}

func UTF8String(s string) *Primitive {
	return NewPrimitive(ClassUniversal, TagUTF8String, []byte(s))
}

// ObjectIdentifier encodes an OID. It fails if the OID has fewer than two
// arcs or an invalid leading arc.
func ObjectIdentifier(oid asn1.ObjectIdentifier) (*Primitive, error) {
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1ObjectIdentifier(oid)
	content, err := primitiveContent(b, cbasn1.OBJECT_IDENTIFIER)
	if err != nil {
		return nil, fmt.Errorf("der: invalid object identifier %s: %w", oid, err)
	}
	return NewPrimitive(ClassUniversal, TagOID, content), nil
}

// MustObjectIdentifier is ObjectIdentifier for OIDs known to be valid.
func MustObjectIdentifier(oid asn1.ObjectIdentifier) *Primitive {
	v, err := ObjectIdentifier(oid)
	if err != nil {
		panic(err)
	}
	return v
}

func Integer(n *big.Int) *Primitive {
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1BigInt(n)
	content, err := primitiveContent(b, cbasn1.INTEGER)
	if err != nil {
		// AddASN1BigInt only fails on nil
		panic(err)
	}
	return NewPrimitive(ClassUniversal, TagInteger, content)
}

func Int(n int64) *Primitive {
	return Integer(big.NewInt(n))
}

// strip the identifier and length that cryptobyte produced
func primitiveContent(b *cryptobyte.Builder, tag cbasn1.Tag) ([]byte, error) {
	full, err := b.Bytes()
	if err != nil {
		return nil, err
	}
	s := cryptobyte.String(full)
	var content cryptobyte.String
	if !s.ReadASN1(&content, tag) || !s.Empty() {
		return nil, ErrMalformedStructure
	}
	return content, nil
}

// AsObjectIdentifier interprets a primitive OBJECT IDENTIFIER value.
func AsObjectIdentifier(v Value) (asn1.ObjectIdentifier, error) {
	if v.Class() != ClassUniversal || v.Tag() != TagOID || v.IsConstructed() {
		return nil, fmt.Errorf("%w: expected object identifier", ErrMalformedStructure)
	}
	s := cryptobyte.String(Encode(v))
	var oid asn1.ObjectIdentifier
	if !s.ReadASN1ObjectIdentifier(&oid) {
		return nil, fmt.Errorf("%w: invalid object identifier", ErrMalformedStructure)
	}
	return oid, nil
}

// AsInteger interprets a primitive INTEGER value.
func AsInteger(v Value) (*big.Int, error) {
	if v.Class() != ClassUniversal || v.Tag() != TagInteger || v.IsConstructed() {
		return nil, fmt.Errorf("%w: expected integer", ErrMalformedStructure)
	}
	s := cryptobyte.String(Encode(v))
	n := new(big.Int)
	if !s.ReadASN1Integer(n) {
		return nil, fmt.Errorf("%w: invalid integer", ErrMalformedStructure)
	}
	return n, nil
}
