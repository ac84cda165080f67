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

package config

import (
	"encoding/asn1"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sassoftware/fwseal/lib/der"
	"github.com/sassoftware/fwseal/lib/pkcs7"
)

// AttributeConfig is one CMS attribute value. Exactly one of Printable, UTF8
// or Hex is set. Hex holds a complete DER encoded value.
type AttributeConfig struct {
	OID       string `yaml:"oid"`
	Printable string `yaml:"printable,omitempty"`
	UTF8      string `yaml:"utf8,omitempty"`
	Hex       string `yaml:"hex,omitempty"`
}

var attributeNames = map[string]asn1.ObjectIdentifier{
	"messageType": pkcs7.OidAttributeMessageType,
	"contentType": pkcs7.OidAttributeContentType,
	"signingTime": pkcs7.OidAttributeSigningTime,
}

// Encode returns the attribute type and the DER of its value.
func (a AttributeConfig) Encode() (asn1.ObjectIdentifier, []byte, error) {
	oid, err := ParseOID(a.OID)
	if err != nil {
		return nil, nil, err
	}
	var set int
	for _, v := range []string{a.Printable, a.UTF8, a.Hex} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, nil, errors.New("exactly one of printable, utf8 or hex must be given")
	}
	switch {
	case a.Printable != "":
		if !isPrintable(a.Printable) {
			return nil, nil, fmt.Errorf("%q is not a valid PrintableString", a.Printable)
		}
		return oid, der.Encode(der.PrintableString(a.Printable)), nil
	case a.UTF8 != "":
		return oid, der.Encode(der.UTF8String(a.UTF8)), nil
	default:
		blob, err := hex.DecodeString(strings.ReplaceAll(a.Hex, " ", ""))
		if err != nil {
			return nil, nil, fmt.Errorf("hex: %w", err)
		}
		if _, err := der.Parse(blob); err != nil {
			return nil, nil, fmt.Errorf("hex: %w", err)
		}
		return oid, blob, nil
	}
}

// AttributeList builds a CMS attribute list from config entries. Entries
// sharing an OID become one attribute with several values.
func AttributeList(list []AttributeConfig) (pkcs7.AttributeList, error) {
	var attrs pkcs7.AttributeList
	for _, a := range list {
		oid, value, err := a.Encode()
		if err != nil {
			return nil, err
		}
		if err := attrs.AddRaw(oid, value); err != nil {
			return nil, err
		}
	}
	return attrs, nil
}

// ParseOID accepts dotted decimal or one of a few attribute names.
func ParseOID(s string) (asn1.ObjectIdentifier, error) {
	if oid, ok := attributeNames[s]; ok {
		return oid, nil
	}
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid OID %q", s)
	}
	oid := make(asn1.ObjectIdentifier, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid OID %q", s)
		}
		oid[i] = n
	}
	if oid[0] > 2 || (oid[0] < 2 && oid[1] >= 40) {
		return nil, fmt.Errorf("invalid OID %q", s)
	}
	return oid, nil
}

func isPrintable(s string) bool {
	for _, c := range s {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case strings.ContainsRune(" '()+,-./:=?", c):
		default:
			return false
		}
	}
	return true
}
