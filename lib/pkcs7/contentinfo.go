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

package pkcs7

import (
	"encoding/asn1"
	"fmt"

	"github.com/sassoftware/fwseal/lib/der"
)

// ContentInfo is a content type OID followed by an optional [0] EXPLICIT
// content. It is used both as the outer wrapper of a message and as the
// EncapsulatedContentInfo inside SignedData and CompressedData.
type ContentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"optional"`
}

// NewContentInfo wraps content, which is either a byte slice to be stored as
// an OCTET STRING or a structure to be marshalled. A nil content produces a
// detached ContentInfo.
func NewContentInfo(contentType asn1.ObjectIdentifier, content interface{}) (ci ContentInfo, err error) {
	ci.ContentType = contentType
	if content == nil {
		return ci, nil
	}
	var value []byte
	switch c := content.(type) {
	case []byte:
		value = der.Encode(der.OctetString(c))
	default:
		value, err = der.Marshal(content)
		if err != nil {
			return ci, err
		}
	}
	ci.Content = asn1.RawValue{
		Class:      asn1.ClassContextSpecific,
		Tag:        0,
		IsCompound: true,
		Bytes:      value,
	}
	return ci, nil
}

// Bytes returns the octets of an OCTET STRING content, or nil if the content
// is absent.
func (ci ContentInfo) Bytes() ([]byte, error) {
	if len(ci.Content.Bytes) == 0 {
		return nil, nil
	}
	var value []byte
	if err := ci.Unmarshal(&value); err != nil {
		return nil, err
	}
	return value, nil
}

// Unmarshal decodes a structured content into dest.
func (ci ContentInfo) Unmarshal(dest interface{}) error {
	if len(ci.Content.Bytes) == 0 {
		return ErrNoContent
	}
	if ci.Content.Class != asn1.ClassContextSpecific || ci.Content.Tag != 0 || !ci.Content.IsCompound {
		return fmt.Errorf("pkcs7: %w: content is not [0] EXPLICIT", der.ErrMalformedStructure)
	}
	return der.Unmarshal(ci.Content.Bytes, dest)
}

// Expect fails with a ContentTypeError if the content type is not one of
// those given.
func (ci ContentInfo) Expect(types ...asn1.ObjectIdentifier) error {
	for _, t := range types {
		if ci.ContentType.Equal(t) {
			return nil
		}
	}
	return &ContentTypeError{Expected: types[0], Found: ci.ContentType}
}

func (ci ContentInfo) Marshal() ([]byte, error) {
	return der.Marshal(ci)
}

func (ci ContentInfoSignedData) Marshal() ([]byte, error) {
	return der.Marshal(ci)
}

func (ci ContentInfoEncryptedData) Marshal() ([]byte, error) {
	return der.Marshal(ci)
}

func (ci ContentInfoCompressedData) Marshal() ([]byte, error) {
	return der.Marshal(ci)
}

// Content is the decoded body of a ContentInfo. The set of implementations is
// closed: Data, *SignedData, *EncryptedData and *CompressedData.
type Content interface {
	isContent()
}

// Data holds the octets of an id-data or id-ct-firmwarePackage content.
type Data []byte

func (Data) isContent()            {}
func (*SignedData) isContent()     {}
func (*EncryptedData) isContent()  {}
func (*CompressedData) isContent() {}

// ParseContentInfo decodes a DER ContentInfo and dispatches on its content
// type. Unknown types fail with ErrUnexpectedContentType.
func ParseContentInfo(blob []byte) (ContentInfo, Content, error) {
	var ci ContentInfo
	if err := der.Unmarshal(blob, &ci); err != nil {
		return ci, nil, fmt.Errorf("pkcs7: parsing ContentInfo: %w", err)
	}
	content, err := ci.Decode()
	return ci, content, err
}

// Decode interprets the content according to the content type.
func (ci ContentInfo) Decode() (Content, error) {
	switch {
	case ci.ContentType.Equal(OidData), ci.ContentType.Equal(OidFirmwarePackage):
		b, err := ci.Bytes()
		if err != nil {
			return nil, err
		}
		return Data(b), nil
	case ci.ContentType.Equal(OidSignedData):
		sd := new(SignedData)
		if err := ci.Unmarshal(sd); err != nil {
			return nil, fmt.Errorf("pkcs7: parsing SignedData: %w", err)
		}
		return sd, nil
	case ci.ContentType.Equal(OidEncryptedData):
		ed := new(EncryptedData)
		if err := ci.Unmarshal(ed); err != nil {
			return nil, fmt.Errorf("pkcs7: parsing EncryptedData: %w", err)
		}
		return ed, nil
	case ci.ContentType.Equal(OidCompressedData):
		cd := new(CompressedData)
		if err := ci.Unmarshal(cd); err != nil {
			return nil, fmt.Errorf("pkcs7: parsing CompressedData: %w", err)
		}
		return cd, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedContentType, ci.ContentType)
	}
}
