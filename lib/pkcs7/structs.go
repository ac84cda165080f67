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
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
)

var (
	OidData          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	OidSignedData    = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}
	OidEncryptedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 6}
	// RFC 3274
	OidCompressedData  = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 1, 9}
	OidCompressionZlib = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 3, 8}
	// RFC 4108
	OidFirmwarePackage = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 1, 16}

	OidAttributeContentType   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}
	OidAttributeMessageDigest = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}
	OidAttributeSigningTime   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 5}
	// VeriSign messageType, used by SCEP and firmware bundles
	OidAttributeMessageType = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 2}
)

type ContentInfoSignedData struct {
	ContentType asn1.ObjectIdentifier
	Content     SignedData `asn1:"explicit,optional,tag:0"`
}

type SignedData struct {
	Version                    int                        `asn1:"default:1"`
	DigestAlgorithmIdentifiers []pkix.AlgorithmIdentifier `asn1:"set"`
	ContentInfo                ContentInfo                ``
	Certificates               RawCertificates            `asn1:"optional,tag:0"`
	CRLs                       []pkix.CertificateList     `asn1:"optional,tag:1"`
	SignerInfos                []SignerInfo               `asn1:"set"`
}

type RawCertificates struct {
	Raw asn1.RawContent
}

type SignerInfo struct {
	Version                   int                      `asn1:"default:1"`
	IssuerAndSerialNumber     IssuerAndSerial          ``
	DigestAlgorithm           pkix.AlgorithmIdentifier ``
	AuthenticatedAttributes   AttributeList            `asn1:"optional,set,tag:0"`
	DigestEncryptionAlgorithm pkix.AlgorithmIdentifier ``
	EncryptedDigest           []byte                   ``
	UnauthenticatedAttributes AttributeList            `asn1:"optional,set,tag:1"`
}

type IssuerAndSerial struct {
	IssuerName   asn1.RawValue
	SerialNumber *big.Int
}

type ContentInfoEncryptedData struct {
	ContentType asn1.ObjectIdentifier
	Content     EncryptedData `asn1:"explicit,optional,tag:0"`
}

// EncryptedData is RFC 5652 section 8.
type EncryptedData struct {
	Version              int
	EncryptedContentInfo EncryptedContentInfo
	UnprotectedAttrs     AttributeList `asn1:"optional,set,tag:1"`
}

type EncryptedContentInfo struct {
	ContentType                asn1.ObjectIdentifier
	ContentEncryptionAlgorithm pkix.AlgorithmIdentifier
	EncryptedContent           []byte `asn1:"optional,tag:0"`
}

type ContentInfoCompressedData struct {
	ContentType asn1.ObjectIdentifier
	Content     CompressedData `asn1:"explicit,optional,tag:0"`
}

// CompressedData is RFC 3274 section 1.1. EncapContentInfo has the same shape
// as a ContentInfo holding an OCTET STRING.
type CompressedData struct {
	Version              int
	CompressionAlgorithm pkix.AlgorithmIdentifier
	EncapContentInfo     ContentInfo
}
