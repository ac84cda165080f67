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
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"time"

	"github.com/sassoftware/fwseal/lib/der"
	"github.com/sassoftware/fwseal/lib/x509tools"
)

// SignOptions controls how SignData builds the SignerInfo.
type SignOptions struct {
	// Hash is the digest algorithm. Zero means SHA-256.
	Hash crypto.Hash
	// SigningTime, if not zero, is added as an authenticated attribute.
	SigningTime time.Time
	// AuthenticatedAttributes are added after contentType and messageDigest.
	// Caller-supplied values for those two are replaced.
	AuthenticatedAttributes AttributeList
	UnauthenticatedAttributes AttributeList
	// NoAuthenticatedAttributes signs the content digest directly.
	NoAuthenticatedAttributes bool
}

// SignData signs content of the given type with privKey. The first
// certificate must match the key. All of certs are embedded.
func SignData(contentType asn1.ObjectIdentifier, content []byte, privKey crypto.Signer, certs []*x509.Certificate, opts SignOptions) (*ContentInfoSignedData, error) {
	hash := opts.Hash
	if hash == 0 {
		hash = crypto.SHA256
	}
	if !hash.Available() {
		return nil, fmt.Errorf("%w: digest %s", ErrUnsupportedAlgorithm, hash)
	}
	digestAlg, ok := x509tools.PkixDigestAlgorithm(hash)
	if !ok {
		return nil, fmt.Errorf("%w: digest %s", ErrUnsupportedAlgorithm, hash)
	}
	pubKey := privKey.Public()
	pkeyAlg, ok := x509tools.PkixSignatureAlgorithm(pubKey, hash)
	if !ok {
		return nil, fmt.Errorf("%w: public key %T", ErrUnsupportedAlgorithm, pubKey)
	}
	if len(certs) < 1 || !x509tools.SameKey(pubKey, certs[0].PublicKey) {
		return nil, fmt.Errorf("%w: first certificate must match private key", ErrKeyMismatch)
	}
	if opts.NoAuthenticatedAttributes && len(opts.AuthenticatedAttributes) != 0 {
		return nil, errors.New("pkcs7: authenticated attributes requested but disabled")
	}
	cinfo, err := NewContentInfo(contentType, content)
	if err != nil {
		return nil, err
	}
	w := hash.New()
	w.Write(content)
	digest := w.Sum(nil)

	var attrs AttributeList
	if !opts.NoAuthenticatedAttributes {
		attrs, err = authenticatedAttributes(contentType, digest, opts)
		if err != nil {
			return nil, err
		}
		attrbytes, err := attrs.Bytes()
		if err != nil {
			return nil, err
		}
		w = hash.New()
		w.Write(attrbytes)
		digest = w.Sum(nil)
	}
	sig, err := privKey.Sign(rand.Reader, digest, hash)
	if err != nil {
		return nil, fmt.Errorf("pkcs7: signing: %w", err)
	}
	var unauth AttributeList
	if len(opts.UnauthenticatedAttributes) != 0 {
		unauth = opts.UnauthenticatedAttributes
	}
	version := 1
	if !contentType.Equal(OidData) {
		version = 3
	}
	return &ContentInfoSignedData{
		ContentType: OidSignedData,
		Content: SignedData{
			Version:                    version,
			DigestAlgorithmIdentifiers: []pkix.AlgorithmIdentifier{digestAlg},
			ContentInfo:                cinfo,
			Certificates:               MarshalCertificates(certs),
			CRLs:                       nil,
			SignerInfos: []SignerInfo{{
				Version: 1,
				IssuerAndSerialNumber: IssuerAndSerial{
					IssuerName:   asn1.RawValue{FullBytes: certs[0].RawIssuer},
					SerialNumber: certs[0].SerialNumber,
				},
				DigestAlgorithm:           digestAlg,
				AuthenticatedAttributes:   attrs,
				DigestEncryptionAlgorithm: pkeyAlg,
				EncryptedDigest:           sig,
				UnauthenticatedAttributes: unauth,
			}},
		},
	}, nil
}

func authenticatedAttributes(contentType asn1.ObjectIdentifier, digest []byte, opts SignOptions) (AttributeList, error) {
	var attrs AttributeList
	if err := attrs.Add(OidAttributeContentType, contentType); err != nil {
		return nil, err
	}
	if err := attrs.Add(OidAttributeMessageDigest, digest); err != nil {
		return nil, err
	}
	if !opts.SigningTime.IsZero() {
		if err := attrs.Add(OidAttributeSigningTime, opts.SigningTime.UTC()); err != nil {
			return nil, err
		}
	}
	for _, attr := range opts.AuthenticatedAttributes {
		switch {
		case attr.Type.Equal(OidAttributeContentType), attr.Type.Equal(OidAttributeMessageDigest):
			continue
		case attr.Type.Equal(OidAttributeSigningTime) && !opts.SigningTime.IsZero():
			continue
		}
		values, err := attr.RawValues()
		if err != nil {
			return nil, err
		}
		for _, value := range values {
			if err := attrs.AddRaw(attr.Type, value); err != nil {
				return nil, err
			}
		}
	}
	return attrs, nil
}

// MarshalCertificates packs certs into the [0] IMPLICIT field of SignedData.
func MarshalCertificates(certs []*x509.Certificate) RawCertificates {
	var buf bytes.Buffer
	for _, cert := range certs {
		buf.Write(cert.Raw)
	}
	val := asn1.RawValue{Bytes: buf.Bytes(), Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true}
	b, _ := asn1.Marshal(val)
	return RawCertificates{Raw: b}
}

func (raw RawCertificates) Parse() ([]*x509.Certificate, error) {
	var val asn1.RawValue
	if len(raw.Raw) == 0 {
		return nil, nil
	}
	if _, err := asn1.Unmarshal(raw.Raw, &val); err != nil {
		return nil, err
	}
	return x509.ParseCertificates(val.Bytes)
}

// ParseCertificates extracts the certificates from a DER SignedData, such as
// a .p7b certificate bundle.
func ParseCertificates(blob []byte) ([]*x509.Certificate, error) {
	var psd ContentInfoSignedData
	if err := der.Unmarshal(blob, &psd); err != nil {
		return nil, fmt.Errorf("pkcs7: %w", err)
	}
	if err := (ContentInfo{ContentType: psd.ContentType}).Expect(OidSignedData); err != nil {
		return nil, err
	}
	certs, err := psd.Content.Certificates.Parse()
	if err != nil {
		return nil, fmt.Errorf("pkcs7: %w", err)
	} else if len(certs) == 0 {
		return nil, errors.New("pkcs7: no certificates")
	}
	return certs, nil
}
