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

package fwbundle

import (
	"encoding/asn1"
	"fmt"

	"github.com/sassoftware/fwseal/lib/der"
	"github.com/sassoftware/fwseal/lib/pkcs7"
)

// Decompose verifies, decrypts and decompresses a sealed bundle. Every error
// is a *LayerError naming the envelope that failed.
func Decompose(blob, key []byte, opts *OpenOptions) (*Bundle, error) {
	bundle, cd, t, err := openToCompressed(blob, key, opts)
	if err != nil {
		return nil, err
	}
	payload, err := cd.Decompress(maxPayload(opts))
	t.lap(LayerCompressed, err)
	if err != nil {
		return nil, layerError(LayerCompressed, err)
	}
	bundle.Payload = payload
	return bundle, nil
}

// DecomposeTo is Decompose writing the payload into dst. The returned
// Bundle's Payload aliases dst. If dst is too small it fails with
// pkcs7.ErrOutputTooSmall.
func DecomposeTo(dst, blob, key []byte, opts *OpenOptions) (int, *Bundle, error) {
	bundle, cd, t, err := openToCompressed(blob, key, opts)
	if err != nil {
		return 0, nil, err
	}
	if limit := maxPayload(opts); len(dst) > limit {
		dst = dst[:limit]
	}
	n, err := cd.DecompressTo(dst)
	t.lap(LayerCompressed, err)
	if err != nil {
		return 0, nil, layerError(LayerCompressed, err)
	}
	bundle.Payload = dst[:n]
	return n, bundle, nil
}

// Verify checks only the signed layer, which needs no key. It returns the
// signature and the DER of the EncryptedData ContentInfo it covers.
func Verify(blob []byte, opts *OpenOptions) (pkcs7.Signature, []byte, error) {
	if opts == nil {
		opts = new(OpenOptions)
	}
	t := startTimer(opts.Observer, "verify")
	sig, inner, err := verifySigned(blob, opts)
	t.lap(LayerSigned, err)
	return sig, inner, err
}

func maxPayload(opts *OpenOptions) int {
	if opts == nil || opts.MaxPayloadSize <= 0 {
		return DefaultMaxPayloadSize
	}
	return opts.MaxPayloadSize
}

// openToCompressed peels the signed and encrypted layers and returns the
// parsed CompressedData along with a partially filled Bundle.
func openToCompressed(blob, key []byte, opts *OpenOptions) (*Bundle, *pkcs7.CompressedData, *timer, error) {
	if opts == nil {
		opts = new(OpenOptions)
	}
	t := startTimer(opts.Observer, "unseal")
	sig, encryptedDER, err := verifySigned(blob, opts)
	t.lap(LayerSigned, err)
	if err != nil {
		return nil, nil, nil, err
	}
	bundle := &Bundle{Signature: sig}

	content, err := openLayer(LayerEncrypted, encryptedDER, pkcs7.OidEncryptedData)
	if err != nil {
		t.lap(LayerEncrypted, err)
		return nil, nil, nil, err
	}
	ed := content.(*pkcs7.EncryptedData)
	bundle.UnprotectedAttributes = ed.UnprotectedAttrs
	bundle.Cipher, _ = pkcs7.CipherByOid(ed.EncryptedContentInfo.ContentEncryptionAlgorithm.Algorithm)
	if err := expectType(LayerEncrypted, ed.ContentType(), pkcs7.OidCompressedData); err != nil {
		t.lap(LayerEncrypted, err)
		return nil, nil, nil, err
	}
	compressedDER, err := ed.Decrypt(key)
	t.lap(LayerEncrypted, err)
	if err != nil {
		return nil, nil, nil, layerError(LayerEncrypted, err)
	}

	content, err = openLayer(LayerCompressed, compressedDER, pkcs7.OidCompressedData)
	if err != nil {
		return nil, nil, nil, err
	}
	cd := content.(*pkcs7.CompressedData)
	bundle.ContentType = cd.ContentType()
	if err := expectType(LayerPayload, bundle.ContentType, pkcs7.OidFirmwarePackage, pkcs7.OidData); err != nil {
		return nil, nil, nil, err
	}
	return bundle, cd, t, nil
}

func verifySigned(blob []byte, opts *OpenOptions) (pkcs7.Signature, []byte, error) {
	content, err := openLayer(LayerSigned, blob, pkcs7.OidSignedData)
	if err != nil {
		return pkcs7.Signature{}, nil, err
	}
	sd := content.(*pkcs7.SignedData)
	if err := expectType(LayerSigned, sd.ContentInfo.ContentType, pkcs7.OidEncryptedData); err != nil {
		return pkcs7.Signature{}, nil, err
	}
	sig, err := sd.Verify(nil, opts.Certificates)
	if err != nil {
		return pkcs7.Signature{}, nil, layerError(LayerSigned, err)
	}
	inner, err := sd.ContentInfo.Bytes()
	if err != nil {
		return pkcs7.Signature{}, nil, layerError(LayerSigned, err)
	}
	return sig, inner, nil
}

// openLayer checks the leading content type OID before decoding the rest so
// that a misplaced layer fails without further parsing.
func openLayer(layer string, blob []byte, expected asn1.ObjectIdentifier) (pkcs7.Content, error) {
	found, err := der.PeekObjectIdentifier(blob)
	if err != nil {
		return nil, layerError(layer, err)
	}
	if err := expectType(layer, found, expected); err != nil {
		return nil, err
	}
	_, content, err := pkcs7.ParseContentInfo(blob)
	if err != nil {
		return nil, layerError(layer, err)
	}
	return content, nil
}

func expectType(layer string, found asn1.ObjectIdentifier, expected ...asn1.ObjectIdentifier) error {
	ci := pkcs7.ContentInfo{ContentType: found}
	return layerError(layer, ci.Expect(expected...))
}

// String gives a one-line summary of an opened bundle.
func (b *Bundle) String() string {
	cipherName := "unknown"
	if b.Cipher != nil {
		cipherName = b.Cipher.Name
	}
	return fmt.Sprintf("%s payload of %d bytes, %s", pkcs7.ContentTypeName(b.ContentType), len(b.Payload), cipherName)
}
