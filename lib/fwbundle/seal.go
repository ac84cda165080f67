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
	"errors"

	"github.com/klauspost/compress/zlib"

	"github.com/sassoftware/fwseal/lib/der"
	"github.com/sassoftware/fwseal/lib/pkcs7"
)

// Compose compresses, encrypts and signs payload and returns the DER encoded
// SignedData ContentInfo.
func Compose(payload []byte, opts *SealOptions) ([]byte, error) {
	if opts == nil {
		return nil, errors.New("fwbundle: seal options are required")
	}
	signer := opts.Signer
	if signer == nil || signer.Leaf == nil || signer.Signer() == nil {
		return nil, errors.New("fwbundle: a signing certificate and private key are required")
	}
	ciph := opts.Cipher
	if ciph == nil {
		ciph, _ = pkcs7.CipherByOid(pkcs7.OidEncryptionAES256CBC)
	}
	contentType := opts.ContentType
	if contentType == nil {
		contentType = pkcs7.OidFirmwarePackage
	}
	level := opts.CompressionLevel
	if level == 0 {
		level = zlib.DefaultCompression
	}
	t := startTimer(opts.Observer, "seal")

	// compressed layer
	compressed, err := pkcs7.CompressLevel(contentType, payload, level)
	if err != nil {
		t.lap(LayerCompressed, err)
		return nil, layerError(LayerCompressed, err)
	}
	compressedDER, err := compressed.Marshal()
	t.lap(LayerCompressed, err)
	if err != nil {
		return nil, layerError(LayerCompressed, err)
	}

	// encrypted layer
	encrypted, err := pkcs7.Encrypt(pkcs7.OidCompressedData, compressedDER, opts.Key, ciph.Oid, opts.UnprotectedAttributes)
	if err != nil {
		t.lap(LayerEncrypted, err)
		return nil, layerError(LayerEncrypted, err)
	}
	encryptedDER, err := encrypted.Marshal()
	t.lap(LayerEncrypted, err)
	if err != nil {
		return nil, layerError(LayerEncrypted, err)
	}

	// signed layer
	signed, err := pkcs7.SignData(pkcs7.OidEncryptedData, encryptedDER, signer.Signer(), signer.Chain(), pkcs7.SignOptions{
		Hash:                      opts.Hash,
		SigningTime:               opts.SigningTime,
		AuthenticatedAttributes:   opts.SignedAttributes,
		UnauthenticatedAttributes: opts.UnsignedAttributes,
		NoAuthenticatedAttributes: opts.NoSignedAttributes,
	})
	if err != nil {
		t.lap(LayerSigned, err)
		return nil, layerError(LayerSigned, err)
	}
	signedDER, err := signed.Marshal()
	t.lap(LayerSigned, err)
	if err != nil {
		return nil, layerError(LayerSigned, err)
	}
	return signedDER, nil
}

// ComposeTo is Compose writing into dst. It fails with
// der.ErrOutputTooSmall, and writes nothing, if dst cannot hold the result.
func ComposeTo(dst, payload []byte, opts *SealOptions) (int, error) {
	blob, err := Compose(payload, opts)
	if err != nil {
		return 0, err
	}
	return der.CopyTo(dst, blob)
}
