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

// Package fwbundle seals a firmware payload in nested CMS envelopes and opens
// it again. From the outside in a bundle is SignedData, EncryptedData,
// CompressedData and finally the firmware package octets. Each layer's
// encapsulated content is the complete DER ContentInfo of the next one.
package fwbundle

import (
	"crypto"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"time"

	"github.com/sassoftware/fwseal/lib/certloader"
	"github.com/sassoftware/fwseal/lib/pkcs7"
)

// Layer names used in LayerError and by Observer.
const (
	LayerSigned     = "signed"
	LayerEncrypted  = "encrypted"
	LayerCompressed = "compressed"
	LayerPayload    = "payload"
)

// DefaultMaxPayloadSize bounds the decompressed payload unless
// OpenOptions.MaxPayloadSize says otherwise.
const DefaultMaxPayloadSize = pkcs7.DefaultMaxDecompressedSize

// LayerError wraps a failure with the name of the envelope it occurred in.
type LayerError struct {
	Layer string
	Err   error
}

func (e *LayerError) Error() string {
	return fmt.Sprintf("%s layer: %s", e.Layer, e.Err)
}

func (e *LayerError) Unwrap() error {
	return e.Err
}

func layerError(layer string, err error) error {
	if err == nil {
		return nil
	}
	return &LayerError{Layer: layer, Err: err}
}

// Observer is told how long each layer took. op is "seal", "unseal" or
// "verify". err is the layer's result.
type Observer interface {
	ObserveLayer(op, layer string, elapsed time.Duration, err error)
}

// SealOptions controls Compose.
type SealOptions struct {
	// Signer holds the signing certificate, its chain and private key.
	Signer *certloader.Certificate
	// Key is the content-encryption key. Its length must suit Cipher.
	Key []byte
	// Cipher defaults to AES-256-CBC.
	Cipher *pkcs7.Cipher
	// Hash defaults to SHA-256.
	Hash crypto.Hash
	// CompressionLevel is a zlib level. Zero means the default level.
	CompressionLevel int
	// ContentType of the payload. Defaults to id-ct-firmwarePackage.
	ContentType asn1.ObjectIdentifier

	SigningTime           time.Time
	NoSignedAttributes    bool
	SignedAttributes      pkcs7.AttributeList
	UnsignedAttributes    pkcs7.AttributeList
	UnprotectedAttributes pkcs7.AttributeList

	Observer Observer
}

// OpenOptions controls Decompose.
type OpenOptions struct {
	// Certificates are searched for the signer after those embedded in the
	// bundle.
	Certificates []*x509.Certificate
	// MaxPayloadSize limits decompression. Zero means DefaultMaxPayloadSize.
	MaxPayloadSize int

	Observer Observer
}

// Bundle is the result of opening a sealed payload.
type Bundle struct {
	Payload     []byte
	ContentType asn1.ObjectIdentifier
	Signature   pkcs7.Signature
	Cipher      *pkcs7.Cipher
	// UnprotectedAttributes come from the EncryptedData layer and are not
	// covered by the signature.
	UnprotectedAttributes pkcs7.AttributeList
}

type timer struct {
	obs   Observer
	op    string
	start time.Time
}

func startTimer(obs Observer, op string) *timer {
	return &timer{obs: obs, op: op, start: time.Now()}
}

// lap reports the time since the previous lap against layer.
func (t *timer) lap(layer string, err error) {
	if t.obs == nil {
		return
	}
	now := time.Now()
	t.obs.ObserveLayer(t.op, layer, now.Sub(t.start), err)
	t.start = now
}
