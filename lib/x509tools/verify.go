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

package x509tools

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"fmt"
)

var ErrBadSignature = errors.New("signature verification failed")

// Verify checks a signature over a precomputed digest. RSA signatures are
// PKCS#1 v1.5 and ECDSA signatures are ASN.1 encoded.
func Verify(pub crypto.PublicKey, hash crypto.Hash, digest, sig []byte) error {
	switch pub := pub.(type) {
	case *rsa.PublicKey:
		if err := rsa.VerifyPKCS1v15(pub, hash, digest, sig); err != nil {
			return ErrBadSignature
		}
		return nil
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(pub, digest, sig) {
			return ErrBadSignature
		}
		return nil
	default:
		return fmt.Errorf("unsupported public key type %T", pub)
	}
}

// KeyType returns "rsa" or "ecdsa" for supported public or private keys.
func KeyType(key any) string {
	switch key.(type) {
	case *rsa.PublicKey, *rsa.PrivateKey:
		return "rsa"
	case *ecdsa.PublicKey, *ecdsa.PrivateKey:
		return "ecdsa"
	default:
		return ""
	}
}

// SameKey returns true if both keys have the same public part. Either side
// may be a private key.
func SameKey(a, b any) bool {
	pa, ok := publicOf(a)
	if !ok {
		return false
	}
	pb, ok := publicOf(b)
	if !ok {
		return false
	}
	type equaler interface {
		Equal(crypto.PublicKey) bool
	}
	eq, ok := pa.(equaler)
	return ok && eq.Equal(pb)
}

func publicOf(key any) (crypto.PublicKey, bool) {
	switch k := key.(type) {
	case crypto.Signer:
		return k.Public(), true
	case *rsa.PublicKey, *ecdsa.PublicKey:
		return k, true
	default:
		return nil, false
	}
}
