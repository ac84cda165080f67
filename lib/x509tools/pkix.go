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
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"sort"
	"strings"
)

var (
	// RFC 3279
	OidDigestSHA1 = asn1.ObjectIdentifier{1, 3, 14, 3, 2, 26}
	// RFC 5758
	OidDigestSHA224 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 4}
	OidDigestSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	OidDigestSHA384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	OidDigestSHA512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}

	// RFC 3279
	OidPublicKeyRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	OidPublicKeyECDSA = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}

	// RFC 4055
	OidSignatureSHA1WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 5}
	OidSignatureSHA224WithRSA = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 14}
	OidSignatureSHA256WithRSA = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	OidSignatureSHA384WithRSA = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}
	OidSignatureSHA512WithRSA = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}

	// RFC 5758
	OidSignatureECDSAWithSHA1   = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 1}
	OidSignatureECDSAWithSHA224 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 1}
	OidSignatureECDSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	OidSignatureECDSAWithSHA384 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}
	OidSignatureECDSAWithSHA512 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}
)

var HashOids = map[crypto.Hash]asn1.ObjectIdentifier{
	crypto.SHA1:   OidDigestSHA1,
	crypto.SHA224: OidDigestSHA224,
	crypto.SHA256: OidDigestSHA256,
	crypto.SHA384: OidDigestSHA384,
	crypto.SHA512: OidDigestSHA512,
}

var hashNames = map[crypto.Hash]string{
	crypto.SHA1:   "SHA-1",
	crypto.SHA224: "SHA-224",
	crypto.SHA256: "SHA-256",
	crypto.SHA384: "SHA-384",
	crypto.SHA512: "SHA-512",
}

var ecdsaSignatureOids = map[crypto.Hash]asn1.ObjectIdentifier{
	crypto.SHA1:   OidSignatureECDSAWithSHA1,
	crypto.SHA224: OidSignatureECDSAWithSHA224,
	crypto.SHA256: OidSignatureECDSAWithSHA256,
	crypto.SHA384: OidSignatureECDSAWithSHA384,
	crypto.SHA512: OidSignatureECDSAWithSHA512,
}

var rsaSignatureOids = map[crypto.Hash]asn1.ObjectIdentifier{
	crypto.SHA1:   OidSignatureSHA1WithRSA,
	crypto.SHA224: OidSignatureSHA224WithRSA,
	crypto.SHA256: OidSignatureSHA256WithRSA,
	crypto.SHA384: OidSignatureSHA384WithRSA,
	crypto.SHA512: OidSignatureSHA512WithRSA,
}

// Convert a crypto.Hash to a X.509 AlgorithmIdentifier
func PkixDigestAlgorithm(hash crypto.Hash) (alg pkix.AlgorithmIdentifier, ok bool) {
	if oid, ok2 := HashOids[hash]; ok2 {
		alg.Algorithm = oid
		// some implementations want this to be NULL, not missing entirely
		alg.Parameters = asn1.NullRawValue
		ok = true
	}
	return
}

func PkixDigestToHash(alg pkix.AlgorithmIdentifier) (hash crypto.Hash, ok bool) {
	for hash, oid := range HashOids {
		if alg.Algorithm.Equal(oid) {
			return hash, true
		}
	}
	return 0, false
}

// PkixSignatureAlgorithm returns the AlgorithmIdentifier placed in a
// SignerInfo. RSA keys use the bare rsaEncryption OID, which is what most
// PKCS#7 producers emit, while ECDSA keys name the digest explicitly.
func PkixSignatureAlgorithm(pub crypto.PublicKey, hash crypto.Hash) (alg pkix.AlgorithmIdentifier, ok bool) {
	switch pub.(type) {
	case *rsa.PublicKey:
		alg.Algorithm = OidPublicKeyRSA
		// openssl expects this to be NULL, not missing entirely
		alg.Parameters = asn1.NullRawValue
		return alg, true
	case *ecdsa.PublicKey:
		oid, ok := ecdsaSignatureOids[hash]
		if !ok {
			return alg, false
		}
		alg.Algorithm = oid
		return alg, true
	default:
		return alg, false
	}
}

// SignatureKeyType classifies a SignerInfo signature algorithm. It returns
// "rsa" or "ecdsa", along with the digest bound into the OID if there is one.
func SignatureKeyType(alg pkix.AlgorithmIdentifier) (keyType string, hash crypto.Hash, ok bool) {
	oid := alg.Algorithm
	switch {
	case oid.Equal(OidPublicKeyRSA):
		return "rsa", 0, true
	case oid.Equal(OidPublicKeyECDSA):
		return "ecdsa", 0, true
	}
	for h, o := range rsaSignatureOids {
		if oid.Equal(o) {
			return "rsa", h, true
		}
	}
	for h, o := range ecdsaSignatureOids {
		if oid.Equal(o) {
			return "ecdsa", h, true
		}
	}
	return "", 0, false
}

// HashByName looks up a digest by a name such as "SHA-256" or "sha256".
func HashByName(name string) (crypto.Hash, error) {
	norm := strings.ToUpper(strings.ReplaceAll(name, "-", ""))
	for hash, hname := range hashNames {
		if strings.ReplaceAll(hname, "-", "") == norm {
			return hash, nil
		}
	}
	return 0, fmt.Errorf("unsupported digest %q, supported digests are: %s", name, strings.Join(SupportedHashes(), ", "))
}

// HashName returns the display name of a supported digest.
func HashName(hash crypto.Hash) string {
	if name, ok := hashNames[hash]; ok {
		return name
	}
	return hash.String()
}

func SupportedHashes() []string {
	var names []string
	for _, name := range hashNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
