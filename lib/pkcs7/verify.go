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
	"crypto/hmac"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"time"

	"github.com/sassoftware/fwseal/lib/x509tools"
)

type Signature struct {
	SignerInfo    *SignerInfo
	Certificate   *x509.Certificate
	Intermediates []*x509.Certificate
}

// Verify checks every SignerInfo against the encapsulated content, or
// externalContent if the content is detached. Signer certificates are looked
// up in the embedded set first and then in externalCerts. Chain validation is
// not performed; see Signature.VerifyChain.
func (sd *SignedData) Verify(externalContent []byte, externalCerts []*x509.Certificate) (Signature, error) {
	content, err := sd.ContentInfo.Bytes()
	if err != nil {
		return Signature{}, err
	} else if content == nil {
		if externalContent == nil {
			return Signature{}, ErrNoContent
		}
		content = externalContent
	}
	certs, err := sd.Certificates.Parse()
	if err != nil {
		return Signature{}, fmt.Errorf("pkcs7: %w", err)
	}
	if len(sd.SignerInfos) == 0 {
		return Signature{}, fmt.Errorf("%w: no signers", ErrSignatureMismatch)
	}
	lookup := append(append([]*x509.Certificate{}, certs...), externalCerts...)
	var sig Signature
	for i := range sd.SignerInfos {
		si := &sd.SignerInfos[i]
		cert, err := si.Verify(sd.ContentInfo.ContentType, content, lookup)
		if err != nil {
			return Signature{}, err
		}
		sig = Signature{SignerInfo: si, Certificate: cert, Intermediates: certs}
	}
	return sig, nil
}

func (si *SignerInfo) FindCertificate(certs []*x509.Certificate) (*x509.Certificate, error) {
	is := si.IssuerAndSerialNumber
	for _, cert := range certs {
		if bytes.Equal(cert.RawIssuer, is.IssuerName.FullBytes) && cert.SerialNumber.Cmp(is.SerialNumber) == 0 {
			return cert, nil
		}
	}
	return nil, ErrCertificateNotFound
}

// Verify checks one signer over content, whose type is contentType, and
// returns the signer's certificate.
func (si *SignerInfo) Verify(contentType asn1.ObjectIdentifier, content []byte, certs []*x509.Certificate) (*x509.Certificate, error) {
	cert, err := si.FindCertificate(certs)
	if err != nil {
		return nil, err
	}
	hash, ok := x509tools.PkixDigestToHash(si.DigestAlgorithm)
	if !ok || !hash.Available() {
		return nil, fmt.Errorf("%w: digest %s", ErrUnsupportedAlgorithm, si.DigestAlgorithm.Algorithm)
	}
	keyType, sigHash, ok := x509tools.SignatureKeyType(si.DigestEncryptionAlgorithm)
	if !ok {
		return nil, fmt.Errorf("%w: signature %s", ErrUnsupportedAlgorithm, si.DigestEncryptionAlgorithm.Algorithm)
	} else if keyType != x509tools.KeyType(cert.PublicKey) || (sigHash != 0 && sigHash != hash) {
		return nil, fmt.Errorf("%w: signature algorithm %s does not match the signer", ErrSignatureMismatch, si.DigestEncryptionAlgorithm.Algorithm)
	}
	w := hash.New()
	w.Write(content)
	digest := w.Sum(nil)
	if len(si.AuthenticatedAttributes) != 0 {
		// check the content digest against the messageDigest attribute
		var md []byte
		if err := si.AuthenticatedAttributes.GetOne(OidAttributeMessageDigest, &md); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrDigestMismatch, err)
		} else if !hmac.Equal(md, digest) {
			return nil, ErrDigestMismatch
		}
		var ct asn1.ObjectIdentifier
		if err := si.AuthenticatedAttributes.GetOne(OidAttributeContentType, &ct); err != nil {
			return nil, err
		} else if !ct.Equal(contentType) {
			return nil, &ContentTypeError{Expected: contentType, Found: ct}
		}
		// now pivot to verifying the hash over the authenticated attributes
		attrbytes, err := si.AuthenticatedAttributes.Bytes()
		if err != nil {
			return nil, err
		}
		w = hash.New()
		w.Write(attrbytes)
		digest = w.Sum(nil)
	} // otherwise the content hash is verified directly
	if err := x509tools.Verify(cert.PublicKey, hash, digest, si.EncryptedDigest); err == x509tools.ErrBadSignature {
		return nil, ErrSignatureMismatch
	} else if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, err)
	}
	return cert, nil
}

// SigningTime returns the signingTime attribute if there is one.
func (si *SignerInfo) SigningTime() (time.Time, error) {
	var t time.Time
	err := si.AuthenticatedAttributes.GetOne(OidAttributeSigningTime, &t)
	return t, err
}

func (info Signature) VerifyChain(roots *x509.CertPool, extraCerts []*x509.Certificate, usage x509.ExtKeyUsage, currentTime time.Time) error {
	pool := x509.NewCertPool()
	for _, cert := range extraCerts {
		pool.AddCert(cert)
	}
	for _, cert := range info.Intermediates {
		pool.AddCert(cert)
	}
	opts := x509.VerifyOptions{
		Intermediates: pool,
		Roots:         roots,
		CurrentTime:   currentTime,
		KeyUsages:     []x509.ExtKeyUsage{usage},
	}
	_, err := info.Certificate.Verify(opts)
	return err
}
