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
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sassoftware/fwseal/lib/der"
	"github.com/sassoftware/fwseal/lib/x509tools"
)

func signAndParse(t *testing.T, s *testSigner, contentType asn1.ObjectIdentifier, content []byte, opts SignOptions) ([]byte, *SignedData) {
	t.Helper()
	psd, err := SignData(contentType, content, s.key, []*x509.Certificate{s.cert}, opts)
	require.NoError(t, err)
	blob, err := psd.Marshal()
	require.NoError(t, err)
	outer, parsed, err := ParseContentInfo(blob)
	require.NoError(t, err)
	require.True(t, outer.ContentType.Equal(OidSignedData))
	sd, ok := parsed.(*SignedData)
	require.True(t, ok)
	return blob, sd
}

func TestSignRoundTrip(t *testing.T) {
	signingTime := time.Date(2024, 3, 14, 15, 9, 26, 0, time.UTC)
	for _, keyType := range []string{"rsa", "ecdsa"} {
		s := newSigner(t, keyType, "fwseal test")
		t.Run(keyType+"/attrs", func(t *testing.T) {
			_, sd := signAndParse(t, s, OidEncryptedData, helloWorld, SignOptions{SigningTime: signingTime})
			assert.Equal(t, 3, sd.Version)
			sig, err := sd.Verify(nil, nil)
			require.NoError(t, err)
			assert.True(t, sig.Certificate.Equal(s.cert))
			si := sig.SignerInfo
			assert.Equal(t, 1, si.Version)
			assert.True(t, si.DigestAlgorithm.Algorithm.Equal(x509tools.OidDigestSHA256))
			var ct asn1.ObjectIdentifier
			require.NoError(t, si.AuthenticatedAttributes.GetOne(OidAttributeContentType, &ct))
			assert.True(t, ct.Equal(OidEncryptedData))
			st, err := si.SigningTime()
			require.NoError(t, err)
			assert.True(t, st.Equal(signingTime), "signing time %s", st)
			content, err := sd.ContentInfo.Bytes()
			require.NoError(t, err)
			assert.Equal(t, helloWorld, content)
		})
		t.Run(keyType+"/noattrs", func(t *testing.T) {
			_, sd := signAndParse(t, s, OidEncryptedData, helloWorld, SignOptions{NoAuthenticatedAttributes: true})
			assert.Empty(t, sd.SignerInfos[0].AuthenticatedAttributes)
			_, err := sd.Verify(nil, nil)
			require.NoError(t, err)
			_, err = sd.SignerInfos[0].SigningTime()
			assert.ErrorIs(t, err, ErrNoAttribute)
		})
	}
}

func TestSignDataVersion(t *testing.T) {
	s := newSigner(t, "ecdsa", "fwseal test")
	_, sd := signAndParse(t, s, OidData, helloWorld, SignOptions{})
	assert.Equal(t, 1, sd.Version)
	_, err := sd.Verify(nil, nil)
	require.NoError(t, err)
}

func TestSignHashes(t *testing.T) {
	for _, hash := range []crypto.Hash{crypto.SHA1, crypto.SHA384, crypto.SHA512} {
		for _, keyType := range []string{"rsa", "ecdsa"} {
			s := newSigner(t, keyType, "fwseal test")
			_, sd := signAndParse(t, s, OidEncryptedData, helloWorld, SignOptions{Hash: hash})
			digestHash, ok := x509tools.PkixDigestToHash(sd.SignerInfos[0].DigestAlgorithm)
			require.True(t, ok)
			assert.Equal(t, hash, digestHash)
			_, err := sd.Verify(nil, nil)
			assert.NoError(t, err, "%s %s", keyType, hash)
		}
	}
}

func TestSignMessageType(t *testing.T) {
	s := newSigner(t, "rsa", "fwseal test")
	var extra AttributeList
	require.NoError(t, extra.AddRaw(OidAttributeMessageType, []byte{0x13, 0x02, '1', '9'}))
	// caller-supplied messageDigest is replaced with the real one
	require.NoError(t, extra.Add(OidAttributeMessageDigest, []byte("bogus")))
	_, sd := signAndParse(t, s, OidEncryptedData, helloWorld, SignOptions{AuthenticatedAttributes: extra})
	_, err := sd.Verify(nil, nil)
	require.NoError(t, err)
	attrs := sd.SignerInfos[0].AuthenticatedAttributes
	var mt string
	require.NoError(t, attrs.GetOne(OidAttributeMessageType, &mt))
	assert.Equal(t, "19", mt)
	raw, err := attrs.Raw(OidAttributeMessageDigest)
	require.NoError(t, err)
	assert.Len(t, raw, 1)

	_, err = SignData(OidEncryptedData, helloWorld, s.key, []*x509.Certificate{s.cert},
		SignOptions{AuthenticatedAttributes: extra, NoAuthenticatedAttributes: true})
	assert.Error(t, err)
}

func TestSignCanonical(t *testing.T) {
	s := newSigner(t, "rsa", "fwseal test")
	var extra AttributeList
	require.NoError(t, extra.AddRaw(OidAttributeMessageType, []byte{0x13, 0x02, '1', '9'}))
	blob, sd := signAndParse(t, s, OidEncryptedData, helloWorld, SignOptions{
		SigningTime:             time.Now(),
		AuthenticatedAttributes: extra,
	})
	// re-encoding the parsed structure gives back the same octets
	remarshalled, err := der.Marshal(ContentInfoSignedData{ContentType: OidSignedData, Content: *sd})
	require.NoError(t, err)
	assert.Equal(t, blob, remarshalled)
	// and the attribute set is stored in sorted order
	attrs, err := sd.SignerInfos[0].AuthenticatedAttributes.Bytes()
	require.NoError(t, err)
	v, err := der.Parse(attrs)
	require.NoError(t, err)
	members := v.(*der.Constructed).Members()
	require.Len(t, members, 4)
	for i := 1; i < len(members); i++ {
		assert.True(t, bytes.Compare(der.Encode(members[i-1]), der.Encode(members[i])) < 0)
	}
}

func TestVerifyTamper(t *testing.T) {
	s := newSigner(t, "rsa", "fwseal test")
	payload := []byte("firmware payload to be tampered with")
	for _, noAttrs := range []bool{false, true} {
		blob, _ := signAndParse(t, s, OidEncryptedData, payload, SignOptions{NoAuthenticatedAttributes: noAttrs})

		// flip a bit in the encapsulated content
		idx := bytes.Index(blob, payload)
		require.Greater(t, idx, 0)
		tampered := append([]byte{}, blob...)
		tampered[idx+3] ^= 0x20
		_, parsed, err := ParseContentInfo(tampered)
		require.NoError(t, err)
		_, err = parsed.(*SignedData).Verify(nil, nil)
		if noAttrs {
			assert.ErrorIs(t, err, ErrSignatureMismatch)
		} else {
			assert.ErrorIs(t, err, ErrDigestMismatch)
		}

		// flip a bit in the signature
		_, parsed, err = ParseContentInfo(blob)
		require.NoError(t, err)
		sd := parsed.(*SignedData)
		sd.SignerInfos[0].EncryptedDigest[10] ^= 0x01
		_, err = sd.Verify(nil, nil)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	}
}

func TestVerifyTamperAttributes(t *testing.T) {
	s := newSigner(t, "ecdsa", "fwseal test")
	_, sd := signAndParse(t, s, OidEncryptedData, helloWorld, SignOptions{SigningTime: time.Now()})
	si := &sd.SignerInfos[0]
	si.AuthenticatedAttributes.Remove(OidAttributeSigningTime)
	require.NoError(t, si.AuthenticatedAttributes.Add(OidAttributeSigningTime, time.Now().Add(-24*time.Hour).UTC()))
	_, err := sd.Verify(nil, nil)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	_, sd = signAndParse(t, s, OidEncryptedData, helloWorld, SignOptions{})
	sd.SignerInfos[0].AuthenticatedAttributes.Remove(OidAttributeMessageDigest)
	_, err = sd.Verify(nil, nil)
	assert.ErrorIs(t, err, ErrDigestMismatch)
}

func TestVerifyContentTypeMismatch(t *testing.T) {
	s := newSigner(t, "rsa", "fwseal test")
	_, sd := signAndParse(t, s, OidEncryptedData, helloWorld, SignOptions{})
	sd.ContentInfo.ContentType = OidData
	_, err := sd.Verify(nil, nil)
	assert.ErrorIs(t, err, ErrUnexpectedContentType)
	var cte *ContentTypeError
	require.True(t, errors.As(err, &cte))
	assert.True(t, cte.Found.Equal(OidEncryptedData))
}

func TestVerifyDetached(t *testing.T) {
	s := newSigner(t, "ecdsa", "fwseal test")
	_, sd := signAndParse(t, s, OidEncryptedData, helloWorld, SignOptions{})
	sd.ContentInfo.Content = asn1.RawValue{}
	_, err := sd.Verify(nil, nil)
	assert.ErrorIs(t, err, ErrNoContent)
	_, err = sd.Verify(helloWorld, nil)
	assert.NoError(t, err)
	_, err = sd.Verify([]byte("Hello World!"), nil)
	assert.ErrorIs(t, err, ErrDigestMismatch)
}

func TestVerifyCertificateLookup(t *testing.T) {
	s := newSigner(t, "rsa", "fwseal test")
	other := newSigner(t, "ecdsa", "someone else")
	_, sd := signAndParse(t, s, OidEncryptedData, helloWorld, SignOptions{})
	sd.Certificates = RawCertificates{}
	_, err := sd.Verify(nil, nil)
	assert.ErrorIs(t, err, ErrCertificateNotFound)
	_, err = sd.Verify(nil, []*x509.Certificate{other.cert})
	assert.ErrorIs(t, err, ErrCertificateNotFound)
	sig, err := sd.Verify(nil, []*x509.Certificate{other.cert, s.cert})
	require.NoError(t, err)
	assert.True(t, sig.Certificate.Equal(s.cert))
}

func TestVerifyAlgorithmErrors(t *testing.T) {
	s := newSigner(t, "rsa", "fwseal test")
	_, sd := signAndParse(t, s, OidEncryptedData, helloWorld, SignOptions{})
	sd.SignerInfos[0].DigestAlgorithm.Algorithm = asn1.ObjectIdentifier{1, 2, 3}
	_, err := sd.Verify(nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	_, sd = signAndParse(t, s, OidEncryptedData, helloWorld, SignOptions{})
	sd.SignerInfos[0].DigestEncryptionAlgorithm.Algorithm = asn1.ObjectIdentifier{1, 2, 3}
	_, err = sd.Verify(nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	_, sd = signAndParse(t, s, OidEncryptedData, helloWorld, SignOptions{})
	sd.SignerInfos[0].DigestEncryptionAlgorithm.Algorithm = x509tools.OidSignatureECDSAWithSHA256
	_, err = sd.Verify(nil, nil)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	_, sd = signAndParse(t, s, OidEncryptedData, helloWorld, SignOptions{})
	sd.SignerInfos = nil
	_, err = sd.Verify(nil, nil)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestSignKeyMismatch(t *testing.T) {
	s := newSigner(t, "rsa", "fwseal test")
	other := newSigner(t, "ecdsa", "someone else")
	_, err := SignData(OidEncryptedData, helloWorld, s.key, []*x509.Certificate{other.cert}, SignOptions{})
	assert.ErrorIs(t, err, ErrKeyMismatch)
	_, err = SignData(OidEncryptedData, helloWorld, s.key, nil, SignOptions{})
	assert.ErrorIs(t, err, ErrKeyMismatch)
}

func TestParseCertificates(t *testing.T) {
	s := newSigner(t, "rsa", "fwseal test")
	blob, _ := signAndParse(t, s, OidData, helloWorld, SignOptions{})
	certs, err := ParseCertificates(blob)
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.True(t, certs[0].Equal(s.cert))

	ci, err := Compress(OidData, helloWorld)
	require.NoError(t, err)
	blob, err = ci.Marshal()
	require.NoError(t, err)
	_, err = ParseCertificates(blob)
	assert.Error(t, err)
}
