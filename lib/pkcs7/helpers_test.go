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
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sassoftware/fwseal/lib/x509tools"
)

type testSigner struct {
	key  crypto.Signer
	cert *x509.Certificate
}

var (
	signerMu    sync.Mutex
	signerCache = make(map[string]*testSigner)
)

// newSigner returns a self-signed signer of the given key type. RSA keys are
// slow to generate so they are shared between tests.
func newSigner(t *testing.T, keyType, name string) *testSigner {
	t.Helper()
	signerMu.Lock()
	defer signerMu.Unlock()
	cacheKey := keyType + "/" + name
	if s := signerCache[cacheKey]; s != nil {
		return s
	}
	key, err := x509tools.GenerateKey(rand.Reader, keyType, 0)
	require.NoError(t, err)
	blob, err := x509tools.MakeCertificate(rand.Reader, key, &x509tools.CertOptions{CommonName: name})
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(blob)
	require.NoError(t, err)
	s := &testSigner{key: key, cert: cert}
	signerCache[cacheKey] = s
	return s
}

var helloWorld = []byte("Hello World")

// 256-bit key used by the firmware bundle examples
var aes256Key = []byte{
	0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
}
