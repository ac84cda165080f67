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

package sealcmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sassoftware/fwseal/cmdline/shared"
	"github.com/sassoftware/fwseal/lib/magic"
)

type env struct {
	t      *testing.T
	dir    string
	config string
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// newEnv writes a config into a temp dir and generates a content key and
// self-signed signer with the keygen command.
func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{t: t, dir: dir, config: filepath.Join(dir, "fwseal.yaml")}
	cfg := `
signer:
  certificate: ` + e.path("signer.crt") + `
  key: ` + e.path("signer.key") + `
encryption:
  key_file: ` + e.path("content.key") + `
attributes:
  signed:
    - oid: messageType
      printable: "19"
  unprotected:
    - oid: messageType
      printable: "19"
logging:
  level: debug
  file: ` + e.path("fwseal.log") + `
metrics:
  textfile: ` + e.path("fwseal.prom") + `
`
	require.NoError(t, os.WriteFile(e.config, []byte(cfg), 0644))
	code, _, stderr := e.run("keygen", "-o", e.path("content.key"),
		"--self-sign", "--key-type", "ecdsa", "--commonName", "Firmware Signer",
		"--cert-out", e.path("signer.crt"), "--key-out", e.path("signer.key"))
	require.Equal(t, 0, code, stderr)
	require.NoError(t, os.WriteFile(e.path("fw.bin"), []byte("Hello World"), 0644))
	return e
}

func (e *env) path(name string) string {
	return filepath.Join(e.dir, name)
}

func (e *env) run(args ...string) (code int, stdout, stderr string) {
	e.t.Helper()
	resetFlags(shared.RootCmd)
	var outBuf, errBuf bytes.Buffer
	shared.RootCmd.SetOut(&outBuf)
	shared.RootCmd.SetErr(&errBuf)
	defer shared.RootCmd.SetOut(nil)
	defer shared.RootCmd.SetErr(nil)
	code = shared.Run(append([]string{"--config", e.config}, args...), &errBuf)
	return code, outBuf.String(), errBuf.String()
}

func (e *env) read(name string) []byte {
	e.t.Helper()
	blob, err := os.ReadFile(e.path(name))
	require.NoError(e.t, err)
	return blob
}

func TestKeygen(t *testing.T) {
	e := newEnv(t)
	key := e.read("content.key")
	assert.Len(t, strings.TrimSpace(string(key)), 64)
	st, err := os.Stat(e.path("content.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), st.Mode().Perm())
	assert.True(t, bytes.HasPrefix(e.read("signer.crt"), []byte("-----BEGIN CERTIFICATE-----")))

	code, _, stderr := e.run("keygen", "--cipher", "aes128-cbc", "--raw", "-o", e.path("raw.key"))
	require.Equal(t, 0, code, stderr)
	assert.Len(t, e.read("raw.key"), 16)

	code, _, _ = e.run("keygen", "--self-sign", "-o", e.path("x.key"))
	assert.Equal(t, shared.ExitFailure, code, "commonName is required")
}

func TestSealUnseal(t *testing.T) {
	e := newEnv(t)
	code, _, stderr := e.run("seal", e.path("fw.bin"))
	require.Equal(t, 0, code, stderr)
	code, _, stderr = e.run("seal", "--attrs=false", "-o", e.path("fw.noattrs.p7"), e.path("fw.bin"))
	require.Equal(t, 0, code, stderr)

	sealed := e.read("fw.bin.p7")
	assert.Equal(t, magic.FileTypeSignedData, magic.DetectBytes(sealed))
	noattrs := e.read("fw.noattrs.p7")
	assert.Less(t, len(noattrs), len(sealed))

	code, _, stderr = e.run("unseal", "-o", e.path("out.bin"), e.path("fw.bin.p7"))
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, []byte("Hello World"), e.read("out.bin"))

	code, _, stderr = e.run("unseal", "--compare", e.path("fw.bin"), e.path("fw.bin.p7"), e.path("fw.noattrs.p7"))
	assert.Equal(t, 0, code, stderr)

	require.NoError(t, os.WriteFile(e.path("other.bin"), []byte("Goodbye World"), 0644))
	code, _, stderr = e.run("unseal", "--compare", e.path("other.bin"), e.path("fw.bin.p7"))
	assert.Equal(t, shared.ExitFailure, code)
	assert.Contains(t, stderr, ErrPayloadMismatch.Error())

	logs := string(e.read("fwseal.log"))
	assert.Contains(t, logs, `"op":"seal"`)
	assert.Contains(t, logs, `"message":"unseal complete"`)
	assert.Contains(t, logs, `"digest":"sha256:`)
	metrics := string(e.read("fwseal.prom"))
	assert.Contains(t, metrics, `fwseal_operations_total{op="seal",result="ok"}`)
	assert.Contains(t, metrics, `fwseal_operation_seconds_count{layer="compressed",op="unseal"}`)
}

func TestUnsealDefaultName(t *testing.T) {
	e := newEnv(t)
	code, _, stderr := e.run("seal", "--suffix", ".fw", e.path("fw.bin"))
	require.Equal(t, 0, code, stderr)
	require.NoError(t, os.Remove(e.path("fw.bin")))
	code, _, stderr = e.run("unseal", "--suffix", ".fw", e.path("fw.bin.fw"))
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, []byte("Hello World"), e.read("fw.bin"))
}

func TestSealPEM(t *testing.T) {
	e := newEnv(t)
	code, _, stderr := e.run("seal", "--pem", e.path("fw.bin"))
	require.Equal(t, 0, code, stderr)
	assert.True(t, bytes.HasPrefix(e.read("fw.bin.p7"), []byte("-----BEGIN CMS-----")))
	code, _, stderr = e.run("unseal", "--compare", e.path("fw.bin"), e.path("fw.bin.p7"))
	assert.Equal(t, 0, code, stderr)
}

func TestSealBatch(t *testing.T) {
	e := newEnv(t)
	var inputs []string
	for _, name := range []string{"a.bin", "b.bin", "c.bin"} {
		require.NoError(t, os.WriteFile(e.path(name), bytes.Repeat([]byte(name), 1000), 0644))
		inputs = append(inputs, e.path(name))
	}
	code, _, stderr := e.run(append([]string{"seal", "-j", "2"}, inputs...)...)
	require.Equal(t, 0, code, stderr)
	for _, name := range []string{"a.bin", "b.bin", "c.bin"} {
		require.NoError(t, os.Remove(e.path(name)))
	}
	sealed := []string{e.path("a.bin.p7"), e.path("b.bin.p7"), e.path("c.bin.p7"), e.path("missing.p7")}
	code, _, stderr = e.run(append([]string{"unseal", "-j", "2"}, sealed...)...)
	assert.Equal(t, shared.ExitFailure, code)
	assert.Contains(t, stderr, "missing.p7")
	assert.Equal(t, bytes.Repeat([]byte("b.bin"), 1000), e.read("b.bin"))

	code, _, stderr = e.run(append([]string{"seal", "-o", e.path("x.p7")}, inputs...)...)
	assert.Equal(t, shared.ExitFailure, code)
	assert.Contains(t, stderr, "--output")
}

func TestUnsealTampered(t *testing.T) {
	e := newEnv(t)
	code, _, stderr := e.run("seal", e.path("fw.bin"))
	require.Equal(t, 0, code, stderr)
	sealed := e.read("fw.bin.p7")
	sealed[len(sealed)-2] ^= 0x40
	require.NoError(t, os.WriteFile(e.path("bad.p7"), sealed, 0644))

	code, _, stderr = e.run("unseal", "-o", e.path("bad.bin"), e.path("bad.p7"))
	assert.Equal(t, shared.ExitIntegrity, code, stderr)
	assert.Contains(t, stderr, "signed layer")
	_, err := os.Stat(e.path("bad.bin"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	code, stdout, _ := e.run("verify", e.path("bad.p7"))
	assert.Equal(t, shared.ExitIntegrity, code)
	assert.Contains(t, stdout, "ERROR")
}

func TestUnsealWrongKey(t *testing.T) {
	e := newEnv(t)
	code, _, stderr := e.run("seal", e.path("fw.bin"))
	require.Equal(t, 0, code, stderr)
	code, _, stderr = e.run("keygen", "-o", e.path("other.key"))
	require.Equal(t, 0, code, stderr)
	code, _, stderr = e.run("unseal", "--key-file", e.path("other.key"), "-o", e.path("out.bin"), e.path("fw.bin.p7"))
	assert.Equal(t, shared.ExitIntegrity, code, stderr)
}

func TestVerify(t *testing.T) {
	e := newEnv(t)
	code, _, stderr := e.run("seal", e.path("fw.bin"))
	require.Equal(t, 0, code, stderr)
	code, stdout, stderr := e.run("verify", e.path("fw.bin.p7"))
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "OK")
	assert.Contains(t, stdout, "Firmware Signer")

	// the signer is its own root
	code, _, stderr = e.run("verify", "--root", e.path("signer.crt"), e.path("fw.bin.p7"))
	assert.Equal(t, 0, code, stderr)

	// an unrelated root rejects it
	code, _, stderr = e.run("keygen", "-o", e.path("k2"), "--self-sign", "--commonName", "Other",
		"--cert-out", e.path("other.crt"), "--key-out", e.path("other.key"))
	require.Equal(t, 0, code, stderr)
	code, _, stderr = e.run("verify", "--root", e.path("other.crt"), e.path("fw.bin.p7"))
	assert.Equal(t, shared.ExitFailure, code)
	assert.Contains(t, stderr, "not trusted")
}

func TestInspect(t *testing.T) {
	e := newEnv(t)
	code, _, stderr := e.run("seal", e.path("fw.bin"))
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr := e.run("inspect", e.path("fw.bin.p7"))
	require.Equal(t, 0, code, stderr)
	for _, want := range []string{
		"cms-signed",
		"signedData",
		"version: 3",
		"digest algorithms: SHA-256",
		"signed attribute messageType: \"19\"",
		"encryptedData",
		"cipher: aes256-cbc",
		"unprotected attribute messageType: \"19\"",
		"compressedData",
		"content type: firmwarePackage",
		"payload: 11 bytes",
	} {
		assert.Contains(t, stdout, want)
	}

	code, stdout, stderr = e.run("inspect", "--dump", e.path("fw.bin.p7"))
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "SignerInfos")
	assert.Contains(t, stdout, "EncryptedContentInfo")

	code, stdout, _ = e.run("inspect", "--key-env", "FWSEAL_NO_SUCH_KEY", e.path("fw.bin.p7"))
	assert.Equal(t, shared.ExitFailure, code)
	assert.Empty(t, stdout)

	code, _, _ = e.run("inspect", e.path("fw.bin"))
	assert.Equal(t, shared.ExitFailure, code)
}
