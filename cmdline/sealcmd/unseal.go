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
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sassoftware/fwseal/cmdline/shared"
	"github.com/sassoftware/fwseal/internal/zlog"
	"github.com/sassoftware/fwseal/lib/certloader"
	"github.com/sassoftware/fwseal/lib/fwbundle"
	"github.com/sassoftware/fwseal/lib/pkcs7"
	"github.com/sassoftware/fwseal/lib/x509tools"
)

var UnsealCmd = &cobra.Command{
	Use:   "unseal <file>...",
	Short: "Verify, decrypt and decompress sealed firmware bundles",
	Args:  cobra.MinimumNArgs(1),
	RunE:  unsealCmd,
}

// ErrPayloadMismatch is returned by unseal --compare.
var ErrPayloadMismatch = errors.New("recovered payload differs from the reference file")

var (
	argExtraCerts []string
	argRoots      []string
	argCompare    string
	argMaxSize    int
)

func init() {
	shared.RootCmd.AddCommand(UnsealCmd)
	flags := UnsealCmd.Flags()
	addEncryptionFlags(flags, true)
	addTrustFlags(flags)
	flags.StringVarP(&argOutput, "output", "o", "", "Output file, only with a single input. Default is the input name minus the suffix")
	flags.StringVar(&argSuffix, "suffix", "", "Suffix stripped from sealed file names (overrides output.suffix)")
	flags.StringVar(&argCompare, "compare", "", "Check that the recovered payload equals this file")
	flags.IntVar(&argMaxSize, "max-size", 0, "Refuse payloads larger than this (overrides compression.max_payload_size)")
	flags.IntVarP(&argJobs, "jobs", "j", 0, "Files to process in parallel (default: number of CPUs)")
}

func addTrustFlags(flags *pflag.FlagSet) {
	flags.StringArrayVar(&argExtraCerts, "cert", nil, "Extra certificate used to find the signer (PEM, DER or PKCS#7)")
	flags.StringArrayVar(&argRoots, "root", nil, "Trusted root certificate; when given the signer chain must lead to one")
}

type trust struct {
	extra []*x509.Certificate
	roots *x509.CertPool
}

func loadTrust() (*trust, error) {
	paths := append(append([]string(nil), shared.CurrentConfig.Signer.Certificates...), argExtraCerts...)
	t := new(trust)
	if len(paths) != 0 {
		certs, err := certloader.LoadCertificates(paths)
		if err != nil {
			return nil, err
		}
		t.extra = certs
	}
	if len(argRoots) != 0 {
		roots, err := certloader.LoadCertificates(argRoots)
		if err != nil {
			return nil, err
		}
		t.roots = x509.NewCertPool()
		for _, cert := range roots {
			t.roots.AddCert(cert)
		}
	}
	return t, nil
}

// checkChain validates the signer against --root, using the signing time
// when the bundle has one.
func (t *trust) checkChain(sig pkcs7.Signature) error {
	if t.roots == nil {
		return nil
	}
	when, err := sig.SignerInfo.SigningTime()
	if err != nil {
		when = time.Now()
	}
	if err := sig.VerifyChain(t.roots, t.extra, x509.ExtKeyUsageAny, when); err != nil {
		return fmt.Errorf("signer %s is not trusted: %w", x509tools.FormatSubject(sig.Certificate), err)
	}
	return nil
}

func unsealCmd(cmd *cobra.Command, args []string) error {
	if argOutput != "" && len(args) > 1 {
		return errors.New("--output can only be used with a single input")
	}
	cfg := shared.CurrentConfig
	enc := encryptionConfig()
	key, err := enc.LoadKey()
	if err != nil {
		return err
	}
	tr, err := loadTrust()
	if err != nil {
		return err
	}
	var reference []byte
	if argCompare != "" {
		if reference, err = shared.ReadFile(argCompare); err != nil {
			return err
		}
	}
	opts := &fwbundle.OpenOptions{
		Certificates:   tr.extra,
		MaxPayloadSize: cfg.Compression.MaxPayloadSize,
		Observer:       layerMetrics{},
	}
	if argMaxSize > 0 {
		opts.MaxPayloadSize = argMaxSize
	}
	suffix := cfg.Output.Suffix
	if argSuffix != "" {
		suffix = argSuffix
	}
	err = runBatch(cmd.Context(), args, func(ctx context.Context, input string) error {
		output := argOutput
		if output == "" && reference == nil {
			output = shared.UnsealedName(input, suffix)
		}
		return unsealOne(ctx, input, output, key, reference, tr, opts)
	})
	if merr := writeMetrics(); merr != nil && err == nil {
		err = merr
	}
	return err
}

// unsealOne opens one bundle. With a reference payload and no output name
// the recovered payload is only compared, not written.
func unsealOne(ctx context.Context, input, output string, key, reference []byte, tr *trust, opts *fwbundle.OpenOptions) (err error) {
	ctx = zlog.StartOperation(ctx, "unseal", input)
	defer func() {
		observeResult("unseal", err)
		zlog.Finish(ctx, err)
	}()
	blob, err := shared.ReadFile(input)
	if err != nil {
		return err
	}
	if blob, err = fwbundle.Unarmor(blob); err != nil {
		return err
	}
	bundle, err := fwbundle.Decompose(blob, key, opts)
	if err != nil {
		return err
	}
	if err := tr.checkChain(bundle.Signature); err != nil {
		return err
	}
	logBundle(ctx, bundle)
	if reference != nil && !bytes.Equal(reference, bundle.Payload) {
		return ErrPayloadMismatch
	}
	if output != "" {
		if err := shared.WriteFile(output, bundle.Payload); err != nil {
			return err
		}
	}
	zlog.AppendFields(ctx, func(ev *zerolog.Event) {
		ev.Str("output", output).
			Int("size", len(bundle.Payload)).
			Str("digest", digest.FromBytes(bundle.Payload).String())
	})
	return nil
}

func logBundle(ctx context.Context, bundle *fwbundle.Bundle) {
	zlog.AppendFields(ctx, func(ev *zerolog.Event) {
		ev.Str("signer", x509tools.FormatSubject(bundle.Signature.Certificate)).
			Str("content_type", pkcs7.ContentTypeName(bundle.ContentType))
		if bundle.Cipher != nil {
			ev.Str("cipher", bundle.Cipher.Name)
		}
	})
}
