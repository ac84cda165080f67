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
	"context"
	"errors"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sassoftware/fwseal/cmdline/shared"
	"github.com/sassoftware/fwseal/config"
	"github.com/sassoftware/fwseal/internal/zlog"
	"github.com/sassoftware/fwseal/lib/fwbundle"
	"github.com/sassoftware/fwseal/lib/pkcs7"
	"github.com/sassoftware/fwseal/lib/x509tools"
)

var SealCmd = &cobra.Command{
	Use:   "seal <file>...",
	Short: "Compress, encrypt and sign firmware images",
	Args:  cobra.MinimumNArgs(1),
	RunE:  sealCmd,
}

var (
	argOutput      string
	argSuffix      string
	argPEM         bool
	argAttrs       bool
	argContentType string
)

func init() {
	shared.RootCmd.AddCommand(SealCmd)
	flags := SealCmd.Flags()
	addSignerFlags(flags)
	addEncryptionFlags(flags, true)
	shared.AddDigestFlag(flags)
	flags.StringVarP(&argOutput, "output", "o", "", "Output file, only with a single input. Default is the input name plus the suffix")
	flags.StringVar(&argSuffix, "suffix", "", "Suffix for sealed files (overrides output.suffix)")
	flags.BoolVar(&argPEM, "pem", false, "Write PEM armored output")
	flags.BoolVar(&argAttrs, "attrs", true, "Include signed attributes; false signs the content digest directly")
	flags.StringVar(&argContentType, "content-type", "firmwarePackage", "Payload content type: firmwarePackage or data")
	flags.IntVarP(&argJobs, "jobs", "j", 0, "Files to process in parallel (default: number of CPUs)")
}

func sealOptions(cfg *config.Config, cmd *cobra.Command) (*fwbundle.SealOptions, error) {
	signer, err := loadSigner()
	if err != nil {
		return nil, err
	}
	enc := encryptionConfig()
	ciph, err := enc.GetCipher()
	if err != nil {
		return nil, err
	}
	key, err := enc.LoadKey()
	if err != nil {
		return nil, err
	}
	hash, err := shared.GetDigest()
	if err != nil {
		return nil, err
	}
	opts := &fwbundle.SealOptions{
		Signer:             signer,
		Key:                key,
		Cipher:             ciph,
		Hash:               hash,
		CompressionLevel:   cfg.Compression.Level,
		NoSignedAttributes: cfg.Signer.NoAttributes,
		Observer:           layerMetrics{},
	}
	if cmd.Flags().Changed("attrs") {
		opts.NoSignedAttributes = !argAttrs
	}
	switch argContentType {
	case "firmwarePackage", "":
		opts.ContentType = pkcs7.OidFirmwarePackage
	case "data":
		opts.ContentType = pkcs7.OidData
	default:
		return nil, errors.New("--content-type must be firmwarePackage or data")
	}
	if !opts.NoSignedAttributes {
		if opts.SignedAttributes, err = config.AttributeList(cfg.Attributes.Signed); err != nil {
			return nil, err
		}
	}
	if opts.UnsignedAttributes, err = config.AttributeList(cfg.Attributes.Unsigned); err != nil {
		return nil, err
	}
	if opts.UnprotectedAttributes, err = config.AttributeList(cfg.Attributes.Unprotected); err != nil {
		return nil, err
	}
	return opts, nil
}

func sealCmd(cmd *cobra.Command, args []string) error {
	if argOutput != "" && len(args) > 1 {
		return errors.New("--output can only be used with a single input")
	}
	cfg := shared.CurrentConfig
	opts, err := sealOptions(cfg, cmd)
	if err != nil {
		return err
	}
	suffix := cfg.Output.Suffix
	if argSuffix != "" {
		suffix = argSuffix
	}
	armor := cfg.Output.PEM || argPEM
	err = runBatch(cmd.Context(), args, func(ctx context.Context, input string) error {
		output := argOutput
		if output == "" {
			output = shared.SealedName(input, suffix)
		}
		return sealOne(ctx, input, output, armor, opts)
	})
	if merr := writeMetrics(); merr != nil && err == nil {
		err = merr
	}
	return err
}

func sealOne(ctx context.Context, input, output string, armor bool, opts *fwbundle.SealOptions) (err error) {
	ctx = zlog.StartOperation(ctx, "seal", input)
	defer func() {
		observeResult("seal", err)
		zlog.Finish(ctx, err)
	}()
	payload, err := shared.ReadFile(input)
	if err != nil {
		return err
	}
	sealOpts := *opts
	if !sealOpts.NoSignedAttributes {
		sealOpts.SigningTime = time.Now()
	}
	blob, err := fwbundle.Compose(payload, &sealOpts)
	if err != nil {
		return err
	}
	sum := digest.FromBytes(blob)
	if armor {
		blob = fwbundle.Armor(blob)
	}
	if err := shared.WriteFile(output, blob); err != nil {
		return err
	}
	zlog.AppendFields(ctx, func(ev *zerolog.Event) {
		ev.Str("output", output).
			Int("size", len(payload)).
			Str("digest", sum.String()).
			Str("signer", x509tools.FormatSubject(opts.Signer.Leaf)).
			Bool("attrs", !opts.NoSignedAttributes)
	})
	return nil
}
