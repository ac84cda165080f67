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
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sassoftware/fwseal/cmdline/shared"
	"github.com/sassoftware/fwseal/internal/zlog"
	"github.com/sassoftware/fwseal/lib/fwbundle"
	"github.com/sassoftware/fwseal/lib/x509tools"
)

var VerifyCmd = &cobra.Command{
	Use:   "verify <file>...",
	Short: "Check the signature of sealed bundles without decrypting them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  verifyCmd,
}

func init() {
	shared.RootCmd.AddCommand(VerifyCmd)
	addTrustFlags(VerifyCmd.Flags())
}

func verifyCmd(cmd *cobra.Command, args []string) error {
	tr, err := loadTrust()
	if err != nil {
		return err
	}
	opts := &fwbundle.OpenOptions{
		Certificates: tr.extra,
		Observer:     layerMetrics{},
	}
	out := cmd.OutOrStdout()
	var errs []error
	for _, path := range args {
		subject, err := verifyOne(cmd.Context(), path, tr, opts)
		if err != nil {
			fmt.Fprintf(out, "%s ERROR: %s\n", path, err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		fmt.Fprintf(out, "%s: OK - %s\n", path, subject)
	}
	if merr := writeMetrics(); merr != nil {
		errs = append(errs, merr)
	}
	if len(errs) == 1 {
		return errs[0]
	} else if len(errs) > 1 {
		return fmt.Errorf("%d files did not validate: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

func verifyOne(ctx context.Context, path string, tr *trust, opts *fwbundle.OpenOptions) (subject string, err error) {
	ctx = zlog.StartOperation(ctx, "verify", path)
	defer func() {
		observeResult("verify", err)
		zlog.Finish(ctx, err)
	}()
	blob, err := shared.ReadFile(path)
	if err != nil {
		return "", err
	}
	if blob, err = fwbundle.Unarmor(blob); err != nil {
		return "", err
	}
	sig, _, err := fwbundle.Verify(blob, opts)
	if err != nil {
		return "", err
	}
	if err := tr.checkChain(sig); err != nil {
		return "", err
	}
	subject = x509tools.FormatSubject(sig.Certificate)
	zlog.AppendFields(ctx, func(ev *zerolog.Event) {
		ev.Str("signer", subject)
	})
	return subject, nil
}
