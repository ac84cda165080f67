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

package shared

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sassoftware/fwseal/config"
	"github.com/sassoftware/fwseal/lib/der"
	"github.com/sassoftware/fwseal/lib/pkcs7"
)

// Version is set at link time.
var Version = "unknown"

var (
	ArgConfig   string
	ArgLogLevel string
	argVersion  bool
)

var CurrentConfig *config.Config

var RootCmd = &cobra.Command{
	Use:               "fwseal",
	Short:             "Seal and unseal signed, encrypted firmware bundles",
	PersistentPreRunE: preRun,
	RunE:              bailUnlessVersion,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&ArgConfig, "config", "c", "", "Configuration file")
	RootCmd.PersistentFlags().StringVar(&ArgLogLevel, "log-level", "", "Override the configured log level")
	RootCmd.PersistentFlags().BoolVar(&argVersion, "version", false, "Show version and exit")
}

func preRun(cmd *cobra.Command, args []string) error {
	if argVersion {
		return nil
	}
	return InitConfig()
}

func bailUnlessVersion(cmd *cobra.Command, args []string) error {
	if !argVersion {
		return errors.New("expected a command")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "fwseal version %s\n", Version)
	return nil
}

// Exit codes
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitIntegrity = 3
)

var integrityErrors = []error{
	pkcs7.ErrSignatureMismatch,
	pkcs7.ErrDigestMismatch,
	pkcs7.ErrCertificateNotFound,
	pkcs7.ErrInvalidPadding,
	pkcs7.ErrDecryption,
	pkcs7.ErrDecompression,
	pkcs7.ErrUnexpectedContentType,
	der.ErrMalformedLength,
	der.ErrMalformedStructure,
}

// ExitCode maps an error to the process exit status. Bundles that fail to
// authenticate or decode give ExitIntegrity.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	for _, target := range integrityErrors {
		if errors.Is(err, target) {
			return ExitIntegrity
		}
	}
	return ExitFailure
}

// Run executes the root command with args and returns the exit status.
func Run(args []string, stderr io.Writer) int {
	RootCmd.SetArgs(args)
	err := RootCmd.Execute()
	CloseLogs()
	if err != nil {
		fmt.Fprintln(stderr, "ERROR:", err)
	}
	return ExitCode(err)
}

func Main() {
	os.Exit(Run(os.Args[1:], os.Stderr))
}
