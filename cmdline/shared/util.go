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
	"io"
	"os"
	"strings"

	"github.com/sassoftware/fwseal/config"
	"github.com/sassoftware/fwseal/internal/zlog"
	"github.com/sassoftware/fwseal/lib/atomicfile"
)

var logCloser io.Closer

// InitConfig loads the configuration and sets up logging. It runs before
// every subcommand.
func InitConfig() error {
	cfg, err := config.Load(ArgConfig)
	if err != nil {
		return err
	}
	level := cfg.Logging.Level
	if ArgLogLevel != "" {
		level = ArgLogLevel
	}
	CloseLogs()
	closer, err := zlog.Setup(level, cfg.Logging.File)
	if err != nil {
		return err
	}
	logCloser = closer
	CurrentConfig = cfg
	return nil
}

// CloseLogs releases the log file, if one is open.
func CloseLogs() {
	if logCloser != nil {
		logCloser.Close()
		logCloser = nil
	}
}

func OpenFile(path string) (*os.File, error) {
	if path == "-" {
		return os.Stdin, nil
	}
	return os.Open(path)
}

// ReadFile reads path, or stdin if path is "-".
func ReadFile(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// WriteFile atomically replaces path, or writes to stdout if path is "-".
func WriteFile(path string, data []byte) error {
	return atomicfile.WriteFile(path, data)
}

// SealedName gives the output name for a sealed input.
func SealedName(input, suffix string) string {
	if input == "-" {
		return "-"
	}
	return input + suffix
}

// UnsealedName gives the output name for an unsealed input, stripping the
// seal suffix or, failing that, adding ".out".
func UnsealedName(input, suffix string) string {
	if input == "-" {
		return "-"
	}
	if suffix != "" && strings.HasSuffix(input, suffix) && len(input) > len(suffix) {
		return strings.TrimSuffix(input, suffix)
	}
	return input + ".out"
}

// WritePrivateFile is WriteFile for secrets, readable only by the owner.
func WritePrivateFile(path string, data []byte) error {
	if path == "-" {
		return atomicfile.WriteFile(path, data)
	}
	f, err := atomicfile.NewMode(path, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Commit()
}
