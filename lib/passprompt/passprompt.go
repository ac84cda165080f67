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

// Package passprompt supplies passwords for encrypted key material, either
// interactively or from the environment.
package passprompt

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/howeyc/gopass"
)

// PasswordGetter returns a password. An empty result with a nil error means
// the user entered nothing.
type PasswordGetter interface {
	GetPasswd(prompt string) (string, error)
}

// PasswordPrompt reads from the terminal without echo.
type PasswordPrompt struct {
	// Out receives the prompt text. Defaults to stderr.
	Out io.Writer
}

func (p PasswordPrompt) GetPasswd(prompt string) (string, error) {
	out := p.Out
	if out == nil {
		out = os.Stderr
	}
	passwd, err := gopass.GetPasswdPrompt(prompt, false, os.Stdin, out)
	if errors.Is(err, gopass.ErrInterrupted) {
		return "", errors.New("interrupted")
	} else if err != nil {
		return "", err
	}
	return string(passwd), nil
}

// EnvPrompt takes the password from an environment variable. Once the
// variable has been returned further calls give an empty string so that
// retry loops terminate.
type EnvPrompt struct {
	Name string
	used bool
}

func (p *EnvPrompt) GetPasswd(prompt string) (string, error) {
	if p.used {
		return "", nil
	}
	p.used = true
	value, ok := os.LookupEnv(p.Name)
	if !ok {
		return "", fmt.Errorf("environment variable %s is not set", p.Name)
	}
	return value, nil
}

// Fixed returns the same password every time.
type Fixed string

func (f Fixed) GetPasswd(prompt string) (string, error) {
	return string(f), nil
}
