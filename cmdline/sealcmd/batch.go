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
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var argJobs int

// runBatch calls fn for every input with at most argJobs running at once.
// Every input is attempted and all failures are returned together.
func runBatch(ctx context.Context, inputs []string, fn func(ctx context.Context, input string) error) error {
	jobs := argJobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	errs := make([]error, len(inputs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(jobs)
	for i, input := range inputs {
		eg.Go(func() error {
			if err := fn(ctx, input); err != nil {
				zerolog.Ctx(ctx).Debug().Str("input", input).Err(err).Msg("batch item failed")
				errs[i] = fmt.Errorf("%s: %w", input, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}
