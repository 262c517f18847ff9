// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package slogerrcapture

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/efficientgo/core/errors"
)

type doFunc func() error

// Do runs a best effort cleanup function such as Close and logs its error.
// Double closes of files are ignored.
func Do(logger *slog.Logger, doer doFunc, format string, a ...any) {
	derr := doer()
	if derr == nil || errors.Is(derr, os.ErrClosed) {
		return
	}
	logger.Error("Cleanup failed", slog.String("op", fmt.Sprintf(format, a...)), slog.Any("err", errors.Wrap(derr, "cleanup")))
}
