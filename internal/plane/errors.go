// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package plane

import (
	"context"
	"errors"
)

// Error categories. Callers wrap these with fmt.Errorf("...: %w") and
// classify with errors.Is to decide the scope of a failure.
var (
	// Out-of-range percentile, empty plane, non-positive radius. Aborts the channel
	ErrInvalidParameter  =errors.New("invalid parameter")

	// Percentile value of zero, which would divide by zero. Aborts the channel
	ErrDegenerateInput   =errors.New("degenerate input")

	// Planes of unequal size composed together. Aborts the composite
	ErrDimensionMismatch =errors.New("dimension mismatch")

	// Input file cannot be parsed. Skips the file
	ErrDecoderFailure    =errors.New("decoder failure")

	// Negative or NaN input to a square root. Aborts the channel
	ErrDomain            =errors.New("domain error")

	// Output directory or file cannot be created or written. Aborts the batch
	ErrResource          =errors.New("resource error")
)

// Returns true if the error must abort the whole batch, not just one file or channel.
// Cancellation aborts the batch as well
func IsBatchFatal(err error) bool {
	return errors.Is(err, ErrResource) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
