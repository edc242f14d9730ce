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


package stretch

import (
	"fmt"
	"math"

	"github.com/mlnoga/stedlight/internal/plane"
)

// Kernels are truncated at this many standard deviations
const GaussTruncate=4.0

// Returns the normalized 1D gaussian kernel for sigma, sampled at integer offsets
// within radius int(GaussTruncate*sigma+0.5)
func GaussianKernel1D(sigma float64) []float64 {
	radius:=int(GaussTruncate*sigma+0.5)
	kernel:=make([]float64, 2*radius+1)
	sum, denom:=0.0, 2*sigma*sigma
	for i:=range kernel {
		d:=float64(i-radius)
		kernel[i]=math.Exp(-d*d/denom)
		sum+=kernel[i]
	}
	for i:=range kernel { kernel[i]/=sum }
	return kernel
}

// Maps an index outside [0,n) back inside by mirroring about the pixel edges,
// so the border sample repeats: d c b a | a b c d | d c b a
func mirror(i, n int) int {
	for i<0 || i>=n {
		if i<0 { i=-i-1 } else { i=2*n-i-1 }
	}
	return i
}

// Convolves count lines of n samples each with the kernel. Line l starts at
// offset l*lineStep, consecutive samples are step apart
func convolveLines(dst, src, kernel []float64, n, count, step, lineStep int) {
	r:=len(kernel)/2
	for l:=0; l<count; l++ {
		base:=l*lineStep
		for i:=0; i<n; i++ {
			acc:=0.0
			for k, w:=range kernel {
				acc+=w*src[base+mirror(i+k-r, n)*step]
			}
			dst[base+i*step]=acc
		}
	}
}

// Applies a separable gaussian blur of the given standard deviation with mirrored
// borders, rows first. Returns a new plane
func GaussFilter(p *plane.Plane, sigma float64) (*plane.Plane, error) {
	if !(sigma>0) { return nil, fmt.Errorf("gauss sigma %g: %w", sigma, plane.ErrInvalidParameter) }
	kernel:=GaussianKernel1D(sigma)
	rows:=make([]float64, len(p.Data))
	convolveLines(rows, p.Data, kernel, p.Width, p.Height, 1, p.Width)
	res:=p.NewLike()
	convolveLines(res.Data, rows, kernel, p.Height, p.Width, p.Width, 1)
	return res, nil
}
