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


// Package arrayops holds the elementwise primitives on planes. All operations
// return freshly allocated planes and leave their inputs untouched.
package arrayops

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"github.com/mlnoga/stedlight/internal/plane"
	"github.com/mlnoga/stedlight/internal/qsort"
)

// Returns the q-th percentile of all samples in the plane, q in [0,100].
// Interpolates linearly between the two closest ranks
func Percentile(p *plane.Plane, q float64) (float64, error) {
	if math.IsNaN(q) || q<0 || q>100 {
		return 0, fmt.Errorf("percentile %g outside [0,100]: %w", q, plane.ErrInvalidParameter)
	}
	if p==nil || len(p.Data)==0 {
		return 0, fmt.Errorf("percentile of empty plane: %w", plane.ErrInvalidParameter)
	}
	tmp:=append([]float64(nil), p.Data...)
	pos:=q/100*float64(len(tmp)-1)
	return qsort.QSelectLinearFloat64(tmp, pos), nil
}

// Multiplies all samples by factor. Then values above highClip are set to highClip,
// and values at or below lowClip are set to 0
func ScaleAndClamp(p *plane.Plane, factor, lowClip, highClip float64) *plane.Plane {
	res:=Scale(p, factor)
	for i, v:=range res.Data {
		if v>highClip { v=highClip }
		if v<=lowClip { v=0 }
		res.Data[i]=v
	}
	return res
}

// Multiplies all samples by factor
func Scale(p *plane.Plane, factor float64) *plane.Plane {
	res:=p.NewLike()
	floats.ScaleTo(res.Data, factor, p.Data)
	return res
}

// Sets all samples above high to high, leaving others unchanged
func ClampHigh(p *plane.Plane, high float64) *plane.Plane {
	res:=p.NewLike()
	for i, v:=range p.Data {
		if v>high { v=high }
		res.Data[i]=v
	}
	return res
}

// Replaces each sample by its square root. Fails on negative or NaN samples
func SqrtRemap(p *plane.Plane) (*plane.Plane, error) {
	res:=p.NewLike()
	for i, v:=range p.Data {
		if !(v>=0) {
			return nil, fmt.Errorf("square root of %g at index %d: %w", v, i, plane.ErrDomain)
		}
		res.Data[i]=math.Sqrt(v)
	}
	return res, nil
}

// Saturates samples to [0,255] and truncates them toward zero, as done when
// narrowing to an 8-bit raster. Fractional parts are lost. NaN maps to 0
func Quantize8(p *plane.Plane) *plane.Plane {
	res:=p.NewLike()
	for i, v:=range p.Data {
		switch {
		case !(v>0): v=0
		case v>255:  v=255
		default:     v=math.Trunc(v)
		}
		res.Data[i]=v
	}
	return res
}
