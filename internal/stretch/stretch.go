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


// Package stretch maps a high percentile of a plane to the 8-bit display maximum.
package stretch

import (
	"fmt"

	"github.com/mlnoga/stedlight/internal/arrayops"
	"github.com/mlnoga/stedlight/internal/plane"
)

const (
	OutMax              =255.0
	DefaultPlainPercentile=99.8
	DefaultSqrtPercentile =99.9
)

// Stretch policies
type Policy string

const (
	PolicyPlain Policy = "plain"   // linear stretch at a percentile
	PolicySqrt  Policy = "sqrt"    // square root first, then linear stretch at a percentile
	PolicyFixed Policy = "fixed"   // multiply by a fixed factor
)

// Parses a stretch policy from a string
func ParsePolicy(s string) (Policy, error) {
	switch p:=Policy(s); p {
	case PolicyPlain, PolicySqrt, PolicyFixed:
		return p, nil
	}
	return "", fmt.Errorf("unknown stretch policy '%s': %w", s, plane.ErrInvalidParameter)
}

// Outcome of a stretch, with the parameters used for traceability
type Result struct {
	Plane      *plane.Plane  // The stretched plane
	Percentile float64       // The percentile used, 0 for fixed factors
	Value      float64       // Sample value at the percentile
	Factor     float64       // Scale factor applied
}

// Linear stretch mapping the q-th percentile to 255. Values above 255 are clipped,
// and values at or below the scale factor itself are set to 0
func Plain(p *plane.Plane, q float64) (*Result, error) {
	value, err:=arrayops.Percentile(p, q)
	if err!=nil { return nil, err }
	return linear(p, q, value)
}

// Square-root preconditioned stretch for finer shadow detail. Takes the square root of
// all samples, then stretches the result as Plain does
func Sqrt(p *plane.Plane, q float64) (*Result, error) {
	root, err:=arrayops.SqrtRemap(p)
	if err!=nil { return nil, err }
	value, err:=arrayops.Percentile(root, q)
	if err!=nil { return nil, err }
	return linear(root, q, value)
}

func linear(p *plane.Plane, q, value float64) (*Result, error) {
	if value==0 {
		return nil, fmt.Errorf("%.4g%% percentile of '%s' is zero: %w", q, p.Name, plane.ErrDegenerateInput)
	}
	factor:=OutMax/value
	return &Result{
		Plane:      arrayops.ScaleAndClamp(p, factor, factor, OutMax),
		Percentile: q,
		Value:      value,
		Factor:     factor,
	}, nil
}

// Multiplies all samples with a fixed factor and clips values above 255
func Fixed(p *plane.Plane, factor float64) (*Result, error) {
	if !(factor>0) {
		return nil, fmt.Errorf("stretch factor %g: %w", factor, plane.ErrInvalidParameter)
	}
	return &Result{
		Plane:  arrayops.ClampHigh(arrayops.Scale(p, factor), OutMax),
		Factor: factor,
	}, nil
}

// Applies the given policy. Percentile q is ignored for fixed stretches, factor for the others
func Apply(p *plane.Plane, policy Policy, q, factor float64) (*Result, error) {
	switch policy {
	case PolicyPlain: return Plain(p, q)
	case PolicySqrt:  return Sqrt(p, q)
	case PolicyFixed: return Fixed(p, factor)
	}
	return nil, fmt.Errorf("unknown stretch policy '%s': %w", policy, plane.ErrInvalidParameter)
}
