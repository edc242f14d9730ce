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
	"fmt"
	"strings"
)

// A named N-dimensional array as delivered by a decoder
type Stack struct {
	Name      string     // Stack name, matched by channel selectors
	Shape     []int      // Axis dimensions, slowest varying first
	Axes      string     // One letter per axis in Shape: X columns, Y rows, anything else e.g. Z or T
	PixelSize float64    // Physical size of a pixel in micrometers. 0 if unknown
	Data      []float64  // Samples in the order given by Shape. Owned by the decoder, never written to
}

// How stacks with more than one plane are reduced to 2D
type Projection string

const (
	ProjFirst Projection = "first"  // use the first plane only
	ProjMax   Projection = "max"    // maximum intensity projection
	ProjMean  Projection = "mean"   // mean intensity projection
	ProjAll   Projection = "all"    // emit every plane separately
)

// Parses a projection mode from a string
func ParseProjection(s string) (Projection, error) {
	switch p:=Projection(strings.ToLower(s)); p {
	case ProjFirst, ProjMax, ProjMean, ProjAll:
		return p, nil
	case "":
		return ProjFirst, nil
	}
	return "", fmt.Errorf("unknown projection mode '%s': %w", s, ErrInvalidParameter)
}

// Returns a human-readable string describing the dimensions of the stack, e.g. "3x512x512 ZYX"
func (s *Stack) DimensionsToString() string {
	parts:=make([]string, len(s.Shape))
	for i, d:=range s.Shape { parts[i]=fmt.Sprint(d) }
	return strings.Join(parts, "x")+" "+s.Axes
}

// Validates the stack against its declared shape and axes, and returns the
// indices of the X and Y axes. Asserts rank >= 2
func (s *Stack) axes() (xAxis, yAxis int, err error) {
	if len(s.Shape)<2 {
		return 0, 0, fmt.Errorf("stack '%s' has rank %d, need at least 2: %w", s.Name, len(s.Shape), ErrDecoderFailure)
	}
	if len(s.Axes)!=len(s.Shape) {
		return 0, 0, fmt.Errorf("stack '%s' has %d axis labels for rank %d: %w", s.Name, len(s.Axes), len(s.Shape), ErrDecoderFailure)
	}
	n:=1
	for _, d:=range s.Shape {
		if d<=0 { return 0, 0, fmt.Errorf("stack '%s' has shape %v: %w", s.Name, s.Shape, ErrDecoderFailure) }
		n*=d
	}
	if n!=len(s.Data) {
		return 0, 0, fmt.Errorf("stack '%s' has %d samples for shape %v: %w", s.Name, len(s.Data), s.Shape, ErrDecoderFailure)
	}
	xAxis, yAxis=strings.IndexByte(s.Axes, 'X'), strings.IndexByte(s.Axes, 'Y')
	if xAxis<0 || yAxis<0 || xAxis==yAxis {
		return 0, 0, fmt.Errorf("stack '%s' with axes '%s' lacks X or Y: %w", s.Name, s.Axes, ErrDecoderFailure)
	}
	return xAxis, yAxis, nil
}

// Returns the number of 2D planes in the stack, i.e. the product of all non-spatial dimensions
func (s *Stack) NumPlanes() int {
	xAxis, yAxis, err:=s.axes()
	if err!=nil { return 0 }
	n:=1
	for i, d:=range s.Shape {
		if i!=xAxis && i!=yAxis { n*=d }
	}
	return n
}

// Normalizes the stack into row-major (Y, X) planes, reconciling the decoder's
// axis order once. Stacks with X before Y are transposed. Non-spatial axes
// are reduced according to the projection mode. The decoder's data is never
// aliased, all returned planes are freshly allocated
func (s *Stack) Planes(proj Projection) ([]*Plane, error) {
	xAxis, yAxis, err:=s.axes()
	if err!=nil { return nil, err }

	// element strides per axis, slowest first
	strides:=make([]int, len(s.Shape))
	stride:=1
	for i:=len(s.Shape)-1; i>=0; i-- {
		strides[i]=stride
		stride*=s.Shape[i]
	}
	width, height:=s.Shape[xAxis], s.Shape[yAxis]
	xStride, yStride:=strides[xAxis], strides[yAxis]

	// enumerate the base offsets of all 2D planes in the stack
	offsets:=[]int{0}
	for i, d:=range s.Shape {
		if i==xAxis || i==yAxis { continue }
		next:=make([]int, 0, len(offsets)*d)
		for _, o:=range offsets {
			for j:=0; j<d; j++ { next=append(next, o+j*strides[i]) }
		}
		offsets=next
	}

	extract:=func(index, base int) *Plane {
		p:=&Plane{ID: index, Name: s.Name, Width: width, Height: height, PixelSize: s.PixelSize,
			      Data: make([]float64, width*height)}
		for y:=0; y<height; y++ {
			row:=base+y*yStride
			for x:=0; x<width; x++ {
				p.Data[y*width+x]=s.Data[row+x*xStride]
			}
		}
		return p
	}

	switch proj {
	case ProjFirst, "":
		return []*Plane{extract(0, offsets[0])}, nil

	case ProjAll:
		res:=make([]*Plane, len(offsets))
		for i, o:=range offsets {
			res[i]=extract(i, o)
			if len(offsets)>1 { res[i].Name=fmt.Sprintf("%s_p%d", s.Name, i) }
		}
		return res, nil

	case ProjMax, ProjMean:
		acc:=extract(0, offsets[0])
		for _, o:=range offsets[1:] {
			p:=extract(0, o)
			for i, v:=range p.Data {
				if proj==ProjMax {
					if v>acc.Data[i] { acc.Data[i]=v }
				} else {
					acc.Data[i]+=v
				}
			}
		}
		if proj==ProjMean && len(offsets)>1 {
			scale:=1.0/float64(len(offsets))
			for i:=range acc.Data { acc.Data[i]*=scale }
		}
		return []*Plane{acc}, nil
	}
	return nil, fmt.Errorf("unknown projection mode '%s': %w", proj, ErrInvalidParameter)
}
