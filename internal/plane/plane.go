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
)

// A single-channel 2D intensity plane. Samples are stored row-major,
// i.e. the sample at column x and row y is Data[y*Width+x]
type Plane struct {
	ID        int        // Sequential ID number, for log output
	Name      string     // Name of the originating stack, used for channel selection and output naming
	Width     int        // Number of columns
	Height    int        // Number of rows
	PixelSize float64    // Physical size of a pixel in micrometers. 0 if unknown
	Data      []float64  // The samples
}

// Creates a plane of given dimensions. Data is not copied, allocated if nil
func New(width, height int, data []float64) (*Plane, error) {
	if width<=0 || height<=0 {
		return nil, fmt.Errorf("plane of %dx%d pixels: %w", width, height, ErrInvalidParameter)
	}
	if data==nil {
		data=make([]float64, width*height)
	} else if len(data)!=width*height {
		return nil, fmt.Errorf("plane of %dx%d pixels with %d samples: %w", width, height, len(data), ErrInvalidParameter)
	}
	return &Plane{Width: width, Height: height, Data: data}, nil
}

// Creates a plane from rows of samples, deep copying them. All rows must have equal length
func FromRows(rows [][]float64) (*Plane, error) {
	if len(rows)==0 || len(rows[0])==0 {
		return nil, fmt.Errorf("plane from empty rows: %w", ErrInvalidParameter)
	}
	width:=len(rows[0])
	data:=make([]float64, 0, width*len(rows))
	for y, row:=range rows {
		if len(row)!=width {
			return nil, fmt.Errorf("row %d has %d samples, expected %d: %w", y, len(row), width, ErrInvalidParameter)
		}
		data=append(data, row...)
	}
	return New(width, len(rows), data)
}

// Creates a new plane with the same metadata and dimensions, and freshly allocated data
func (p *Plane) NewLike() *Plane {
	return &Plane{
		ID:        p.ID,
		Name:      p.Name,
		Width:     p.Width,
		Height:    p.Height,
		PixelSize: p.PixelSize,
		Data:      make([]float64, len(p.Data)),
	}
}

// Creates a deep copy of the plane
func (p *Plane) Clone() *Plane {
	c:=p.NewLike()
	copy(c.Data, p.Data)
	return c
}

// Returns the sample at column x and row y
func (p *Plane) At(x, y int) float64 {
	return p.Data[y*p.Width+x]
}

// Returns true if both planes have identical width and height
func (p *Plane) SameSize(o *Plane) bool {
	return p.Width==o.Width && p.Height==o.Height
}

// Returns an error wrapping ErrDimensionMismatch unless all planes share the size of the first
func CheckSameSize(planes ...*Plane) error {
	if len(planes)==0 { return fmt.Errorf("no planes given: %w", ErrInvalidParameter) }
	for i, p:=range planes[1:] {
		if !planes[0].SameSize(p) {
			return fmt.Errorf("plane %d is %s, plane 0 is %s: %w",
				i+1, p.DimensionsToString(), planes[0].DimensionsToString(), ErrDimensionMismatch)
		}
	}
	return nil
}

// Returns a human-readable string describing the dimensions of the plane
func (p *Plane) DimensionsToString() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}
