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


// Package compose combines processed single-channel planes into false-color
// RGB images or multi-page stacks.
package compose

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/mlnoga/stedlight/internal/plane"
)

const (
	DefaultPrimaryColor  ="#00ff00" // green
	DefaultSecondaryColor="#ff00ff" // magenta
)

var namedColors=map[string]string{
	"red":     "#ff0000",
	"green":   "#00ff00",
	"blue":    "#0000ff",
	"cyan":    "#00ffff",
	"magenta": "#ff00ff",
	"yellow":  "#ffff00",
	"gray":    "#ffffff",
	"grey":    "#ffffff",
	"white":   "#ffffff",
}

// Parses a color given as hex string like "#00ff00", or by name like "magenta"
func ParseColor(s string) (colorful.Color, error) {
	hex:=strings.ToLower(strings.TrimSpace(s))
	if named, ok:=namedColors[hex]; ok { hex=named }
	c, err:=colorful.Hex(hex)
	if err!=nil {
		return colorful.Color{}, fmt.Errorf("color '%s': %v: %w", s, err, plane.ErrInvalidParameter)
	}
	return c, nil
}

// An 8-bit RGB composite stored as one plane per color slot
type RGB struct {
	Name      string
	PixelSize float64
	Slots     [3]*plane.Plane
}

func (c *RGB) Width() int  { return c.Slots[0].Width }
func (c *RGB) Height() int { return c.Slots[0].Height }

// Combines two equally sized planes into green/magenta false color:
// slot 0 holds the secondary plane, slot 1 the primary, slot 2 the secondary again
func CombineRGB(primary, secondary *plane.Plane) (*RGB, error) {
	if err:=plane.CheckSameSize(primary, secondary); err!=nil { return nil, err }
	c:=&RGB{Name: primary.Name, PixelSize: primary.PixelSize}
	c.Slots[0]=secondary.Clone()
	c.Slots[1]=primary.Clone()
	c.Slots[2]=secondary.Clone()
	return c, nil
}

// Combines any number of equally sized planes into one RGB image. Each plane is
// tinted with its color and the results are added, saturating at 255
func CombineColors(planes []*plane.Plane, colors []colorful.Color) (*RGB, error) {
	if len(planes)!=len(colors) {
		return nil, fmt.Errorf("%d planes with %d colors: %w", len(planes), len(colors), plane.ErrInvalidParameter)
	}
	if err:=plane.CheckSameSize(planes...); err!=nil { return nil, err }

	c:=&RGB{Name: planes[0].Name, PixelSize: planes[0].PixelSize}
	for s:=range c.Slots { c.Slots[s]=planes[0].NewLike() }
	for i, p:=range planes {
		weights:=[3]float64{colors[i].R, colors[i].G, colors[i].B}
		for s, w:=range weights {
			if w==0 { continue }
			dest:=c.Slots[s].Data
			for j, v:=range p.Data {
				dest[j]+=v*w
			}
		}
	}
	for _, slot:=range c.Slots {
		for j, v:=range slot.Data {
			if v>255 { slot.Data[j]=255 }
		}
	}
	return c, nil
}

// Axis labels for the pages of a multi-page composite
type Axis string

const (
	AxisChannel Axis = "channel"
	AxisDepth   Axis = "depth"
	AxisTime    Axis = "time"
)

// Parses an axis label
func ParseAxis(s string) (Axis, error) {
	switch a:=Axis(strings.ToLower(s)); a {
	case AxisChannel, AxisDepth, AxisTime:
		return a, nil
	case "":
		return AxisChannel, nil
	}
	return "", fmt.Errorf("unknown page axis '%s': %w", s, plane.ErrInvalidParameter)
}

// An ordered sequence of equally sized pages with shared metadata
type MultiPage struct {
	Name      string
	PixelSize float64  // micrometers per pixel, 0 if unknown
	Axis      Axis
	Pages     []*plane.Plane
}

// Combines equally sized planes into a multi-page composite, one page per plane in order
func CombinePages(planes []*plane.Plane, pixelSize float64, axis Axis) (*MultiPage, error) {
	if err:=plane.CheckSameSize(planes...); err!=nil { return nil, err }
	if pixelSize<0 {
		return nil, fmt.Errorf("pixel size %g: %w", pixelSize, plane.ErrInvalidParameter)
	}
	if axis=="" { axis=AxisChannel }
	m:=&MultiPage{Name: planes[0].Name, PixelSize: pixelSize, Axis: axis, Pages: make([]*plane.Plane, len(planes))}
	for i, p:=range planes { m.Pages[i]=p.Clone() }
	return m, nil
}
