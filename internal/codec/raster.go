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


// Package codec converts planes to 8-bit rasters and persists them as TIFF files.
package codec

import (
	"image"

	"github.com/mlnoga/stedlight/internal/compose"
	"github.com/mlnoga/stedlight/internal/plane"
)

// Narrows a sample to 8 bits by truncation toward zero. No clamping is applied:
// out of range values wrap around like an integer cast
func narrow(v float64) uint8 {
	return uint8(int32(v))
}

// Converts a plane to an 8-bit grayscale raster. Samples are truncated, not rounded,
// and must already lie in [0,255]
func ToRaster(p *plane.Plane) *image.Gray {
	img:=image.NewGray(image.Rect(0, 0, p.Width, p.Height))
	for y:=0; y<p.Height; y++ {
		src:=p.Data[y*p.Width:(y+1)*p.Width]
		dst:=img.Pix[y*img.Stride:]
		for x, v:=range src { dst[x]=narrow(v) }
	}
	return img
}

// Converts an 8-bit grayscale raster to a plane
func FromRaster(img *image.Gray) *plane.Plane {
	b:=img.Bounds()
	p:=&plane.Plane{Width: b.Dx(), Height: b.Dy(), Data: make([]float64, b.Dx()*b.Dy())}
	for y:=0; y<p.Height; y++ {
		row:=img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		for x:=0; x<p.Width; x++ {
			p.Data[y*p.Width+x]=float64(row[x])
		}
	}
	return p
}

// Converts an RGB composite to an opaque 8-bit color raster, truncating like ToRaster
func ToRGBRaster(c *compose.RGB) *image.NRGBA {
	w, h:=c.Width(), c.Height()
	img:=image.NewNRGBA(image.Rect(0, 0, w, h))
	r, g, b:=c.Slots[0].Data, c.Slots[1].Data, c.Slots[2].Data
	for y:=0; y<h; y++ {
		dst:=img.Pix[y*img.Stride:]
		for x:=0; x<w; x++ {
			i:=y*w+x
			dst[4*x  ]=narrow(r[i])
			dst[4*x+1]=narrow(g[i])
			dst[4*x+2]=narrow(b[i])
			dst[4*x+3]=255
		}
	}
	return img
}
