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


package decode

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"
	"github.com/mlnoga/stedlight/internal/plane"
)

// Reader for standard raster images. Gray images yield one stack named after the
// file, color images one stack per red, green and blue channel
type Raster struct{}

func init() {
	for _, ext:=range []string{".tif", ".tiff", ".png", ".jpg", ".jpeg", ".bmp", ".gif"} {
		Register(ext, Raster{})
	}
}

func (Raster) ListStacks(fileName string) ([]*plane.Stack, error) {
	img, err:=openImage(fileName)
	if err!=nil { return nil, fmt.Errorf("%s: %v: %w", fileName, err, plane.ErrDecoderFailure) }
	base:=filepath.Base(fileName)
	return FromImage(strings.TrimSuffix(base, filepath.Ext(base)), img), nil
}

// TIFFs are decoded directly to keep 16-bit samples, other formats via imaging
func openImage(fileName string) (image.Image, error) {
	ext:=strings.ToLower(filepath.Ext(fileName))
	if ext!=".tif" && ext!=".tiff" { return imaging.Open(fileName) }
	f, err:=os.Open(fileName)
	if err!=nil { return nil, err }
	defer f.Close()
	return tiff.Decode(bufio.NewReader(f))
}

// Converts an image to stacks of shape (height, width)
func FromImage(name string, img image.Image) []*plane.Stack {
	b:=img.Bounds()
	w, h:=b.Dx(), b.Dy()
	newStack:=func(suffix string) *plane.Stack {
		return &plane.Stack{Name: name+suffix, Shape: []int{h, w}, Axes: "YX", Data: make([]float64, w*h)}
	}

	switch src:=img.(type) {
	case *image.Gray:
		s:=newStack("")
		for y:=0; y<h; y++ {
			row:=src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			for x:=0; x<w; x++ { s.Data[y*w+x]=float64(row[x]) }
		}
		return []*plane.Stack{s}

	case *image.Gray16:
		s:=newStack("")
		for y:=0; y<h; y++ {
			for x:=0; x<w; x++ { s.Data[y*w+x]=float64(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y) }
		}
		return []*plane.Stack{s}
	}

	r, g, bl:=newStack("_red"), newStack("_green"), newStack("_blue")
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			cr, cg, cb, _:=img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i:=y*w+x
			r.Data[i], g.Data[i], bl.Data[i]=float64(cr>>8), float64(cg>>8), float64(cb>>8)
		}
	}
	return []*plane.Stack{r, g, bl}
}
