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


package codec

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/mlnoga/stedlight/internal/compose"
	"github.com/mlnoga/stedlight/internal/plane"
)

// Output options
type Options struct {
	Compress bool           `json:"compress" yaml:"compress"` // deflate TIFF pixel data
	Preview  PreviewOptions `json:"preview"  yaml:"preview"`
}

// Optional downscaled preview written next to each TIFF
type PreviewOptions struct {
	Format  string `json:"format"  yaml:"format"`  // "jpg" or "png", empty for no preview
	MaxSize int    `json:"maxSize" yaml:"maxSize"` // longest side in pixels, 0 keeps the full size
	Quality int    `json:"quality" yaml:"quality"` // JPEG quality 1..100
}

func DefaultOptions() Options {
	return Options{Preview: PreviewOptions{MaxSize: 1024, Quality: 95}}
}

// Validates the options
func (o *Options) Validate() error {
	switch strings.ToLower(o.Preview.Format) {
	case "", "jpg", "jpeg", "png":
	default:
		return fmt.Errorf("preview format '%s': %w", o.Preview.Format, plane.ErrInvalidParameter)
	}
	if o.Preview.MaxSize<0 || o.Preview.Quality<0 || o.Preview.Quality>100 {
		return fmt.Errorf("preview size %d quality %d: %w", o.Preview.MaxSize, o.Preview.Quality, plane.ErrInvalidParameter)
	}
	return nil
}

// Writes a plane as 8-bit grayscale TIFF, with its pixel size if known
func SaveGray(fileName string, p *plane.Plane, opts Options) error {
	img:=ToRaster(p)
	pg:=page{width: p.Width, height: p.Height, samples: 1, pix: img.Pix}
	if err:=saveTIFF(fileName, []page{pg}, tiffMeta{compress: opts.Compress, pixelSize: p.PixelSize}); err!=nil { return err }
	return savePreview(fileName, img, opts.Preview)
}

// Writes an RGB composite as 8-bit RGB TIFF
func SaveRGB(fileName string, c *compose.RGB, opts Options) error {
	img:=ToRGBRaster(c)
	w, h:=c.Width(), c.Height()
	pix:=make([]byte, 0, w*h*3)
	for i:=0; i<len(img.Pix); i+=4 { pix=append(pix, img.Pix[i:i+3]...) }
	pg:=page{width: w, height: h, samples: 3, pix: pix}
	if err:=saveTIFF(fileName, []page{pg}, tiffMeta{compress: opts.Compress, pixelSize: c.PixelSize}); err!=nil { return err }
	return savePreview(fileName, img, opts.Preview)
}

// ImageJ hyperstack dimension names for page axes
var imageJAxis=map[compose.Axis]string{
	compose.AxisChannel: "channels",
	compose.AxisDepth:   "slices",
	compose.AxisTime:    "frames",
}

// Writes a multi-page composite as 8-bit grayscale TIFF, one page per plane. Pixel size
// and axis are stored so that ImageJ opens channels as a composite
func SaveMultiPage(fileName string, m *compose.MultiPage, opts Options) error {
	pages:=make([]page, len(m.Pages))
	for i, p:=range m.Pages {
		pages[i]=page{width: p.Width, height: p.Height, samples: 1, pix: ToRaster(p).Pix}
	}
	meta:=tiffMeta{compress: opts.Compress, pixelSize: m.PixelSize, axis: imageJAxis[m.Axis]}
	return saveTIFF(fileName, pages, meta)
}

func saveTIFF(fileName string, pages []page, meta tiffMeta) (err error) {
	f, err:=os.Create(fileName)
	if err!=nil { return fmt.Errorf("creating %s: %v: %w", fileName, err, plane.ErrResource) }
	defer func() {
		if cerr:=f.Close(); cerr!=nil && err==nil {
			err=fmt.Errorf("closing %s: %v: %w", fileName, cerr, plane.ErrResource)
		}
	}()
	w:=bufio.NewWriter(f)
	if err=writeTIFF(w, pages, meta); err!=nil {
		return fmt.Errorf("writing %s: %v: %w", fileName, err, plane.ErrResource)
	}
	if err=w.Flush(); err!=nil {
		return fmt.Errorf("writing %s: %v: %w", fileName, err, plane.ErrResource)
	}
	return nil
}

// Writes a downscaled preview of img next to fileName, replacing the extension
func savePreview(fileName string, img image.Image, opts PreviewOptions) error {
	format:=strings.ToLower(opts.Format)
	if format=="" { return nil }
	if format=="jpeg" { format="jpg" }
	previewName:=strings.TrimSuffix(fileName, filepath.Ext(fileName))+"."+format

	b:=img.Bounds()
	if opts.MaxSize>0 && (b.Dx()>opts.MaxSize || b.Dy()>opts.MaxSize) {
		img=imaging.Fit(img, opts.MaxSize, opts.MaxSize, imaging.Lanczos)
	}
	quality:=opts.Quality
	if quality<=0 { quality=95 }
	if err:=imaging.Save(img, previewName, imaging.JPEGQuality(quality)); err!=nil {
		return fmt.Errorf("writing preview %s: %v: %w", previewName, err, plane.ErrResource)
	}
	return nil
}
