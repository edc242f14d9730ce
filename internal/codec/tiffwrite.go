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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// One 8-bit page of a TIFF file, with interleaved samples
type page struct {
	width, height int
	samples       int     // 1 for gray, 3 for RGB
	pix           []byte  // width*height*samples bytes, row-major
}

// Metadata shared by all pages of a TIFF file
type tiffMeta struct {
	compress  bool     // deflate pixel data
	pixelSize float64  // micrometers per pixel, 0 if unknown
	axis      string   // ImageJ axis of the pages: channels, slices or frames
}

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte // little-endian encoded values
}

func shortEntry(tag uint16, vals ...uint16) ifdEntry {
	data:=make([]byte, 2*len(vals))
	for i, v:=range vals { binary.LittleEndian.PutUint16(data[2*i:], v) }
	return ifdEntry{tag, dtShort, uint32(len(vals)), data}
}

func longEntry(tag uint16, vals ...uint32) ifdEntry {
	data:=make([]byte, 4*len(vals))
	for i, v:=range vals { binary.LittleEndian.PutUint32(data[4*i:], v) }
	return ifdEntry{tag, dtLong, uint32(len(vals)), data}
}

func rationalEntry(tag uint16, num, den uint32) ifdEntry {
	data:=make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:], num)
	binary.LittleEndian.PutUint32(data[4:], den)
	return ifdEntry{tag, dtRational, 1, data}
}

func asciiEntry(tag uint16, s string) ifdEntry {
	data:=append([]byte(s), 0)
	return ifdEntry{tag, dtASCII, uint32(len(data)), data}
}

// Approximates 1/pixelSize, the number of pixels per unit, as a rational
func pixelsPerUnit(pixelSize float64) (num, den uint32) {
	ppu:=1/pixelSize
	den=1000000
	for den>1 && ppu*float64(den)>math.MaxUint32 { den/=10 }
	return uint32(math.Round(ppu*float64(den))), den
}

// Builds an ImageJ-compatible description, so viewers pick up page count, axis and unit
func imageJDescription(numPages int, meta tiffMeta) string {
	sb:=strings.Builder{}
	sb.WriteString("ImageJ=1.11a\n")
	if numPages>1 {
		axis:=meta.axis
		if axis=="" { axis="channels" }
		fmt.Fprintf(&sb, "images=%d\n%s=%d\n", numPages, axis, numPages)
		if axis=="channels" { sb.WriteString("mode=composite\n") }
	}
	if meta.pixelSize>0 { sb.WriteString("unit=micron\n") }
	sb.WriteString("loop=false\n")
	return sb.String()
}

func deflate(pix []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw:=zlib.NewWriter(&buf)
	if _, err:=zw.Write(pix); err!=nil { return nil, err }
	if err:=zw.Close(); err!=nil { return nil, err }
	return buf.Bytes(), nil
}

// Writes the pages as a little-endian baseline TIFF with one strip per page
func writeTIFF(w io.Writer, pages []page, meta tiffMeta) error {
	if len(pages)==0 { return fmt.Errorf("no pages to write") }

	buf:=&bytes.Buffer{}
	buf.WriteString(leHeader)
	nextPtr:=buf.Len()                 // where to patch the offset of the next IFD
	buf.Write([]byte{0, 0, 0, 0})

	patch:=func(at int, v uint32) { binary.LittleEndian.PutUint32(buf.Bytes()[at:], v) }
	align:=func() { if buf.Len()%2==1 { buf.WriteByte(0) } }

	for i, pg:=range pages {
		if len(pg.pix)!=pg.width*pg.height*pg.samples {
			return fmt.Errorf("page %d has %d bytes for %dx%dx%d", i, len(pg.pix), pg.width, pg.height, pg.samples)
		}
		strip, compression:=pg.pix, uint16(cNone)
		if meta.compress {
			var err error
			if strip, err=deflate(pg.pix); err!=nil { return err }
			compression=cDeflate
		}
		align()
		stripOffset:=buf.Len()
		buf.Write(strip)

		photometric:=uint16(pBlackIsZero)
		bits:=[]uint16{8}
		if pg.samples==3 {
			photometric=pRGB
			bits=[]uint16{8, 8, 8}
		}
		entries:=[]ifdEntry{
			longEntry (tImageWidth,                uint32(pg.width)),
			longEntry (tImageLength,               uint32(pg.height)),
			shortEntry(tBitsPerSample,             bits...),
			shortEntry(tCompression,               compression),
			shortEntry(tPhotometricInterpretation, photometric),
			longEntry (tStripOffsets,              uint32(stripOffset)),
			shortEntry(tSamplesPerPixel,           uint16(pg.samples)),
			longEntry (tRowsPerStrip,              uint32(pg.height)),
			longEntry (tStripByteCounts,           uint32(len(strip))),
			shortEntry(tPlanarConfiguration,       1),
		}
		if i==0 {
			entries=append(entries, asciiEntry(tImageDescription, imageJDescription(len(pages), meta)))
		}
		if meta.pixelSize>0 {
			num, den:=pixelsPerUnit(meta.pixelSize)
			entries=append(entries,
				rationalEntry(tXResolution, num, den),
				rationalEntry(tYResolution, num, den),
				shortEntry(tResolutionUnit, resNone),
			)
		}
		sort.Slice(entries, func(a, b int) bool { return entries[a].tag<entries[b].tag })

		// IFD: entry count, entries, next IFD offset, then out-of-line values
		align()
		ifdOffset:=buf.Len()
		patch(nextPtr, uint32(ifdOffset))
		extraOffset:=ifdOffset+2+ifdLen*len(entries)+4
		extra:=bytes.Buffer{}

		binary.Write(buf, binary.LittleEndian, uint16(len(entries)))
		for _, e:=range entries {
			binary.Write(buf, binary.LittleEndian, e.tag)
			binary.Write(buf, binary.LittleEndian, e.typ)
			binary.Write(buf, binary.LittleEndian, e.count)
			if len(e.data)<=4 {
				var inline [4]byte
				copy(inline[:], e.data)
				buf.Write(inline[:])
			} else {
				if extra.Len()%2==1 { extra.WriteByte(0) }
				binary.Write(buf, binary.LittleEndian, uint32(extraOffset+extra.Len()))
				extra.Write(e.data)
			}
		}
		nextPtr=buf.Len()
		buf.Write([]byte{0, 0, 0, 0})
		buf.Write(extra.Bytes())
	}

	if int64(buf.Len())>math.MaxUint32 {
		return fmt.Errorf("TIFF of %d bytes exceeds 4 GiB", buf.Len())
	}
	_, err:=w.Write(buf.Bytes())
	return err
}
