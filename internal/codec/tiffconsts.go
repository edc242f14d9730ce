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

// Baseline TIFF layout: an 8 byte header, then a chain of image file directories (IFDs)
// with 12 byte entries each. Values of up to 4 bytes are stored inline, longer
// values are stored elsewhere and referenced by offset.

const (
	leHeader = "II\x2A\x00" // Header for little-endian files.
	ifdLen   = 12           // Length of an IFD entry in bytes.
)

// Data types
const (
	dtByte     = 1
	dtASCII    = 2
	dtShort    = 3
	dtLong     = 4
	dtRational = 5
)

// Tags
const (
	tImageWidth                = 256
	tImageLength               = 257
	tBitsPerSample             = 258
	tCompression               = 259
	tPhotometricInterpretation = 262
	tImageDescription          = 270
	tStripOffsets              = 273
	tSamplesPerPixel           = 277
	tRowsPerStrip              = 278
	tStripByteCounts           = 279
	tXResolution               = 282
	tYResolution               = 283
	tPlanarConfiguration       = 284
	tResolutionUnit            = 296
)

// Compression types
const (
	cNone    = 1
	cDeflate = 8 // Adobe deflate, zlib framing
)

// Photometric interpretation values
const (
	pBlackIsZero = 1
	pRGB         = 2
)

// Resolution units
const (
	resNone = 1
)
