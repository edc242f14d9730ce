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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"
	"github.com/mlnoga/stedlight/internal/plane"
)

// Reader for Imspector OBF files, and the OBF section of MSR files.
// Layout: https://github.com/AbberiorInstruments/ImspectorDocs/blob/master/docs/fileformat.rst
type OBF struct{}

func init() {
	Register(".obf", OBF{})
	Register(".msr", OBF{})
}

const (
	obfFileMagic  ="OMAS_BF\n\xff\xff"
	obfStackMagic ="OMAS_BF_STACK\n\xff\xff"
	obfMaxRank    =15
	obfMaxStacks  =4096
)

type obfFileHeader struct {
	Magic          [10]byte
	Version        uint32
	FirstStackPos  uint64
	DescrLen       uint32
}

type obfStackHeader struct {
	Magic            [16]byte
	Version          uint32
	Rank             uint32
	Res              [obfMaxRank]uint32
	Len              [obfMaxRank]float64 // physical lengths in meters
	Off              [obfMaxRank]float64
	DataType         uint32
	CompressionType  uint32
	CompressionLevel uint32
	NameLen          uint32
	DescrLen         uint32
	Reserved         uint64
	DataLenDisk      uint64
	NextStackPos     uint64
}

// Sample data types
const (
	obfUint8   =0x01
	obfInt8    =0x02
	obfUint16  =0x04
	obfInt16   =0x08
	obfUint32  =0x10
	obfInt32   =0x20
	obfFloat32 =0x40
	obfFloat64 =0x80
	obfUint64  =0x400
	obfInt64   =0x800
)

var obfSampleSize=map[uint32]int{
	obfUint8: 1, obfInt8: 1, obfUint16: 2, obfInt16: 2, obfUint32: 4, obfInt32: 4,
	obfFloat32: 4, obfFloat64: 8, obfUint64: 8, obfInt64: 8,
}

// Axis letters by OBF dimension index. Dimension 0 varies fastest
const obfAxes="XYZTCDEFGHIJKLM"

func (OBF) ListStacks(fileName string) ([]*plane.Stack, error) {
	f, err:=os.Open(fileName)
	if err!=nil { return nil, fmt.Errorf("%v: %w", err, plane.ErrDecoderFailure) }
	defer f.Close()
	stacks, err:=ReadOBF(f)
	if err!=nil { return nil, fmt.Errorf("%s: %w", fileName, err) }
	return stacks, nil
}

// Reads all stacks from an OBF container
func ReadOBF(r io.ReaderAt) ([]*plane.Stack, error) {
	var fh obfFileHeader
	if err:=binary.Read(io.NewSectionReader(r, 0, 1<<62), binary.LittleEndian, &fh); err!=nil {
		return nil, fmt.Errorf("reading file header: %v: %w", err, plane.ErrDecoderFailure)
	}
	if string(fh.Magic[:])!=obfFileMagic {
		return nil, fmt.Errorf("not an OBF file: %w", plane.ErrDecoderFailure)
	}

	var stacks []*plane.Stack
	seen:=map[uint64]bool{}
	for pos:=fh.FirstStackPos; pos!=0; {
		if seen[pos] || len(stacks)>=obfMaxStacks {
			return nil, fmt.Errorf("stack chain loops at offset %d: %w", pos, plane.ErrDecoderFailure)
		}
		seen[pos]=true
		s, next, err:=readOBFStack(r, int64(pos))
		if err!=nil { return nil, fmt.Errorf("stack %d at offset %d: %w", len(stacks), pos, err) }
		stacks=append(stacks, s)
		pos=next
	}
	return stacks, nil
}

func readOBFStack(r io.ReaderAt, pos int64) (s *plane.Stack, next uint64, err error) {
	sr:=io.NewSectionReader(r, pos, 1<<62)
	var h obfStackHeader
	if err:=binary.Read(sr, binary.LittleEndian, &h); err!=nil {
		return nil, 0, fmt.Errorf("reading stack header: %v: %w", err, plane.ErrDecoderFailure)
	}
	if string(h.Magic[:])!=obfStackMagic {
		return nil, 0, fmt.Errorf("bad stack magic: %w", plane.ErrDecoderFailure)
	}
	if h.Rank<1 || h.Rank>obfMaxRank {
		return nil, 0, fmt.Errorf("stack rank %d: %w", h.Rank, plane.ErrDecoderFailure)
	}
	sampleSize, ok:=obfSampleSize[h.DataType]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported sample type 0x%x: %w", h.DataType, plane.ErrDecoderFailure)
	}
	if h.NameLen>1<<16 || h.DescrLen>1<<24 {
		return nil, 0, fmt.Errorf("name length %d description length %d: %w", h.NameLen, h.DescrLen, plane.ErrDecoderFailure)
	}

	name:=make([]byte, h.NameLen)
	if _, err:=io.ReadFull(sr, name); err!=nil {
		return nil, 0, fmt.Errorf("reading stack name: %v: %w", err, plane.ErrDecoderFailure)
	}
	if !utf8.Valid(name) {
		return nil, 0, fmt.Errorf("stack name is not UTF-8: %w", plane.ErrDecoderFailure)
	}
	if _, err:=sr.Seek(int64(h.DescrLen), io.SeekCurrent); err!=nil {
		return nil, 0, fmt.Errorf("skipping description: %v: %w", err, plane.ErrDecoderFailure)
	}

	// shape, slowest varying first
	rank:=int(h.Rank)
	shape:=make([]int, rank)
	axes:=make([]byte, rank)
	numSamples:=1
	for i:=0; i<rank; i++ {
		res:=int(h.Res[i])
		if res<=0 || numSamples>math.MaxInt32/res {
			return nil, 0, fmt.Errorf("stack resolution %v: %w", h.Res[:rank], plane.ErrDecoderFailure)
		}
		numSamples*=res
		shape[rank-1-i]=res
		axes[rank-1-i]=obfAxes[i]
	}
	if rank==1 {
		return nil, 0, fmt.Errorf("stack '%s' of rank 1: %w", name, plane.ErrDecoderFailure)
	}

	expected:=uint64(numSamples*sampleSize)
	if (h.CompressionType==0 && h.DataLenDisk!=expected) || h.DataLenDisk>2*expected+1024 {
		return nil, 0, fmt.Errorf("%d data bytes on disk for %d samples: %w", h.DataLenDisk, numSamples, plane.ErrDecoderFailure)
	}
	raw:=make([]byte, h.DataLenDisk)
	if _, err:=io.ReadFull(sr, raw); err!=nil {
		return nil, 0, fmt.Errorf("reading %d bytes of data: %v: %w", h.DataLenDisk, err, plane.ErrDecoderFailure)
	}
	switch h.CompressionType {
	case 0:
	case 1:
		zr, err:=zlib.NewReader(bytes.NewReader(raw))
		if err!=nil { return nil, 0, fmt.Errorf("inflating data: %v: %w", err, plane.ErrDecoderFailure) }
		raw, err=io.ReadAll(io.LimitReader(zr, int64(numSamples*sampleSize)+1))
		zr.Close()
		if err!=nil { return nil, 0, fmt.Errorf("inflating data: %v: %w", err, plane.ErrDecoderFailure) }
	default:
		return nil, 0, fmt.Errorf("unsupported compression %d: %w", h.CompressionType, plane.ErrDecoderFailure)
	}
	if len(raw)!=numSamples*sampleSize {
		return nil, 0, fmt.Errorf("got %d data bytes, expected %d: %w", len(raw), numSamples*sampleSize, plane.ErrDecoderFailure)
	}

	pixelSize:=0.0
	if h.Len[0]>0 { pixelSize=h.Len[0]/float64(h.Res[0])*1e6 } // meters to micrometers

	return &plane.Stack{
		Name:      string(name),
		Shape:     shape,
		Axes:      string(axes),
		PixelSize: pixelSize,
		Data:      obfSamples(raw, h.DataType, numSamples),
	}, h.NextStackPos, nil
}

// Converts little-endian raw samples of the given type to float64
func obfSamples(raw []byte, dt uint32, n int) []float64 {
	res:=make([]float64, n)
	le:=binary.LittleEndian
	for i:=range res {
		switch dt {
		case obfUint8:   res[i]=float64(raw[i])
		case obfInt8:    res[i]=float64(int8(raw[i]))
		case obfUint16:  res[i]=float64(le.Uint16(raw[2*i:]))
		case obfInt16:   res[i]=float64(int16(le.Uint16(raw[2*i:])))
		case obfUint32:  res[i]=float64(le.Uint32(raw[4*i:]))
		case obfInt32:   res[i]=float64(int32(le.Uint32(raw[4*i:])))
		case obfFloat32: res[i]=float64(math.Float32frombits(le.Uint32(raw[4*i:])))
		case obfFloat64: res[i]=math.Float64frombits(le.Uint64(raw[8*i:]))
		case obfUint64:  res[i]=float64(le.Uint64(raw[8*i:]))
		case obfInt64:   res[i]=float64(int64(le.Uint64(raw[8*i:])))
		}
	}
	return res
}
