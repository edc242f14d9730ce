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


// Package decode reads microscope and raster files into named stacks.
package decode

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mlnoga/stedlight/internal/plane"
)

// Reads all stacks contained in a file. Errors wrap plane.ErrDecoderFailure
type Decoder interface {
	ListStacks(fileName string) ([]*plane.Stack, error)
}

var (
	decodersMutex sync.RWMutex
	decoders      =map[string]Decoder{}
)

// Registers a decoder for a file extension like ".obf". Panics on duplicates
func Register(ext string, d Decoder) {
	decodersMutex.Lock()
	defer decodersMutex.Unlock()
	ext=strings.ToLower(ext)
	if decoders[ext]!=nil { panic(fmt.Sprintf("error: re-registering decoder for %s\n", ext)) }
	decoders[ext]=d
}

// Returns the decoder for the extension of the given file
func ForFile(fileName string) (Decoder, error) {
	ext:=strings.ToLower(filepath.Ext(fileName))
	decodersMutex.RLock()
	defer decodersMutex.RUnlock()
	if d:=decoders[ext]; d!=nil { return d, nil }
	return nil, fmt.Errorf("no decoder for '%s': %w", fileName, plane.ErrDecoderFailure)
}

// Reads all stacks from the given file, using the decoder registered for its extension
func ListStacks(fileName string) ([]*plane.Stack, error) {
	d, err:=ForFile(fileName)
	if err!=nil { return nil, err }
	return d.ListStacks(fileName)
}

// Returns the stacks whose names contain the selector, case-sensitive. An empty selector selects all
func Select(stacks []*plane.Stack, selector string) []*plane.Stack {
	if selector=="" { return stacks }
	var res []*plane.Stack
	for _, s:=range stacks {
		if strings.Contains(s.Name, selector) { res=append(res, s) }
	}
	return res
}
