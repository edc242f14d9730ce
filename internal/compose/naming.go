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


package compose

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Output name suffixes
const (
	SuffixRaw               =""
	SuffixContrast          ="contr-enh"
	SuffixBackground        ="background"
	SuffixWithoutBackground ="without_background"
	SuffixMerged            ="merged"
	SuffixMultiMerged       ="multi-merged"
	SuffixMedian            ="median"
)

// Suffix for a percentile stretch, e.g. "enh99.9"
func SuffixPercentile(q float64) string {
	return "enh"+strconv.FormatFloat(q, 'f', -1, 64)
}

// Suffix for a fixed factor stretch, e.g. "enh2x"
func SuffixFactor(f float64) string {
	return "enh"+strconv.FormatFloat(f, 'f', -1, 64)+"x"
}

// Suffix for a gauss blur, e.g. "Gauss2"
func SuffixGauss(sigma float64) string {
	return "Gauss"+strconv.FormatFloat(sigma, 'f', -1, 64)
}

var unsafeChars=strings.NewReplacer("/", "-", "\\", "-", ":", "-", "*", "-", "?", "-", "\"", "-", "<", "-", ">", "-", "|", "-", " ", "-")

// Derives output file names of the form <dir>/<stem>_<part>_<part>.<ext>, unique per run.
// A name requested twice gets _2, _3 and so on appended. Safe for concurrent use
type Namer struct {
	Dir   string
	Ext   string
	mutex sync.Mutex
	used  map[string]int
}

func NewNamer(dir, ext string) *Namer {
	if !strings.HasPrefix(ext, ".") { ext="."+ext }
	return &Namer{Dir: dir, Ext: ext, used: map[string]int{}}
}

// Returns a fresh output path for the given stem and name parts. Empty parts are skipped
func (n *Namer) Name(stem string, parts ...string) string {
	base:=unsafeChars.Replace(stem)
	for _, p:=range parts {
		if p=="" { continue }
		base+="_"+unsafeChars.Replace(p)
	}

	n.mutex.Lock()
	defer n.mutex.Unlock()
	name:=base
	for {
		count:=n.used[name]
		n.used[name]=count+1
		if count==0 { break }
		name=fmt.Sprintf("%s_%d", base, count+1)
	}
	return filepath.Join(n.Dir, name+n.Ext)
}

// Returns the file name without directory and extension
func Stem(fileName string) string {
	base:=filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
