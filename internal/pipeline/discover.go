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


package pipeline

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mlnoga/stedlight/internal/compose"
	"github.com/mlnoga/stedlight/internal/config"
	"github.com/mlnoga/stedlight/internal/plane"
)

// A unit of work: a single input file, or a primary file and its partner in pair mode.
// Each unit is processed to completion by one worker
type Unit struct {
	Files   []string
	Stem    string  // output name stem, from the first file
	OutDir  string
}

// Finds the input files for a run in sorted order, and groups them into units.
// Returns the primaries without partner file separately
func Discover(cfg *config.Config) (units []Unit, unpaired []string, err error) {
	dirs:=[]string{cfg.Input}
	if cfg.Subdirs!="" {
		matches, err:=filepath.Glob(filepath.Join(cfg.Input, cfg.Subdirs))
		if err!=nil { return nil, nil, fmt.Errorf("subdirectory glob: %v: %w", err, plane.ErrInvalidParameter) }
		dirs=dirs[:0]
		for _, m:=range matches {
			if fi, err:=os.Stat(m); err==nil && fi.IsDir() { dirs=append(dirs, m) }
		}
		sort.Strings(dirs)
	}

	var files []string
	seen:=map[string]bool{}
	for _, dir:=range dirs {
		found, err:=listFiles(dir, cfg)
		if err!=nil { return nil, nil, err }
		for _, f:=range found {
			if !seen[f] { seen[f]=true; files=append(files, f) }
		}
	}

	if cfg.Merge.Pair==nil {
		for _, f:=range files { units=append(units, newUnit(cfg, f)) }
		return units, nil, nil
	}
	units, unpaired=pairFiles(cfg, files, seen)
	return units, unpaired, nil
}

func newUnit(cfg *config.Config, files ...string) Unit {
	return Unit{Files: files, Stem: compose.Stem(files[0]), OutDir: cfg.OutputDir(files[0])}
}

// Lists the input files in a directory in name order, descending into subdirectories
// if configured. Output directories are not entered
func listFiles(dir string, cfg *config.Config) ([]string, error) {
	if !cfg.Recursive {
		entries, err:=os.ReadDir(dir)
		if err!=nil { return nil, fmt.Errorf("listing %s: %v: %w", dir, err, plane.ErrResource) }
		var res []string
		for _, e:=range entries {
			if !e.IsDir() && hasExtension(e.Name(), cfg.Extensions) { res=append(res, filepath.Join(dir, e.Name())) }
		}
		return res, nil
	}

	var res []string
	err:=filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err!=nil { return err }
		if d.IsDir() {
			if path!=dir && isOutputDir(path, cfg) { return filepath.SkipDir }
			return nil
		}
		if hasExtension(d.Name(), cfg.Extensions) { res=append(res, path) }
		return nil
	})
	if err!=nil { return nil, fmt.Errorf("walking %s: %v: %w", dir, err, plane.ErrResource) }
	return res, nil
}

func isOutputDir(path string, cfg *config.Config) bool {
	if filepath.IsAbs(cfg.Output) { return filepath.Clean(path)==filepath.Clean(cfg.Output) }
	return filepath.Base(path)==filepath.Base(cfg.Output)
}

func hasExtension(name string, exts []string) bool {
	ext:=strings.ToLower(filepath.Ext(name))
	for _, e:=range exts {
		if ext==e { return true }
	}
	return false
}

// Pairs each file whose name contains the primary selector with the file in the same
// directory whose name has it replaced by the secondary selector
func pairFiles(cfg *config.Config, files []string, exists map[string]bool) (units []Unit, unpaired []string) {
	p:=cfg.Merge.Pair
	for _, f:=range files {
		base:=filepath.Base(f)
		if !strings.Contains(base, p.Primary) { continue }
		partner:=filepath.Join(filepath.Dir(f), strings.Replace(base, p.Primary, p.Secondary, 1))
		if !exists[partner] {
			unpaired=append(unpaired, f)
			continue
		}
		units=append(units, newUnit(cfg, f, partner))
	}
	return units, unpaired
}
