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


// Package config holds the settings of a batch run, read from YAML or JSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"github.com/mlnoga/stedlight/internal/codec"
	"github.com/mlnoga/stedlight/internal/compose"
	"github.com/mlnoga/stedlight/internal/ops"
	"github.com/mlnoga/stedlight/internal/plane"
)

// Merge modes
const (
	MergeNone      ="none"
	MergeRGB       ="rgb"
	MergeMultiPage ="multipage"
)

// Default output subdirectories, relative to each input file's directory
const (
	DefaultOutput     ="tifs"
	DefaultPairOutput ="merged"
)

// Settings of a batch run
type Config struct {
	Input       string         `json:"input"      yaml:"input"`      // input directory
	Extensions  []string       `json:"extensions" yaml:"extensions"` // input file extensions, case-insensitive
	Recursive   bool           `json:"recursive"  yaml:"recursive"`  // descend into subdirectories
	Subdirs     string         `json:"subdirs"    yaml:"subdirs"`    // glob for subdirectories below input, e.g. IF*/renamed
	Output      string         `json:"output"     yaml:"output"`     // subdirectory next to each input, or an absolute directory
	Select      string         `json:"select"     yaml:"select"`     // stack name substring, empty for all
	Projection  string         `json:"projection" yaml:"projection"` // first, max, mean or all
	Channels    []ChannelRule  `json:"channels"   yaml:"channels"`
	Merge       Merge          `json:"merge"      yaml:"merge"`
	Workers     int            `json:"workers"    yaml:"workers"`    // 0 for automatic
	Log         string         `json:"log"        yaml:"log"`        // log file, %auto for one in the output directory
	TIFF        codec.Options  `json:"tiff"       yaml:"tiff"`
}

// Stage sequence for the stacks whose names contain Select. The first matching rule wins
type ChannelRule struct {
	Select  string           `json:"select" yaml:"select"`
	Steps   *ops.OpSequence  `json:"steps"  yaml:"steps"`
}

// Composition of processed channels
type Merge struct {
	Mode       string          `json:"mode"      yaml:"mode"`      // none, rgb or multipage
	Channels   []MergeChannel  `json:"channels"  yaml:"channels"`  // primary first. Empty merges all channels in file order
	Pair       *Pair           `json:"pair"      yaml:"pair"`      // merge across paired files
	PixelSize  float64         `json:"pixelSize" yaml:"pixelSize"` // micrometers per pixel, 0 to take it from the data
	Axis       string          `json:"axis"      yaml:"axis"`      // page axis for multipage: channel, depth or time
}

// A channel taking part in a merge
type MergeChannel struct {
	Select  string  `json:"select" yaml:"select"`
	Color   string  `json:"color"  yaml:"color"`  // for rgb, e.g. #00ff00 or green
}

// Pairs a file whose name contains Primary with the file whose name has it replaced by Secondary
type Pair struct {
	Primary    string  `json:"primary"   yaml:"primary"`
	Secondary  string  `json:"secondary" yaml:"secondary"`
}

// Returns the default configuration: stretch every stack with the plain policy,
// subtract its background and save all intermediate results
func Default() *Config {
	return &Config{
		Input:      ".",
		Extensions: []string{".obf", ".msr"},
		Output:     DefaultOutput,
		Projection: string(plane.ProjFirst),
		Channels:   []ChannelRule{{
			Steps: ops.NewOpSequence(ops.NewOpSaveRaw(), ops.NewOpStretchDefault(), ops.NewOpRollingBallDefault()),
		}},
		Merge:      Merge{Mode: MergeNone, Axis: string(compose.AxisChannel)},
		Log:        "%auto",
		TIFF:       codec.DefaultOptions(),
	}
}

// Loads a configuration file on top of the defaults. JSON is selected by a .json
// extension, YAML otherwise. A missing file yields the defaults
func Load(fileName string) (*Config, error) {
	c:=Default()
	b, err:=os.ReadFile(fileName)
	if errors.Is(err, fs.ErrNotExist) { return c, nil }
	if err!=nil { return nil, fmt.Errorf("reading config %s: %v: %w", fileName, err, plane.ErrResource) }
	if err:=c.Unmarshal(b, strings.EqualFold(filepath.Ext(fileName), ".json")); err!=nil {
		return nil, fmt.Errorf("config %s: %w", fileName, err)
	}
	return c, nil
}

// Decodes YAML or JSON into the configuration, keeping values for absent keys
func (c *Config) Unmarshal(b []byte, isJSON bool) error {
	kind, unmarshal:="YAML", yaml.Unmarshal
	if isJSON {
		kind, unmarshal="JSON", json.Unmarshal
		c.resetListsIn(b)
	}
	if err:=unmarshal(b, c); err!=nil {
		if errors.Is(err, plane.ErrInvalidParameter) { return err }
		return fmt.Errorf("parsing %s: %v: %w", kind, err, plane.ErrInvalidParameter)
	}
	return nil
}

// encoding/json decodes into existing slice elements, so rules given in b would
// inherit default fields. Clears the lists that b provides. yaml.v3 allocates fresh
// slices on its own
func (c *Config) resetListsIn(b []byte) {
	var present struct {
		Channels json.RawMessage `json:"channels"`
		Merge    struct {
			Channels json.RawMessage `json:"channels"`
		} `json:"merge"`
	}
	if json.Unmarshal(b, &present)!=nil { return }
	if present.Channels!=nil       { c.Channels=nil }
	if present.Merge.Channels!=nil { c.Merge.Channels=nil }
}

// Writes the configuration as YAML
func Save(c *Config, fileName string) error {
	b, err:=yaml.Marshal(c)
	if err!=nil { return err }
	if err:=os.WriteFile(fileName, b, 0644); err!=nil {
		return fmt.Errorf("writing config %s: %v: %w", fileName, err, plane.ErrResource)
	}
	return nil
}

// Validates the configuration and fills in derived defaults
func (c *Config) Validate() error {
	if c.Input=="" { return fmt.Errorf("no input directory: %w", plane.ErrInvalidParameter) }
	if len(c.Extensions)==0 { return fmt.Errorf("no input extensions: %w", plane.ErrInvalidParameter) }
	for i, e:=range c.Extensions {
		e=strings.ToLower(e)
		if !strings.HasPrefix(e, ".") { e="."+e }
		c.Extensions[i]=e
	}
	if c.Subdirs!="" {
		if _, err:=filepath.Match(c.Subdirs, ""); err!=nil {
			return fmt.Errorf("subdirectory glob '%s': %v: %w", c.Subdirs, err, plane.ErrInvalidParameter)
		}
	}
	if _, err:=plane.ParseProjection(c.Projection); err!=nil { return err }
	if c.Workers<0 { return fmt.Errorf("%d workers: %w", c.Workers, plane.ErrInvalidParameter) }
	if err:=c.TIFF.Validate(); err!=nil { return err }
	for i, r:=range c.Channels {
		if r.Steps==nil { c.Channels[i].Steps=ops.NewOpSequence() }
	}

	m:=&c.Merge
	if m.Mode=="" { m.Mode=MergeNone }
	m.Mode=strings.ToLower(m.Mode)
	switch m.Mode {
	case MergeNone:
	case MergeRGB:
		if len(m.Channels)<2 {
			return fmt.Errorf("rgb merge needs at least two channels, got %d: %w", len(m.Channels), plane.ErrInvalidParameter)
		}
		for _, mc:=range m.Channels {
			if mc.Color=="" { continue }
			if _, err:=compose.ParseColor(mc.Color); err!=nil { return err }
		}
	case MergeMultiPage:
		if _, err:=compose.ParseAxis(m.Axis); err!=nil { return err }
	default:
		return fmt.Errorf("unknown merge mode '%s': %w", m.Mode, plane.ErrInvalidParameter)
	}
	if m.PixelSize<0 { return fmt.Errorf("pixel size %g: %w", m.PixelSize, plane.ErrInvalidParameter) }
	if p:=m.Pair; p!=nil {
		if p.Primary=="" || p.Secondary=="" || p.Primary==p.Secondary {
			return fmt.Errorf("pair '%s' and '%s': %w", p.Primary, p.Secondary, plane.ErrInvalidParameter)
		}
		if m.Mode==MergeNone { return fmt.Errorf("file pairs need a merge mode: %w", plane.ErrInvalidParameter) }
		if c.Output==DefaultOutput || c.Output=="" { c.Output=DefaultPairOutput }
	}
	if c.Output=="" { c.Output=DefaultOutput }
	return nil
}

// Returns the stage sequence for a stack name, or nil if no rule matches
func (c *Config) StepsFor(stackName string) *ops.OpSequence {
	for _, r:=range c.Channels {
		if strings.Contains(stackName, r.Select) { return r.Steps }
	}
	return nil
}

// Returns the log file name. %auto resolves to a file in the output directory of the input root
func (c *Config) LogFile() string {
	if c.Log=="%auto" { return filepath.Join(c.OutputDir(filepath.Join(c.Input, "_")), "stedlight.log") }
	return c.Log
}

// Returns the output directory for an input file
func (c *Config) OutputDir(inputFile string) string {
	if filepath.IsAbs(c.Output) { return c.Output }
	return filepath.Join(filepath.Dir(inputFile), c.Output)
}
