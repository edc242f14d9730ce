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


package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mlnoga/stedlight/internal/ops"
	"github.com/mlnoga/stedlight/internal/plane"
)

func TestDefaultIsValid(t *testing.T) {
	c:=Default()
	if err:=c.Validate(); err!=nil { t.Fatal(err) }
	if c.Output!=DefaultOutput || c.Merge.Mode!=MergeNone { t.Errorf("got output %s merge %s", c.Output, c.Merge.Mode) }
	if steps:=c.StepsFor("any stack"); steps==nil || len(steps.Steps)!=3 { t.Errorf("default steps %+v", steps) }
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	c, err:=Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err!=nil { t.Fatal(err) }
	if c.Input!="." || len(c.Extensions)!=2 { t.Errorf("got %+v", c) }
}

func TestLoadYAML(t *testing.T) {
	fileName:=filepath.Join(t.TempDir(), "run.yaml")
	in:=`
input: data
extensions: [MSR, .tif]
select: STED
channels:
  - select: Tom
    steps:
      steps:
        - type: stretch
          policy: sqrt
  - select: ""
    steps:
      steps:
        - type: saveRaw
merge:
  mode: RGB
  channels:
    - select: Tom
    - select: Bax
      color: "#ff00ff"
  pair:
    primary: Tom20
    secondary: Bax
`
	if err:=os.WriteFile(fileName, []byte(in), 0644); err!=nil { t.Fatal(err) }
	c, err:=Load(fileName)
	if err!=nil { t.Fatal(err) }
	if err:=c.Validate(); err!=nil { t.Fatal(err) }

	if c.Input!="data" || c.Extensions[0]!=".msr" || c.Extensions[1]!=".tif" { t.Errorf("input %s ext %v", c.Input, c.Extensions) }
	if c.Output!=DefaultPairOutput { t.Errorf("pair output %s; want %s", c.Output, DefaultPairOutput) }
	if c.Merge.Mode!=MergeRGB || len(c.Merge.Channels)!=2 { t.Errorf("merge %+v", c.Merge) }
	if s:=c.StepsFor("STED Tom20"); s==nil || len(s.Steps)!=1 || s.Steps[0].GetType()!="stretch" {
		t.Errorf("Tom steps %+v", s)
	}
	if s:=c.StepsFor("STED Bax"); s==nil || s.Steps[0].GetType()!="saveRaw" { t.Errorf("Bax steps %+v", s) }
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fileName:=filepath.Join(t.TempDir(), "run.yaml")
	c:=Default()
	c.Workers=3
	c.Channels=append(c.Channels, ChannelRule{Select: "Bax", Steps: ops.NewOpSequence(ops.NewOpGaussDefault())})
	if err:=Save(c, fileName); err!=nil { t.Fatal(err) }
	got, err:=Load(fileName)
	if err!=nil { t.Fatal(err) }
	if got.Workers!=3 || len(got.Channels)!=2 || got.Channels[1].Steps.Steps[0].GetType()!="gauss" {
		t.Errorf("round trip got %+v", got)
	}
}

func TestLoadJSON(t *testing.T) {
	fileName:=filepath.Join(t.TempDir(), "run.json")
	in:=`{"input": "x", "channels": [{"select": "a", "steps": {"type": "seq", "active": true, "steps": [{"type": "gauss", "sigma": 3}]}}]}`
	if err:=os.WriteFile(fileName, []byte(in), 0644); err!=nil { t.Fatal(err) }
	c, err:=Load(fileName)
	if err!=nil { t.Fatal(err) }
	g, ok:=c.StepsFor("a").Steps[0].(*ops.OpGauss)
	if !ok || g.Sigma!=3 || !g.Save { t.Errorf("gauss step %+v", c.StepsFor("a").Steps[0]) }
	if c.StepsFor("b")!=nil { t.Errorf("unmatched stack got steps") }
}

func TestUnmarshalJSONReplacesRules(t *testing.T) {
	c:=Default()
	c.Merge.Channels=[]MergeChannel{{Select: "a", Color: "red"}, {Select: "b", Color: "blue"}}
	in:=`{"channels": [{"select": "Bax"}], "merge": {"channels": [{"select": "x"}]}}`
	if err:=c.Unmarshal([]byte(in), true); err!=nil { t.Fatal(err) }
	if err:=c.Validate(); err!=nil { t.Fatal(err) }
	if len(c.Channels)!=1 || c.Channels[0].Select!="Bax" || len(c.Channels[0].Steps.Steps)!=0 {
		t.Errorf("rule without steps inherited %+v", c.Channels[0].Steps)
	}
	if len(c.Merge.Channels)!=1 || c.Merge.Channels[0].Color!="" { t.Errorf("merge channels %+v", c.Merge.Channels) }

	c=Default()
	if err:=c.Unmarshal([]byte(`{"workers": 2}`), true); err!=nil { t.Fatal(err) }
	if len(c.Channels)!=1 || len(c.Channels[0].Steps.Steps)!=3 { t.Errorf("absent channels lost defaults: %+v", c.Channels) }
}

func TestValidateRejects(t *testing.T) {
	tcs:=map[string]func(c *Config){
		"no input":      func(c *Config) { c.Input="" },
		"projection":    func(c *Config) { c.Projection="sum" },
		"workers":       func(c *Config) { c.Workers=-1 },
		"merge mode":    func(c *Config) { c.Merge.Mode="stack" },
		"rgb channels":  func(c *Config) { c.Merge.Mode=MergeRGB; c.Merge.Channels=[]MergeChannel{{Select: "a"}} },
		"rgb color":     func(c *Config) { c.Merge.Mode=MergeRGB; c.Merge.Channels=[]MergeChannel{{Select: "a"}, {Select: "b", Color: "#zz"}} },
		"axis":          func(c *Config) { c.Merge.Mode=MergeMultiPage; c.Merge.Axis="angle" },
		"pair no merge": func(c *Config) { c.Merge.Pair=&Pair{Primary: "a", Secondary: "b"} },
		"pair same":     func(c *Config) { c.Merge.Mode=MergeMultiPage; c.Merge.Pair=&Pair{Primary: "a", Secondary: "a"} },
		"preview":       func(c *Config) { c.TIFF.Preview.Format="webp" },
	}
	for name, f:=range tcs {
		c:=Default()
		f(c)
		if err:=c.Validate(); !errors.Is(err, plane.ErrInvalidParameter) { t.Errorf("%s: err=%v; want ErrInvalidParameter", name, err) }
	}
}

func TestOutputDir(t *testing.T) {
	c:=Default()
	if got:=c.OutputDir(filepath.Join("a", "b", "f.obf")); got!=filepath.Join("a", "b", "tifs") { t.Errorf("got %s", got) }
	c.Output=t.TempDir()
	if got:=c.OutputDir(filepath.Join("a", "f.obf")); got!=c.Output { t.Errorf("got %s", got) }
}

func TestBadSyntax(t *testing.T) {
	fileName:=filepath.Join(t.TempDir(), "run.yaml")
	os.WriteFile(fileName, []byte("channels: [\n"), 0644)
	if _, err:=Load(fileName); !errors.Is(err, plane.ErrInvalidParameter) { t.Errorf("err=%v", err) }
}
