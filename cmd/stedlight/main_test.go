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


package main

import (
	"testing"

	"github.com/mlnoga/stedlight/internal/config"
	"github.com/mlnoga/stedlight/internal/ops"
)

func TestApplyFlagsOnlyOverridesSetFlags(t *testing.T) {
	cfg:=config.Default()
	cfg.Select="Tom"
	*sel, *workers="Bax", 3
	defer func() { *sel, *workers="", 0 }()

	if err:=applyFlags(cfg, map[string]bool{"workers": true}); err!=nil { t.Fatal(err) }
	if cfg.Select!="Tom" || cfg.Workers!=3 { t.Errorf("select %s workers %d", cfg.Select, cfg.Workers) }
	if len(cfg.Channels)!=1 || len(cfg.Channels[0].Steps.Steps)!=3 { t.Errorf("channel rules changed: %+v", cfg.Channels) }
}

func TestRulesFromFlags(t *testing.T) {
	*bgSelect, *gauss, *raw="Tom", 2, false
	defer func() { *bgSelect, *gauss, *raw="", 0, true }()

	cfg:=config.Default()
	if err:=applyFlags(cfg, map[string]bool{"bgSelect": true, "gauss": true, "raw": true}); err!=nil { t.Fatal(err) }
	if len(cfg.Channels)!=2 { t.Fatalf("got %d rules; want 2", len(cfg.Channels)) }
	types:=func(seq *ops.OpSequence) (res []string) {
		for _, s:=range seq.Steps { res=append(res, s.GetType()) }
		return res
	}
	if got:=types(cfg.StepsFor("STED Tom20")); len(got)!=3 || got[0]!="stretch" || got[1]!="rollingBall" || got[2]!="gauss" {
		t.Errorf("Tom steps %v", got)
	}
	if got:=types(cfg.StepsFor("STED Bax")); len(got)!=2 || got[1]!="gauss" { t.Errorf("Bax steps %v", got) }
}

func TestBackgroundFirstFlag(t *testing.T) {
	*bgFirst=true
	defer func() { *bgFirst=false }()

	cfg:=config.Default()
	if err:=applyFlags(cfg, map[string]bool{"bgFirst": true}); err!=nil { t.Fatal(err) }
	steps:=cfg.StepsFor("STED Bax").Steps
	if len(steps)!=3 || steps[0].GetType()!="saveRaw" || steps[1].GetType()!="rollingBall" || steps[2].GetType()!="stretch" {
		t.Fatalf("steps %+v", steps)
	}
	rb:=steps[1].(*ops.OpRollingBall)
	if !rb.SaveBackground || rb.SaveForeground { t.Errorf("rolling ball saves background %v foreground %v", rb.SaveBackground, rb.SaveForeground) }
}

func TestPairFlags(t *testing.T) {
	*primary, *secondary, *pair, *merge="Tom20", "Bax", true, config.MergeRGB
	defer func() { *primary, *secondary, *pair, *merge="", "", false, config.MergeNone }()

	cfg:=config.Default()
	if err:=applyFlags(cfg, map[string]bool{"primary": true, "secondary": true, "pair": true, "merge": true}); err!=nil { t.Fatal(err) }
	if err:=cfg.Validate(); err!=nil { t.Fatal(err) }
	if cfg.Merge.Pair==nil || cfg.Merge.Pair.Secondary!="Bax" || cfg.Output!=config.DefaultPairOutput { t.Errorf("merge %+v output %s", cfg.Merge, cfg.Output) }
}

func TestSplitList(t *testing.T) {
	if got:=splitList(" .obf, ,.msr"); len(got)!=2 || got[1]!=".msr" { t.Errorf("got %v", got) }
}
