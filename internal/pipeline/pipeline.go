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


// Package pipeline runs a batch: it discovers input files, processes each file on a
// bounded pool of workers, composes merged outputs and keeps a summary.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/klauspost/cpuid"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pbnjay/memory"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mlnoga/stedlight/internal/arrayops"
	"github.com/mlnoga/stedlight/internal/codec"
	"github.com/mlnoga/stedlight/internal/compose"
	"github.com/mlnoga/stedlight/internal/config"
	"github.com/mlnoga/stedlight/internal/decode"
	"github.com/mlnoga/stedlight/internal/ops"
	"github.com/mlnoga/stedlight/internal/plane"
	"github.com/mlnoga/stedlight/internal/stretch"
)

// Memory budgeted per worker when capping the worker count
const MemoryPerWorkerMB=512

// Returns the number of workers to use: the requested number, or the number of physical
// cores if 0. Capped so that all workers fit into 70% of physical memory
func Workers(requested int) int {
	n:=requested
	if n<=0 { n=cpuid.CPU.PhysicalCores }
	if n<=0 { n=runtime.NumCPU() }
	if memoryMB:=int(memory.TotalMemory()/1024/1024); memoryMB>0 {
		n=min(n, max(memoryMB*7/10/MemoryPerWorkerMB, 1))
	}
	return n
}

// A failed file, channel or composite
type Failure struct {
	Item   string `json:"item"`
	Error  string `json:"error"`
}

// Outcome of a batch run. Safe for concurrent use
type Summary struct {
	mutex              sync.Mutex
	FilesProcessed     int       `json:"filesProcessed"`
	FilesSkipped       int       `json:"filesSkipped"`
	ChannelsProcessed  int       `json:"channelsProcessed"`
	ChannelsSkipped    int       `json:"channelsSkipped"`
	CompositesWritten  int       `json:"compositesWritten"`
	CompositesSkipped  int       `json:"compositesSkipped"`
	OutputsWritten     int       `json:"outputsWritten"`
	Failures           []Failure `json:"failures"`
}

func (s *Summary) add(counter *int, outputs int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	*counter++
	s.OutputsWritten+=outputs
}

func (s *Summary) fail(counter *int, item string, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	*counter++
	s.Failures=append(s.Failures, Failure{Item: item, Error: err.Error()})
}

func (s *Summary) String() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var b strings.Builder
	fmt.Fprintf(&b, "Files processed %d skipped %d, channels processed %d skipped %d, composites written %d skipped %d, %d outputs written",
		s.FilesProcessed, s.FilesSkipped, s.ChannelsProcessed, s.ChannelsSkipped, s.CompositesWritten, s.CompositesSkipped, s.OutputsWritten)
	for _, f:=range s.Failures {
		fmt.Fprintf(&b, "\n  %s: %s", f.Item, f.Error)
	}
	return b.String()
}

type runner struct {
	cfg      *config.Config
	proj     plane.Projection
	log      *zerolog.Logger
	summary  *Summary
	mutex    sync.Mutex
	namers   map[string]*compose.Namer // by output directory
}

// Runs a batch with the given configuration. Channel, file and composite failures are
// recorded in the summary and the batch goes on. Resource errors and cancellation abort
// the batch and are returned together with the summary so far
func Run(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (*Summary, error) {
	if err:=cfg.Validate(); err!=nil { return nil, err }
	proj, err:=plane.ParseProjection(cfg.Projection)
	if err!=nil { return nil, err }
	summary:=&Summary{}

	units, unpaired, err:=Discover(cfg)
	if err!=nil { return summary, err }
	for _, f:=range unpaired {
		summary.fail(&summary.FilesSkipped, f, fmt.Errorf("no partner file for %s: %w", f, plane.ErrInvalidParameter))
	}
	if len(units)==0 {
		log.Warn().Msgf("No input files with extensions %v found in %s", cfg.Extensions, cfg.Input)
		return summary, nil
	}

	workers:=min(Workers(cfg.Workers), len(units))
	log.Info().Msgf("Processing %d inputs with %d workers", len(units), workers)

	r:=&runner{cfg: cfg, proj: proj, log: log, summary: summary, namers: map[string]*compose.Namer{}}
	g, gctx:=errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, u:=range units {
		g.Go(func() error { return r.processUnit(gctx, i, u) })
	}
	return summary, g.Wait()
}

// Returns the namer for an output directory, creating the directory on first use
func (r *runner) namer(dir string) (*compose.Namer, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if n:=r.namers[dir]; n!=nil { return n, nil }
	if err:=os.MkdirAll(dir, 0755); err!=nil {
		return nil, fmt.Errorf("creating output directory: %v: %w", err, plane.ErrResource)
	}
	n:=compose.NewNamer(dir, "tiff")
	r.namers[dir]=n
	return n, nil
}

func (r *runner) processUnit(ctx context.Context, id int, u Unit) error {
	if err:=ctx.Err(); err!=nil { return err }
	log:=r.log.With().Int("id", id).Str("file", u.Stem).Logger()

	var stacks []*plane.Stack
	for _, f:=range u.Files {
		ss, err:=decode.ListStacks(f)
		if err!=nil {
			log.Warn().Msgf("%d: Skipping %s: %v", id, f, err)
			r.summary.fail(&r.summary.FilesSkipped, f, err)
			return nil
		}
		for _, s:=range ss { log.Info().Msgf("%d: Found stack '%s' of shape %s in %s", id, s.Name, s.DimensionsToString(), f) }
		stacks=append(stacks, ss...)
	}
	stacks=decode.Select(stacks, r.cfg.Select)
	namer, err:=r.namer(u.OutDir)
	if err!=nil { return err }

	var channels []*plane.Plane
	for _, s:=range stacks {
		if err:=ctx.Err(); err!=nil { return err }
		item:=u.Stem+" "+s.Name
		planes, err:=s.Planes(r.proj)
		if err!=nil {
			log.Warn().Msgf("%d: Skipping stack '%s': %v", id, s.Name, err)
			r.summary.fail(&r.summary.ChannelsSkipped, item, err)
			continue
		}
		for _, p:=range planes {
			p.ID=id
			out, written, err:=r.processChannel(ctx, p, namer, u.Stem, &log)
			if err!=nil {
				if plane.IsBatchFatal(err) { return err }
				log.Warn().Msgf("%d: Skipping channel '%s': %v", id, p.Name, err)
				r.summary.fail(&r.summary.ChannelsSkipped, u.Stem+" "+p.Name, err)
				continue
			}
			r.summary.add(&r.summary.ChannelsProcessed, written)
			channels=append(channels, out)
		}
	}

	if r.cfg.Merge.Mode!=config.MergeNone {
		fileName, err:=r.merge(channels, namer, u.Stem)
		if err!=nil {
			if plane.IsBatchFatal(err) { return err }
			log.Warn().Msgf("%d: Skipping %s composite: %v", id, r.cfg.Merge.Mode, err)
			r.summary.fail(&r.summary.CompositesSkipped, u.Stem+" "+r.cfg.Merge.Mode, err)
		} else {
			log.Info().Msgf("%d: Wrote %s composite of %d channels to %s", id, r.cfg.Merge.Mode, len(channels), fileName)
			r.summary.add(&r.summary.CompositesWritten, 1)
		}
	}
	r.summary.add(&r.summary.FilesProcessed, 0)
	return nil
}

// Applies the stage sequence configured for the channel. Returns the final plane for
// merging, and the number of files written
func (r *runner) processChannel(ctx context.Context, p *plane.Plane, namer *compose.Namer, stem string,
	                            log *zerolog.Logger) (*plane.Plane, int, error) {
	log.Info().Str("stack", p.Name).Msgf("%d: Channel '%s' with %s pixels, %v", p.ID, p.Name, p.DimensionsToString(), p.Stats())
	steps:=r.cfg.StepsFor(p.Name)
	if steps==nil || !steps.Active { return p, 0, nil }
	c:=ops.NewContext(ctx, log, namer, r.cfg.TIFF, stem)
	out, err:=steps.Apply(p, c)
	return out, len(c.Written), err
}

// Composes the processed channels of a unit as configured, and writes the composite
func (r *runner) merge(channels []*plane.Plane, namer *compose.Namer, stem string) (string, error) {
	m:=&r.cfg.Merge
	planes, colors, err:=pickChannels(channels, m.Channels)
	if err!=nil { return "", err }
	// channels without a stretch stage still carry their decoded range
	for i, p:=range planes { planes[i]=arrayops.ClampHigh(p, stretch.OutMax) }
	pixelSize:=m.PixelSize
	if pixelSize==0 { pixelSize=planes[0].PixelSize }

	if m.Mode==config.MergeMultiPage {
		axis, err:=compose.ParseAxis(m.Axis)
		if err!=nil { return "", err }
		mp, err:=compose.CombinePages(planes, pixelSize, axis)
		if err!=nil { return "", err }
		fileName:=namer.Name(stem, compose.SuffixMultiMerged)
		return fileName, codec.SaveMultiPage(fileName, mp, r.cfg.TIFF)
	}

	if len(planes)<2 {
		return "", fmt.Errorf("rgb merge of %d channels: %w", len(planes), plane.ErrInvalidParameter)
	}
	var rgb *compose.RGB
	if len(planes)==2 && colors[0]=="" && colors[1]=="" {
		rgb, err=compose.CombineRGB(planes[0], planes[1])
	} else {
		cs:=make([]colorful.Color, len(colors))
		for i, s:=range colors {
			if s=="" {
				s=compose.DefaultSecondaryColor
				if i==0 { s=compose.DefaultPrimaryColor }
			}
			if cs[i], err=compose.ParseColor(s); err!=nil { return "", err }
		}
		rgb, err=compose.CombineColors(planes, cs)
	}
	if err!=nil { return "", err }
	rgb.PixelSize=pixelSize
	fileName:=namer.Name(stem, compose.SuffixMerged)
	return fileName, codec.SaveRGB(fileName, rgb, r.cfg.TIFF)
}

// Picks the channels to merge in the configured order, each the first channel whose name
// contains the selector. Without selectors all channels are merged in order
func pickChannels(channels []*plane.Plane, sel []config.MergeChannel) ([]*plane.Plane, []string, error) {
	if len(sel)==0 {
		if len(channels)==0 { return nil, nil, fmt.Errorf("no channels to merge: %w", plane.ErrInvalidParameter) }
		return channels, make([]string, len(channels)), nil
	}
	planes, colors:=make([]*plane.Plane, len(sel)), make([]string, len(sel))
	for i, mc:=range sel {
		for _, c:=range channels {
			if strings.Contains(c.Name, mc.Select) { planes[i]=c; break }
		}
		if planes[i]==nil {
			return nil, nil, fmt.Errorf("no channel matches '%s': %w", mc.Select, plane.ErrInvalidParameter)
		}
		colors[i]=mc.Color
	}
	return planes, colors, nil
}
