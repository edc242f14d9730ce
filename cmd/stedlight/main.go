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
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"
	"gopkg.in/yaml.v3"
	"github.com/mlnoga/stedlight/internal/background"
	"github.com/mlnoga/stedlight/internal/config"
	"github.com/mlnoga/stedlight/internal/log"
	"github.com/mlnoga/stedlight/internal/ops"
	"github.com/mlnoga/stedlight/internal/pipeline"
	"github.com/mlnoga/stedlight/internal/rest"
	"github.com/mlnoga/stedlight/internal/stretch"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var configFile = flag.String("config", "", "read settings from YAML or JSON `file`; flags given explicitly override them")
var out        = flag.String("out", config.DefaultOutput, "output subdirectory next to each input file, or an absolute directory")
var logName    = flag.String("log", "%auto", "save log output to `file`. `%auto` writes stedlight.log into the output directory, empty for none")
var logLevel   = flag.String("logLevel", "info", "minimum log level: debug, info, warn or error")

var sel        = flag.String("select", "", "only process stacks whose name contains this string, empty for all")
var ext        = flag.String("ext", ".obf,.msr", "comma-separated input file extensions")
var recursive  = flag.Bool("recursive", false, "descend into subdirectories")
var subdirs    = flag.String("subdirs", "", "only process subdirectories matching this glob, e.g. `IF*/renamed`")
var projection = flag.String("projection", "first", "for stacks with several planes: first, max, mean, or all")

var raw        = flag.Bool("raw", true, "save the decoded channel with values above 255 saturated")
var despeckle  = flag.Bool("median", false, "apply a 3x3 median filter before stretching")
var policy     = flag.String("policy", "plain", "contrast stretch policy: plain, sqrt or fixed")
var percentile = flag.Float64("percentile", 0, "percentile mapped to 255; 0 selects 99.8 for plain and 99.9 for sqrt")
var factor     = flag.Float64("factor", 2, "multiplication factor for the fixed policy")
var bgSelect   = flag.String("bgSelect", "", "only subtract background from stacks whose name contains this string")
var radius     = flag.Float64("radius", background.DefaultRadius, "rolling ball radius in pixels, 0=no background subtraction")
var light      = flag.Bool("light", false, "background is brighter than the foreground")
var paraboloid = flag.Bool("paraboloid", false, "roll a paraboloid instead of a ball")
var presmooth  = flag.Bool("presmooth", true, "apply a 3x3 mean before estimating the background")
var bgFirst    = flag.Bool("bgFirst", false, "subtract the background from the raw channel, then stretch the foreground")
var gauss      = flag.Float64("gauss", 0, "gaussian blur sigma after stretching, 0=no blur")

var merge      = flag.String("merge", config.MergeNone, "merge channels: none, rgb or multipage")
var primary    = flag.String("primary", "", "stack selector of the primary (green) merge channel")
var secondary  = flag.String("secondary", "", "stack selector of the secondary (magenta) merge channel")
var pair       = flag.Bool("pair", false, "merge across files, pairing names with -primary with names with -secondary")
var pixelSize  = flag.Float64("pixelSize", 0, "pixel size in micrometers for merged outputs, 0=from the data")
var axis       = flag.String("axis", "channel", "page axis of multipage outputs: channel, depth or time")

var compress   = flag.Bool("compress", false, "deflate TIFF pixel data")
var preview    = flag.String("preview", "", "also write downscaled previews: jpg, png or empty for none")
var workers    = flag.Int("workers", 0, "number of files processed in parallel, 0=number of physical cores")

var addr       = flag.String("addr", ":8080", "listen address for serve")
var chroot     = flag.String("chroot", "", "for serve, change the filesystem root to this directory")
var setuid     = flag.Int("setuid", -1, "for serve, change to this user id after binding")

func main() {
	start:=time.Now()
	flag.Usage=func(){
		fmt.Fprintf(os.Stdout, `Stedlight Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (process|config|serve|legal|version|help) [args]

Commands:
  process [dir]  Stretch, subtract background and merge the microscopy files in dir
  config [file]  Write the effective settings as YAML to file, or to stdout
  serve          Serve the REST API
  legal          Show license and attribution information
  version        Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args:=flag.Args()
	if len(args)<1 {
		flag.Usage()
		return
	}
	if err:=log.SetLevel(*logLevel); err!=nil { log.Fatalf("%v", err) }

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil { log.Fatalf("Could not create CPU profile: %v", err) }
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil { log.Fatalf("Could not start CPU profile: %v", err) }
		defer pprof.StopCPUProfile()
	}

	var err error
	switch args[0] {
	case "process":
		err=cmdProcess(args[1:])
	case "config":
		err=cmdConfig(args[1:])
	case "serve":
		err=cmdServe()
	case "legal":
		fmt.Fprint(os.Stdout, legal)
	case "version":
		fmt.Fprintf(os.Stdout, "Version %s\n", version)
	case "help", "?":
		flag.Usage()
	default:
		fmt.Fprintf(os.Stdout, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		os.Exit(2)
	}

	// Store memory profile if flagged
	if *memprofile != "" {
		f, ferr := os.Create(*memprofile)
		if ferr != nil { log.Fatalf("Could not create memory profile: %v", ferr) }
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if ferr := pprof.Lookup("allocs").WriteTo(f,0); ferr != nil { log.Fatalf("Could not write allocation profile: %v", ferr) }
	}
	if err!=nil {
		pprof.StopCPUProfile()
		log.Fatalf("Error after %v: %v", time.Since(start), err)
	}
	if args[0]=="process" { log.Get().Info().Msgf("Done after %v", time.Since(start)) }
	log.Sync()
}

// Runs a batch on the given directory
func cmdProcess(args []string) error {
	cfg, err:=effectiveConfig()
	if err!=nil { return err }
	if len(args)>0 { cfg.Input=args[0] }
	if err:=cfg.Validate(); err!=nil { return err }

	// Initialize logging to file in addition to stdout, if selected
	if logFile:=cfg.LogFile(); logFile!="" {
		if err:=os.MkdirAll(filepath.Dir(logFile), 0755); err!=nil { return fmt.Errorf("creating log directory: %w", err) }
		if err:=log.LogAlsoToFile(logFile); err!=nil { return fmt.Errorf("opening log file '%s': %w", logFile, err) }
	}
	logBanner()

	ctx, stop:=signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	summary, err:=pipeline.Run(ctx, cfg, log.Get())
	if summary!=nil { log.Get().Info().Msgf("%s", summary) }
	return err
}

// Writes the effective settings as YAML
func cmdConfig(args []string) error {
	cfg, err:=effectiveConfig()
	if err!=nil { return err }
	if err:=cfg.Validate(); err!=nil { return err }
	if len(args)>0 { return config.Save(cfg, args[0]) }
	b, err:=yaml.Marshal(cfg)
	if err!=nil { return err }
	_, err=os.Stdout.Write(b)
	return err
}

func cmdServe() error {
	logBanner()
	if err:=rest.MakeSandbox(*chroot, *setuid); err!=nil { return err }
	return rest.Serve(*addr)
}

func logBanner() {
	log.Get().Info().Msgf("Stedlight %s on %s with %d physical cores, %d logical cores, AVX2 %v, %d MB physical memory",
		version, cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores, cpuid.CPU.AVX2(),
		memory.TotalMemory()/1024/1024)
}

// Loads the configuration file if given, and applies the flags set on the command line
func effectiveConfig() (*config.Config, error) {
	cfg:=config.Default()
	if *configFile!="" {
		var err error
		if cfg, err=config.Load(*configFile); err!=nil { return nil, err }
	}
	set:=map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name]=true })
	return cfg, applyFlags(cfg, set)
}

// Overrides configuration values with the given set flags
func applyFlags(cfg *config.Config, set map[string]bool) error {
	if set["out"]        { cfg.Output=*out }
	if set["log"]        { cfg.Log=*logName }
	if set["select"]     { cfg.Select=*sel }
	if set["ext"]        { cfg.Extensions=splitList(*ext) }
	if set["recursive"]  { cfg.Recursive=*recursive }
	if set["subdirs"]    { cfg.Subdirs=*subdirs }
	if set["projection"] { cfg.Projection=*projection }
	if set["workers"]    { cfg.Workers=*workers }
	if set["compress"]   { cfg.TIFF.Compress=*compress }
	if set["preview"]    { cfg.TIFF.Preview.Format=*preview }

	for _, name:=range []string{"raw", "median", "policy", "percentile", "factor", "bgSelect", "radius", "light", "paraboloid", "presmooth", "bgFirst", "gauss"} {
		if set[name] {
			rules, err:=rulesFromFlags()
			if err!=nil { return err }
			cfg.Channels=rules
			break
		}
	}

	m:=&cfg.Merge
	if set["merge"]     { m.Mode=*merge }
	if set["pixelSize"] { m.PixelSize=*pixelSize }
	if set["axis"]      { m.Axis=*axis }
	if set["primary"] || set["secondary"] {
		m.Channels=[]config.MergeChannel{{Select: *primary}, {Select: *secondary}}
	}
	if set["pair"] {
		m.Pair=nil
		if *pair { m.Pair=&config.Pair{Primary: *primary, Secondary: *secondary} }
	}
	return nil
}

// Builds the channel rules from the stage flags. With -bgSelect, only matching stacks
// get background subtraction. With -bgFirst, the rolling ball runs before the stretch
func rulesFromFlags() ([]config.ChannelRule, error) {
	pol, err:=stretch.ParsePolicy(*policy)
	if err!=nil { return nil, err }
	steps:=func(withBackground bool) *ops.OpSequence {
		seq:=ops.NewOpSequence()
		if *raw { seq.Append(ops.NewOpSaveRaw()) }
		if *despeckle { seq.Append(ops.NewOpMedian(false)) }
		st:=ops.NewOpStretch(pol, *percentile, *factor, true)
		if withBackground && *radius>0 {
			params:=background.Params{Radius: *radius, LightBackground: *light, UseParaboloid: *paraboloid, DoPresmooth: *presmooth}
			if *bgFirst {
				seq.Append(ops.NewOpRollingBall(params, true, false), st)
			} else {
				seq.Append(st, ops.NewOpRollingBall(params, true, true))
			}
		} else {
			seq.Append(st)
		}
		if *gauss>0 { seq.Append(ops.NewOpGauss(*gauss, true)) }
		return seq
	}
	if *bgSelect=="" { return []config.ChannelRule{{Steps: steps(true)}}, nil }
	return []config.ChannelRule{{Select: *bgSelect, Steps: steps(true)}, {Steps: steps(false)}}, nil
}

// Splits a comma-separated list, dropping empty entries
func splitList(s string) []string {
	var res []string
	for _, p:=range strings.Split(s, ",") {
		if p=strings.TrimSpace(p); p!="" { res=append(res, p) }
	}
	return res
}
