package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/decibelcooper/trackmatch"
)

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: `+os.Args[0]+` [options] <lcio-input-file>

Matches TPC seeds to silicon seeds and writes the combined seeds to a proio file.
Window bounds are a[,b,c] for a+b*exp(c/pT).

options:
`,
	)
	flag.PrintDefaults()
}

// configPath finds -config before the other flags are registered, so that
// flag defaults show the values loaded from the file.
func configPath(args []string) string {
	for i, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if strings.HasPrefix(name, "config=") {
			return strings.TrimPrefix(name, "config=")
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func main() {
	log.SetPrefix("sitpcmatch: ")
	log.SetFlags(0)

	cfg := trackmatch.DefaultConfig()
	if path := configPath(os.Args[1:]); path != "" {
		var err error
		cfg, err = trackmatch.LoadConfig(path)
		if err != nil {
			log.Fatal(err)
		}
	}

	var (
		_          = flag.String("config", "", "YAML configuration file")
		output     = flag.String("output", "seeds.proio", "proio output file for combined seeds")
		ntupleFile = flag.String("ntuple", "", "SQLite file for the track_match pair ntuple and seed table")
		histPrefix = flag.String("histos", "", "write delta histogram plots to <prefix>_<delta>.png")
		nBins      = flag.Int("nbins", 100, "number of bins in delta histograms")
		maxEvents  = flag.Int("n", -1, "maximum number of events to process")
		cpuProfile = flag.Bool("cpuprofile", false, "write a CPU profile to the working directory")
		dumpConfig = flag.String("dumpconfig", "", "write the effective configuration to this YAML file and exit")
	)
	flag.Float64Var(&cfg.Field, "field", cfg.Field, "solenoid field (T)")
	flag.BoolVar(&cfg.ZeroField, "zerofield", cfg.ZeroField, "refit stubs as straight lines")
	flag.BoolVar(&cfg.PPMode, "pp", cfg.PPMode, "pp mode: correct TPC z for the silicon crossing")
	flag.BoolVar(&cfg.UseInttCrossing, "intt-crossing", cfg.UseInttCrossing, "label silicon seeds with the INTT hit crossing")
	flag.Float64Var(&cfg.DriftVelocity, "vdrift", cfg.DriftVelocity, "TPC drift velocity (cm/ns)")
	flag.Float64Var(&cfg.EtaFallback, "deta-min", cfg.EtaFallback, "accept |deta| below this regardless of the deta window")
	flag.Float64Var(&cfg.DzMin, "dz-min", cfg.DzMin, "accept |dz| below this regardless of the dz window (cm)")
	flag.Float64Var(&cfg.DzMax, "dz-max", cfg.DzMax, "reject |dz| above this (cm)")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent candidate search workers")
	flag.IntVar(&cfg.Verbosity, "v", cfg.Verbosity, "verbosity")
	trackmatch.RegisterWindowFlags(flag.CommandLine, "deta", &cfg.Windows.DEta)
	trackmatch.RegisterWindowFlags(flag.CommandLine, "dphi", &cfg.Windows.DPhi)
	trackmatch.RegisterWindowFlags(flag.CommandLine, "dx", &cfg.Windows.DX)
	trackmatch.RegisterWindowFlags(flag.CommandLine, "dy", &cfg.Windows.DY)
	trackmatch.RegisterWindowFlags(flag.CommandLine, "dz", &cfg.Windows.DZ)

	flag.Usage = printUsage
	flag.Parse()

	if *dumpConfig != "" {
		if err := cfg.Save(*dumpConfig); err != nil {
			log.Fatal(err)
		}
		return
	}
	if flag.NArg() != 1 {
		printUsage()
		log.Fatal("Invalid arguments")
	}
	if *cpuProfile {
		defer profile.Start(profile.ProfilePath(".")).Stop()
	}

	logger, err := trackmatch.NewLogger(cfg.Verbosity)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	var (
		recorders trackmatch.MultiRecorder
		ntuple    *trackmatch.Ntuple
		histos    *trackmatch.DeltaHistos
	)
	if *ntupleFile != "" {
		ntuple, err = trackmatch.OpenNtuple(*ntupleFile)
		if err != nil {
			log.Fatal(err)
		}
		recorders = append(recorders, ntuple)
	}
	if *histPrefix != "" {
		histos = trackmatch.NewDeltaHistos(*nBins)
		recorders = append(recorders, histos)
	}

	opts := []trackmatch.Option{trackmatch.WithLogger(logger)}
	if len(recorders) > 0 {
		opts = append(opts, trackmatch.WithRecorder(recorders))
	}
	matcher, err := trackmatch.NewMatcher(cfg, opts...)
	if err != nil {
		log.Fatal(err)
	}
	module := trackmatch.NewModule(matcher, logger)
	if ntuple != nil {
		module.CloseOnEnd(ntuple)
	}

	reader, err := trackmatch.OpenLCIO(flag.Arg(0), cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer reader.Close()

	writer, err := trackmatch.CreateSeedWriter(*output)
	if err != nil {
		log.Fatal(err)
	}
	module.CloseOnEnd(writer)

	tree := trackmatch.NodeTree{}
	nEvents, nSeeds, nMatched := 0, 0, 0
	for reader.Next() {
		if *maxEvents >= 0 && nEvents >= *maxEvents {
			break
		}
		reader.Fill(tree)

		if nEvents == 0 {
			status, err := module.InitRun(tree)
			if status != trackmatch.EventOK {
				log.Fatalf("could not initialize matching: %v", err)
			}
		}
		module.ProcessEvent(tree)

		seeds := tree[cfg.OutputContainer].(*trackmatch.SeedContainer)
		outer, _ := tree[cfg.OuterContainer].(trackmatch.StubContainer)
		inner, _ := tree[cfg.InnerContainer].(trackmatch.StubContainer)
		if err := writer.WriteEvent(seeds, outer, inner); err != nil {
			log.Fatalf("could not write event %d: %v", reader.EventNumber(), err)
		}
		if ntuple != nil {
			if err := ntuple.RecordSeeds(nEvents, seeds); err != nil {
				log.Fatal(err)
			}
		}

		for _, seed := range seeds.Seeds {
			nSeeds++
			if seed.Matched() {
				nMatched++
			}
		}
		nEvents++
	}
	if err := reader.Err(); err != nil {
		log.Fatalf("could not read %s: %v", flag.Arg(0), err)
	}

	if histos != nil {
		if err := histos.Save(*histPrefix); err != nil {
			log.Fatal(err)
		}
	}
	fields := []zap.Field{
		zap.Int("events", nEvents),
		zap.Int("seeds", nSeeds),
		zap.Int("matched", nMatched),
	}
	if ntuple != nil {
		stored, storedMatched, err := ntuple.SeedCount()
		if err != nil {
			log.Fatalf("could not count stored seeds: %v", err)
		}
		if stored != nSeeds || storedMatched != nMatched {
			logger.Warn("ntuple seed table disagrees with event loop",
				zap.Int("stored", stored),
				zap.Int("stored_matched", storedMatched),
			)
		}
		fields = append(fields, zap.Int64("ntuple_run", ntuple.Run()), zap.Int("ntuple_seeds", stored))
	}
	if err := module.End(); err != nil {
		log.Fatal(err)
	}

	logger.Info("done", fields...)
}
