package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/proio-org/go-proio"
	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/decibelcooper/trackmatch"
)

var (
	xVar     = flag.String("x", "pt", "variable on the x axis: pt or abseta")
	pTMax    = flag.Float64("maxpt", 10, "maximum transverse momentum")
	etaLimit = flag.Float64("etalimit", 1.2, "maximum absolute value of eta")
	nBins    = flag.Int("nbins", 40, "number of bins")
	title    = flag.String("title", "", "plot title")
	prefix   = flag.String("prefix", "matcheff", "output file prefix")
)

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: `+os.Args[0]+` [options] <proio-seed-files>...

Plots the fraction of TPC seeds that were matched to a silicon seed.

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if flag.NArg() < 1 {
		printUsage()
		log.Fatal("Invalid arguments")
	}

	var (
		xMin, xMax float64
		value      func(px, py, pz float64) float64
	)
	switch *xVar {
	case "pt":
		xMin, xMax = 0, *pTMax
		value = func(px, py, _ float64) float64 { return math.Hypot(px, py) }
	case "abseta":
		xMin, xMax = 0, *etaLimit
		value = func(px, py, pz float64) float64 { return math.Abs(math.Asinh(pz / math.Hypot(px, py))) }
	default:
		printUsage()
		log.Fatalf("unknown x variable %q", *xVar)
	}

	p, err := plot.New()
	if err != nil {
		log.Fatal(err)
	}
	p.Title.Text = *title
	p.Y.Label.Text = "matched fraction"
	p.Y.Min, p.Y.Max = 0, 1.05
	if *xVar == "pt" {
		p.X.Label.Text = "p_T (GeV)"
		p.X.Tick.Marker = trackmatch.PtTicks{}
	} else {
		p.X.Label.Text = "|eta|"
	}

	for i, filename := range flag.Args() {
		matchedHist := hbook.NewH1D(*nBins, xMin, xMax)
		allHist := hbook.NewH1D(*nBins, xMin, xMax)

		reader, err := proio.Open(filename)
		if err != nil {
			log.Fatal(err)
		}

		nSeeds, nMatched := 0, 0
		for event := range reader.ScanEvents() {
			for _, seed := range trackmatch.SeedEntries(event) {
				poq := seed.Track.Segment[0].Poq
				if poq == nil || poq.X == nil || poq.Y == nil || poq.Z == nil {
					continue
				}
				// the charge sign of p/q does not change pT or |eta|
				x := value(*poq.X, *poq.Y, *poq.Z)
				if math.IsNaN(x) {
					continue
				}

				allHist.Fill(x, 1)
				nSeeds++
				if seed.Matched {
					matchedHist.Fill(x, 1)
					nMatched++
				}
			}
		}
		reader.Close()
		log.Printf("%s: %d of %d seeds matched", filename, nMatched, nSeeds)

		points := make(plotter.XYs, *nBins)
		xErrors := make(plotter.XErrors, *nBins)
		yErrors := make(plotter.YErrors, *nBins)
		binHalfWidth := (xMax - xMin) / float64(*nBins) / 2
		binSigma := binHalfWidth / math.Sqrt(3.)
		for i := range points {
			allX, allY := allHist.XY(i)

			points[i].X = allX + binHalfWidth
			xErrors[i].Low = binSigma
			xErrors[i].High = binSigma

			_, matchedY := matchedHist.XY(i)
			if allY > 0 {
				frac := matchedY / allY
				points[i].Y = frac
				yErrors[i].Low = math.Sqrt((1 - frac) * matchedY / math.Pow(allY, 2))
				yErrors[i].High = yErrors[i].Low
			}
		}
		errPoints := plotutil.ErrorPoints{XYs: points, XErrors: xErrors, YErrors: yErrors}
		xerr, err := plotter.NewXErrorBars(errPoints)
		if err != nil {
			log.Fatal(err)
		}
		yerr, err := plotter.NewYErrorBars(errPoints)
		if err != nil {
			log.Fatal(err)
		}

		markers, err := plotter.NewScatter(points)
		if err != nil {
			log.Fatal(err)
		}

		pointColor := plotutil.Color(i)
		xerr.LineStyle.Color = pointColor
		yerr.LineStyle.Color = pointColor
		markers.GlyphStyle.Color = pointColor
		markers.GlyphStyle.Radius = vg.Points(1.5)

		p.Add(xerr, yerr, markers)
		if flag.NArg() > 1 {
			p.Legend.Add(filename, markers)
		}
	}

	for _, ext := range []string{".pdf", ".png"} {
		if err := p.Save(6*vg.Inch, 4*vg.Inch, *prefix+ext); err != nil {
			log.Fatal(err)
		}
	}
}
