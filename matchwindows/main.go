package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/decibelcooper/trackmatch"
)

var (
	configFile = flag.String("config", "", "YAML configuration file")
	pTMin      = flag.Float64("minpt", 0.1, "minimum transverse momentum")
	pTMax      = flag.Float64("maxpt", 20, "maximum transverse momentum")
	nPoints    = flag.Int("npoints", 200, "number of points per curve")
	prefix     = flag.String("prefix", "windows", "output file prefix")
)

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: `+os.Args[0]+` [options]

Draws the matching windows of a configuration against pT, one plot per
window, to <prefix>_<window>.png.

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if flag.NArg() != 0 || *pTMin <= 0 || *pTMax <= *pTMin || *nPoints < 2 {
		printUsage()
		log.Fatal("Invalid arguments")
	}

	cfg := trackmatch.DefaultConfig()
	if *configFile != "" {
		var err error
		cfg, err = trackmatch.LoadConfig(*configFile)
		if err != nil {
			log.Fatal(err)
		}
	}
	matcher, err := trackmatch.NewMatcher(cfg)
	if err != nil {
		log.Fatal(err)
	}

	for _, w := range matcher.Windows() {
		p, err := plot.New()
		if err != nil {
			log.Fatal(err)
		}
		p.Title.Text = w.String()
		p.Title.TextStyle.Font.Size = vg.Points(8)
		p.X.Label.Text = "p_T (GeV)"
		p.Y.Label.Text = w.Tag
		p.X.Scale = plot.LogScale{}
		p.X.Tick.Marker = trackmatch.PtTicks{}

		charges := []bool{true}
		if !w.ChargeSymmetric() {
			charges = append(charges, false)
		}
		for i, posQ := range charges {
			style := plotter.DefaultLineStyle
			style.Color = plotutil.Color(i)
			if !posQ {
				style.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
			}

			lo, hi := bandPoints(w, posQ)
			var edge *plotter.Line
			for _, pts := range []plotter.XYs{lo, hi} {
				edge, err = plotter.NewLine(pts)
				if err != nil {
					log.Fatal(err)
				}
				edge.LineStyle = style
				p.Add(edge)
			}
			label := "all tracks"
			if len(charges) > 1 {
				label = "+Q"
				if !posQ {
					label = "-Q"
				}
			}
			p.Legend.Add(label, edge)
		}

		zero, _ := plotter.NewLine(plotter.XYs{{X: *pTMin, Y: 0}, {X: *pTMax, Y: 0}})
		zero.LineStyle.Color = color.Gray{Y: 180}
		p.Add(zero)

		fname := *prefix + "_" + w.Tag + ".png"
		if err := p.Save(6*vg.Inch, 4*vg.Inch, fname); err != nil {
			log.Fatal(err)
		}
	}
}

// bandPoints samples the lower and upper edges logarithmically in pT.
func bandPoints(w trackmatch.Window, posQ bool) (lo, hi plotter.XYs) {
	lo = make(plotter.XYs, *nPoints)
	hi = make(plotter.XYs, *nPoints)
	step := math.Log(*pTMax / *pTMin) / float64(*nPoints-1)
	for i := range lo {
		pt := *pTMin * math.Exp(step*float64(i))
		l, h := w.Band(posQ, pt)
		lo[i].X, lo[i].Y = pt, l
		hi[i].X, hi[i].Y = pt, h
	}
	return lo, hi
}
