package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/decibelcooper/trackmatch"
)

var (
	delta    = flag.String("delta", "dphi", "residual to map: deta, dphi, dx, dy or dz")
	pTMin    = flag.Float64("minpt", 0.25, "minimum transverse momentum")
	pTMax    = flag.Float64("maxpt", 10, "maximum transverse momentum")
	etaLimit = flag.Float64("etalimit", 1.2, "maximum absolute value of eta")
	resLimit = flag.Float64("reslimit", 0.02, "maximum residual width in the color map")
	maxDelta = flag.Float64("maxdelta", 0.2, "ignore pairs with a larger absolute residual")
	nBinsPT  = flag.Int("nbinspt", 10, "number of bins in transverse momentum")
	nBinsEta = flag.Int("nbinseta", 10, "number of bins in eta")
	crossing = flag.Bool("crossing0", false, "only use pairs whose silicon stub is from crossing 0")
	title    = flag.String("title", "", "plot title")
	output   = flag.String("output", "out.png", "output file")
)

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: `+os.Args[0]+` [options] <sqlite-ntuple-file>

Maps the width of a TPC-silicon residual over TPC seed eta and pT, using the
pair ntuple written by sitpcmatch -ntuple.

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if flag.NArg() != 1 {
		printUsage()
		log.Fatal("Invalid arguments")
	}

	residuals := map[string]func(trackmatch.PairRecord) float64{
		"deta": trackmatch.PairRecord.DEta,
		"dphi": trackmatch.PairRecord.DPhi,
		"dx":   trackmatch.PairRecord.DX,
		"dy":   trackmatch.PairRecord.DY,
		"dz":   trackmatch.PairRecord.DZ,
	}
	residual, ok := residuals[*delta]
	if !ok {
		printUsage()
		log.Fatalf("unknown residual %q", *delta)
	}

	ntuple, err := trackmatch.OpenNtuple(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	resGrid := NewResGrid(*nBinsEta, -*etaLimit, *etaLimit, *nBinsPT, *pTMin, *pTMax)
	err = ntuple.ScanPairs(func(r trackmatch.PairRecord) error {
		if *crossing && r.InnerCrossing != 0 {
			return nil
		}
		d := residual(r)
		if math.Abs(d) > *maxDelta {
			return nil
		}
		resGrid.Fill(r.OuterKin.Eta, r.OuterKin.Pt, d)
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := ntuple.Close(); err != nil {
		log.Fatal(err)
	}

	p, err := plot.New()
	if err != nil {
		log.Fatal(err)
	}
	p.Title.Text = *title
	p.X.Label.Text = "eta"
	p.Y.Label.Text = "p_T (GeV)"
	p.Y.Tick.Marker = trackmatch.PtTicks{}

	img := vgimg.New(670, 400)
	dc := draw.New(img)
	dc0 := draw.Crop(dc, 0, -70, 0, 0)
	dc1 := draw.Crop(dc, 620, 0, 0, 0)

	colorMap := moreland.ExtendedBlackBody()
	colorMap.SetMin(0)
	colorMap.SetMax(*resLimit)
	pal := colorMap.Palette(1000)
	heatMap := plotter.NewHeatMap(resGrid, pal)
	heatMap.Min = 0
	heatMap.Max = *resLimit
	p.Add(heatMap)

	p.Draw(dc0)

	p, err = plot.New()
	if err != nil {
		log.Fatal(err)
	}

	colorBar := &plotter.ColorBar{ColorMap: colorMap}
	colorBar.Vertical = true
	p.Add(colorBar)
	p.HideX()
	p.Y.Padding = 0
	p.Y.Label.Text = "sigma(" + *delta + ")"

	p.Draw(dc1)

	w, err := os.Create(*output)
	if err != nil {
		log.Fatal(err)
	}
	defer w.Close()
	png := vgimg.PngCanvas{Canvas: img}
	if _, err = png.WriteTo(w); err != nil {
		log.Fatal(err)
	}
}

// ResGrid accumulates a residual per (eta, pT) cell and exposes its
// standard deviation as a plotter.GridXYZ.
type ResGrid struct {
	hCount, hV, hV2 *hbook.H2D
	nBinsX, nBinsY  int
}

func NewResGrid(nBinsX int, xLow, xHigh float64, nBinsY int, yLow, yHigh float64) *ResGrid {
	return &ResGrid{
		hCount: hbook.NewH2D(nBinsX, xLow, xHigh, nBinsY, yLow, yHigh),
		hV:     hbook.NewH2D(nBinsX, xLow, xHigh, nBinsY, yLow, yHigh),
		hV2:    hbook.NewH2D(nBinsX, xLow, xHigh, nBinsY, yLow, yHigh),
		nBinsX: nBinsX,
		nBinsY: nBinsY,
	}
}

func (g *ResGrid) Fill(x, y, z float64) {
	g.hCount.Fill(x, y, 1)
	g.hV.Fill(x, y, z)
	g.hV2.Fill(x, y, z*z)
}

func (g *ResGrid) Dims() (int, int) {
	return g.nBinsX, g.nBinsY
}

// Z is the residual width of a cell; cells with fewer than three pairs are
// drawn as NaN so the heat map leaves them blank.
func (g *ResGrid) Z(i, j int) float64 {
	n := g.hCount.GridXYZ().Z(i, j)
	if n < 3 {
		return math.NaN()
	}
	mean := g.hV.GridXYZ().Z(i, j) / n
	mean2 := g.hV2.GridXYZ().Z(i, j) / n

	return math.Sqrt(math.Max(mean2-mean*mean, 0))
}

func (g *ResGrid) X(i int) float64 {
	return g.hCount.GridXYZ().X(i)
}

func (g *ResGrid) Y(j int) float64 {
	return g.hCount.GridXYZ().Y(j)
}
