package trackmatch

import (
	"fmt"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/vg"
)

// DeltaHistos histograms the raw outer-inner differences of every examined
// pair, the distributions the windows are tuned on.
type DeltaHistos struct {
	DEta, DPhi, DX, DY, DZ *hbook.H1D
	// DPhiPt is dphi against outer-stub pT.
	DPhiPt *hbook.H2D

	pairs int
}

func NewDeltaHistos(nBins int) *DeltaHistos {
	return &DeltaHistos{
		DEta:   hbook.NewH1D(nBins, -0.1, 0.1),
		DPhi:   hbook.NewH1D(nBins, -0.2, 0.2),
		DX:     hbook.NewH1D(nBins, -2, 2),
		DY:     hbook.NewH1D(nBins, -2, 2),
		DZ:     hbook.NewH1D(nBins, -20, 20),
		DPhiPt: hbook.NewH2D(nBins, 0, 10, nBins, -0.2, 0.2),
	}
}

func (h *DeltaHistos) RecordPair(r PairRecord) {
	h.pairs++
	h.DEta.Fill(r.DEta(), 1)
	h.DPhi.Fill(r.DPhi(), 1)
	h.DX.Fill(r.DX(), 1)
	h.DY.Fill(r.DY(), 1)
	h.DZ.Fill(r.DZ(), 1)
	h.DPhiPt.Fill(r.OuterKin.Pt, r.DPhi(), 1)
}

// Pairs is the number of records seen.
func (h *DeltaHistos) Pairs() int {
	return h.pairs
}

// Save writes one plot per 1D histogram to <prefix>_<name>.png and the dphi
// against pT map to <prefix>_dphi_pt.png. The map is skipped while it has no
// in-range content.
func (h *DeltaHistos) Save(prefix string) error {
	hists := []struct {
		name, label string
		hist        *hbook.H1D
	}{
		{"deta", "eta_TPC - eta_Si", h.DEta},
		{"dphi", "phi_TPC - phi_Si (rad)", h.DPhi},
		{"dx", "x_TPC - x_Si (cm)", h.DX},
		{"dy", "y_TPC - y_Si (cm)", h.DY},
		{"dz", "z_TPC - z_Si (cm)", h.DZ},
	}

	for _, entry := range hists {
		p := hplot.New()
		p.X.Label.Text = entry.label
		p.Y.Label.Text = "pairs"

		hPlot := hplot.NewH1D(entry.hist)
		hPlot.Infos.Style = hplot.HInfoSummary
		p.Add(hPlot)

		fname := fmt.Sprintf("%s_%s.png", prefix, entry.name)
		if err := p.Save(6*vg.Inch, 4*vg.Inch, fname); err != nil {
			return fmt.Errorf("could not save %s: %w", fname, err)
		}
	}
	return h.saveDPhiPt(prefix + "_dphi_pt.png")
}

func (h *DeltaHistos) saveDPhiPt(fname string) error {
	grid := h.DPhiPt.GridXYZ()
	zmax := 0.0
	nx, ny := grid.Dims()
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			if z := grid.Z(i, j); z > zmax {
				zmax = z
			}
		}
	}
	if zmax == 0 {
		return nil
	}

	p := hplot.New()
	p.X.Label.Text = "p_T,TPC (GeV)"
	p.Y.Label.Text = "phi_TPC - phi_Si (rad)"

	colorMap := moreland.ExtendedBlackBody()
	colorMap.SetMin(0)
	colorMap.SetMax(zmax)
	p.Add(hplot.NewH2D(h.DPhiPt, colorMap.Palette(255)))

	if err := p.Save(6*vg.Inch, 4*vg.Inch, fname); err != nil {
		return fmt.Errorf("could not save %s: %w", fname, err)
	}
	return nil
}
