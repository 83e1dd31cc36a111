package trackmatch

import (
	"fmt"
	"io"
	"math"

	"go-hep.org/x/hep/lcio"
)

// LCIO files carry lengths in mm.
const mmToCm = 0.1

// LCIOReader turns LCIO track collections into stub containers and the
// tracker hits they use into a SurfaceMap.
type LCIOReader struct {
	r   *lcio.Reader
	cfg Config
	evt lcio.Event
}

func OpenLCIO(path string, cfg Config) (*LCIOReader, error) {
	r, err := lcio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %q: %w", path, err)
	}
	return &LCIOReader{r: r, cfg: cfg}, nil
}

func (lr *LCIOReader) Next() bool {
	if !lr.r.Next() {
		return false
	}
	lr.evt = lr.r.Event()
	return true
}

func (lr *LCIOReader) Err() error {
	err := lr.r.Err()
	if err == io.EOF {
		return nil
	}
	return err
}

func (lr *LCIOReader) Close() error {
	return lr.r.Close()
}

// EventNumber is the event number stored in the current LCIO event.
func (lr *LCIOReader) EventNumber() int {
	return int(lr.evt.EventNumber)
}

// Fill replaces the input nodes of tree with the current event's content.
// Collections absent from the event are removed from tree.
func (lr *LCIOReader) Fill(tree NodeTree) {
	surfaces := make(SurfaceMap)

	for _, name := range []string{lr.cfg.OuterContainer, lr.cfg.InnerContainer} {
		tracks, ok := lr.evt.Get(name).(*lcio.TrackContainer)
		if !ok {
			delete(tree, name)
			continue
		}

		inner := name == lr.cfg.InnerContainer
		stubs := make(StubContainer, len(tracks.Tracks))
		for i := range tracks.Tracks {
			stubs[i] = lr.stub(&tracks.Tracks[i], surfaces, inner)
		}
		tree.Put(name, stubs)
	}
	tree.Put(SurfaceNode, surfaces)
}

// stub converts an LCIO track. Straight tracks (omega == 0) are kept only in
// zero-field mode, with curvature, charge and momentum left at zero.
func (lr *LCIOReader) stub(trk *lcio.Track, surfaces SurfaceMap, inner bool) *TrackStub {
	if len(trk.Hits) == 0 {
		return nil
	}
	omega := trk.Omega()
	if omega == 0 && !lr.cfg.ZeroField {
		return nil
	}

	stub := &TrackStub{
		Phi:      trk.Phi(),
		Eta:      math.Asinh(trk.TanL()),
		Crossing: CrossingUndefined,
	}

	d0 := trk.D0() * mmToCm
	stub.Position = Vec3{
		X: -d0 * math.Sin(stub.Phi),
		Y: d0 * math.Cos(stub.Phi),
		Z: trk.Z0() * mmToCm,
	}

	if omega != 0 {
		stub.QOverR = omega / mmToCm
		stub.Charge = 1
		if omega < 0 {
			stub.Charge = -1
		}
		pt := stub.Pt(lr.cfg.Field)
		stub.Momentum = Vec3{
			X: pt * math.Cos(stub.Phi),
			Y: pt * math.Sin(stub.Phi),
			Z: pt * trk.TanL(),
		}
	}

	var times []float64
	for _, hit := range trk.Hits {
		if hit == nil {
			continue
		}
		key := ClusterKey(uint64(uint32(hit.CellID1))<<32 | uint64(uint32(hit.CellID0)))
		stub.Clusters = append(stub.Clusters, key)
		surfaces[key] = Vec3{
			X: hit.Pos[0] * mmToCm,
			Y: hit.Pos[1] * mmToCm,
			Z: hit.Pos[2] * mmToCm,
		}
		if key.Trkr() == InttID {
			times = append(times, float64(hit.Time))
		}
	}

	if inner && lr.cfg.UseInttCrossing {
		stub.Crossing = InttCrossing(times, lr.cfg.TimePerCrossing)
	}
	return stub
}

// InttCrossing assigns the crossing most INTT hit times agree on. Ties go to
// the crossing closest to zero, then the lower one. Without hits the crossing
// is undefined.
func InttCrossing(times []float64, timePerCrossing float64) Crossing {
	votes := make(map[Crossing]int)
	for _, t := range times {
		votes[truncateCrossing(math.Round(t/timePerCrossing))]++
	}
	delete(votes, CrossingUndefined)

	best, bestVotes := CrossingUndefined, 0
	for c, n := range votes {
		switch {
		case n > bestVotes:
		case n == bestVotes && closerToZero(c, best):
		default:
			continue
		}
		best, bestVotes = c, n
	}
	return best
}

func closerToZero(a, b Crossing) bool {
	absA, absB := a, b
	if absA < 0 {
		absA = -absA
	}
	if absB < 0 {
		absB = -absB
	}
	if absA != absB {
		return absA < absB
	}
	return a < b
}
