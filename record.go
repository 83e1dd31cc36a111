package trackmatch

import "math"

// PairRecord is one examined outer/inner pair, written before any window is
// applied so the windows can be tuned offline.
type PairRecord struct {
	Event         int
	Outer, Inner  int
	InnerCrossing Crossing
	OuterKin      Kinematics
	InnerKin      Kinematics
}

func (r PairRecord) DEta() float64 { return r.OuterKin.Eta - r.InnerKin.Eta }

// DPhi is wrapped into [-pi, pi].
func (r PairRecord) DPhi() float64 {
	return math.Remainder(r.OuterKin.Phi-r.InnerKin.Phi, 2*math.Pi)
}

func (r PairRecord) DX() float64 { return r.OuterKin.Pos.X - r.InnerKin.Pos.X }
func (r PairRecord) DY() float64 { return r.OuterKin.Pos.Y - r.InnerKin.Pos.Y }
func (r PairRecord) DZ() float64 { return r.OuterKin.Pos.Z - r.InnerKin.Pos.Z }

type PairRecorder interface {
	RecordPair(PairRecord)
}

// MultiRecorder fans a record out to several recorders.
type MultiRecorder []PairRecorder

func (rs MultiRecorder) RecordPair(r PairRecord) {
	for _, rec := range rs {
		rec.RecordPair(r)
	}
}
