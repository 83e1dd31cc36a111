package trackmatch

import (
	"math"

	"go.uber.org/zap"
)

// CrossingCorrection moves a TPC z measurement to the value it would have
// had for a track from the triggered crossing.
type CrossingCorrection interface {
	CorrectZ(z float64, side int, crossing Crossing) float64
}

// DriftCorrection is the linear drift-time correction: a track from a later
// crossing drifts for less time, so its clusters look shifted towards the
// central membrane by crossing * TimePerCrossing * DriftVelocity.
type DriftCorrection struct {
	DriftVelocity   float64
	TimePerCrossing float64
}

func (c DriftCorrection) CorrectZ(z float64, side int, crossing Crossing) float64 {
	shift := float64(crossing) * c.TimePerCrossing * c.DriftVelocity
	if side == SideSouth {
		return z - shift
	}
	return z + shift
}

// EstimateCrossing derives the crossing of a matched pair from the z
// mismatch between the outer and inner stub alone. The sign follows the TPC
// side of the first TPC cluster on the outer stub; without one the estimate
// is undefined.
func (m *Matcher) EstimateCrossing(outer, inner *TrackStub) Crossing {
	side, ok := firstTpcSide(outer.Clusters)
	if !ok {
		return CrossingUndefined
	}

	separation := m.cfg.TimePerCrossing * m.cfg.DriftVelocity
	crossings := (outer.Position.Z - inner.Position.Z) / separation

	// on the north side a positive t0 makes z look less positive, so a
	// negative mismatch means a later crossing
	if side == SideNorth {
		crossings = -crossings
	}
	return truncateCrossing(crossings)
}

// truncateCrossing rounds toward zero; values outside the int16 range are
// not physical crossings.
func truncateCrossing(x float64) Crossing {
	switch {
	case math.IsNaN(x), x >= math.MaxInt16:
		return CrossingUndefined
	case x <= math.MinInt16:
		return math.MinInt16
	}
	return Crossing(x)
}

// zMatch is the longitudinal test of one candidate pair.
func (m *Matcher) zMatch(cand MatchCandidate, outer, inner *stubInfo, crossing Crossing) bool {
	outerZ := outer.kin.Pos.Z
	innerZ := inner.kin.Pos.Z
	posQ := outer.kin.PositiveCharge()

	if m.cfg.PPMode {
		if !crossing.Defined() {
			m.logger.Debug("drop pair, inner crossing undefined",
				zap.Int("outer", cand.Outer), zap.Int("inner", cand.Inner))
			return false
		}
		side, ok := firstTpcSide(outer.keys)
		if !ok {
			m.logger.Debug("drop pair, no TPC side for outer stub",
				zap.Int("outer", cand.Outer), zap.Int("inner", cand.Inner))
			return false
		}
		outerZ = m.correction.CorrectZ(outerZ, side, crossing)
	}

	mismatch := outerZ - innerZ
	accepted := (m.win.dz.InWindow(posQ, outer.kin.Pt, outerZ, innerZ) && math.Abs(mismatch) < m.cfg.DzMax) ||
		math.Abs(mismatch) < m.cfg.DzMin

	if ce := m.logger.Check(zap.DebugLevel, "z match"); ce != nil {
		ce.Write(
			zap.Int("outer", cand.Outer),
			zap.Int("inner", cand.Inner),
			zap.Stringer("crossing", crossing),
			zap.Float64("outer_z", outer.kin.Pos.Z),
			zap.Float64("outer_z_corrected", outerZ),
			zap.Float64("inner_z", innerZ),
			zap.Float64("dz", mismatch),
			zap.Bool("accepted", accepted),
		)
	}
	return accepted
}

// resolveCrossings applies the z test to every candidate, marking failures
// as rejected in place, and computes the crossing estimate of survivors.
func (m *Matcher) resolveCrossings(ev *Event, pairs []pairRecord, outer, inner []stubInfo) {
	for idx := range pairs {
		p := &pairs[idx]
		innerStub := ev.Inner.Get(p.Inner)
		if !m.zMatch(p.MatchCandidate, &outer[p.Outer], &inner[p.Inner], innerStub.Crossing) {
			p.rejected = true
			continue
		}
		p.estimate = m.EstimateCrossing(ev.Outer.Get(p.Outer), innerStub)
	}
}
