package trackmatch

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

var ErrFitFailure = errors.New("trackmatch: straight-line fit failed")

// minFitClusters is the smallest cluster count the zero-field fit accepts.
const minFitClusters = 3

// Kinematics are the stub quantities compared by the matching windows.
type Kinematics struct {
	Phi    float64
	Eta    float64
	Pt     float64
	Pos    Vec3
	Mom    Vec3
	Charge int
}

func (k Kinematics) PositiveCharge() bool {
	return k.Charge > 0
}

func helixKinematics(s *TrackStub, field float64) Kinematics {
	return Kinematics{
		Phi:    s.Phi,
		Eta:    s.Eta,
		Pt:     s.Pt(field),
		Pos:    s.Position,
		Mom:    s.Momentum,
		Charge: s.Charge,
	}
}

// zeroFieldKinematics refits a stub as a straight line through its cluster
// positions: a line in the transverse plane, then z against the transverse
// path length from the point of closest approach to the beam axis. The
// momentum is the unit-pT direction; charge and pT are not measured.
func zeroFieldKinematics(keys []ClusterKey, surfaces SurfaceLookup) (Kinematics, error) {
	if len(keys) < minFitClusters {
		return Kinematics{}, fmt.Errorf("%w: %d clusters", ErrFitFailure, len(keys))
	}

	xs := make([]float64, len(keys))
	ys := make([]float64, len(keys))
	zs := make([]float64, len(keys))
	inner, outer := 0, 0
	for i, key := range keys {
		pos, ok := surfaces.Surface(key)
		if !ok {
			return Kinematics{}, fmt.Errorf("%w: no surface for cluster %v", ErrFitFailure, key)
		}
		xs[i], ys[i], zs[i] = pos.X, pos.Y, pos.Z
		if pos.Perp() < math.Hypot(xs[inner], ys[inner]) {
			inner = i
		}
		if pos.Perp() > math.Hypot(xs[outer], ys[outer]) {
			outer = i
		}
	}

	// regress along the axis with the larger spread so steep lines stay finite
	var ux, uy float64
	if stat.Variance(xs, nil) >= stat.Variance(ys, nil) {
		_, slope := stat.LinearRegression(xs, ys, nil, false)
		ux, uy = 1, slope
	} else {
		_, slope := stat.LinearRegression(ys, xs, nil, false)
		ux, uy = slope, 1
	}
	norm := math.Hypot(ux, uy)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return Kinematics{}, fmt.Errorf("%w: degenerate transverse direction", ErrFitFailure)
	}
	ux, uy = ux/norm, uy/norm
	if ux*(xs[outer]-xs[inner])+uy*(ys[outer]-ys[inner]) < 0 {
		ux, uy = -ux, -uy
	}

	// the unweighted regression line passes through the centroid
	cx, cy := stat.Mean(xs, nil), stat.Mean(ys, nil)
	along := cx*ux + cy*uy
	pcaX, pcaY := cx-along*ux, cy-along*uy

	path := make([]float64, len(keys))
	for i := range keys {
		path[i] = (xs[i]-pcaX)*ux + (ys[i]-pcaY)*uy
	}
	if stat.Variance(path, nil) == 0 {
		return Kinematics{}, fmt.Errorf("%w: clusters share one transverse position", ErrFitFailure)
	}
	z0, cotTheta := stat.LinearRegression(path, zs, nil, false)
	if math.IsNaN(z0) || math.IsNaN(cotTheta) {
		return Kinematics{}, fmt.Errorf("%w: longitudinal fit diverged", ErrFitFailure)
	}

	return Kinematics{
		Phi: math.Atan2(uy, ux),
		Eta: math.Asinh(cotTheta),
		Pos: Vec3{pcaX, pcaY, z0},
		Mom: Vec3{ux, uy, cotTheta},
	}, nil
}
