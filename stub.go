package trackmatch

import (
	"math"
	"strconv"
)

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Perp() float64 {
	return math.Hypot(v.X, v.Y)
}

// Crossing is a signed bunch-crossing index. CrossingUndefined marks a stub
// whose crossing has not been measured.
type Crossing int16

const CrossingUndefined Crossing = math.MaxInt16

func (c Crossing) Defined() bool {
	return c != CrossingUndefined
}

func (c Crossing) String() string {
	if !c.Defined() {
		return "undefined"
	}
	return strconv.Itoa(int(c))
}

// TrackStub is a seed reconstructed inside a single sub-detector. The helix
// parameters are only meaningful when the stub was fitted in a magnetic
// field; zero-field processing refits from Clusters instead.
type TrackStub struct {
	Clusters []ClusterKey

	// QOverR is the signed curvature in 1/cm.
	QOverR   float64
	Phi      float64
	Eta      float64
	Position Vec3
	Momentum Vec3
	Charge   int
	Crossing Crossing
}

// Pt converts the seed curvature to transverse momentum (GeV) for a field in Tesla.
func (s *TrackStub) Pt(field float64) float64 {
	return math.Abs(1./s.QOverR) * (0.3 / 100.) * field
}

// StubContainer holds one event's stubs. The index of a stub is its id;
// entries may be nil.
type StubContainer []*TrackStub

func (c StubContainer) Get(id int) *TrackStub {
	if id < 0 || id >= len(c) {
		return nil
	}
	return c[id]
}

func (c StubContainer) Size() int {
	return len(c)
}
