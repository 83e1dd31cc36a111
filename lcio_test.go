package trackmatch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/lcio"
)

func TestInttCrossing(t *testing.T) {
	const tpc = TimeBetweenCrossings

	tests := []struct {
		name  string
		times []float64
		want  Crossing
	}{
		{"no hits", nil, CrossingUndefined},
		{"single hit", []float64{2 * tpc}, 2},
		{"rounded to nearest", []float64{0.4 * tpc, -0.4 * tpc, 0.6 * tpc}, 0},
		{"majority", []float64{0, 0.1 * tpc, 3 * tpc}, 0},
		{"majority away from zero", []float64{-2 * tpc, -2 * tpc, 1 * tpc}, -2},
		{"tie goes towards zero", []float64{3 * tpc, 1 * tpc}, 1},
		{"tie at equal distance goes lower", []float64{1 * tpc, -1 * tpc}, -1},
		{"out of range ignored", []float64{1e9 * tpc}, CrossingUndefined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InttCrossing(tt.times, tpc))
		})
	}
}

func TestCloserToZero(t *testing.T) {
	assert.True(t, closerToZero(1, -2))
	assert.True(t, closerToZero(-1, 1))
	assert.False(t, closerToZero(1, -1))
	assert.True(t, closerToZero(0, CrossingUndefined))
}

func lcioHit(key ClusterKey, pos [3]float64, time float32) *lcio.TrackerHit {
	return &lcio.TrackerHit{
		CellID0: int32(uint32(key)),
		CellID1: int32(uint32(key >> 32)),
		Pos:     pos,
		Time:    time,
	}
}

func TestLCIOReader_Stub(t *testing.T) {
	intt := NewClusterKey(InttID, 3, 0, 7)
	tpc := NewTpcClusterKey(20, 4, SideNorth, 1)
	hits := []*lcio.TrackerHit{
		lcioHit(intt, [3]float64{80, 0, 10}, float32(2*TimeBetweenCrossings)),
		lcioHit(tpc, [3]float64{300, 10, 40}, 0),
	}
	track := func(omega float32) *lcio.Track {
		return &lcio.Track{
			States: []lcio.TrackState{{D0: 2, Phi: 0.5, Omega: omega, Z0: 30, TanL: 0.2}},
			Hits:   hits,
		}
	}

	t.Run("curved", func(t *testing.T) {
		cfg := DefaultConfig()
		lr := &LCIOReader{cfg: cfg}
		surfaces := make(SurfaceMap)

		stub := lr.stub(track(-0.00042), surfaces, false)
		require.NotNil(t, stub)
		assert.InDelta(t, -0.0042, stub.QOverR, 1e-9)
		assert.Equal(t, -1, stub.Charge)
		assert.InDelta(t, 1.0, stub.Pt(cfg.Field), 1e-5)
		assert.InDelta(t, stub.Pt(cfg.Field)*math.Cos(0.5), stub.Momentum.X, 1e-5)
		assert.InDelta(t, 3.0, stub.Position.Z, 1e-6)
		assert.InDelta(t, -0.2*math.Sin(0.5), stub.Position.X, 1e-6)
		assert.InDelta(t, math.Asinh(0.2), stub.Eta, 1e-6)
		assert.Equal(t, CrossingUndefined, stub.Crossing)

		assert.Equal(t, []ClusterKey{intt, tpc}, stub.Clusters)
		assert.Equal(t, Vec3{X: 30, Y: 1, Z: 4}, surfaces[tpc])
	})

	t.Run("straight in zero field", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ZeroField = true
		lr := &LCIOReader{cfg: cfg}

		stub := lr.stub(track(0), make(SurfaceMap), false)
		require.NotNil(t, stub)
		assert.Zero(t, stub.QOverR)
		assert.Zero(t, stub.Charge)
		assert.Equal(t, Vec3{}, stub.Momentum)
		assert.InDelta(t, 3.0, stub.Position.Z, 1e-6)
		assert.Len(t, stub.Clusters, 2)
	})

	t.Run("straight in field", func(t *testing.T) {
		lr := &LCIOReader{cfg: DefaultConfig()}
		assert.Nil(t, lr.stub(track(0), make(SurfaceMap), false))
	})

	t.Run("no hits", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ZeroField = true
		lr := &LCIOReader{cfg: cfg}
		trk := track(0.001)
		trk.Hits = nil
		assert.Nil(t, lr.stub(trk, make(SurfaceMap), false))
	})

	t.Run("intt crossing", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.UseInttCrossing = true
		lr := &LCIOReader{cfg: cfg}

		assert.Equal(t, Crossing(2), lr.stub(track(0.001), make(SurfaceMap), true).Crossing)
		assert.Equal(t, CrossingUndefined, lr.stub(track(0.001), make(SurfaceMap), false).Crossing)
	})
}
