package trackmatch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDriftCorrection(t *testing.T) {
	c := DriftCorrection{DriftVelocity: 0.008, TimePerCrossing: 100}

	assert.InDelta(t, 10-2*0.8, c.CorrectZ(10, SideSouth, 2), 1e-12)
	assert.InDelta(t, 10+2*0.8, c.CorrectZ(10, SideNorth, 2), 1e-12)
	assert.InDelta(t, -5+0.8, c.CorrectZ(-5, SideSouth, -1), 1e-12)
	assert.Equal(t, 3.5, c.CorrectZ(3.5, SideNorth, 0))
}

func TestEstimateCrossing(t *testing.T) {
	m := newTestMatcher(t, DefaultConfig())
	sep := TimeBetweenCrossings * 8.0e-3

	stubs := func(side uint8, dz float64) (*TrackStub, *TrackStub) {
		outer := &TrackStub{
			Clusters: []ClusterKey{
				NewClusterKey(MicromegasID, 55, 0, 0),
				NewTpcClusterKey(20, 4, side, 1),
				NewTpcClusterKey(21, 4, 1-side, 2),
			},
			Position: Vec3{Z: 10},
		}
		inner := &TrackStub{Position: Vec3{Z: 10 - dz}}
		return outer, inner
	}

	tests := []struct {
		name string
		side uint8
		dz   float64
		want Crossing
	}{
		{"north, negative mismatch", SideNorth, -2.5 * sep, 2},
		{"south, negative mismatch", SideSouth, -2.5 * sep, -2},
		{"north, positive mismatch", SideNorth, 1.5 * sep, -1},
		{"south, positive mismatch", SideSouth, 1.5 * sep, 1},
		{"within one crossing", SideNorth, 0.3 * sep, 0},
		{"beyond int16", SideSouth, 40000 * sep, CrossingUndefined},
		{"below int16", SideSouth, -40000 * sep, math.MinInt16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outer, inner := stubs(tt.side, tt.dz)
			assert.Equal(t, tt.want, m.EstimateCrossing(outer, inner))
		})
	}

	t.Run("no tpc cluster", func(t *testing.T) {
		outer := &TrackStub{Clusters: []ClusterKey{NewClusterKey(MicromegasID, 55, 0, 0)}}
		assert.Equal(t, CrossingUndefined, m.EstimateCrossing(outer, &TrackStub{Position: Vec3{Z: 4}}))
	})
}

func TestTruncateCrossing(t *testing.T) {
	assert.Equal(t, Crossing(2), truncateCrossing(2.9))
	assert.Equal(t, Crossing(-2), truncateCrossing(-2.9))
	assert.Equal(t, CrossingUndefined, truncateCrossing(math.NaN()))
	assert.Equal(t, CrossingUndefined, truncateCrossing(math.MaxInt16))
	assert.Equal(t, Crossing(math.MinInt16), truncateCrossing(math.Inf(-1)))
}

func ppConfig() Config {
	cfg := scenarioConfig()
	cfg.PPMode = true
	return cfg
}

func TestPPMode_UndefinedCrossingRejected(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m, err := NewMatcher(ppConfig(), WithLogger(zap.New(core)))
	require.NoError(t, err)

	ev := scenarioEvent()
	ev.Inner[0].Crossing = CrossingUndefined

	res := m.Match(ev)
	assert.Equal(t, []MatchCandidate{{0, 0}}, res.Candidates)
	assert.Equal(t, []MatchCandidate{{0, 0}}, res.Rejected)
	assert.Empty(t, res.Matches)
	assert.Equal(t, []int{0}, res.Unmatched)
	assert.Equal(t, 1, logs.FilterMessage("drop pair, inner crossing undefined").Len())
}

func TestPPMode_CorrectsOuterZ(t *testing.T) {
	sep := TimeBetweenCrossings * 8.0e-3

	ev := scenarioEvent()
	ev.Inner[0].Crossing = 3
	ev.Inner[0].Position.Z = 10
	// a north-side track from crossing 3 looks shifted towards the membrane
	ev.Outer[0].Position.Z = 10 - 3*sep

	res := newTestMatcher(t, scenarioConfig()).Match(ev)
	assert.Empty(t, res.Matches, "uncorrected mismatch is outside dz_min")

	res = newTestMatcher(t, ppConfig()).Match(ev)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, MatchCandidate{0, 0}, res.Matches[0].MatchCandidate)
}

func TestPPMode_CustomCorrection(t *testing.T) {
	m, err := NewMatcher(ppConfig(), WithCrossingCorrection(shiftCorrection(100)))
	require.NoError(t, err)

	res := m.Match(scenarioEvent())
	assert.Empty(t, res.Matches)
	assert.Len(t, res.Rejected, 1)
}

type shiftCorrection float64

func (s shiftCorrection) CorrectZ(z float64, _ int, _ Crossing) float64 {
	return z + float64(s)
}

func TestPPMode_NoTpcSideRejected(t *testing.T) {
	ev := scenarioEvent()
	// without surfaces the TPC clusters drop out of the effective list
	for _, key := range ev.Outer[0].Clusters {
		delete(ev.Surfaces.(SurfaceMap), key)
	}

	res := newTestMatcher(t, scenarioConfig()).Match(ev)
	assert.Len(t, res.Matches, 1)

	res = newTestMatcher(t, ppConfig()).Match(ev)
	assert.Empty(t, res.Matches)
	assert.Equal(t, []int{0}, res.Unmatched)
}

func TestPPMode_ExcludedLayersIgnoredForSide(t *testing.T) {
	ev := scenarioEvent()
	outer := ev.Outer[0]
	surfaces := ev.Surfaces.(SurfaceMap)

	// a south cluster on an excluded layer ahead of the north clusters
	excluded := NewTpcClusterKey(7, 3, SideSouth, 99)
	surfaces[excluded] = Vec3{X: 10, Y: 10, Z: 12}
	outer.Clusters = append([]ClusterKey{excluded}, outer.Clusters...)

	cfg := ppConfig()
	m := newTestMatcher(t, cfg)
	side, ok := firstTpcSide(effectiveClusters(outer, surfaces, m.excluded))
	require.True(t, ok)
	assert.Equal(t, SideNorth, side)

	res := m.Match(ev)
	assert.Len(t, res.Matches, 1)
}
