package trackmatch

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPair(event, outer, inner int) PairRecord {
	return PairRecord{
		Event:         event,
		Outer:         outer,
		Inner:         inner,
		InnerCrossing: Crossing(inner - 1),
		OuterKin: Kinematics{
			Phi: 0.5, Eta: 0.1 * float64(outer), Pt: 2.5,
			Pos: Vec3{X: 0.1, Y: 0.2, Z: 3.5}, Mom: Vec3{X: 1, Y: 2, Z: 0.5}, Charge: -1,
		},
		// the ntuple keeps no silicon pT
		InnerKin: Kinematics{
			Phi: 0.51, Eta: 0.1*float64(outer) + 0.01,
			Pos: Vec3{X: 0.12, Y: 0.18, Z: 3.2}, Mom: Vec3{X: 1.1, Y: 1.9, Z: 0.4}, Charge: 1,
		},
	}
}

func openTestNtuple(t *testing.T) *Ntuple {
	t.Helper()
	n, err := OpenNtuple(filepath.Join(t.TempDir(), "match.db"))
	require.NoError(t, err)
	return n
}

func TestNtuple_Pairs(t *testing.T) {
	n := openTestNtuple(t)
	defer n.Close()

	want := []PairRecord{testPair(0, 0, 0), testPair(0, 0, 1), testPair(1, 2, 3)}
	for _, r := range want {
		n.RecordPair(r)
	}
	require.NoError(t, n.Err())

	var got []PairRecord
	require.NoError(t, n.ScanPairs(func(r PairRecord) error {
		got = append(got, r)
		return nil
	}))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("scanned pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestNtuple_ScanStops(t *testing.T) {
	n := openTestNtuple(t)
	defer n.Close()

	n.RecordPair(testPair(0, 0, 0))
	n.RecordPair(testPair(0, 1, 0))

	stop := errors.New("stop")
	calls := 0
	err := n.ScanPairs(func(PairRecord) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestNtuple_BatchFlush(t *testing.T) {
	n := openTestNtuple(t)
	defer n.Close()

	for i := 0; i < flushEvery+10; i++ {
		n.RecordPair(testPair(i, 0, 0))
	}
	assert.Len(t, n.pending, 10)

	count := 0
	require.NoError(t, n.ScanPairs(func(PairRecord) error { count++; return nil }))
	assert.Equal(t, flushEvery+10, count)
	assert.Empty(t, n.pending)
}

func TestNtuple_Seeds(t *testing.T) {
	n := openTestNtuple(t)
	defer n.Close()

	require.NoError(t, n.RecordSeeds(0, &SeedContainer{Seeds: []CombinedSeed{
		{TpcID: 0, SiliconID: 1, CrossingEstimate: 0},
		{TpcID: 1, SiliconID: NoStub, CrossingEstimate: CrossingUndefined},
	}}))
	require.NoError(t, n.RecordSeeds(1, &SeedContainer{Seeds: []CombinedSeed{
		{TpcID: 0, SiliconID: 0, CrossingEstimate: -2},
	}}))

	total, matched, err := n.SeedCount()
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, matched)

	// the same event twice in one run violates the primary key
	assert.Error(t, n.RecordSeeds(1, &SeedContainer{Seeds: []CombinedSeed{{TpcID: 5, SiliconID: NoStub}}}))
}

func TestNtuple_SecondRunRestartsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "match.db")
	seeds := &SeedContainer{Seeds: []CombinedSeed{
		{TpcID: 0, SiliconID: 1, CrossingEstimate: 0},
		{TpcID: 1, SiliconID: NoStub, CrossingEstimate: CrossingUndefined},
	}}

	n, err := OpenNtuple(path)
	require.NoError(t, err)
	assert.Zero(t, n.Run())
	require.NoError(t, n.RecordSeeds(0, seeds))
	n.RecordPair(testPair(0, 0, 1))
	first := n.Run()
	require.NoError(t, n.Close())

	n, err = OpenNtuple(path)
	require.NoError(t, err)
	defer n.Close()

	total, _, err := n.SeedCount()
	require.NoError(t, err)
	assert.Zero(t, total, "nothing written by this run yet")

	require.NoError(t, n.RecordSeeds(0, &SeedContainer{Seeds: seeds.Seeds[:1]}))
	n.RecordPair(testPair(0, 0, 1))
	assert.Greater(t, n.Run(), first)

	total, matched, err := n.SeedCount()
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, matched)

	count := 0
	require.NoError(t, n.ScanPairs(func(PairRecord) error { count++; return nil }))
	assert.Equal(t, 2, count)
}

func TestNtuple_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "match.db")
	n, err := OpenNtuple(path)
	require.NoError(t, err)
	n.RecordPair(testPair(3, 1, 1))
	require.NoError(t, n.Close())

	n, err = OpenNtuple(path)
	require.NoError(t, err)
	defer n.Close()

	var got []PairRecord
	require.NoError(t, n.ScanPairs(func(r PairRecord) error {
		got = append(got, r)
		return nil
	}))
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Event)
}

func TestNtuple_AsRecorder(t *testing.T) {
	n := openTestNtuple(t)
	defer n.Close()

	m, err := NewMatcher(scenarioConfig(), WithRecorder(MultiRecorder{n, NewDeltaHistos(10)}))
	require.NoError(t, err)
	m.Match(scenarioEvent())

	var got []PairRecord
	require.NoError(t, n.ScanPairs(func(r PairRecord) error {
		got = append(got, r)
		return nil
	}))
	require.Len(t, got, 1)
	assert.InDelta(t, -0.3, got[0].DZ(), 1e-12)
	assert.InDelta(t, -0.01, got[0].DPhi(), 1e-12)
}
