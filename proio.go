package trackmatch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/proio-org/go-proio"
	"github.com/proio-org/go-proio-pb/model/eic"
)

// proio tags of written seeds.
const (
	SeedTag      = "SvtxTrackSeed"
	MatchedTag   = "Matched"
	UnmatchedTag = "Unmatched"

	crossingTagPrefix = "Crossing="
)

// SeedWriter stores combined seeds as eic.Track entries, one proio event per
// framework event. The observations list the TPC clusters followed by the
// silicon clusters; the single segment carries the TPC stub momentum over
// charge at its reference point.
type SeedWriter struct {
	w *proio.Writer
}

func CreateSeedWriter(path string) (*SeedWriter, error) {
	w, err := proio.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create %q: %w", path, err)
	}
	return &SeedWriter{w: w}, nil
}

func (sw *SeedWriter) WriteEvent(seeds *SeedContainer, outer, inner StubContainer) error {
	event := proio.NewEvent()
	for _, seed := range seeds.Seeds {
		tpc := outer.Get(seed.TpcID)
		if tpc == nil {
			return fmt.Errorf("seed references missing tpc stub %d", seed.TpcID)
		}

		track := &eic.Track{}
		for _, key := range tpc.Clusters {
			track.Observation = append(track.Observation, uint64(key))
		}
		if si := inner.Get(seed.SiliconID); si != nil {
			for _, key := range si.Clusters {
				track.Observation = append(track.Observation, uint64(key))
			}
		}

		q := float64(tpc.Charge)
		if q == 0 {
			q = 1
		}
		track.Segment = []*eic.TrackSegment{{
			Poq: &eic.XYZD{
				X: f64(tpc.Momentum.X / q),
				Y: f64(tpc.Momentum.Y / q),
				Z: f64(tpc.Momentum.Z / q),
			},
		}}

		id := event.AddEntry(SeedTag, track)
		if seed.Matched() {
			event.TagEntry(id, MatchedTag, crossingTagPrefix+strconv.Itoa(int(seed.CrossingEstimate)))
		} else {
			event.TagEntry(id, UnmatchedTag)
		}
	}
	return sw.w.Push(event)
}

func (sw *SeedWriter) Close() error {
	return sw.w.Close()
}

// SeedEntry is a combined seed read back from a proio file.
type SeedEntry struct {
	Track            *eic.Track
	Matched          bool
	CrossingEstimate Crossing
}

// SeedEntries returns the seeds of one proio event.
func SeedEntries(event *proio.Event) []SeedEntry {
	matched := make(map[uint64]bool)
	for _, id := range event.TaggedEntries(MatchedTag) {
		matched[id] = true
	}

	var entries []SeedEntry
	for _, id := range event.TaggedEntries(SeedTag) {
		track, ok := event.GetEntry(id).(*eic.Track)
		if !ok || len(track.Segment) == 0 {
			continue
		}
		entry := SeedEntry{Track: track, Matched: matched[id], CrossingEstimate: CrossingUndefined}
		if entry.Matched {
			entry.CrossingEstimate = crossingFromTags(event.EntryTags(id))
		}
		entries = append(entries, entry)
	}
	return entries
}

func crossingFromTags(tags []string) Crossing {
	for _, tag := range tags {
		if !strings.HasPrefix(tag, crossingTagPrefix) {
			continue
		}
		c, err := strconv.Atoi(strings.TrimPrefix(tag, crossingTagPrefix))
		if err != nil {
			continue
		}
		return Crossing(c)
	}
	return CrossingUndefined
}

func f64(v float64) *float64 {
	return &v
}
