package trackmatch

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Event is one event's matching input.
type Event struct {
	Number   int
	Outer    StubContainer
	Inner    StubContainer
	Surfaces SurfaceLookup
}

// MatchCandidate pairs an outer stub id with an inner stub id.
type MatchCandidate struct {
	Outer, Inner int
}

// ResolvedMatch is a candidate that passed the z test.
type ResolvedMatch struct {
	MatchCandidate
	Crossing Crossing
}

// MatchResult holds the outcome of one event. Matches are ordered by outer
// id, then inner id; Unmatched is sorted.
type MatchResult struct {
	Candidates []MatchCandidate
	Rejected   []MatchCandidate
	Matches    []ResolvedMatch
	Unmatched  []int
}

// pairRecord is an index-stable multimap entry; rejected entries are
// compacted away after crossing resolution.
type pairRecord struct {
	MatchCandidate
	estimate Crossing
	rejected bool
}

type stubInfo struct {
	kin  Kinematics
	keys []ClusterKey
	ok   bool
}

type Matcher struct {
	cfg        Config
	win        matchWindows
	excluded   map[uint8]bool
	correction CrossingCorrection
	logger     *zap.Logger
	recorder   PairRecorder
}

type Option func(*Matcher)

func WithLogger(logger *zap.Logger) Option {
	return func(m *Matcher) {
		m.logger = logger
	}
}

// WithRecorder receives every examined outer/inner pair.
func WithRecorder(r PairRecorder) Option {
	return func(m *Matcher) {
		m.recorder = r
	}
}

func WithCrossingCorrection(c CrossingCorrection) Option {
	return func(m *Matcher) {
		m.correction = c
	}
}

func NewMatcher(cfg Config, opts ...Option) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Matcher{
		cfg:      cfg,
		win:      cfg.windows(),
		excluded: make(map[uint8]bool, len(cfg.ExcludedLayers)),
		correction: DriftCorrection{
			DriftVelocity:   cfg.DriftVelocity,
			TimePerCrossing: cfg.TimePerCrossing,
		},
		logger: zap.NewNop(),
	}
	for _, layer := range cfg.ExcludedLayers {
		m.excluded[layer] = true
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Matcher) Config() Config {
	return m.cfg
}

// Windows returns the resolved windows in dx, dy, dz, dphi, deta order.
func (m *Matcher) Windows() []Window {
	return m.win.all()
}

// Match runs candidate matching and crossing resolution for one event.
func (m *Matcher) Match(ev *Event) *MatchResult {
	res := &MatchResult{}
	if ev.Outer.Size() == 0 {
		return res
	}
	surfaces := ev.Surfaces
	if surfaces == nil {
		surfaces = SurfaceMap(nil)
	}

	outer := m.prepare(ev.Outer, surfaces, "outer")
	inner := m.prepare(ev.Inner, surfaces, "inner")

	if m.recorder != nil {
		m.recordPairs(ev, outer, inner)
	}

	pairs := m.findCandidates(ev, outer, inner)
	for _, p := range pairs {
		res.Candidates = append(res.Candidates, p.MatchCandidate)
	}

	m.resolveCrossings(ev, pairs, outer, inner)

	survivors := pairs[:0]
	for _, p := range pairs {
		if p.rejected {
			res.Rejected = append(res.Rejected, p.MatchCandidate)
			continue
		}
		survivors = append(survivors, p)
	}

	matched := make(map[int]bool, len(survivors))
	for _, p := range survivors {
		res.Matches = append(res.Matches, ResolvedMatch{MatchCandidate: p.MatchCandidate, Crossing: p.estimate})
		matched[p.Outer] = true
	}
	for id, stub := range ev.Outer {
		if stub != nil && !matched[id] {
			res.Unmatched = append(res.Unmatched, id)
		}
	}

	m.logger.Debug("matched event",
		zap.Int("event", ev.Number),
		zap.Int("outer", ev.Outer.Size()),
		zap.Int("inner", ev.Inner.Size()),
		zap.Int("candidates", len(res.Candidates)),
		zap.Int("rejected", len(res.Rejected)),
		zap.Int("unmatched", len(res.Unmatched)),
	)
	return res
}

// prepare derives kinematics once per stub. Stubs that are nil or fail the
// zero-field fit are marked !ok.
func (m *Matcher) prepare(stubs StubContainer, surfaces SurfaceLookup, label string) []stubInfo {
	infos := make([]stubInfo, len(stubs))
	for id, stub := range stubs {
		if stub == nil {
			continue
		}
		info := &infos[id]
		info.keys = effectiveClusters(stub, surfaces, m.excluded)
		if !m.cfg.ZeroField {
			info.kin = helixKinematics(stub, m.cfg.Field)
			info.ok = true
			continue
		}

		kin, err := zeroFieldKinematics(info.keys, surfaces)
		if err != nil {
			m.logger.Debug("skip stub", zap.String("collection", label), zap.Int("id", id), zap.Error(err))
			continue
		}
		info.kin = kin
		info.ok = true
	}
	return infos
}

// findCandidates scans every outer/inner pair. Each outer stub writes only
// its own slot, so the scan may fan out; the merge below is serial and keeps
// outer-id then inner-id order.
func (m *Matcher) findCandidates(ev *Event, outer, inner []stubInfo) []pairRecord {
	perOuter := make([][]int, len(outer))
	search := func(o int) {
		if !outer[o].ok {
			return
		}
		for i := range inner {
			if !inner[i].ok {
				continue
			}
			if m.pairMatches(&outer[o].kin, &inner[i].kin) {
				perOuter[o] = append(perOuter[o], i)
			}
		}
	}

	if m.cfg.Workers > 1 {
		var g errgroup.Group
		g.SetLimit(m.cfg.Workers)
		for o := range outer {
			o := o
			g.Go(func() error {
				search(o)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for o := range outer {
			search(o)
		}
	}

	var pairs []pairRecord
	for o, ids := range perOuter {
		for _, i := range ids {
			pairs = append(pairs, pairRecord{MatchCandidate: MatchCandidate{Outer: o, Inner: i}})
			m.logger.Debug("candidate", zap.Int("event", ev.Number), zap.Int("outer", o), zap.Int("inner", i))
		}
	}
	return pairs
}

// pairMatches applies the eta, position and phi tests in that order.
func (m *Matcher) pairMatches(outer, inner *Kinematics) bool {
	return m.etaMatch(outer, inner) && m.positionMatch(outer, inner) && m.phiMatch(outer, inner)
}

func (m *Matcher) etaMatch(outer, inner *Kinematics) bool {
	if m.win.deta.InWindow(outer.PositiveCharge(), outer.Pt, outer.Eta, inner.Eta) {
		return true
	}
	return math.Abs(outer.Eta-inner.Eta) < m.cfg.EtaFallback
}

func (m *Matcher) positionMatch(outer, inner *Kinematics) bool {
	posQ := outer.PositiveCharge()
	return m.win.dx.InWindow(posQ, outer.Pt, outer.Pos.X, inner.Pos.X) &&
		m.win.dy.InWindow(posQ, outer.Pt, outer.Pos.Y, inner.Pos.Y)
}

func (m *Matcher) phiMatch(outer, inner *Kinematics) bool {
	posQ := outer.PositiveCharge()
	if m.win.dphi.InWindow(posQ, outer.Pt, outer.Phi, inner.Phi) {
		return true
	}
	if math.Abs(outer.Phi-inner.Phi) <= math.Pi {
		return false
	}
	wrapped := outer.Phi
	if wrapped-inner.Phi > math.Pi {
		wrapped -= 2 * math.Pi
	} else {
		wrapped += 2 * math.Pi
	}
	return m.win.dphi.InWindow(posQ, outer.Pt, wrapped, inner.Phi)
}

func (m *Matcher) recordPairs(ev *Event, outer, inner []stubInfo) {
	for o := range outer {
		if !outer[o].ok {
			continue
		}
		for i := range inner {
			if !inner[i].ok {
				continue
			}
			m.recorder.RecordPair(PairRecord{
				Event:         ev.Number,
				Outer:         o,
				Inner:         i,
				InnerCrossing: ev.Inner.Get(i).Crossing,
				OuterKin:      outer[o].kin,
				InnerKin:      inner[i].kin,
			})
		}
	}
}

// String lists the windows the way they are printed at initialization.
func (m *Matcher) String() string {
	s := fmt.Sprintf("search windows (pp_mode %t, zero_field %t, use_intt_crossing %t)",
		m.cfg.PPMode, m.cfg.ZeroField, m.cfg.UseInttCrossing)
	for _, w := range m.win.all() {
		s += "\n  " + w.String()
	}
	return s
}
