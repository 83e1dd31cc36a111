package trackmatch

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Return codes understood by the event loop.
const (
	EventOK    = 0
	AbortEvent = 1
	AbortRun   = 2
)

// SurfaceNode is the store name of the cluster surface lookup.
const SurfaceNode = "TRKR_CLUSTER"

var ErrMissingInput = errors.New("trackmatch: missing input collection")

// EventStore is the part of the framework node tree the module uses.
type EventStore interface {
	Get(name string) (any, bool)
	Put(name string, obj any)
}

// NodeTree is a flat in-memory EventStore.
type NodeTree map[string]any

func (t NodeTree) Get(name string) (any, bool) {
	obj, ok := t[name]
	return obj, ok
}

func (t NodeTree) Put(name string, obj any) {
	t[name] = obj
}

// Module drives a Matcher from an EventStore: InitRun once, ProcessEvent per
// event, End once.
type Module struct {
	matcher *Matcher
	logger  *zap.Logger
	closers []io.Closer
	event   int
	last    *MatchResult
}

func NewModule(m *Matcher, logger *zap.Logger) *Module {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Module{matcher: m, logger: logger}
}

// CloseOnEnd registers resources, such as recorders, released by End.
func (mod *Module) CloseOnEnd(c io.Closer) {
	mod.closers = append(mod.closers, c)
}

func (mod *Module) Matcher() *Matcher {
	return mod.matcher
}

// LastResult is the match result of the most recent event, nil before the
// first event or when it had nothing to match.
func (mod *Module) LastResult() *MatchResult {
	return mod.last
}

// InitRun checks that the input collections exist and creates the output
// collection when the store does not have one yet.
func (mod *Module) InitRun(store EventStore) (int, error) {
	cfg := mod.matcher.Config()
	mod.logger.Info("initializing track matching",
		zap.Bool("pp_mode", cfg.PPMode),
		zap.Bool("zero_field", cfg.ZeroField),
		zap.Bool("use_intt_crossing", cfg.UseInttCrossing),
	)
	for _, w := range mod.matcher.Windows() {
		mod.logger.Info(w.String())
	}

	for _, name := range []string{cfg.InnerContainer, cfg.OuterContainer, SurfaceNode} {
		if _, ok := store.Get(name); !ok {
			mod.logger.Error("can't find input node", zap.String("node", name))
			return AbortRun, fmt.Errorf("%w: %s", ErrMissingInput, name)
		}
	}

	if _, ok := store.Get(cfg.OutputContainer); !ok {
		mod.logger.Info("creating output node", zap.String("node", cfg.OutputContainer))
		store.Put(cfg.OutputContainer, &SeedContainer{})
	}
	return EventOK, nil
}

// ProcessEvent matches the current event and replaces the output collection
// contents. Unusable input ends the event early with EventOK.
func (mod *Module) ProcessEvent(store EventStore) int {
	cfg := mod.matcher.Config()
	mod.last = nil

	out, ok := fetch[*SeedContainer](store, cfg.OutputContainer)
	if !ok {
		out = &SeedContainer{}
		store.Put(cfg.OutputContainer, out)
	}
	out.Reset()

	outer, okOuter := fetch[StubContainer](store, cfg.OuterContainer)
	inner, okInner := fetch[StubContainer](store, cfg.InnerContainer)
	surfaces, okSurf := fetch[SurfaceLookup](store, SurfaceNode)
	if !okOuter || !okInner || !okSurf {
		mod.logger.Warn("event input unusable, skipping",
			zap.Int("event", mod.event),
			zap.Bool("outer", okOuter),
			zap.Bool("inner", okInner),
			zap.Bool("surfaces", okSurf),
		)
		mod.event++
		return EventOK
	}

	mod.logger.Debug("processing event",
		zap.Int("event", mod.event),
		zap.Int("tpc_seeds", outer.Size()),
		zap.Int("silicon_seeds", inner.Size()),
	)
	if outer.Size() == 0 {
		mod.event++
		return EventOK
	}

	res := mod.matcher.Match(&Event{
		Number:   mod.event,
		Outer:    outer,
		Inner:    inner,
		Surfaces: surfaces,
	})
	MergeSeeds(res, out)
	mod.last = res

	mod.logger.Debug("final seed container", zap.Int("event", mod.event), zap.Int("seeds", out.Size()))
	mod.event++
	return EventOK
}

// End releases registered resources and returns the first close error.
func (mod *Module) End() error {
	var first error
	for _, c := range mod.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	mod.closers = nil
	return first
}

func fetch[T any](store EventStore, name string) (T, bool) {
	var zero T
	obj, ok := store.Get(name)
	if !ok {
		return zero, false
	}
	v, ok := obj.(T)
	return v, ok
}
