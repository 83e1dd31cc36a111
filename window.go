package trackmatch

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bound is a window edge parametrized in transverse momentum as
// A + B*exp(C/pT).
type Bound struct {
	A float64 `yaml:"a"`
	B float64 `yaml:"b"`
	C float64 `yaml:"c"`
}

// Const returns a pT independent bound.
func Const(a float64) Bound {
	return Bound{A: a}
}

func (b Bound) At(pt float64) float64 {
	if b.B == 0 {
		return b.A
	}
	return b.A + b.B*math.Exp(b.C/pt)
}

func (b Bound) String() string {
	a := strconv.FormatFloat(b.A, 'g', -1, 64)
	if b.B == 0 {
		return a
	}
	sign := ""
	if b.B > 0 {
		sign = "+"
	}
	return a + sign + strconv.FormatFloat(b.B, 'g', -1, 64) +
		"*exp(" + strconv.FormatFloat(b.C, 'g', -1, 64) + "/pT)"
}

// ChargeWindow is the acceptance band for one charge sign. With Abs set the
// lower edge is ignored and the test becomes |delta| < Hi.
type ChargeWindow struct {
	Lo    Bound   `yaml:"lo"`
	Hi    Bound   `yaml:"hi"`
	Abs   bool    `yaml:"abs"`
	MinPt float64 `yaml:"min_pt"`
}

func (w ChargeWindow) accept(pt, delta float64) bool {
	if pt < w.MinPt {
		pt = w.MinPt
	}
	if w.Abs {
		return math.Abs(delta) < w.Hi.At(pt)
	}
	return delta > w.Lo.At(pt) && delta < w.Hi.At(pt)
}

func (w ChargeWindow) describe(tag string) string {
	if w.Abs {
		return "|" + tag + "| < " + w.Hi.String()
	}
	return w.Lo.String() + " < " + tag + " < " + w.Hi.String()
}

// WindowConfig is the configured form of a window. A nil Neg means negative
// tracks use the positive-charge band.
type WindowConfig struct {
	Pos ChargeWindow  `yaml:"pos"`
	Neg *ChargeWindow `yaml:"neg,omitempty"`
}

// AbsWindow returns a symmetric, pT independent |delta| < hi window.
func AbsWindow(hi float64) WindowConfig {
	return WindowConfig{Pos: ChargeWindow{Hi: Const(hi), Abs: true}}
}

// RangeWindow returns a pT independent lo < delta < hi window.
func RangeWindow(lo, hi float64) WindowConfig {
	return WindowConfig{Pos: ChargeWindow{Lo: Const(lo), Hi: Const(hi)}}
}

// Window is a resolved WindowConfig. The zero value rejects everything.
type Window struct {
	Tag string

	pos, neg  ChargeWindow
	inherited bool
}

// NewWindow resolves cfg once; negative-charge behaviour is fixed here and
// never re-checked per call.
func NewWindow(tag string, cfg WindowConfig) Window {
	w := Window{Tag: tag, pos: cfg.Pos}
	if cfg.Neg == nil {
		w.neg = cfg.Pos
		w.inherited = true
	} else {
		w.neg = *cfg.Neg
	}
	return w
}

// InWindow reports whether outer-inner lies inside the band for a track of
// the given charge and transverse momentum.
func (w Window) InWindow(posQ bool, pt, outer, inner float64) bool {
	delta := outer - inner
	if posQ {
		return w.pos.accept(pt, delta)
	}
	return w.neg.accept(pt, delta)
}

// ChargeSymmetric is true when negative tracks inherit the positive band.
func (w Window) ChargeSymmetric() bool {
	return w.inherited
}

// Band returns the lower and upper edge at pt for the given charge. The
// lower edge of an absolute window is -hi.
func (w Window) Band(posQ bool, pt float64) (lo, hi float64) {
	cw := w.neg
	if posQ {
		cw = w.pos
	}
	if pt < cw.MinPt {
		pt = cw.MinPt
	}
	hi = cw.Hi.At(pt)
	if cw.Abs {
		return -hi, hi
	}
	return cw.Lo.At(pt), hi
}

func (w Window) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "track matching window, %s: ", w.Tag)
	if w.inherited || w.pos == w.neg {
		sb.WriteString("all tracks: " + w.pos.describe(w.Tag))
		return sb.String()
	}
	sb.WriteString("+Q tracks: " + w.pos.describe(w.Tag))
	sb.WriteString("; -Q tracks: " + w.neg.describe(w.Tag))
	return sb.String()
}
