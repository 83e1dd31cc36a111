package trackmatch

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// BoundFlag collects up to three parameters A, B, C of a Bound. Values may
// be given comma separated or by repeating the flag; the first use discards
// the configured default.
type BoundFlag struct {
	target  func(create bool) *Bound
	onSet   func()
	values  []float64
	beenSet bool
}

func NewBoundFlag(b *Bound) *BoundFlag {
	return &BoundFlag{target: func(bool) *Bound { return b }}
}

func (f *BoundFlag) Set(valueStr string) error {
	for _, field := range strings.Split(valueStr, ",") {
		value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return err
		}

		if !f.beenSet {
			f.beenSet = true
			f.values = nil
		}

		f.values = append(f.values, value)
	}
	if len(f.values) > 3 {
		return fmt.Errorf("a bound takes at most 3 parameters, got %d", len(f.values))
	}

	var b Bound
	params := []*float64{&b.A, &b.B, &b.C}
	for i, value := range f.values {
		*params[i] = value
	}
	*f.target(true) = b
	if f.onSet != nil {
		f.onSet()
	}
	return nil
}

func (f *BoundFlag) String() string {
	if f == nil || f.target == nil {
		return ""
	}
	return f.target(false).String()
}

// absFlag switches a charge window between absolute and range mode.
// explicit records that the mode was chosen on the command line.
type absFlag struct {
	target   func(create bool) *ChargeWindow
	explicit *bool
}

func (f absFlag) IsBoolFlag() bool { return true }

func (f absFlag) Set(valueStr string) error {
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return err
	}
	f.target(true).Abs = value
	if f.explicit != nil {
		*f.explicit = true
	}
	return nil
}

func (f absFlag) String() string {
	if f.target == nil {
		return "false"
	}
	return strconv.FormatBool(f.target(false).Abs)
}

// RegisterWindowFlags adds -<tag>.lo, -<tag>.hi, -<tag>.abs and their
// -<tag>.neg.* counterparts for cfg to fs. Setting any negative-charge flag
// detaches the negative band from the positive one, starting from a copy of
// the positive band. A lower bound switches its band to range mode unless
// the matching abs flag is given.
func RegisterWindowFlags(fs *flag.FlagSet, tag string, cfg *WindowConfig) {
	pos := func(bool) *ChargeWindow { return &cfg.Pos }
	neg := func(create bool) *ChargeWindow {
		if cfg.Neg == nil {
			if !create {
				return &cfg.Pos
			}
			cw := cfg.Pos
			cfg.Neg = &cw
		}
		return cfg.Neg
	}

	var posAbs, negAbs bool
	rangeMode := func(target func(bool) *ChargeWindow, explicit *bool) func() {
		return func() {
			if !*explicit {
				target(true).Abs = false
			}
		}
	}

	fs.Var(&BoundFlag{target: func(c bool) *Bound { return &pos(c).Lo }, onSet: rangeMode(pos, &posAbs)}, tag+".lo",
		"lower "+tag+" bound a[,b,c] for +Q tracks: a+b*exp(c/pT)")
	fs.Var(&BoundFlag{target: func(c bool) *Bound { return &pos(c).Hi }}, tag+".hi",
		"upper "+tag+" bound a[,b,c] for +Q tracks: a+b*exp(c/pT)")
	fs.Var(absFlag{target: pos, explicit: &posAbs}, tag+".abs", "use |"+tag+"| < hi for +Q tracks")

	fs.Var(&BoundFlag{target: func(c bool) *Bound { return &neg(c).Lo }, onSet: rangeMode(neg, &negAbs)}, tag+".neg.lo",
		"lower "+tag+" bound for -Q tracks (default: same as +Q)")
	fs.Var(&BoundFlag{target: func(c bool) *Bound { return &neg(c).Hi }}, tag+".neg.hi",
		"upper "+tag+" bound for -Q tracks (default: same as +Q)")
	fs.Var(absFlag{target: neg, explicit: &negAbs}, tag+".neg.abs", "use |"+tag+"| < hi for -Q tracks")
}
