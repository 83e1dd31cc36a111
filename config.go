package trackmatch

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrBadConfig = errors.New("trackmatch: invalid configuration")

// TimeBetweenCrossings is the RHIC bunch spacing in ns.
const TimeBetweenCrossings = 106.65237

type Config struct {
	OuterContainer  string `yaml:"outer_container"`
	InnerContainer  string `yaml:"inner_container"`
	OutputContainer string `yaml:"output_container"`

	// Field is the solenoid field in Tesla. ZeroField switches to the
	// straight-line refit of every stub.
	Field     float64 `yaml:"field"`
	ZeroField bool    `yaml:"zero_field"`

	PPMode          bool `yaml:"pp_mode"`
	UseInttCrossing bool `yaml:"use_intt_crossing"`

	// DriftVelocity in cm/ns, TimePerCrossing in ns.
	DriftVelocity   float64 `yaml:"drift_velocity"`
	TimePerCrossing float64 `yaml:"time_per_crossing"`

	// EtaFallback accepts |deta| below it regardless of the deta window.
	// DzMin does the same for the (corrected) z mismatch; DzMax caps it.
	EtaFallback float64 `yaml:"deta_min"`
	DzMin       float64 `yaml:"dz_min"`
	DzMax       float64 `yaml:"dz_max"`

	// PtFloor is the pT clamp for windows that do not set their own.
	PtFloor        float64 `yaml:"pt_floor"`
	ExcludedLayers []uint8 `yaml:"excluded_layers"`

	// Workers > 1 spreads the candidate search over outer stubs.
	Workers   int `yaml:"workers"`
	Verbosity int `yaml:"verbosity"`

	Windows WindowsConfig `yaml:"windows"`
}

type WindowsConfig struct {
	DEta WindowConfig `yaml:"deta"`
	DPhi WindowConfig `yaml:"dphi"`
	DX   WindowConfig `yaml:"dx"`
	DY   WindowConfig `yaml:"dy"`
	DZ   WindowConfig `yaml:"dz"`
}

func DefaultConfig() Config {
	return Config{
		OuterContainer:  "TpcTrackSeedContainer",
		InnerContainer:  "SiliconTrackSeedContainer",
		OutputContainer: "SvtxTrackSeedContainer",

		Field: 1.4,

		DriftVelocity:   8.0e-3,
		TimePerCrossing: TimeBetweenCrossings,

		EtaFallback: 0.008,
		DzMin:       1.2,
		DzMax:       10.0,

		PtFloor:        0.25,
		ExcludedLayers: append([]uint8(nil), DefaultExcludedLayers...),

		Workers: 1,

		Windows: WindowsConfig{
			DEta: AbsWindow(0.004),
			DPhi: AbsWindow(0.01),
			DX:   AbsWindow(0.3),
			DY:   AbsWindow(0.3),
			DZ:   AbsWindow(0.4),
		},
	}
}

// LoadConfig reads a YAML file over the defaults. A missing file yields the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	switch {
	case c.OuterContainer == "" || c.InnerContainer == "" || c.OutputContainer == "":
		return fmt.Errorf("%w: container names must be set", ErrBadConfig)
	case !c.ZeroField && c.Field <= 0:
		return fmt.Errorf("%w: field %g T without zero_field", ErrBadConfig, c.Field)
	case c.DriftVelocity <= 0:
		return fmt.Errorf("%w: drift velocity %g", ErrBadConfig, c.DriftVelocity)
	case c.TimePerCrossing <= 0:
		return fmt.Errorf("%w: time per crossing %g", ErrBadConfig, c.TimePerCrossing)
	case c.PtFloor < 0:
		return fmt.Errorf("%w: negative pt floor", ErrBadConfig)
	}
	return nil
}

// chargeWindowOverride is a partially given ChargeWindow. Giving lo turns
// absolute mode off unless abs is given too.
type chargeWindowOverride struct {
	Lo    *Bound   `yaml:"lo"`
	Hi    *Bound   `yaml:"hi"`
	Abs   *bool    `yaml:"abs"`
	MinPt *float64 `yaml:"min_pt"`
}

func (o *chargeWindowOverride) apply(cw ChargeWindow) ChargeWindow {
	if o.Lo != nil {
		cw.Lo = *o.Lo
		cw.Abs = false
	}
	if o.Hi != nil {
		cw.Hi = *o.Hi
	}
	if o.Abs != nil {
		cw.Abs = *o.Abs
	}
	if o.MinPt != nil {
		cw.MinPt = *o.MinPt
	}
	return cw
}

// UnmarshalYAML merges the document into wc. A neg band that is not yet set
// starts from a copy of the (merged) pos band, as with the -<tag>.neg.* flags.
func (wc *WindowConfig) UnmarshalYAML(node *yaml.Node) error {
	var doc struct {
		Pos *chargeWindowOverride `yaml:"pos"`
		Neg *chargeWindowOverride `yaml:"neg"`
	}
	if err := node.Decode(&doc); err != nil {
		return err
	}

	if doc.Pos != nil {
		wc.Pos = doc.Pos.apply(wc.Pos)
	}
	if doc.Neg != nil {
		base := wc.Pos
		if wc.Neg != nil {
			base = *wc.Neg
		}
		neg := doc.Neg.apply(base)
		wc.Neg = &neg
	}
	return nil
}

// matchWindows is the resolved window set of a configuration.
type matchWindows struct {
	deta, dphi, dx, dy, dz Window
}

func (c Config) windows() matchWindows {
	resolve := func(tag string, wc WindowConfig) Window {
		if wc.Pos.MinPt == 0 {
			wc.Pos.MinPt = c.PtFloor
		}
		if wc.Neg != nil && wc.Neg.MinPt == 0 {
			neg := *wc.Neg
			neg.MinPt = c.PtFloor
			wc.Neg = &neg
		}
		return NewWindow(tag, wc)
	}
	return matchWindows{
		deta: resolve("deta", c.Windows.DEta),
		dphi: resolve("dphi", c.Windows.DPhi),
		dx:   resolve("dx", c.Windows.DX),
		dy:   resolve("dy", c.Windows.DY),
		dz:   resolve("dz", c.Windows.DZ),
	}
}

func (w matchWindows) all() []Window {
	return []Window{w.dx, w.dy, w.dz, w.dphi, w.deta}
}
