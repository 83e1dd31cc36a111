package trackmatch

import (
	"math"
	"strconv"

	"gonum.org/v1/plot"
)

// PtTicks marks a transverse-momentum axis with labelled 1-2-5 steps per
// decade and unlabelled ticks at every integer multiple in between. It suits
// the window band plots, whose interesting region spans several decades.
type PtTicks struct{}

func (PtTicks) Ticks(min, max float64) []plot.Tick {
	if max <= min {
		panic("illegal range")
	}
	if max <= 0 {
		return nil
	}
	// a linear axis may start at zero; label from three decades below max
	if min <= 0 {
		min = max / 1000
	}

	var ticks []plot.Tick
	for decade := math.Floor(math.Log10(min)); decade <= math.Ceil(math.Log10(max)); decade++ {
		tens := math.Pow10(int(decade))
		for mult := 1; mult < 10; mult++ {
			val := round(float64(mult)*tens, 1-int(decade))
			if val < min || val > max {
				continue
			}
			tick := plot.Tick{Value: val}
			if mult == 1 || mult == 2 || mult == 5 {
				tick.Label = formatFloatTick(val, -1)
			}
			ticks = append(ticks, tick)
		}
	}
	return ticks
}

func round(x float64, prec int) float64 {
	if x == 0 {
		return 0
	}
	pow := math.Pow10(prec)
	intermed := x * pow
	if math.IsInf(intermed, 0) {
		return x
	}
	return math.Floor(intermed+0.5) / pow
}

func formatFloatTick(v float64, prec int) string {
	return strconv.FormatFloat(v, 'g', prec, 64)
}
