package plots

import (
	"math"
	"strconv"

	"gonum.org/v1/plot"
)

// PreciseTicks marks an axis with about NSuggestedTicks labelled ticks
// rounded to the precision the range needs, plus unlabelled minor ticks.
type PreciseTicks struct {
	NSuggestedTicks int
}

func (t PreciseTicks) Ticks(min, max float64) []plot.Tick {
	if t.NSuggestedTicks < 2 {
		t.NSuggestedTicks = 4
	}
	if !(max > min) {
		// a flat axis, e.g. an empty histogram
		return []plot.Tick{{Value: min, Label: formatTick(min)}}
	}

	tens := math.Pow10(int(math.Floor(math.Log10(max - min))))
	n := (max - min) / tens
	for n < float64(t.NSuggestedTicks)-1 {
		tens /= 10
		n = (max - min) / tens
	}

	mult := int(n / float64(t.NSuggestedTicks-1))
	switch mult {
	case 7:
		mult = 6
	case 9:
		mult = 8
	}
	major := float64(mult) * tens

	var ticks []plot.Tick
	labelled := map[float64]bool{}
	val := math.Floor(min/major) * major
	for ; val <= max; val += major {
		if val < min {
			continue
		}
		v := roundTo(val, major)
		labelled[v] = true
		ticks = append(ticks, plot.Tick{Value: v, Label: formatTick(v)})
	}

	minor := major / 2
	switch mult {
	case 3, 6:
		minor = major / 3
	case 5:
		minor = major / 5
	}
	for val = math.Floor(min/minor) * minor; val <= max; val += minor {
		v := roundTo(val, minor)
		if v >= min && v <= max && !labelled[v] {
			ticks = append(ticks, plot.Tick{Value: v})
		}
	}
	return ticks
}

// roundTo rounds x to the decimal precision of step, which keeps the
// accumulated error of repeated additions out of the labels.
func roundTo(x, step float64) float64 {
	if x == 0 {
		return 0
	}
	prec := int(math.Max(0, -math.Floor(math.Log10(step)))) + 1
	pow := math.Pow10(prec)
	r := math.Round(x*pow) / pow
	if r == 0 {
		// no negative zero
		return 0
	}
	return r
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
