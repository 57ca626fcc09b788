package plots

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/plot/plotter"

	"github.com/decibelcooper/calratio/reweight"
)

// ErrBinning is returned when histograms that must share a binning don't.
var ErrBinning = errors.New("histograms have different binnings")

// position returns an x that lands in bin i, under and overflow included.
func position(b reweight.Binning, i int) float64 {
	switch {
	case i <= 0:
		return b.Min - b.Width()/2
	case i > b.N:
		return b.Max + b.Width()/2
	}
	return b.Center(i)
}

// Derived books a histogram with b's binning whose bin i, under and
// overflow included, holds content(i).
func Derived(name string, b reweight.Binning, content func(i int) float64) *reweight.Histogram {
	out := reweight.NewHistogram(name, b)
	for i := 0; i <= b.N+1; i++ {
		if v := content(i); v != 0 {
			out.Fill(position(b, i), v)
		}
	}
	return out
}

// Cumulative returns the running fraction of h, under and overflow
// included. Bin i holds the fraction of the integral at or below bin i,
// or at or above it when fromRight is set. An empty h gives an empty
// result.
func Cumulative(h *reweight.Histogram, name string, fromRight bool) *reweight.Histogram {
	total := h.Integral()
	n := h.N + 2
	running := make([]float64, n)
	if total != 0 {
		sum := 0.0
		for k := 0; k < n; k++ {
			i := k
			if fromRight {
				i = n - 1 - k
			}
			sum += h.Content(i)
			running[i] = sum / total
		}
	}
	return Derived(name, h.Binning, func(i int) float64 { return running[i] })
}

// Efficiency divides num by den bin by bin. Bins where den is empty are 0.
func Efficiency(num, den *reweight.Histogram, name string) (*reweight.Histogram, error) {
	if num.Binning != den.Binning {
		return nil, ErrBinning
	}
	return Derived(name, num.Binning, func(i int) float64 {
		d := den.Content(i)
		if d == 0 {
			return 0
		}
		return num.Content(i) / d
	}), nil
}

// Significance is s/sqrt(b) bin by bin, 0 where b is not positive.
func Significance(s, b *reweight.Histogram, name string) (*reweight.Histogram, error) {
	if s.Binning != b.Binning {
		return nil, ErrBinning
	}
	return Derived(name, s.Binning, func(i int) float64 {
		bv := b.Content(i)
		if bv <= 0 {
			return 0
		}
		return s.Content(i) / math.Sqrt(bv)
	}), nil
}

// ROC pairs up the regular bins of two efficiency curves: x is taken from
// the signal curve and y from the background one.
func ROC(sig, bkg *reweight.Histogram) (plotter.XYs, error) {
	if sig.Binning != bkg.Binning {
		return nil, ErrBinning
	}
	xys := make(plotter.XYs, sig.N)
	for i := range xys {
		xys[i].X = sig.Content(i + 1)
		xys[i].Y = bkg.Content(i + 1)
	}
	return xys, nil
}

// CutFor returns the centre of the first regular bin whose content is
// above eff, or below it when below is set.
func CutFor(h *reweight.Histogram, eff float64, below bool) (float64, bool) {
	for i := 1; i <= h.N; i++ {
		c := h.Content(i)
		if (!below && c > eff) || (below && c < eff) {
			return h.Center(i), true
		}
	}
	return 0, false
}

// ValueAt returns the content of the bin holding x.
func ValueAt(h *reweight.Histogram, x float64) float64 {
	return h.Content(h.Bin(x))
}
