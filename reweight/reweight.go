// Package reweight turns a weighted sample into one that is flat in a
// chosen variable.
package reweight

import (
	"math"

	"github.com/pkg/errors"
	"go-hep.org/x/hep/hbook"

	"github.com/decibelcooper/calratio/stream"
)

// Binning is a fixed width binning of [Min, Max). Bin 0 is the underflow
// and bin N+1 the overflow.
type Binning struct {
	N        int
	Min, Max float64
}

// Validate checks that the binning can hold anything.
func (b Binning) Validate() error {
	if b.N <= 0 || !(b.Max > b.Min) {
		return errors.Errorf("bad binning %d bins in [%v, %v)", b.N, b.Min, b.Max)
	}
	return nil
}

// Width of one regular bin.
func (b Binning) Width() float64 {
	return (b.Max - b.Min) / float64(b.N)
}

// Bin returns the index of the bin holding x. NaN goes to the overflow.
func (b Binning) Bin(x float64) int {
	switch {
	case x < b.Min:
		return 0
	case x >= b.Max || math.IsNaN(x):
		return b.N + 1
	}
	i := int((x-b.Min)/b.Width()) + 1
	if i > b.N {
		i = b.N
	}
	return i
}

// Center of regular bin i (1..N).
func (b Binning) Center(i int) float64 {
	return b.Min + (float64(i)-0.5)*b.Width()
}

// Histogram accumulates weights per bin, under and overflow included. It
// mirrors every fill into an hbook histogram so the spectrum can be saved
// and drawn.
type Histogram struct {
	Binning
	contents []float64
	h        *hbook.H1D
}

// NewHistogram books an empty histogram.
func NewHistogram(name string, b Binning) *Histogram {
	h := hbook.NewH1D(b.N, b.Min, b.Max)
	h.Annotation()["name"] = name
	return &Histogram{
		Binning:  b,
		contents: make([]float64, b.N+2),
		h:        h,
	}
}

func (h *Histogram) Fill(x, w float64) {
	h.contents[h.Bin(x)] += w
	h.h.Fill(x, w)
}

// Content of bin i, 0 and N+1 being the under and overflow.
func (h *Histogram) Content(i int) float64 {
	if i < 0 || i >= len(h.contents) {
		return 0
	}
	return h.contents[i]
}

// Integral is the sum over all bins, under and overflow included.
func (h *Histogram) Integral() float64 {
	s := 0.0
	for _, c := range h.contents {
		s += c
	}
	return s
}

// H1D returns the mirrored hbook histogram.
func (h *Histogram) H1D() *hbook.H1D {
	return h.h
}

// Table maps a value to a weight multiplier.
type Table struct {
	Binning
	factors []float64
}

// NewTable inverts h: every bin becomes norm/content, or 0 for bins whose
// content is not positive.
func NewTable(h *Histogram, norm float64) Table {
	t := Table{Binning: h.Binning, factors: make([]float64, len(h.contents))}
	for i, c := range h.contents {
		if c > 0 {
			t.factors[i] = norm / c
		}
	}
	return t
}

// Factor returns the multiplier for bin i.
func (t Table) Factor(i int) float64 {
	if i < 0 || i >= len(t.factors) {
		return 0
	}
	return t.factors[i]
}

// Lookup returns the multiplier for x.
func (t Table) Lookup(x float64) float64 {
	return t.Factor(t.Bin(x))
}

// Options tunes ToFlat.
type Options struct {
	// Normalization is the content every bin has afterwards. Defaults to 1.
	Normalization float64
	// Name is given to the histogram of the input spectrum.
	Name string
}

// ToFlat makes src flat in value. It walks src once to histogram value
// weighted by weight, then returns a lazy stream where every record is
// handed to rebuild along with its multiplier. Records in bins with no
// positive content get a multiplier of zero. The input spectrum is
// returned too.
func ToFlat[T any](src stream.Stream[T], b Binning, value, weight func(T) float64, rebuild func(T, float64) T, opts Options) (stream.Stream[T], *Histogram, error) {
	if err := b.Validate(); err != nil {
		return nil, nil, err
	}
	norm := opts.Normalization
	if norm == 0 {
		norm = 1
	}
	if norm < 0 {
		return nil, nil, errors.Errorf("negative normalization %v", norm)
	}

	h := NewHistogram(opts.Name, b)
	err := src.Each(func(t T) error {
		h.Fill(value(t), weight(t))
		return nil
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "histogramming flatten variable")
	}

	table := NewTable(h, norm)
	return stream.Map(src, func(t T) T {
		return rebuild(t, table.Lookup(value(t)))
	}), h, nil
}
