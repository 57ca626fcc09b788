package calratio

import (
	"strconv"

	"github.com/pkg/errors"
)

// ErrFraction is returned for a fraction outside [0, 1].
var ErrFraction = errors.New("fraction must be in [0, 1]")

// Fraction is a command line value in [0, 1]. Slices of it can be given
// as repeated values.
type Fraction float64

func (f *Fraction) UnmarshalText(b []byte) error {
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return errors.Wrapf(err, "parsing fraction %q", b)
	}
	if !(v >= 0 && v <= 1) {
		return errors.Wrapf(ErrFraction, "got %v", v)
	}
	*f = Fraction(v)
	return nil
}

func (f Fraction) String() string {
	return strconv.FormatFloat(float64(f), 'g', -1, 64)
}

// Floats converts fractions to plain values.
func Floats(fs []Fraction) []float64 {
	out := make([]float64, len(fs))
	for i, f := range fs {
		out[i] = float64(f)
	}
	return out
}
