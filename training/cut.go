package training

import (
	"github.com/pkg/errors"

	"github.com/decibelcooper/calratio/mva"
	"github.com/decibelcooper/calratio/plots"
	"github.com/decibelcooper/calratio/reweight"
	"github.com/decibelcooper/calratio/stream"
)

// ErrFraction is returned for a pass fraction outside [0, 1].
var ErrFraction = errors.New("pass fraction must be in [0, 1]")

// cutBinning is fine enough that the bin centre is a usable cut value.
var cutBinning = reweight.Binning{N: 10000, Min: -1, Max: 1}

// FindCut returns the classifier cut below which passFraction of the
// weighted records of src fall. The output for class is mapped onto
// [-1, 1] as 2p-1, so for two classes and class 0 it is the usual
// response. The output histogram, called name, is saved to dir of out
// unless out is nil.
//
// The cut is the centre of the first bin at which the running sum, from
// the underflow up, exceeds passFraction of the total; the overflow is
// not counted.
func FindCut(src stream.Stream[Tree], r *mva.Reader[Tree], class int, passFraction float64, out *plots.File, dir, name string) (float64, error) {
	if !(passFraction >= 0 && passFraction <= 1) {
		return 0, errors.Wrapf(ErrFraction, "got %v", passFraction)
	}
	prob, err := r.Func(class)
	if err != nil {
		return 0, err
	}
	if name == "" {
		name = "mva_weights"
	}

	h := reweight.NewHistogram(name, cutBinning)
	h.H1D().Annotation()["title"] = "MVA Output Weights"
	err = src.Each(func(t Tree) error {
		h.Fill(2*prob(t)-1, t.Weight)
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "filling classifier output")
	}
	if out != nil {
		if err := out.Save(dir, h.H1D()); err != nil {
			return 0, err
		}
	}

	total := 0.0
	for i := 0; i <= h.N; i++ {
		total += h.Content(i)
	}
	target := total * passFraction
	sum := 0.0
	for i := 0; i <= h.N; i++ {
		sum += h.Content(i)
		if sum > target {
			return h.Center(i), nil
		}
	}
	// Only reachable for a fraction of 1 or an empty sample.
	return h.Center(h.N + 1), nil
}
