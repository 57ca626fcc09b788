package training

import (
	"github.com/pkg/errors"

	"github.com/decibelcooper/calratio/mva"
	"github.com/decibelcooper/calratio/plots"
	"github.com/decibelcooper/calratio/reweight"
	"github.com/decibelcooper/calratio/stream"
)

var variablePlots = []struct {
	spec  plots.Spec
	value func(Tree) float64
}{
	{plots.JetPt, func(t Tree) float64 { return t.JetPt }},
	{plots.JetEta, func(t Tree) float64 { return t.JetEta }},
	{plots.CalR, func(t Tree) float64 { return t.CalRatio }},
	{plots.EventWeight, func(t Tree) float64 { return t.Weight }},
	{plots.NTracks, func(t Tree) float64 { return float64(t.NTracks) }},
	{plots.SumTrackPt, func(t Tree) float64 { return t.SumPtOfAllTracks }},
	{plots.MaxTrackPt, func(t Tree) float64 { return t.MaxTrackPt }},
}

// PlotTrainingVariables books the main training inputs against b, once
// weighted (tagged tag) and once unweighted (tag_unweighted). The
// histograms are filled when b runs.
func PlotTrainingVariables(b *stream.Batch[Tree], tag string) []*reweight.Histogram {
	weight := func(t Tree) float64 { return t.Weight }
	var hs []*reweight.Histogram
	for _, p := range variablePlots {
		hs = append(hs,
			plots.Book(b, p.spec, tag, p.value, weight),
			plots.Book(b, p.spec, tag+"_unweighted", p.value, nil),
		)
	}
	return hs
}

// PlotClassifierWeights books, for every class of r, the weighted
// distribution of the probability r gives that class. names label the
// classes in the histogram names (weight_<name>) and default to the
// model's own class names.
func PlotClassifierWeights(b *stream.Batch[Tree], r *mva.Reader[Tree], names ...string) ([]*reweight.Histogram, error) {
	if len(names) == 0 {
		names = r.Classes()
	}
	if len(names) != len(r.Classes()) {
		return nil, errors.Wrapf(mva.ErrClassIndex, "%d names for %d classes", len(names), len(r.Classes()))
	}

	var probs []float64
	b.Add(func(t Tree) { probs = r.Probabilities(t) })

	weight := func(t Tree) float64 { return t.Weight }
	hs := make([]*reweight.Histogram, len(names))
	for i, n := range names {
		i := i
		hs[i] = plots.Book(b, plots.ClassifierWeight, n, func(Tree) float64 { return probs[i] }, weight)
	}
	return hs, nil
}
