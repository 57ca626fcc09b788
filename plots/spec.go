package plots

import (
	"fmt"
	"math"

	"go-hep.org/x/hep/hbook"

	"github.com/decibelcooper/calratio/reweight"
	"github.com/decibelcooper/calratio/stream"
)

// Spec describes one kind of 1D plot. Name and Title are format strings
// taking a single tag, e.g. "pT%s" and "pT of %s jets".
type Spec struct {
	Name   string
	Title  string
	XLabel string

	NBins    int
	Min, Max float64

	// Clamp pulls values outside [Min, Max) into the first or last bin.
	Clamp bool
}

func (s Spec) Binning() reweight.Binning {
	return reweight.Binning{N: s.NBins, Min: s.Min, Max: s.Max}
}

// New books an empty histogram tagged with tag.
func (s Spec) New(tag string) *reweight.Histogram {
	h := reweight.NewHistogram(fmt.Sprintf(s.Name, tag), s.Binning())
	h.H1D().Annotation()["title"] = fmt.Sprintf(s.Title, tag)
	return h
}

// Value maps x onto the histogram axis, clamping if asked to.
func (s Spec) Value(x float64) float64 {
	if !s.Clamp {
		return x
	}
	eps := s.Binning().Width() / 100
	return math.Max(s.Min+eps, math.Min(x, s.Max-eps))
}

// Book adds a fill of h to b and returns h, which holds the spectrum once
// b has run. A nil weight fills with 1.
func Book[T any](b *stream.Batch[T], s Spec, tag string, value, weight func(T) float64) *reweight.Histogram {
	return BookWhere(b, s, tag, nil, value, weight)
}

// BookWhere is Book for the records keep accepts. A nil keep takes all.
func BookWhere[T any](b *stream.Batch[T], s Spec, tag string, keep func(T) bool, value, weight func(T) float64) *reweight.Histogram {
	h := s.New(tag)
	b.Add(func(t T) {
		if keep != nil && !keep(t) {
			return
		}
		w := 1.0
		if weight != nil {
			w = weight(t)
		}
		h.Fill(s.Value(value(t)), w)
	})
	return h
}

// Rename changes the name h is saved under.
func Rename(h *reweight.Histogram, name string) *reweight.Histogram {
	h.H1D().Annotation()["name"] = name
	return h
}

// H1Ds unwraps the hbook histograms, e.g. for File.Save.
func H1Ds(hs ...*reweight.Histogram) []*hbook.H1D {
	out := make([]*hbook.H1D, len(hs))
	for i, h := range hs {
		out[i] = h.H1D()
	}
	return out
}

var (
	JetPt = Spec{Name: "pT%s", Title: "pT of %s jets", XLabel: "pT [GeV]", NBins: 50, Min: 0, Max: 300}
	JetET = Spec{Name: "ET%s", Title: "ET of %s jets", XLabel: "ET [GeV]", NBins: 50, Min: 0, Max: 300}

	JetEta = Spec{Name: "eta%s", Title: "eta of %s jets", XLabel: "eta", NBins: 50, Min: -5, Max: 5}
	JetPhi = Spec{Name: "phi%s", Title: "phi of %s jets", XLabel: "phi", NBins: 50, Min: -math.Pi, Max: math.Pi}

	// CalR is the log ratio of hadronic to electromagnetic energy.
	CalR = Spec{Name: "CalR%s", Title: "Log Ratio of %s jets", XLabel: "log10(Eh/Eem)", NBins: 50, Min: -3, Max: 4, Clamp: true}

	NTracks = Spec{Name: "ntracks%s", Title: "Number of tracks with %s", XLabel: "N_tracks", NBins: 21, Min: -0.5, Max: 20.5}

	SumTrackPt = Spec{Name: "sumTrkPt%s", Title: "Sum pT of tracks for %s", XLabel: "Sum pT [GeV]", NBins: 40, Min: 0, Max: 40}
	MaxTrackPt = Spec{Name: "MaxTrkPt%s", Title: "Max pT of tracks for %s", XLabel: "Max pT [GeV]", NBins: 40, Min: 0, Max: 20}

	// LLPLxy takes the decay length in meters.
	LLPLxy = Spec{Name: "LLPLxy%s", Title: "LLP Lxy for %s", XLabel: "Lxy [m]", NBins: 50, Min: 0, Max: 10}

	EventWeight = Spec{Name: "weight%s", Title: "Event weight of %s", XLabel: "weight", NBins: 100, Min: 0, Max: 5}
	MVAOutput   = Spec{Name: "mva%s", Title: "MVA output for %s", XLabel: "MVA", NBins: 100, Min: -1, Max: 1}

	// ClassifierWeight is the probability a multi-class model gives one class.
	ClassifierWeight = Spec{Name: "weight_%s", Title: "Classifier weight for %s", XLabel: "weight", NBins: 100, Min: 0, Max: 1, Clamp: true}
)
