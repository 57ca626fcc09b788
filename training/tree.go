// Package training turns selected jets into the flat records a classifier
// is trained on, and holds the helpers around that: variable sets,
// flattening, tuple dumps and cut finding.
package training

import (
	"math"

	"github.com/decibelcooper/calratio/jets"
	"github.com/decibelcooper/calratio/stream"
)

// MaxJetPtForTraining drops the sparse high pT tail before training.
const MaxJetPtForTraining = 550.0

// CalRatio is kept inside the plotting range.
const (
	minCalRatio = -2.99
	maxCalRatio = 3.99
)

// Tree is one training record. The csv names double as the branch names
// of dumped ROOT tuples.
type Tree struct {
	Weight         float64 `csv:"Weight"`
	WeightFlatten  float64 `csv:"WeightFlatten"`
	WeightMCEvent  float64 `csv:"WeightMCEvent"`
	WeightXSection float64 `csv:"WeightXSection"`

	JetPt            float64 `csv:"JetPt"`
	JetEta           float64 `csv:"JetEta"`
	JetPhi           float64 `csv:"JetPhi"`
	JetET            float64 `csv:"JetET"`
	CalRatio         float64 `csv:"CalRatio"`
	NTracks          int     `csv:"NTracks"`
	SumPtOfAllTracks float64 `csv:"SumPtOfAllTracks"`
	MaxTrackPt       float64 `csv:"MaxTrackPt"`

	EventNumber int64 `csv:"EventNumber"`
	RunNumber   int64 `csv:"RunNumber"`

	JetWidth               float64 `csv:"JetWidth"`
	JetDRTo2GeVTrack       float64 `csv:"JetDRTo2GeVTrack"`
	EnergyDensity          float64 `csv:"EnergyDensity"`
	HadronicLayer1Fraction float64 `csv:"HadronicLayer1Fraction"`
	JetLat                 float64 `csv:"JetLat"`
	JetLong                float64 `csv:"JetLong"`
	FirstClusterRadius     float64 `csv:"FirstClusterRadius"`
	ShowerCenter           float64 `csv:"ShowerCenter"`
	BIBDeltaTimingM        float64 `csv:"BIBDeltaTimingM"`
	BIBDeltaTimingP        float64 `csv:"BIBDeltaTimingP"`

	PredictedLxy float64 `csv:"PredictedLxy"`
	PredictedLz  float64 `csv:"PredictedLz"`

	InteractionsPerCrossing float64 `csv:"InteractionsPerCrossing"`

	MCLxy float64 `csv:"mc_Lxy"`
	MCLz  float64 `csv:"mc_Lz"`
}

// ClampCalRatio pulls the log ratio into [-2.99, 3.99]. NaN, from jets
// with no energy in one of the calorimeters, goes to the top.
func ClampCalRatio(r float64) float64 {
	if math.IsNaN(r) {
		return maxCalRatio
	}
	return math.Max(minCalRatio, math.Min(r, maxCalRatio))
}

func maxPt(tracks []jets.Track) float64 {
	m := 0.0
	for _, t := range tracks {
		m = math.Max(m, t.PT)
	}
	return m
}

func sumPt(tracks []jets.Track) float64 {
	s := 0.0
	for _, t := range tracks {
		s += t.PT
	}
	return s
}

// Project builds the training record of r. The flatten weight starts at 1.
func Project(r jets.Record) Tree {
	j := r.Jet
	t := Tree{
		Weight:         r.Weight(),
		WeightFlatten:  1,
		WeightMCEvent:  r.MCEventWeight,
		WeightXSection: r.XSectionWeight,

		JetPt:            j.PT,
		JetEta:           j.Eta,
		JetPhi:           j.Phi,
		JetET:            j.ET,
		CalRatio:         ClampCalRatio(j.LogRatio),
		NTracks:          len(r.Tracks),
		SumPtOfAllTracks: sumPt(r.AllTracks),
		MaxTrackPt:       maxPt(r.AllTracks),

		EventNumber: r.EventNumber,
		RunNumber:   r.RunNumber,

		JetWidth:               j.Width,
		JetDRTo2GeVTrack:       j.DRTo2GeVTrack,
		EnergyDensity:          j.EnergyDensity,
		HadronicLayer1Fraction: j.HadronicLayer1Fraction,
		JetLat:                 j.Lat,
		JetLong:                j.Long,
		FirstClusterRadius:     j.FirstClusterRadius,
		ShowerCenter:           j.ShowerCenter,
		BIBDeltaTimingM:        j.BIBDeltaTimingM,
		BIBDeltaTimingP:        j.BIBDeltaTimingP,

		InteractionsPerCrossing: r.InteractionsPerCrossing,
	}
	// The regression outputs only mean something for jets with an LLP.
	if j.LLP != nil {
		t.MCLxy, t.MCLz = j.LLP.Lxy, j.LLP.Lz
		t.PredictedLxy, t.PredictedLz = j.PredictedLxy, j.PredictedLz
	}
	return t
}

// AsTrainingTree drops jets at or above MaxJetPtForTraining and projects
// the rest.
func AsTrainingTree(src stream.Stream[jets.Record]) stream.Stream[Tree] {
	kept := stream.Filter(src, func(r jets.Record) bool {
		return r.Jet.PT < MaxJetPtForTraining
	})
	return stream.Map(kept, Project)
}

// Reweight returns t with its flatten weight set to f and its total
// weight scaled by f. Neither weight goes below 0, so a negative MC
// weight drops the record from training.
func (t Tree) Reweight(f float64) Tree {
	t.WeightFlatten = math.Max(f, 0)
	t.Weight = math.Max(t.Weight*t.WeightFlatten, 0)
	return t
}

// ScaleWeight scales the cross-section weight, and the total with it.
func (t Tree) ScaleWeight(f float64) Tree {
	t.WeightXSection *= f
	t.Weight *= f
	return t
}

// IsTraining builds the train/test predicate for mva samples: records
// selected by s are kept for testing.
func IsTraining(s jets.Split) func(Tree) bool {
	return func(t Tree) bool { return !s.Selects(t.EventNumber) }
}

// Testing keeps the records selected by s, the ones not trained on.
func Testing(src stream.Stream[Tree], s jets.Split) stream.Stream[Tree] {
	return stream.Filter(src, func(t Tree) bool { return s.Selects(t.EventNumber) })
}
