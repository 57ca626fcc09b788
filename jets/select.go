package jets

import (
	"math"

	"go-hep.org/x/hep/fmom"

	"github.com/decibelcooper/calratio/stream"
)

// Cuts decides which jets are good enough to be looked at.
type Cuts struct {
	MinPT     float64
	MaxPT     float64 // zero means no upper cut
	MaxAbsEta float64
}

// DefaultCuts is the standard good jet selection.
func DefaultCuts() Cuts {
	return Cuts{MinPT: 40, MaxAbsEta: 2.4}
}

// IsGood reports whether j passes c.
func (c Cuts) IsGood(j Jet) bool {
	if j.PT <= c.MinPT || math.Abs(j.Eta) >= c.MaxAbsEta {
		return false
	}
	return c.MaxPT <= 0 || j.PT < c.MaxPT
}

func momentum(pt, eta, phi float64) fmom.PtEtaPhiM {
	return fmom.NewPtEtaPhiM(pt, eta, phi, 0)
}

// NearbyTracks returns the tracks with pT >= minPT inside the association
// cone of j.
func NearbyTracks(j Jet, tracks []Track, minPT float64) []Track {
	jp := momentum(j.PT, j.Eta, j.Phi)
	var out []Track
	for _, t := range tracks {
		if t.PT < minPT {
			continue
		}
		tp := momentum(t.PT, t.Eta, t.Phi)
		if fmom.DeltaR(&jp, &tp) < TrackJetAssociationDR {
			out = append(out, t)
		}
	}
	return out
}

// GoodJets converts events into one record per good jet. Every record
// carries xsecWeight as its cross-section weight.
func GoodJets(events stream.Stream[Event], xsecWeight float64, cuts Cuts) stream.Stream[Record] {
	return stream.FlatMap(events, func(e Event) []Record {
		var out []Record
		for _, j := range e.Jets {
			if !cuts.IsGood(j) {
				continue
			}
			out = append(out, Record{
				Jet:                     j,
				Tracks:                  NearbyTracks(j, e.Tracks, TrackJetAssociationMinPt),
				AllTracks:               NearbyTracks(j, e.Tracks, TrackJetAssociationAllMinPt),
				MCEventWeight:           e.MCEventWeight,
				XSectionWeight:          xsecWeight,
				RunNumber:               e.RunNumber,
				EventNumber:             e.EventNumber,
				InteractionsPerCrossing: e.InteractionsPerCrossing,
			})
		}
		return out
	})
}

// FilterSignal keeps jets matched to an LLP that decayed beyond minLxy (mm).
func FilterSignal(src stream.Stream[Record], minLxy float64) stream.Stream[Record] {
	return stream.Filter(src, func(r Record) bool {
		return r.Jet.LLP != nil && r.Jet.LLP.Lxy > minLxy
	})
}

// BarrelMaxEta is the |eta| below which a jet counts as a barrel jet.
const BarrelMaxEta = 1.7

// DecayCut restricts where a signal LLP decayed: beyond MinLxy for barrel
// jets, beyond MinLz for endcap jets. Lengths are in mm; the zero value
// keeps every jet with an LLP.
type DecayCut struct {
	MinLxy, MinLz float64
}

// IsZero reports whether c cuts nothing.
func (c DecayCut) IsZero() bool {
	return c.MinLxy == 0 && c.MinLz == 0
}

// Passes reports whether r's LLP decayed far enough out.
func (c DecayCut) Passes(r Record) bool {
	if r.Jet.LLP == nil {
		return false
	}
	if math.Abs(r.Jet.Eta) < BarrelMaxEta {
		return r.Jet.LLP.Lxy >= c.MinLxy
	}
	return math.Abs(r.Jet.LLP.Lz) >= c.MinLz
}

// Filter keeps the records passing c.
func (c DecayCut) Filter(src stream.Stream[Record]) stream.Stream[Record] {
	return stream.Filter(src, c.Passes)
}

// FilterLLPNear keeps jets that have any LLP associated with them.
func FilterLLPNear(src stream.Stream[Record]) stream.Stream[Record] {
	return stream.Filter(src, func(r Record) bool {
		return r.Jet.LLP != nil
	})
}

// IsIsolated reports whether a jet has no high-pT track in its cone.
func IsIsolated(r Record) bool {
	n := 0
	for _, t := range r.Tracks {
		if t.PT >= IsolationTrackPtCut {
			n++
		}
	}
	return n <= IsolationTrackCountAllowed
}

// IsCalRatioJet applies the standard cut based selection: a log ratio of at
// least LogRatioCut and an isolated jet.
func IsCalRatioJet(r Record) bool {
	return r.Jet.LogRatio >= LogRatioCut && IsIsolated(r)
}

// BeamHalo keeps events that fired the BIB trigger.
func BeamHalo(events stream.Stream[Event]) stream.Stream[Event] {
	return stream.Filter(events, func(e Event) bool {
		return e.BIBTrigger
	})
}

// Split selects events whose EventNumber % Mod == Rem.
type Split struct {
	Mod, Rem int64
}

// DefaultTestSplit reserves one event in three for testing.
var DefaultTestSplit = Split{Mod: 3, Rem: 1}

// Selects reports whether the event number falls in the split.
func (s Split) Selects(eventNumber int64) bool {
	if s.Mod <= 0 {
		return false
	}
	return eventNumber%s.Mod == s.Rem
}

// Testing keeps the records selected by s.
func Testing(src stream.Stream[Record], s Split) stream.Stream[Record] {
	return stream.Filter(src, func(r Record) bool {
		return s.Selects(r.EventNumber)
	})
}
