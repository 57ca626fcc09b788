// Package jets holds the per-event and per-jet records read from the
// analysis ntuples, and the selections applied to them before training.
package jets

// Track is a reconstructed inner-detector track.
type Track struct {
	PT, Eta, Phi float64
}

// LLP is the truth long-lived particle matched to a jet. Lengths are in mm.
type LLP struct {
	Lxy, Lz float64
}

// Jet is a calibrated calorimeter jet.
type Jet struct {
	PT, Eta, Phi, ET float64
	LogRatio         float64

	Width                  float64
	DRTo2GeVTrack          float64
	EnergyDensity          float64
	HadronicLayer1Fraction float64
	Lat, Long              float64
	FirstClusterRadius     float64
	ShowerCenter           float64

	BIBDeltaTimingM float64
	BIBDeltaTimingP float64

	PredictedLxy float64
	PredictedLz  float64

	// LLP is nil when no truth particle is associated with the jet.
	LLP *LLP
}

// Event is one entry of the ntuple.
type Event struct {
	RunNumber   int64
	EventNumber int64

	MCEventWeight           float64
	InteractionsPerCrossing float64
	BIBTrigger              bool

	Jets   []Jet
	Tracks []Track
}

// Record is a single jet together with the event level information the
// training needs.
type Record struct {
	Jet Jet

	// Tracks are the tracks above TrackJetAssociationMinPt near the jet,
	// AllTracks the ones above TrackJetAssociationAllMinPt.
	Tracks    []Track
	AllTracks []Track

	MCEventWeight  float64
	XSectionWeight float64

	RunNumber               int64
	EventNumber             int64
	InteractionsPerCrossing float64
}

// Weight is the total event weight of the jet.
func (r Record) Weight() float64 {
	return r.MCEventWeight * r.XSectionWeight
}

// ScaleWeight returns a copy of r with its cross-section weight scaled by f.
func (r Record) ScaleWeight(f float64) Record {
	r.XSectionWeight *= f
	return r
}
