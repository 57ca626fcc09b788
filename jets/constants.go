package jets

const (
	// Calorimeter walls, in meters. The Lxy of jet matched LLPs dies right at
	// the outer wall.
	RadiusOfInnerEMWall   = 1.8
	RadiusOfOuterHADWall  = 4.0
	TrackJetAssociationDR = 0.2

	TrackJetAssociationMinPt    = 2.0
	TrackJetAssociationAllMinPt = 0.2

	// InnerDistanceForSignalLLPDecay is the smallest Lxy (mm) for a signal
	// CalRatio jet.
	InnerDistanceForSignalLLPDecay = 2 * 1000.0

	LogRatioCut                = 1.2
	IsolationTrackPtCut        = 2.0
	IsolationTrackCountAllowed = 0

	// Luminosity in inverse nb.
	Luminosity = 3.34 * 1.0e6
)

// PtRegion is a [Low, High) slice of jet pT in GeV.
type PtRegion struct {
	Low, High float64
}

var PtRegions = []PtRegion{
	{0, 25},
	{25, 40},
	{40, 60},
	{60, 120},
	{120, 200},
	{200, 1000},
}

// InCalorimeter reports whether a decay radius (meters) lies between the
// EM and hadronic calorimeter walls.
func InCalorimeter(r float64) bool {
	return r >= RadiusOfInnerEMWall && r <= RadiusOfOuterHADWall
}

// LLPInCalorimeter reports whether the jet's LLP decayed in the calorimeter.
func LLPInCalorimeter(j Jet) bool {
	return j.LLP != nil && InCalorimeter(j.LLP.Lxy/1000)
}
