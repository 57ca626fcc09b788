package jets

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/decibelcooper/calratio/stream"
)

// writeNtuple writes events the way the analysis ntuples lay them out.
func writeNtuple(t *testing.T, path string, events []Event) {
	t.Helper()
	writeNtupleIDs(t, path, events, reflect.Int32)
}

func setID(id *eventID, x int64) {
	switch id.kind {
	case reflect.Uint32:
		id.u32 = uint32(x)
	case reflect.Int64:
		id.i64 = x
	case reflect.Uint64:
		id.u64 = uint64(x)
	default:
		id.i32 = int32(x)
	}
}

// writeNtupleIDs is writeNtuple with run and event numbers stored as idKind.
func writeNtupleIDs(t *testing.T, path string, events []Event, idKind reflect.Kind) {
	t.Helper()

	f, err := groot.Create(path)
	require.NoError(t, err)
	defer f.Close()

	var (
		v                ntupleVars
		njet, nllp, ntrk int32
	)
	v.run.kind, v.event.kind = idKind, idKind
	jetVars := map[string]*[]float64{
		"jet_pT": &v.jetPT, "jet_eta": &v.jetEta, "jet_phi": &v.jetPhi, "jet_ET": &v.jetET,
		"jet_logRatio": &v.jetLogRatio, "jet_width": &v.jetWidth, "jet_DRTo2GeVTrack": &v.jetDRTrack,
		"jet_EnergyDensity": &v.jetDensity, "jet_HadronicLayer1Fraction": &v.jetHadL1,
		"jet_lat": &v.jetLat, "jet_long": &v.jetLong, "jet_FirstClusterRadius": &v.jetFirstR,
		"jet_ShowerCenter": &v.jetCenter, "jet_BIBDeltaTimingM": &v.jetBIBM, "jet_BIBDeltaTimingP": &v.jetBIBP,
		"jet_PredictedLxy": &v.jetPredLxy, "jet_PredictedLz": &v.jetPredLz,
	}

	wvars := []rtree.WriteVar{
		{Name: "RunNumber", Value: v.run.ptr()},
		{Name: "EventNumber", Value: v.event.ptr()},
		{Name: "mcEventWeight", Value: &v.mcWeight},
		{Name: "actualIntPerCrossing", Value: &v.mu},
		{Name: "BIBTrigger", Value: &v.bibTrigger},
		{Name: "njet", Value: &njet},
		{Name: "nllp", Value: &nllp},
		{Name: "ntrk", Value: &ntrk},
	}
	for _, rv := range v.readVars() {
		if p, ok := jetVars[rv.Name]; ok {
			wvars = append(wvars, rtree.WriteVar{Name: rv.Name, Value: p, Count: "njet"})
		}
	}
	wvars = append(wvars,
		rtree.WriteVar{Name: "jet_LLPIndex", Value: &v.jetLLP, Count: "njet"},
		rtree.WriteVar{Name: "LLP_Lxy", Value: &v.llpLxy, Count: "nllp"},
		rtree.WriteVar{Name: "LLP_Lz", Value: &v.llpLz, Count: "nllp"},
		rtree.WriteVar{Name: "track_pT", Value: &v.trkPT, Count: "ntrk"},
		rtree.WriteVar{Name: "track_eta", Value: &v.trkEta, Count: "ntrk"},
		rtree.WriteVar{Name: "track_phi", Value: &v.trkPhi, Count: "ntrk"},
	)

	w, err := rtree.NewWriter(f, TreeName, wvars)
	require.NoError(t, err)

	for _, e := range events {
		setID(&v.run, e.RunNumber)
		setID(&v.event, e.EventNumber)
		v.mcWeight, v.mu, v.bibTrigger = e.MCEventWeight, e.InteractionsPerCrossing, e.BIBTrigger

		for _, p := range jetVars {
			*p = (*p)[:0]
		}
		v.jetLLP, v.llpLxy, v.llpLz = v.jetLLP[:0], v.llpLxy[:0], v.llpLz[:0]
		for _, j := range e.Jets {
			v.jetPT = append(v.jetPT, j.PT)
			v.jetEta = append(v.jetEta, j.Eta)
			v.jetPhi = append(v.jetPhi, j.Phi)
			v.jetET = append(v.jetET, j.ET)
			v.jetLogRatio = append(v.jetLogRatio, j.LogRatio)
			v.jetWidth = append(v.jetWidth, j.Width)
			v.jetDRTrack = append(v.jetDRTrack, j.DRTo2GeVTrack)
			v.jetDensity = append(v.jetDensity, j.EnergyDensity)
			v.jetHadL1 = append(v.jetHadL1, j.HadronicLayer1Fraction)
			v.jetLat = append(v.jetLat, j.Lat)
			v.jetLong = append(v.jetLong, j.Long)
			v.jetFirstR = append(v.jetFirstR, j.FirstClusterRadius)
			v.jetCenter = append(v.jetCenter, j.ShowerCenter)
			v.jetBIBM = append(v.jetBIBM, j.BIBDeltaTimingM)
			v.jetBIBP = append(v.jetBIBP, j.BIBDeltaTimingP)
			v.jetPredLxy = append(v.jetPredLxy, j.PredictedLxy)
			v.jetPredLz = append(v.jetPredLz, j.PredictedLz)
			if j.LLP == nil {
				v.jetLLP = append(v.jetLLP, noLLP)
				continue
			}
			v.jetLLP = append(v.jetLLP, int32(len(v.llpLxy)))
			v.llpLxy = append(v.llpLxy, j.LLP.Lxy)
			v.llpLz = append(v.llpLz, j.LLP.Lz)
		}
		v.trkPT, v.trkEta, v.trkPhi = v.trkPT[:0], v.trkEta[:0], v.trkPhi[:0]
		for _, tr := range e.Tracks {
			v.trkPT = append(v.trkPT, tr.PT)
			v.trkEta = append(v.trkEta, tr.Eta)
			v.trkPhi = append(v.trkPhi, tr.Phi)
		}
		njet, nllp, ntrk = int32(len(v.jetPT)), int32(len(v.llpLxy)), int32(len(v.trkPT))

		_, err = w.Write()
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestNtupleRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.root")
	b := filepath.Join(dir, "b.root")

	writeNtuple(t, a, []Event{
		{
			RunNumber: 1, EventNumber: 10, MCEventWeight: 1.5, BIBTrigger: true,
			Jets: []Jet{
				{PT: 80, Eta: 0.3, Phi: 1, LogRatio: 1.4, LLP: &LLP{Lxy: 2500, Lz: 100}},
				{PT: 45, Eta: -1, Phi: -2},
			},
			Tracks: []Track{{PT: 3, Eta: 0.3, Phi: 1}},
		},
		{RunNumber: 1, EventNumber: 11, MCEventWeight: 1},
	})
	writeNtuple(t, b, []Event{
		{RunNumber: 2, EventNumber: 20, MCEventWeight: 1, Jets: []Jet{{PT: 50}}},
	})

	events, err := stream.Collect(Ntuple(a, b))
	require.NoError(t, err)
	require.Len(t, events, 3)

	e := events[0]
	assert.Equal(t, int64(10), e.EventNumber)
	assert.True(t, e.BIBTrigger)
	require.Len(t, e.Jets, 2)
	require.NotNil(t, e.Jets[0].LLP)
	assert.Equal(t, 2500.0, e.Jets[0].LLP.Lxy)
	assert.Nil(t, e.Jets[1].LLP)
	assert.Len(t, e.Tracks, 1)
	assert.Empty(t, events[1].Jets)
	assert.Equal(t, int64(2), events[2].RunNumber)

	// Take across files must not open the second one.
	first, err := stream.Collect(stream.Take(Ntuple(a, filepath.Join(dir, "missing.root")), 2))
	require.NoError(t, err)
	assert.Len(t, first, 2)

	_, err = stream.Count(Ntuple(filepath.Join(dir, "missing.root")))
	assert.Error(t, err)
}

func TestNtupleEventIDWidths(t *testing.T) {
	for _, k := range []reflect.Kind{reflect.Int32, reflect.Uint32, reflect.Int64, reflect.Uint64} {
		t.Run(k.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ids.root")
			writeNtupleIDs(t, path, []Event{{RunNumber: 284500, EventNumber: 852000001, MCEventWeight: 1}}, k)

			events, err := stream.Collect(Ntuple(path))
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, int64(284500), events[0].RunNumber)
			assert.Equal(t, int64(852000001), events[0].EventNumber)
		})
	}

	// Event numbers past 2^31 need a 64 bit branch.
	path := filepath.Join(t.TempDir(), "big.root")
	writeNtupleIDs(t, path, []Event{{RunNumber: 1, EventNumber: 5000000000, MCEventWeight: 1}}, reflect.Uint64)
	events, err := stream.Collect(Ntuple(path))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(5000000000), events[0].EventNumber)
}
