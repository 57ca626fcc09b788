package jets

import (
	"reflect"

	"github.com/pkg/errors"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/decibelcooper/calratio/stream"
)

// TreeName is the name of the event tree inside every ntuple file.
const TreeName = "recoTree"

// noLLP marks a jet without an associated truth particle in the ntuple.
const noLLP = -1

// eventID reads an integer branch in whichever width the ntuple stores
// it: Int_t, UInt_t, Long64_t or ULong64_t.
type eventID struct {
	kind reflect.Kind
	i32  int32
	u32  uint32
	i64  int64
	u64  uint64
}

func (id *eventID) ptr() interface{} {
	switch id.kind {
	case reflect.Uint32:
		return &id.u32
	case reflect.Int64:
		return &id.i64
	case reflect.Uint64:
		return &id.u64
	}
	return &id.i32
}

func (id *eventID) value() int64 {
	switch id.kind {
	case reflect.Uint32:
		return int64(id.u32)
	case reflect.Int64:
		return id.i64
	case reflect.Uint64:
		return int64(id.u64)
	}
	return int64(id.i32)
}

// bind picks the width from the leaf called name in t.
func (id *eventID) bind(t rtree.Tree, name string) (rtree.ReadVar, error) {
	leaf := t.Leaf(name)
	if leaf == nil {
		return rtree.ReadVar{}, errors.Errorf("no branch %s", name)
	}
	switch k := leaf.Kind(); k {
	case reflect.Int32, reflect.Uint32, reflect.Int64, reflect.Uint64:
		id.kind = k
	default:
		return rtree.ReadVar{}, errors.Errorf("branch %s holds %s, not an integer", name, leaf.TypeName())
	}
	return rtree.ReadVar{Name: name, Value: id.ptr()}, nil
}

type ntupleVars struct {
	run, event eventID
	mcWeight   float64
	mu         float64
	bibTrigger bool

	jetPT, jetEta, jetPhi, jetET []float64
	jetLogRatio                  []float64
	jetWidth, jetDRTrack         []float64
	jetDensity, jetHadL1         []float64
	jetLat, jetLong              []float64
	jetFirstR, jetCenter         []float64
	jetBIBM, jetBIBP             []float64
	jetPredLxy, jetPredLz        []float64
	jetLLP                       []int32

	llpLxy, llpLz []float64

	trkPT, trkEta, trkPhi []float64
}

func (v *ntupleVars) readVars() []rtree.ReadVar {
	return []rtree.ReadVar{
		{Name: "mcEventWeight", Value: &v.mcWeight},
		{Name: "actualIntPerCrossing", Value: &v.mu},
		{Name: "BIBTrigger", Value: &v.bibTrigger},

		{Name: "jet_pT", Value: &v.jetPT},
		{Name: "jet_eta", Value: &v.jetEta},
		{Name: "jet_phi", Value: &v.jetPhi},
		{Name: "jet_ET", Value: &v.jetET},
		{Name: "jet_logRatio", Value: &v.jetLogRatio},
		{Name: "jet_width", Value: &v.jetWidth},
		{Name: "jet_DRTo2GeVTrack", Value: &v.jetDRTrack},
		{Name: "jet_EnergyDensity", Value: &v.jetDensity},
		{Name: "jet_HadronicLayer1Fraction", Value: &v.jetHadL1},
		{Name: "jet_lat", Value: &v.jetLat},
		{Name: "jet_long", Value: &v.jetLong},
		{Name: "jet_FirstClusterRadius", Value: &v.jetFirstR},
		{Name: "jet_ShowerCenter", Value: &v.jetCenter},
		{Name: "jet_BIBDeltaTimingM", Value: &v.jetBIBM},
		{Name: "jet_BIBDeltaTimingP", Value: &v.jetBIBP},
		{Name: "jet_PredictedLxy", Value: &v.jetPredLxy},
		{Name: "jet_PredictedLz", Value: &v.jetPredLz},
		{Name: "jet_LLPIndex", Value: &v.jetLLP},

		{Name: "LLP_Lxy", Value: &v.llpLxy},
		{Name: "LLP_Lz", Value: &v.llpLz},

		{Name: "track_pT", Value: &v.trkPT},
		{Name: "track_eta", Value: &v.trkEta},
		{Name: "track_phi", Value: &v.trkPhi},
	}
}

// at returns xs[i], or zero if the branch came back short.
func at(xs []float64, i int) float64 {
	if i < len(xs) {
		return xs[i]
	}
	return 0
}

// toEvent copies the current entry out of the reader buffers.
func (v *ntupleVars) toEvent() Event {
	e := Event{
		RunNumber:               v.run.value(),
		EventNumber:             v.event.value(),
		MCEventWeight:           v.mcWeight,
		InteractionsPerCrossing: v.mu,
		BIBTrigger:              v.bibTrigger,
		Jets:                    make([]Jet, len(v.jetPT)),
		Tracks:                  make([]Track, len(v.trkPT)),
	}
	for i := range e.Jets {
		j := Jet{
			PT:                     v.jetPT[i],
			Eta:                    at(v.jetEta, i),
			Phi:                    at(v.jetPhi, i),
			ET:                     at(v.jetET, i),
			LogRatio:               at(v.jetLogRatio, i),
			Width:                  at(v.jetWidth, i),
			DRTo2GeVTrack:          at(v.jetDRTrack, i),
			EnergyDensity:          at(v.jetDensity, i),
			HadronicLayer1Fraction: at(v.jetHadL1, i),
			Lat:                    at(v.jetLat, i),
			Long:                   at(v.jetLong, i),
			FirstClusterRadius:     at(v.jetFirstR, i),
			ShowerCenter:           at(v.jetCenter, i),
			BIBDeltaTimingM:        at(v.jetBIBM, i),
			BIBDeltaTimingP:        at(v.jetBIBP, i),
			PredictedLxy:           at(v.jetPredLxy, i),
			PredictedLz:            at(v.jetPredLz, i),
		}
		if i < len(v.jetLLP) {
			if k := int(v.jetLLP[i]); k != noLLP && k >= 0 && k < len(v.llpLxy) {
				j.LLP = &LLP{Lxy: v.llpLxy[k], Lz: at(v.llpLz, k)}
			}
		}
		e.Jets[i] = j
	}
	for i := range e.Tracks {
		e.Tracks[i] = Track{PT: v.trkPT[i], Eta: at(v.trkEta, i), Phi: at(v.trkPhi, i)}
	}
	return e
}

// Ntuple streams the events of the given files, in order. Files are opened
// lazily every time the stream is walked.
func Ntuple(paths ...string) stream.Stream[Event] {
	return stream.Func[Event](func(fn func(Event) error) error {
		for _, path := range paths {
			stopped, err := readNtuple(path, fn)
			if err != nil {
				return err
			}
			if stopped {
				return stream.Stop
			}
		}
		return nil
	})
}

func readNtuple(path string, fn func(Event) error) (bool, error) {
	f, err := groot.Open(path)
	if err != nil {
		return false, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	obj, err := riofs.Dir(f).Get(TreeName)
	if err != nil {
		return false, errors.Wrapf(err, "no %s in %s", TreeName, path)
	}
	tree, ok := obj.(rtree.Tree)
	if !ok {
		return false, errors.Errorf("%s in %s is not a tree", TreeName, path)
	}

	var v ntupleVars
	rvars := v.readVars()
	for _, b := range []struct {
		name string
		id   *eventID
	}{{"RunNumber", &v.run}, {"EventNumber", &v.event}} {
		rv, err := b.id.bind(tree, b.name)
		if err != nil {
			return false, errors.Wrapf(err, "reading %s", path)
		}
		rvars = append(rvars, rv)
	}
	r, err := rtree.NewReader(tree, rvars)
	if err != nil {
		return false, errors.Wrapf(err, "reading %s", path)
	}
	defer r.Close()

	var stopped bool
	var userErr error
	err = r.Read(func(rtree.RCtx) error {
		if err := fn(v.toEvent()); err != nil {
			if err == stream.Stop {
				stopped = true
			} else {
				userErr = err
			}
			return err
		}
		return nil
	})
	switch {
	case stopped:
		return true, nil
	case userErr != nil:
		return false, userErr
	case err != nil:
		return false, errors.Wrapf(err, "reading %s", path)
	}
	return false, nil
}
