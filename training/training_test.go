package training

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/decibelcooper/calratio/jets"
	"github.com/decibelcooper/calratio/mva"
	"github.com/decibelcooper/calratio/plots"
	"github.com/decibelcooper/calratio/reweight"
	"github.com/decibelcooper/calratio/stream"
)

func record(pt float64, llp *jets.LLP) jets.Record {
	return jets.Record{
		Jet: jets.Jet{
			PT: pt, Eta: 0.5, ET: pt + 1, LogRatio: 1.3,
			PredictedLxy: 2100, PredictedLz: 300, LLP: llp,
		},
		Tracks:         []jets.Track{{PT: 3}},
		AllTracks:      []jets.Track{{PT: 3}, {PT: 0.5}, {PT: 1.5}},
		MCEventWeight:  2,
		XSectionWeight: 0.5,
		EventNumber:    7,
		RunNumber:      3,
	}
}

func TestProject(t *testing.T) {
	tr := Project(record(100, &jets.LLP{Lxy: 2500, Lz: 800}))
	assert.Equal(t, 1.0, tr.Weight)
	assert.Equal(t, 1.0, tr.WeightFlatten)
	assert.Equal(t, 2.0, tr.WeightMCEvent)
	assert.Equal(t, 0.5, tr.WeightXSection)
	assert.Equal(t, 1.3, tr.CalRatio)
	assert.Equal(t, 1, tr.NTracks)
	assert.InDelta(t, 5.0, tr.SumPtOfAllTracks, 1e-12)
	assert.Equal(t, 3.0, tr.MaxTrackPt)
	assert.Equal(t, 2500.0, tr.MCLxy)
	assert.Equal(t, 800.0, tr.MCLz)
	assert.Equal(t, 2100.0, tr.PredictedLxy)
	assert.Equal(t, int64(7), tr.EventNumber)

	noLLP := Project(record(100, nil))
	assert.Zero(t, noLLP.MCLxy)
	assert.Zero(t, noLLP.MCLz)
	assert.Zero(t, noLLP.PredictedLxy)
	assert.Zero(t, noLLP.PredictedLz)

	bare := Project(jets.Record{Jet: jets.Jet{LogRatio: -8}})
	assert.Zero(t, bare.MaxTrackPt)
	assert.Zero(t, bare.SumPtOfAllTracks)
	assert.Equal(t, -2.99, bare.CalRatio)

	assert.Equal(t, 3.99, ClampCalRatio(12))
	assert.Equal(t, 3.99, ClampCalRatio(math.NaN()))
}

func TestAsTrainingTree(t *testing.T) {
	src := stream.Slice([]jets.Record{record(100, nil), record(549.9, nil), record(550, nil), record(900, nil)})
	got, err := stream.Collect(AsTrainingTree(src))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 549.9, got[1].JetPt)
}

func TestWeights(t *testing.T) {
	tr := Project(record(100, nil))
	r := tr.Reweight(4)
	assert.Equal(t, 4.0, r.WeightFlatten)
	assert.Equal(t, 4.0, r.Weight)
	neg := Tree{Weight: -2}.Reweight(3)
	assert.Equal(t, 3.0, neg.WeightFlatten)
	assert.Equal(t, 0.0, neg.Weight)
	s := tr.ScaleWeight(3)
	assert.Equal(t, 1.5, s.WeightXSection)
	assert.Equal(t, 3.0, s.Weight)

	isTrain := IsTraining(jets.DefaultTestSplit)
	assert.False(t, isTrain(Tree{EventNumber: 4}))
	assert.True(t, isTrain(Tree{EventNumber: 5}))
}

func TestResolve(t *testing.T) {
	vars, err := Resolve(Default5pT, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []Variable{JetPt, CalRatio, NTracks, SumPtOfAllTracks, MaxTrackPt}, vars)

	vars, err = Resolve(Default5pT, []Variable{JetEta, JetPt}, []Variable{CalRatio})
	require.NoError(t, err)
	assert.Equal(t, []Variable{JetPt, JetEta, NTracks, SumPtOfAllTracks, MaxTrackPt}, vars)

	for _, p := range []Preset{Default5pT, Default5ET, DefaultAllpT, DefaultAllET, Analysis2015pT} {
		vars, err := Resolve(p, nil, []Variable{CalRatio})
		require.NoError(t, err)
		assert.NotContains(t, vars, CalRatio, p.String())
	}

	vars, err = Resolve(None, []Variable{JetEta}, []Variable{JetEta})
	require.NoError(t, err)
	assert.Empty(t, vars)

	all, err := Resolve(DefaultAllET, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, all, JetET)
	assert.NotContains(t, all, JetPt)
	assert.Len(t, all, 16)

	_, err = Resolve(Preset(42), nil, nil)
	assert.True(t, errors.Is(err, ErrUnknown))
	_, err = Resolve(None, []Variable{Variable(99)}, nil)
	assert.True(t, errors.Is(err, ErrUnknown))
}

func TestParse(t *testing.T) {
	v, err := ParseVariable("jettrackdr")
	require.NoError(t, err)
	assert.Equal(t, JetTrackDR, v)
	assert.Equal(t, "JetDRTo2GeVTrack", v.Column())

	var p Preset
	require.NoError(t, p.UnmarshalText([]byte("Analysis2015pT")))
	assert.Equal(t, Analysis2015pT, p)

	var f FlattenBy
	require.NoError(t, f.UnmarshalText([]byte("jetet")))
	assert.Equal(t, FlattenByJetET, f)

	var bad Variable
	assert.True(t, errors.Is(bad.UnmarshalText([]byte("Nope")), ErrUnknown))
	_, err = ParsePreset("Default6")
	assert.True(t, errors.Is(err, ErrUnknown))
	_, err = ParseFlattenBy("eta")
	assert.True(t, errors.Is(err, ErrUnknown))
}

func TestColumns(t *testing.T) {
	cols := Columns([]Variable{NTracks, BIBDeltaTimingPlus})
	require.Len(t, cols, 2)
	assert.Equal(t, []string{"NTracks", "BIBDeltaTimingP"}, mva.Names(cols))
	tr := Tree{NTracks: 3, BIBDeltaTimingP: -2}
	assert.Equal(t, 3.0, cols[0].Value(tr))
	assert.Equal(t, -2.0, cols[1].Value(tr))
	assert.Len(t, AllColumns(), int(numVariables))
}

func spectrum() []Tree {
	var out []Tree
	for i := 0; i < 40; i++ {
		pt := 50 + float64(i%4)*10
		out = append(out, Tree{JetPt: pt, JetET: 300 + float64(i%4)*10, Weight: 0.5 + float64(i%3), WeightFlatten: 1})
	}
	return out
}

func TestFlatten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flat.root")
	out, err := plots.Create(path)
	require.NoError(t, err)

	flat, err := Flatten(stream.Slice(spectrum()), FlattenByJetPt, out, "flatten", "background", nil)
	require.NoError(t, err)
	got, err := stream.Collect(flat)
	require.NoError(t, err)
	require.Len(t, got, 40)

	in := spectrum()
	perBin := map[int]float64{}
	for i, tr := range got {
		assert.InDelta(t, in[i].Weight*tr.WeightFlatten, tr.Weight, 1e-12)
		perBin[plots.JetPt.Binning().Bin(tr.JetPt)] += tr.Weight
	}
	assert.Len(t, perBin, 4)
	for bin, w := range perBin {
		assert.InDelta(t, 1.0, w, 1e-9, "bin %d", bin)
	}
	require.NoError(t, out.Close())

	f, err := groot.Open(path)
	require.NoError(t, err)
	defer f.Close()
	for _, name := range []string{"flatten/pTbackground", "flatten/pTbackgroundflat"} {
		_, err := riofs.Dir(f).Get(name)
		assert.NoError(t, err, name)
	}

	// ET above the plot range all lands in the overflow.
	flat, err = Flatten(stream.Slice(spectrum()), FlattenByJetET, nil, "", "et", nil)
	require.NoError(t, err)
	got, err = stream.Collect(flat)
	require.NoError(t, err)
	sum := 0.0
	for _, tr := range got {
		sum += tr.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	same, err := Flatten(stream.Slice(spectrum()), FlattenByNone, nil, "", "none", nil)
	require.NoError(t, err)
	got, err = stream.Collect(same)
	require.NoError(t, err)
	assert.Equal(t, spectrum(), got)

	_, err = Flatten(stream.Slice(spectrum()), FlattenBy(9), nil, "", "bad", nil)
	assert.True(t, errors.Is(err, ErrUnknown))
}

func TestFlattenMixedSignWeights(t *testing.T) {
	in := []Tree{
		{JetPt: 50, Weight: 3},
		{JetPt: 51, Weight: -1},
		{JetPt: 100, Weight: -2},
		{JetPt: 101, Weight: 1},
	}
	path := filepath.Join(t.TempDir(), "neg.root")
	out, err := plots.Create(path)
	require.NoError(t, err)

	flat, err := Flatten(stream.Slice(in), FlattenByJetPt, out, "flatten", "neg", nil)
	require.NoError(t, err)
	got, err := stream.Collect(flat)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, tr := range got {
		assert.GreaterOrEqual(t, tr.Weight, 0.0, "record %d", i)
		assert.GreaterOrEqual(t, tr.WeightFlatten, 0.0, "record %d", i)
	}
	assert.InDelta(t, 1.5, got[0].Weight, 1e-12)
	assert.Equal(t, 0.0, got[1].Weight)
	// The 100 GeV bin sums to -1, so nothing in it survives.
	assert.Equal(t, 0.0, got[2].WeightFlatten)
	assert.Equal(t, 0.0, got[3].Weight)
	require.NoError(t, out.Close())

	f, err := groot.Open(path)
	require.NoError(t, err)
	defer f.Close()
	obj, err := riofs.Dir(f).Get("flatten/pTnegflat")
	require.NoError(t, err)
	// The spectrum after flattening is measured: only record 0 carries weight.
	assert.InDelta(t, 1.5, obj.(rhist.H1).SumW(), 1e-12)
}

func TestPlotTrainingVariables(t *testing.T) {
	b := stream.NewBatch(stream.Slice(spectrum()))
	hs := PlotTrainingVariables(b, "sig")
	require.Len(t, hs, 2*len(variablePlots))
	assert.Equal(t, "pTsig", hs[0].H1D().Name())
	assert.Equal(t, "pTsig_unweighted", hs[1].H1D().Name())

	require.NoError(t, b.Run())
	assert.Equal(t, 40.0, hs[1].Integral())
	total := 0.0
	for _, tr := range spectrum() {
		total += tr.Weight
	}
	assert.InDelta(t, total, hs[0].Integral(), 1e-9)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteCSV(&buf, stream.Slice([]Tree{Project(record(80, &jets.LLP{Lxy: 3000, Lz: 10})), Project(record(90, nil))}))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	header := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Contains(t, header, "mc_Lxy")
	assert.Contains(t, header, "JetDRTo2GeVTrack")

	var back []Tree
	require.NoError(t, gocsv.Unmarshal(&buf, &back))
	require.Len(t, back, 2)
	assert.Equal(t, 3000.0, back[0].MCLxy)
	assert.Equal(t, 90.0, back[1].JetPt)

	var empty bytes.Buffer
	n, err = WriteCSV(&empty, stream.Empty[Tree]())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, empty.String(), "Weight")
}

func TestWriteROOT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.root")
	out, err := plots.Create(path)
	require.NoError(t, err)
	dir, err := out.Dir("signal")
	require.NoError(t, err)

	n, err := WriteROOT(dir, "TrainingTree", stream.Slice([]Tree{Project(record(80, nil)), Project(record(120, nil))}))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, out.Close())

	f, err := groot.Open(path)
	require.NoError(t, err)
	defer f.Close()
	obj, err := riofs.Dir(f).Get("signal/TrainingTree")
	require.NoError(t, err)
	tree := obj.(rtree.Tree)
	assert.Equal(t, int64(2), tree.Entries())

	var (
		pt      float64
		nTracks int32
		pts     []float64
	)
	r, err := rtree.NewReader(tree, []rtree.ReadVar{{Name: "JetPt", Value: &pt}, {Name: "NTracks", Value: &nTracks}})
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Read(func(rtree.RCtx) error {
		pts = append(pts, pt)
		assert.Equal(t, int32(1), nTracks)
		return nil
	}))
	assert.Equal(t, []float64{80, 120}, pts)
}

func trainedReader(t *testing.T) *mva.Reader[Tree] {
	t.Helper()
	var sig, bkg []Tree
	for i := 0; i < 90; i++ {
		f := float64(i) / 90
		sig = append(sig, Tree{JetPt: 60 + 50*f, CalRatio: 2 + f, Weight: 1, EventNumber: int64(i)})
		bkg = append(bkg, Tree{JetPt: 60 + 50*f, CalRatio: -1 + f, Weight: 1, EventNumber: int64(i)})
	}
	vars, err := Resolve(None, []Variable{JetPt, CalRatio}, nil)
	require.NoError(t, err)

	tr := mva.NewTraining[Tree](t.TempDir(), nil).
		Signal(stream.Slice(sig), IsTraining(jets.DefaultTestSplit), "signal").
		Background(stream.Slice(bkg), IsTraining(jets.DefaultTestSplit), "multijet").
		UseVariables(Columns(vars)...).
		SetWeight("Weight", func(t Tree) float64 { return t.Weight })
	tr.AddMethod(mva.BDT, "BDT", "NTrees=20:MaxDepth=2")
	res, err := tr.Train("cut")
	require.NoError(t, err)
	m, ok := res.Method("BDT")
	require.True(t, ok)
	r, err := mva.NewReader(m.WeightFile(), AllColumns())
	require.NoError(t, err)
	return r
}

func TestFindCut(t *testing.T) {
	r := trainedReader(t)

	var mixed []Tree
	for i := 0; i < 50; i++ {
		f := float64(i) / 50
		mixed = append(mixed, Tree{JetPt: 80, CalRatio: 2 + f, Weight: 1})
		mixed = append(mixed, Tree{JetPt: 80, CalRatio: -1 + f, Weight: 1})
	}

	path := filepath.Join(t.TempDir(), "cut.root")
	out, err := plots.Create(path)
	require.NoError(t, err)
	low, err := FindCut(stream.Slice(mixed), r, 0, 0.25, out, "cuts", "")
	require.NoError(t, err)
	high, err := FindCut(stream.Slice(mixed), r, 0, 0.75, nil, "", "")
	require.NoError(t, err)
	require.NoError(t, out.Close())

	assert.Less(t, low, high)
	assert.True(t, low >= -1 && high <= 1)
	// Half the sample is signal like, so the cuts sit on either side of it.
	sigLike := mixed[0]
	v := 2*mustProb(t, r, sigLike) - 1
	assert.Greater(t, v, low)

	top, err := FindCut(stream.Slice(mixed), r, 0, 1, nil, "", "")
	require.NoError(t, err)
	assert.Greater(t, top, 1.0)

	_, err = FindCut(stream.Slice(mixed), r, 0, 1.5, nil, "", "")
	assert.True(t, errors.Is(err, ErrFraction))
	_, err = FindCut(stream.Slice(mixed), r, 0, -0.1, nil, "", "")
	assert.True(t, errors.Is(err, ErrFraction))
	_, err = FindCut(stream.Slice(mixed), r, 2, 0.5, nil, "", "")
	assert.True(t, errors.Is(err, mva.ErrClassIndex))

	f, err := groot.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = riofs.Dir(f).Get("cuts/mva_weights")
	assert.NoError(t, err)
}

func mustProb(t *testing.T, r *mva.Reader[Tree], tr Tree) float64 {
	t.Helper()
	p, err := r.ClassValue(tr, 0)
	require.NoError(t, err)
	return p
}

func TestPlotClassifierWeights(t *testing.T) {
	r := trainedReader(t)

	recs := []Tree{
		{JetPt: 80, CalRatio: 2.5, Weight: 2},
		{JetPt: 80, CalRatio: -0.5, Weight: 1},
	}
	b := stream.NewBatch(stream.Slice(recs))
	hs, err := PlotClassifierWeights(b, r, "hss", "multijet")
	require.NoError(t, err)
	require.NoError(t, b.Run())

	require.Len(t, hs, 2)
	assert.Equal(t, "weight_hss", hs[0].H1D().Name())
	for _, h := range hs {
		assert.InDelta(t, 3, h.Integral(), 1e-9)
	}
	// Probabilities of the two classes add up to one, so the means do too.
	mean := func(h *reweight.Histogram) float64 { return h.H1D().XMean() }
	assert.InDelta(t, 1, mean(hs[0])+mean(hs[1]), 0.05)

	_, err = PlotClassifierWeights(stream.NewBatch(stream.Slice(recs)), r, "only")
	assert.True(t, errors.Is(err, mva.ErrClassIndex))
}

func TestTesting(t *testing.T) {
	var recs []Tree
	for i := int64(0); i < 9; i++ {
		recs = append(recs, Tree{EventNumber: i})
	}
	test, err := stream.Collect(Testing(stream.Slice(recs), jets.DefaultTestSplit))
	require.NoError(t, err)
	assert.Len(t, test, 3)
	for _, tr := range test {
		assert.False(t, IsTraining(jets.DefaultTestSplit)(tr))
	}
}
