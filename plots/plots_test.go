package plots

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/groot/riofs"

	"github.com/decibelcooper/calratio/reweight"
	"github.com/decibelcooper/calratio/stream"
)

var four = Spec{Name: "h%s", Title: "h of %s", NBins: 4, Min: 0, Max: 4}

func filled(tag string, xs ...float64) *reweight.Histogram {
	h := four.New(tag)
	for _, x := range xs {
		h.Fill(x, 1)
	}
	return h
}

func TestSpec(t *testing.T) {
	h := JetPt.New("signal")
	assert.Equal(t, "pTsignal", h.H1D().Name())
	assert.Equal(t, reweight.Binning{N: 50, Min: 0, Max: 300}, h.Binning)

	assert.Equal(t, 17.0, JetPt.Value(17))
	assert.Equal(t, 1, CalR.Binning().Bin(CalR.Value(-10)))
	assert.Equal(t, CalR.NBins, CalR.Binning().Bin(CalR.Value(10)))
	assert.Equal(t, 1.5, CalR.Value(1.5))
}

func TestBook(t *testing.T) {
	b := stream.NewBatch(stream.Slice([]float64{0.5, 1.5, 1.5, 7}))
	unweighted := Book(b, four, "u", func(x float64) float64 { return x }, nil)
	weighted := Book(b, four, "w", func(x float64) float64 { return x }, func(x float64) float64 { return 2 })
	require.NoError(t, b.Run())

	assert.Equal(t, 2.0, unweighted.Content(2))
	assert.Equal(t, 1.0, unweighted.Content(5))
	assert.Equal(t, 8.0, weighted.Integral())
}

func TestBookWhere(t *testing.T) {
	b := stream.NewBatch(stream.Slice([]float64{0.5, 1.5, 2.5, 3.5}))
	h := BookWhere(b, four, "low", func(x float64) bool { return x < 2 }, func(x float64) float64 { return x }, nil)
	require.NoError(t, b.Run())
	assert.Equal(t, 2.0, h.Integral())

	assert.Equal(t, "renamed", Rename(h, "renamed").H1D().Name())
}

func TestCumulative(t *testing.T) {
	h := filled("c", -1, 0.5, 1.5, 1.5, 2.5, 9)

	up := Cumulative(h, "up", false)
	assert.Equal(t, "up", up.H1D().Name())
	assert.InDelta(t, 1.0/6, up.Content(0), 1e-12)
	assert.InDelta(t, 4.0/6, up.Content(2), 1e-12)
	assert.InDelta(t, 5.0/6, up.Content(4), 1e-12)
	assert.InDelta(t, 1.0, up.Content(5), 1e-12)

	down := Cumulative(h, "down", true)
	assert.InDelta(t, 1.0, down.Content(0), 1e-12)
	assert.InDelta(t, 4.0/6, down.Content(2), 1e-12)
	assert.InDelta(t, 1.0/6, down.Content(5), 1e-12)

	empty := Cumulative(four.New("e"), "e", false)
	assert.Equal(t, 0.0, empty.Integral())
}

func TestEfficiencyAndSignificance(t *testing.T) {
	num := filled("n", 0.5, 1.5)
	den := filled("d", 0.5, 0.5, 1.5, 1.5, 1.5, 1.5, 2.5)

	eff, err := Efficiency(num, den, "eff")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, eff.Content(1), 1e-12)
	assert.InDelta(t, 0.25, eff.Content(2), 1e-12)
	assert.Equal(t, 0.0, eff.Content(3))
	assert.Equal(t, 0.0, eff.Content(4))

	sig, err := Significance(num, den, "sig")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sig.Content(2), 1e-12)
	assert.Equal(t, 0.0, sig.Content(4))

	_, err = Efficiency(num, JetPt.New("x"), "bad")
	assert.ErrorIs(t, err, ErrBinning)
}

func TestROCAndCuts(t *testing.T) {
	s := Cumulative(filled("s", 2.5, 3.5), "s", true)
	b := Cumulative(filled("b", 0.5, 1.5), "b", true)

	xys, err := ROC(s, b)
	require.NoError(t, err)
	require.Len(t, xys, 4)
	assert.InDelta(t, 1.0, xys[0].X, 1e-12)
	assert.InDelta(t, 1.0, xys[0].Y, 1e-12)
	assert.InDelta(t, 1.0, xys[2].X, 1e-12)
	assert.InDelta(t, 0.0, xys[2].Y, 1e-12)

	cut, ok := CutFor(b, 0.6, true)
	require.True(t, ok)
	assert.Equal(t, 1.5, cut)
	assert.InDelta(t, 1.0, ValueAt(s, cut), 1e-12)

	_, ok = CutFor(b, 2, false)
	assert.False(t, ok)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.root")
	f, err := Create(path)
	require.NoError(t, err)

	require.NoError(t, f.Save("a/b", H1Ds(filled("one", 1.5), filled("two", 2.5))...))
	require.NoError(t, f.Save("a", filled("three", 0.5).H1D()))
	require.Error(t, f.Save("a", reweight.NewHistogram("", four.Binning()).H1D()))
	require.NoError(t, f.Close())

	rf, err := groot.Open(path)
	require.NoError(t, err)
	defer rf.Close()
	obj, err := riofs.Dir(rf).Get("a/b/two")
	require.NoError(t, err)
	h := obj.(interface{ NbinsX() int })
	assert.Equal(t, 4, h.NbinsX())
	_, err = riofs.Dir(rf).Get("a/three")
	assert.NoError(t, err)
}

func TestSaveCurve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roc.root")
	f, err := Create(path)
	require.NoError(t, err)
	xys, err := ROC(Cumulative(filled("s", 2.5, 3.5), "s", true), Cumulative(filled("b", 0.5), "b", false))
	require.NoError(t, err)
	require.NoError(t, f.SaveCurve("curves", "calr_roc", "ROC for calr", xys))
	require.NoError(t, f.Close())

	rf, err := groot.Open(path)
	require.NoError(t, err)
	defer rf.Close()
	obj, err := riofs.Dir(rf).Get("curves/calr_roc")
	require.NoError(t, err)
	g, ok := obj.(rhist.Graph)
	require.True(t, ok)
	assert.Equal(t, len(xys), g.Len())
}

func TestDraw(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Draw(filepath.Join(dir, "one.png"), "one", "x", filled("one", 1.5, 2.5)))
	require.NoError(t, Draw(filepath.Join(dir, "two.pdf"), "two", "x", filled("a", 1.5), filled("b", 2.5)))
	assert.FileExists(t, filepath.Join(dir, "one.png"))
	assert.FileExists(t, filepath.Join(dir, "two.pdf"))

	xys, err := ROC(Cumulative(filled("s", 2.5), "s", true), Cumulative(filled("b", 0.5), "b", true))
	require.NoError(t, err)
	require.NoError(t, DrawROC(filepath.Join(dir, "roc.png"), "roc", Curve{Name: "calr", XYs: xys}))
	assert.FileExists(t, filepath.Join(dir, "roc.png"))
}

func TestPreciseTicks(t *testing.T) {
	ticks := PreciseTicks{NSuggestedTicks: 5}.Ticks(0, 300)
	var labels []string
	for _, tk := range ticks {
		assert.True(t, tk.Value >= 0 && tk.Value <= 300)
		if tk.Label != "" {
			labels = append(labels, tk.Label)
		}
	}
	assert.Equal(t, []string{"0", "60", "120", "180", "240", "300"}, labels)

	flat := PreciseTicks{}.Ticks(1, 1)
	require.Len(t, flat, 1)
	assert.Equal(t, "1", flat[0].Label)
}
