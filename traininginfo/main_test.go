package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decibelcooper/calratio/jets"
	"github.com/decibelcooper/calratio/mva"
	"github.com/decibelcooper/calratio/stream"
	"github.com/decibelcooper/calratio/training"
)

func trainedReader(t *testing.T) *mva.Reader[training.Tree] {
	t.Helper()
	var sig, bkg []training.Tree
	for i := 0; i < 60; i++ {
		f := float64(i) / 60
		sig = append(sig, training.Tree{JetPt: 50 + 40*f, CalRatio: 2 + f, Weight: 1, EventNumber: int64(i)})
		bkg = append(bkg, training.Tree{JetPt: 50 + 40*f, CalRatio: -1 + f, Weight: 1, EventNumber: int64(i)})
	}
	isTraining := training.IsTraining(jets.DefaultTestSplit)
	tr := mva.NewTraining[training.Tree](t.TempDir(), nil).
		Signal(stream.Slice(sig), isTraining, "signal").
		Background(stream.Slice(bkg), isTraining, "multijet").
		UseVariables(training.Columns([]training.Variable{training.JetPt, training.CalRatio})...)
	m := tr.AddMethod(mva.BDT, "BDT", "NTrees=10:MaxDepth=2")
	_, err := tr.Train("info")
	require.NoError(t, err)

	r, err := mva.NewReader(m.WeightFile(), training.AllColumns())
	require.NoError(t, err)
	return r
}

func TestEvaluate(t *testing.T) {
	r := trainedReader(t)

	var recs []training.Tree
	for i := int64(0); i < 12; i++ {
		recs = append(recs, training.Tree{JetPt: 70, CalRatio: 2.5, RunNumber: 280500 + i%2, EventNumber: i})
	}

	rows, err := evaluate(stream.Slice(recs), r, -1, 0, 0)
	require.NoError(t, err)
	all, err := stream.Collect(rows)
	require.NoError(t, err)
	require.Len(t, all, 4, "only the test split is evaluated")
	for _, row := range all {
		assert.Equal(t, int64(1), row.EventNumber%3)
		assert.InDelta(t, r.Value(row.Tree), row.MVAValue, 1e-12)
		assert.Greater(t, row.MVAValue, 0.0, "signal like jet")
	}

	rows, err = evaluate(stream.Slice(recs), r, 1, 280501, 7)
	require.NoError(t, err)
	one, err := stream.Collect(rows)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Less(t, one[0].MVAValue, 0.5)

	var buf bytes.Buffer
	n, err := training.WriteRowsCSV(&buf, stream.Slice(all))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	header := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.True(t, strings.HasSuffix(header, ",MVAValue"))
	assert.Contains(t, header, "EventNumber")

	_, err = evaluate(stream.Slice(recs), r, 5, 0, 0)
	assert.True(t, errors.Is(err, mva.ErrClassIndex))
}
