package main

import (
	"path/filepath"
	"testing"

	arg "github.com/alexflint/go-arg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/decibelcooper/calratio/jets"
	"github.com/decibelcooper/calratio/plots"
	"github.com/decibelcooper/calratio/stream"
)

func TestArgs(t *testing.T) {
	a := defaultArgs()
	p, err := arg.NewParser(arg.Config{}, &a)
	require.NoError(t, err)
	require.NoError(t, p.Parse([]string{"--back-rejection", "0.8", "--sample", "125_15"}))
	assert.Equal(t, []string{"125_15"}, a.Sample)
	assert.Len(t, a.BackRejection, 1)
	assert.Len(t, a.SignalEfficiency, 5)
	assert.Error(t, p.Parse([]string{"--sig-eff", "3"}))
}

func TestStudy(t *testing.T) {
	var sig, back []jets.Record
	for i := 0; i < 100; i++ {
		f := float64(i) / 100
		sig = append(sig, jets.Record{
			Jet:            jets.Jet{PT: 50, Eta: 0.3, LogRatio: 1.5 + f, LLP: &jets.LLP{Lxy: 2500}},
			Tracks:         nil,
			MCEventWeight:  1,
			XSectionWeight: 1,
		})
		back = append(back, jets.Record{
			Jet:            jets.Jet{PT: 50, Eta: -0.3, LogRatio: -1 + f},
			Tracks:         []jets.Track{{PT: 3}, {PT: 4}},
			MCEventWeight:  1,
			XSectionWeight: 2,
		})
	}

	dir := t.TempDir()
	out, err := plots.Create(filepath.Join(dir, "perf.root"))
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	s := &study{
		out:        out,
		pngDir:     dir,
		rejections: []float64{0.9},
		effs:       []float64{0.5},
		log:        zap.New(core),
	}
	require.NoError(t, s.sample("s1", stream.Slice(sig), stream.Slice(back)))
	require.NoError(t, out.Close())

	for _, png := range []string{"s1_CalR.png", "s1_Ntrk.png", "s1_roc.png"} {
		assert.FileExists(t, filepath.Join(dir, png))
	}

	f, err := groot.Open(filepath.Join(dir, "perf.root"))
	require.NoError(t, err)
	defer f.Close()
	for _, key := range []string{
		"s1/signal/pTall",
		"s1/background/CalRall",
		"s1/signalLLP/LLPLxyInCal",
		"s1/sigrtbackCalR/CalR_sigrtback",
		"s1/sigrtbackCalR/CalRLLPJCal_roc",
		"s1/sigrtbackNTrk/Ntrk_sigrtback_back",
		"s1/sigrtback_40_60/CalRLLPJCal_sigrtback_sig",
		"s1/sigrtback_40_60/pTNtrk_back",
	} {
		_, err := riofs.Dir(f).Get(key)
		assert.NoError(t, err, key)
	}

	// The samples separate cleanly in CalR, so the cuts are found in the
	// populated region.
	rej := logs.FilterMessage("cut for background rejection").FilterField(zap.Float64("pt_low", 40)).All()
	require.Len(t, rej, 1)
	assert.Equal(t, 1.0, rej[0].ContextMap()["sig_eff"])
	eff := logs.FilterMessage("cut for signal efficiency").FilterField(zap.Float64("pt_low", 40)).All()
	require.Len(t, eff, 1)
	assert.Equal(t, 1.0, eff[0].ContextMap()["rejection"])
	assert.NotEmpty(t, logs.FilterMessage("background rejection not reached").All(), "empty pT regions")

	std := logs.FilterMessage("standard CalRatio cut").All()
	require.Len(t, std, 1)
	assert.Equal(t, 1.0, std[0].ContextMap()["sig_eff"])
	assert.Equal(t, 0.0, std[0].ContextMap()["back_eff"])
}
