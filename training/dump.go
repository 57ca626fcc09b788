package training

import (
	"io"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/decibelcooper/calratio/stream"
)

const csvChunk = 10000

// WriteCSV dumps src as CSV with a header row, a chunk at a time. It
// returns the number of records written.
func WriteCSV(w io.Writer, src stream.Stream[Tree]) (int, error) {
	return WriteRowsCSV(w, src)
}

// WriteRowsCSV is WriteCSV for any gocsv tagged row type, e.g. a Tree
// embedded with extra columns.
func WriteRowsCSV[R any](w io.Writer, src stream.Stream[R]) (int, error) {
	var (
		n     int
		chunk = make([]R, 0, csvChunk)
	)
	flush := func() error {
		var err error
		if n == 0 {
			err = gocsv.Marshal(&chunk, w)
		} else {
			err = gocsv.MarshalWithoutHeaders(&chunk, w)
		}
		n += len(chunk)
		chunk = chunk[:0]
		return errors.Wrap(err, "writing csv")
	}

	err := src.Each(func(r R) error {
		chunk = append(chunk, r)
		if len(chunk) == csvChunk {
			return flush()
		}
		return nil
	})
	if err != nil {
		return n, err
	}
	if len(chunk) > 0 || n == 0 {
		if err := flush(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// WriteROOT dumps src as a flat tree called name in dir. Branches are
// named like the csv columns.
func WriteROOT(dir riofs.Directory, name string, src stream.Stream[Tree]) (int64, error) {
	var (
		t       Tree
		nTracks int32
	)
	wvars := []rtree.WriteVar{
		{Name: "Weight", Value: &t.Weight},
		{Name: "WeightFlatten", Value: &t.WeightFlatten},
		{Name: "WeightMCEvent", Value: &t.WeightMCEvent},
		{Name: "WeightXSection", Value: &t.WeightXSection},
		{Name: "JetPt", Value: &t.JetPt},
		{Name: "JetEta", Value: &t.JetEta},
		{Name: "JetPhi", Value: &t.JetPhi},
		{Name: "JetET", Value: &t.JetET},
		{Name: "CalRatio", Value: &t.CalRatio},
		{Name: "NTracks", Value: &nTracks},
		{Name: "SumPtOfAllTracks", Value: &t.SumPtOfAllTracks},
		{Name: "MaxTrackPt", Value: &t.MaxTrackPt},
		{Name: "EventNumber", Value: &t.EventNumber},
		{Name: "RunNumber", Value: &t.RunNumber},
		{Name: "JetWidth", Value: &t.JetWidth},
		{Name: "JetDRTo2GeVTrack", Value: &t.JetDRTo2GeVTrack},
		{Name: "EnergyDensity", Value: &t.EnergyDensity},
		{Name: "HadronicLayer1Fraction", Value: &t.HadronicLayer1Fraction},
		{Name: "JetLat", Value: &t.JetLat},
		{Name: "JetLong", Value: &t.JetLong},
		{Name: "FirstClusterRadius", Value: &t.FirstClusterRadius},
		{Name: "ShowerCenter", Value: &t.ShowerCenter},
		{Name: "BIBDeltaTimingM", Value: &t.BIBDeltaTimingM},
		{Name: "BIBDeltaTimingP", Value: &t.BIBDeltaTimingP},
		{Name: "PredictedLxy", Value: &t.PredictedLxy},
		{Name: "PredictedLz", Value: &t.PredictedLz},
		{Name: "InteractionsPerCrossing", Value: &t.InteractionsPerCrossing},
		{Name: "mc_Lxy", Value: &t.MCLxy},
		{Name: "mc_Lz", Value: &t.MCLz},
	}

	w, err := rtree.NewWriter(dir, name, wvars, rtree.WithTitle("training tuple"))
	if err != nil {
		return 0, errors.Wrapf(err, "booking tree %s", name)
	}
	var n int64
	err = src.Each(func(rec Tree) error {
		t = rec
		nTracks = int32(rec.NTracks)
		if _, err := w.Write(); err != nil {
			return errors.Wrapf(err, "writing tree %s", name)
		}
		n++
		return nil
	})
	if err != nil {
		w.Close()
		return n, err
	}
	return n, errors.Wrapf(w.Close(), "closing tree %s", name)
}
