// Command mvadump writes the flattened training tuples of every class as
// CSV files, and as trees in a ROOT file, for training outside of Go.
package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/decibelcooper/calratio"
	"github.com/decibelcooper/calratio/jets"
	"github.com/decibelcooper/calratio/plots"
	"github.com/decibelcooper/calratio/stream"
	"github.com/decibelcooper/calratio/training"
)

// smallSample is the size of every class outside full dataset mode.
const smallSample = 50000

type args struct {
	calratio.CommonOptions

	FlattenBy training.FlattenBy `arg:"--FlattenBy" help:"spectrum to flatten the samples in: JetPt, JetET or None"`

	TrainingEventsJz     int `arg:"--TrainingEventsJz" help:"multijet jets to dump (-1 is the default, 0 is none)"`
	TrainingEventsSignal int `arg:"--TrainingEventsSignal" help:"signal jets to dump (-1 is the default, 0 is none)"`
	TrainingEventsBIB15  int `arg:"--TrainingEventsBIB15" help:"data15 BIB jets to dump (-1 is the default, 0 is none)"`
	TrainingEventsBIB16  int `arg:"--TrainingEventsBIB16" help:"data16 BIB jets to dump (-1 is the default, 0 is none)"`

	LxyCut float64 `arg:"--LxyCut" help:"smallest Lxy of barrel signal LLPs, in meters"`
	LzCut  float64 `arg:"--LzCut" help:"smallest Lz of endcap signal LLPs, in meters"`

	InputFile []string `arg:"--InputFile" help:"dump these ntuples as one sample instead of the standard ones"`

	OutDir  string `arg:"--out-dir" help:"directory for the csv files"`
	Output  string `arg:"-o,--output" help:"ROOT file for the tuples and flattening histograms"`
	NoROOT  bool   `arg:"--no-root" help:"only write csv files"`
	Verbose bool   `arg:"-v,--verbose" help:"debug logging"`
}

func defaultArgs() args {
	return args{
		CommonOptions:        calratio.DefaultCommonOptions(),
		FlattenBy:            training.FlattenByJetPt,
		TrainingEventsJz:     -1,
		TrainingEventsSignal: -1,
		TrainingEventsBIB15:  -1,
		TrainingEventsBIB16:  -1,
		OutDir:               ".",
		Output:               "MVADumpTrainingTuples.root",
	}
}

func main() {
	a := defaultArgs()
	calratio.MustParse(&a)

	log := calratio.NewLogger(a.Verbose)
	defer log.Sync()

	prof := a.StartProfile()
	err := run(context.Background(), a, log)
	prof.Stop()
	if err != nil {
		log.Fatal("dumping training tuples failed", zap.Error(err))
	}
}

// dumper writes samples next to each other.
type dumper struct {
	by      training.FlattenBy
	out     *plots.File
	dir     string
	rootOut bool
	log     *zap.Logger
}

// dump flattens records and writes them as <name>.csv and, unless turned
// off, as the tree tuples/<name>.
func (d *dumper) dump(name string, records stream.Stream[jets.Record]) (int, error) {
	flat, err := training.Flatten(training.AsTrainingTree(records), d.by, d.out, "flatten", name, d.log)
	if err != nil {
		return 0, err
	}

	path := filepath.Join(d.dir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrap(err, "creating csv output")
	}
	n, err := training.WriteCSV(f, flat)
	if err != nil {
		f.Close()
		return n, errors.Wrapf(err, "writing %s", path)
	}
	if err := f.Close(); err != nil {
		return n, errors.Wrapf(err, "closing %s", path)
	}

	if d.rootOut {
		dir, err := d.out.Dir("tuples")
		if err != nil {
			return n, err
		}
		if _, err := training.WriteROOT(dir, name, flat); err != nil {
			return n, err
		}
	}
	d.log.Info("training tuple written",
		zap.String("sample", name),
		zap.String("path", path),
		zap.String("jets", humanize.Comma(int64(n))),
	)
	return n, nil
}

func run(ctx context.Context, a args, log *zap.Logger) (err error) {
	c, err := calratio.NewContext(a.CommonOptions, log)
	if err != nil {
		return err
	}
	out, err := plots.Create(a.Output)
	if err != nil {
		return err
	}
	defer calratio.Close(out, a.Output, &err)

	d := &dumper{by: a.FlattenBy, out: out, dir: a.OutDir, rootOut: !a.NoROOT, log: log}

	if len(a.InputFile) > 0 {
		_, err := d.dump("data", c.FromFiles(a.InputFile...))
		return err
	}

	if n := a.Events(a.TrainingEventsSignal, smallSample); n != 0 {
		cut := jets.DecayCut{MinLxy: a.LxyCut * 1000, MinLz: a.LzCut * 1000}
		signal, err := c.Signal(ctx, n, cut, "signal_p2952", "emma", "train", "hss")
		if err != nil {
			return err
		}
		if _, err := d.dump("signal", signal); err != nil {
			return err
		}
	}

	if n := a.Events(a.TrainingEventsJz, smallSample); n != 0 {
		multijet, err := c.Multijet(ctx, n)
		if err != nil {
			return err
		}
		written, err := d.dump("multijet", multijet)
		if err != nil {
			return err
		}
		if written == 0 {
			return errors.New("multijet jets were requested but none were found")
		}
	}

	for _, e := range []struct {
		epoch     calratio.DataEpoch
		requested int
	}{
		{calratio.Data15, a.TrainingEventsBIB15},
		{calratio.Data16, a.TrainingEventsBIB16},
	} {
		n := a.Events(e.requested, smallSample)
		if n == 0 {
			continue
		}
		bib, err := c.BIB(ctx, e.epoch, n, "emma")
		if err != nil {
			return err
		}
		if _, err := d.dump(e.epoch.Short(), bib); err != nil {
			return err
		}
	}
	return nil
}
