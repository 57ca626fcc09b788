// Command traininginfo evaluates a trained classifier on the multijet
// test jets and dumps every jet's training record with the classifier
// output as CSV.
package main

import (
	"context"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/decibelcooper/calratio"
	"github.com/decibelcooper/calratio/jets"
	"github.com/decibelcooper/calratio/mva"
	"github.com/decibelcooper/calratio/stream"
	"github.com/decibelcooper/calratio/training"
)

type args struct {
	calratio.CommonOptions

	WeightFile string `arg:"positional,required" help:"classifier weight file"`
	Run        int64  `arg:"--run" help:"only jets of this run; 0 for all"`
	Event      int64  `arg:"--event" help:"only jets of this event; 0 for all"`
	Class      int    `arg:"--class" help:"class whose probability is dumped; -1 dumps the two class response"`
	Output     string `arg:"-o,--output" help:"csv output"`
	Verbose    bool   `arg:"-v,--verbose" help:"debug logging"`
}

func defaultArgs() args {
	return args{
		CommonOptions: calratio.DefaultCommonOptions(),
		Class:         -1,
		Output:        "TrainingInfo.csv",
	}
}

// row is one dumped jet.
type row struct {
	training.Tree
	MVAValue float64 `csv:"MVAValue"`
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
		log.Fatal("dumping training info failed", zap.Error(err))
	}
}

// evaluate attaches the classifier output to the test jets of src that
// match the run and event filters.
func evaluate(src stream.Stream[training.Tree], r *mva.Reader[training.Tree], class int, runNumber, eventNumber int64) (stream.Stream[row], error) {
	value := r.Value
	if class >= 0 {
		var err error
		if value, err = r.Func(class); err != nil {
			return nil, err
		}
	}

	src = training.Testing(src, jets.DefaultTestSplit)
	src = stream.Filter(src, func(t training.Tree) bool {
		return (runNumber == 0 || t.RunNumber == runNumber) &&
			(eventNumber == 0 || t.EventNumber == eventNumber)
	})
	return stream.Map(src, func(t training.Tree) row {
		return row{Tree: t, MVAValue: value(t)}
	}), nil
}

func run(ctx context.Context, a args, log *zap.Logger) error {
	r, err := mva.NewReader(a.WeightFile, training.AllColumns())
	if err != nil {
		return err
	}
	log.Info("classifier loaded",
		zap.String("weight_file", a.WeightFile),
		zap.Strings("variables", r.Variables()),
		zap.Strings("classes", r.Classes()),
	)

	c, err := calratio.NewContext(a.CommonOptions, log)
	if err != nil {
		return err
	}
	background, err := c.Multijet(ctx, -1)
	if err != nil {
		return err
	}
	rows, err := evaluate(training.AsTrainingTree(background), r, a.Class, a.Run, a.Event)
	if err != nil {
		return err
	}

	f, err := os.Create(a.Output)
	if err != nil {
		return errors.Wrap(err, "creating output")
	}
	n, err := training.WriteRowsCSV(f, rows)
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", a.Output)
	}
	log.Info("training info written", zap.String("path", a.Output), zap.String("jets", humanize.Comma(int64(n))))
	return nil
}
