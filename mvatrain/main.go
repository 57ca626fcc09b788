// Command mvatrain trains the three class (hss, multijet, BIB) jet
// classifier, plots its output on every sample and works out the cut that
// keeps a given fraction of each class.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/decibelcooper/calratio"
	"github.com/decibelcooper/calratio/jets"
	"github.com/decibelcooper/calratio/mva"
	"github.com/decibelcooper/calratio/plots"
	"github.com/decibelcooper/calratio/stream"
	"github.com/decibelcooper/calratio/training"
)

type args struct {
	calratio.CommonOptions

	BDTMaxDepth        int     `arg:"--BDTMaxDepth" help:"maximum depth of the trees"`
	BDTLeafMinFraction float64 `arg:"--BDTLeafMinFraction" help:"smallest leaf, in percent of the training weight"`

	TrainingEvents   int `arg:"--TrainingEvents" help:"multijet jets used for training and testing"`
	TrainEventsBIB15 int `arg:"--TrainEventsBIB15" help:"data15 BIB jets (-1 is the default, 0 is none)"`
	TrainEventsBIB16 int `arg:"--TrainEventsBIB16" help:"data16 BIB jets (-1 is the default, 0 is none)"`

	TrainingVariableSet training.Preset     `arg:"--TrainingVariableSet" help:"variables to start from"`
	AddVariable         []training.Variable `arg:"--AddVariable" help:"variables to add to the set"`
	DropVariable        []training.Variable `arg:"--DropVariable" help:"variables to drop from the set"`
	FlattenBy           training.FlattenBy  `arg:"--FlattenBy" help:"spectrum to flatten the samples in: JetPt, JetET or None"`

	SmallTestingMenu bool              `arg:"--SmallTestingMenu" help:"plot the output on the quick_compare signal samples only"`
	PrecisionValue   calratio.Fraction `arg:"--PrecisionValue" help:"fraction of each class a cut should keep"`

	Output  string `arg:"-o,--output" help:"ROOT file for the diagnostic histograms"`
	Verbose bool   `arg:"-v,--verbose" help:"debug logging"`
}

func defaultArgs() args {
	return args{
		CommonOptions:       calratio.DefaultCommonOptions(),
		BDTMaxDepth:         3,
		BDTLeafMinFraction:  5,
		TrainingEvents:      500000,
		TrainEventsBIB15:    -1,
		TrainEventsBIB16:    -1,
		TrainingVariableSet: training.DefaultAllpT,
		FlattenBy:           training.FlattenByJetPt,
		PrecisionValue:      0.9,
		Output:              "JetMVAClassifierTraining.root",
	}
}

// classNames label the model outputs, in training class order.
var classNames = []string{"hss", "multijet", "bib"}

func main() {
	a := defaultArgs()
	calratio.MustParse(&a)

	log := calratio.NewLogger(a.Verbose)
	defer log.Sync()

	prof := a.StartProfile()
	err := run(context.Background(), a, log)
	prof.Stop()
	if err != nil {
		log.Fatal("classifier training failed", zap.Error(err))
	}
}

// sample is one input of the training, before and after flattening.
type sample struct {
	name, dir string
	trees     stream.Stream[training.Tree]
	flat      stream.Stream[training.Tree]
}

func run(ctx context.Context, a args, log *zap.Logger) (err error) {
	vars, err := training.Resolve(a.TrainingVariableSet, a.AddVariable, a.DropVariable)
	if err != nil {
		return err
	}
	if len(vars) == 0 {
		return errors.New("no training variables left")
	}
	cols := training.Columns(vars)

	c, err := calratio.NewContext(a.CommonOptions, log)
	if err != nil {
		return err
	}

	signal, err := c.Signal(ctx, -1, jets.DecayCut{})
	if err != nil {
		return err
	}
	multijet, err := c.Multijet(ctx, a.TrainingEvents)
	if err != nil {
		return err
	}
	data15, err := bib(ctx, c, a, calratio.Data15, a.TrainEventsBIB15)
	if err != nil {
		return err
	}
	data16, err := bib(ctx, c, a, calratio.Data16, a.TrainEventsBIB16)
	if err != nil {
		return err
	}

	out, err := plots.Create(a.Output)
	if err != nil {
		return err
	}
	defer calratio.Close(out, a.Output, &err)

	inputs := []*sample{
		{name: "background", dir: "background", trees: training.AsTrainingTree(multijet)},
		{name: "signal", dir: "signal", trees: training.AsTrainingTree(signal)},
	}
	if data15 != nil {
		inputs = append(inputs, &sample{name: "bib15", dir: "data15", trees: training.AsTrainingTree(data15)})
	}
	if data16 != nil {
		inputs = append(inputs, &sample{name: "bib16", dir: "data16", trees: training.AsTrainingTree(data16)})
	}
	for _, s := range inputs {
		if s.flat, err = training.Flatten(s.trees, a.FlattenBy, out, "", s.dir, log); err != nil {
			return err
		}
		b := stream.NewBatch(s.flat)
		hs := training.PlotTrainingVariables(b, "training_"+s.name)
		if err := b.Run(); err != nil {
			return errors.Wrapf(err, "plotting %s training variables", s.name)
		}
		if err := out.Save(s.dir, plots.H1Ds(hs...)...); err != nil {
			return err
		}
	}

	isTraining := training.IsTraining(jets.DefaultTestSplit)
	tr := mva.NewTraining[training.Tree](".", log).
		AddClass("hss", inputs[1].flat, isTraining, "hss").
		AddClass("Multijet", inputs[0].flat, isTraining, "multijet")
	for _, s := range inputs[2:] {
		tr.AddClass("BIB", s.flat, isTraining, strings.Replace(s.name, "bib", "bib_", 1))
	}
	tr.UseVariables(cols...).
		SetWeight("Weight", func(t training.Tree) float64 { return t.Weight })

	m := tr.AddMethod(mva.BDT, "BDT", "!H:!V").
		Option("MaxDepth", strconv.Itoa(a.BDTMaxDepth)).
		Option("MinNodeSize", fmt.Sprintf("%g%%", a.BDTLeafMinFraction)).
		Option("nCuts", "200").
		Option("BoostType", "Grad")

	res, err := tr.Train("JetMVAClassifier")
	if err != nil {
		return err
	}
	jobName := jobNameFor(cols)
	if err := res.CopyToJobName(jobName, "."); err != nil {
		return err
	}
	if err := writeInfo(jobName, res, m); err != nil {
		return err
	}
	log.Info("classifier trained",
		zap.String("job", res.JobName),
		zap.String("copied_to", jobName),
		zap.Bool("reused", res.Skipped),
	)

	reader, err := m.Reader()
	if err != nil {
		return err
	}
	names := classNames
	if len(reader.Classes()) < len(names) {
		names = names[:len(reader.Classes())]
	}

	// Classifier output on independent signal samples and on the inputs.
	tags := append([]string{"mc15c", "signal", "hss"}, "compare")
	if a.SmallTestingMenu {
		tags[len(tags)-1] = "quick_compare"
	}
	var compare []compareSample
	if ms := c.Catalog.WithTags(tags...); len(ms) > 0 {
		srcs, err := c.Sources(ctx, ms, c.NFiles, false, nil)
		if err != nil {
			return err
		}
		for _, s := range srcs {
			compare = append(compare, compareSample{name: s.Name, records: s.Events})
		}
	} else {
		log.Warn("no comparison signal samples", zap.Strings("tags", tags))
	}
	for _, s := range compare {
		trees := training.AsTrainingTree(jets.Testing(jets.FilterLLPNear(s.records), jets.DefaultTestSplit))
		if err := classifierPlots(out, "Results/"+s.name, trees, reader, names); err != nil {
			return err
		}
	}
	for _, s := range inputs {
		if s.name == "signal" {
			continue
		}
		dir := s.dir
		if dir == "background" {
			dir = "jz"
		}
		if err := classifierPlots(out, "Results/"+dir, s.trees, reader, names); err != nil {
			return err
		}
	}

	// Cut keeping PrecisionValue of each class.
	prec := float64(a.PrecisionValue)
	findCut := func(src stream.Stream[training.Tree], class int, name string) (float64, error) {
		cut, err := training.FindCut(training.Testing(src, jets.DefaultTestSplit), reader, class, prec, out, "prec_calc", name)
		if err != nil {
			return 0, errors.Wrapf(err, "cut for %s", name)
		}
		log.Info("classifier cut", zap.String("sample", name), zap.Float64("pass_fraction", prec), zap.Float64("cut", cut))
		return cut, nil
	}
	cutSignal, err := findCut(inputs[1].trees, 0, "Signal")
	if err != nil {
		return err
	}
	cutMultijet, err := findCut(inputs[0].trees, 1, "Multijet")
	if err != nil {
		return err
	}
	cutBIB := 0.5
	if len(inputs) > 2 && len(reader.Classes()) > 2 {
		if cutBIB, err = findCut(inputs[2].trees, 2, "BIB"); err != nil {
			return err
		}
	}
	avg, _ := stats.Mean([]float64{cutSignal, cutMultijet, cutBIB})
	log.Info("average classifier cut", zap.Float64("pass_fraction", prec), zap.Float64("cut", avg))

	for _, s := range compare {
		cut, err := findCut(training.AsTrainingTree(s.records), 0, s.name)
		if err != nil {
			return err
		}
		avg, _ := stats.Mean([]float64{cut, cutMultijet, cutBIB})
		log.Info("average classifier cut", zap.String("sample", s.name), zap.Float64("pass_fraction", prec), zap.Float64("cut", avg))
	}
	return nil
}

// compareSample is a signal sample the classifier was not trained on.
type compareSample struct {
	name    string
	records stream.Stream[jets.Record]
}

// bib builds the BIB jets of one epoch, nil when none are wanted.
func bib(ctx context.Context, c *calratio.Context, a args, epoch calratio.DataEpoch, requested int) (stream.Stream[jets.Record], error) {
	n := a.Events(requested, 25000)
	if n == 0 {
		return nil, nil
	}
	return c.BIB(ctx, epoch, n)
}

func jobNameFor(cols []mva.Column[training.Tree]) string {
	return "JetMVAClass-" + strings.Join(mva.Names(cols), ".")
}

func writeInfo(jobName string, res *mva.Result[training.Tree], m *mva.Method[training.Tree]) error {
	path := fmt.Sprintf("%s_%s-Info.txt", jobName, m.Name)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating info file")
	}
	if err := dumpInfo(f, jobName, res, m); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "closing %s", path)
}

func dumpInfo(w io.Writer, jobName string, res *mva.Result[training.Tree], m *mva.Method[training.Tree]) error {
	fmt.Fprintf(w, "Using the MVA '%s' trained in job '%s'\n\n", m.Name, res.JobName)
	fmt.Fprintf(w, "Weight File: %s_%s.weights.xml\n\n", jobName, m.Name)
	return m.DumpUsageInfo(w)
}

func classifierPlots(out *plots.File, dir string, src stream.Stream[training.Tree], r *mva.Reader[training.Tree], names []string) error {
	b := stream.NewBatch(src)
	hs, err := training.PlotClassifierWeights(b, r, names...)
	if err != nil {
		return err
	}
	if err := b.Run(); err != nil {
		return errors.Wrapf(err, "filling %s", dir)
	}
	return out.Save(dir, plots.H1Ds(hs...)...)
}
