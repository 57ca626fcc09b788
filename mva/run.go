package mva

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go-hep.org/x/hep/groot/rtree"
	"go-hep.org/x/hep/hbook"
	"go.uber.org/zap"

	"github.com/decibelcooper/calratio/bdt"
	"github.com/decibelcooper/calratio/plots"
)

// run does everything past the sample collection: the samples are written,
// every method is trained, then evaluated on the test rows.
func (t *Training[T]) run(res *Result[T], train, test *bdt.Dataset, opts []bdt.Options) (err error) {
	out, err := plots.Create(res.OutputFile)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "closing %s", res.OutputFile)
		}
	}()

	vars := Names(t.columns)
	if err := writeTree(out, "TrainTree", train, vars); err != nil {
		return err
	}
	if err := writeTree(out, "TestTree", test, vars); err != nil {
		return err
	}
	t.state = SamplesWritten

	classes := t.classNames()
	forests := make([]*bdt.Forest, len(t.methods))
	for i, m := range t.methods {
		t.log.Info("training method", zap.String("method", m.Name), zap.Stringer("options", opts[i]))
		f, err := bdt.Train(train, vars, classes, opts[i], t.log)
		if err != nil {
			return errors.Wrapf(err, "method %s", m.Name)
		}
		if err := f.Save(m.WeightFile()); err != nil {
			return err
		}
		forests[i] = f
	}
	t.state = Trained

	var summary strings.Builder
	fmt.Fprintf(&summary, "Job %s\n", t.jobName)
	fmt.Fprintf(&summary, "Training events %d, testing events %d\n", train.Len(), test.Len())
	for i, m := range t.methods {
		if err := t.evaluate(out, &summary, m, forests[i], test); err != nil {
			return errors.Wrapf(err, "evaluating %s", m.Name)
		}
	}
	if err := os.WriteFile(res.SummaryFile, []byte(summary.String()), 0o644); err != nil {
		return errors.Wrap(err, "writing summary")
	}
	t.state = Evaluated
	return nil
}

func writeTree(out *plots.File, name string, d *bdt.Dataset, vars []string) error {
	var (
		classID int32
		weight  float64
		values  = make([]float64, len(vars))
	)
	wvars := []rtree.WriteVar{
		{Name: "classID", Value: &classID},
		{Name: "weight", Value: &weight},
	}
	for i, v := range vars {
		wvars = append(wvars, rtree.WriteVar{Name: v, Value: &values[i]})
	}

	w, err := rtree.NewWriter(out.ROOT(), name, wvars, rtree.WithTitle(name))
	if err != nil {
		return errors.Wrapf(err, "booking %s", name)
	}
	for i, x := range d.Rows {
		classID, weight = int32(d.Classes[i]), d.Weights[i]
		copy(values, x)
		if _, err := w.Write(); err != nil {
			w.Close()
			return errors.Wrapf(err, "writing %s", name)
		}
	}
	return errors.Wrapf(w.Close(), "closing %s", name)
}

// evaluate fills the classifier output of the test rows per true class and
// appends the numbers to summary.
func (t *Training[T]) evaluate(out *plots.File, summary *strings.Builder, m *Method[T], f *bdt.Forest, test *bdt.Dataset) error {
	classes := f.Classes
	binary := len(classes) == 2

	// hs[true class][output]
	hs := make([][]*hbook.H1D, len(classes))
	for c, cn := range classes {
		if binary {
			h := hbook.NewH1D(100, -1, 1)
			h.Annotation()["name"] = fmt.Sprintf("MVA_%s_%s", m.Name, cn)
			hs[c] = []*hbook.H1D{h}
			continue
		}
		for _, on := range classes {
			h := hbook.NewH1D(100, 0, 1)
			h.Annotation()["name"] = fmt.Sprintf("MVA_%s_%s_prob_for_%s", m.Name, cn, on)
			hs[c] = append(hs[c], h)
		}
	}

	own := make([]stats.Float64Data, len(classes))
	for i, x := range test.Rows {
		c := test.Classes[i]
		w := test.Weights[i]
		if binary {
			v := f.Response(x)
			hs[c][0].Fill(v, w)
			own[c] = append(own[c], v)
			continue
		}
		p := f.Probabilities(x)
		for o, po := range p {
			hs[c][o].Fill(po, w)
		}
		own[c] = append(own[c], p[c])
	}

	for _, h := range hs {
		if err := out.Save("Method_"+m.Name, h...); err != nil {
			return err
		}
	}

	what := "response"
	if !binary {
		what = "own class probability"
	}
	fmt.Fprintf(summary, "\nMethod %s (%s) %s\n", m.Name, m.Kind, f.Options)
	fmt.Fprintf(summary, "  %-20s %10s %10s %10s  (%s)\n", "class", "n_test", "mean", "median", what)
	for c, cn := range classes {
		mean, merr := own[c].Mean()
		median, derr := own[c].Median()
		if merr != nil || derr != nil {
			fmt.Fprintf(summary, "  %-20s %10d %10s %10s\n", cn, len(own[c]), "-", "-")
			continue
		}
		fmt.Fprintf(summary, "  %-20s %10d %10.4f %10.4f\n", cn, len(own[c]), mean, median)
	}

	imp := f.Importance()
	order := make([]int, len(imp))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return imp[order[a]] > imp[order[b]] })
	fmt.Fprintf(summary, "  variable ranking:\n")
	for rank, v := range order {
		fmt.Fprintf(summary, "  %3d %-30s %.4f\n", rank+1, f.Variables[v].Name, imp[v])
	}

	t.log.Info("method evaluated", zap.String("method", m.Name), zap.Int("test", test.Len()))
	return nil
}
