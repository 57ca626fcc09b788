// Package bdt is a small gradient boosted decision tree classifier. Models
// are stored as TMVA style XML weight files.
package bdt

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// MethodName is written into, and required from, weight files.
const MethodName = "BDT::BDT"

// Variable is one input of the forest along with the range seen in
// training.
type Variable struct {
	Name     string
	Min, Max float64
}

// Dataset holds the training rows, one class index and weight per row.
type Dataset struct {
	Rows    [][]float64
	Classes []int
	Weights []float64
}

// Add appends a row.
func (d *Dataset) Add(x []float64, class int, w float64) {
	d.Rows = append(d.Rows, x)
	d.Classes = append(d.Classes, class)
	d.Weights = append(d.Weights, w)
}

// Len is the number of rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Forest is a trained model. Tree i belongs to class i % len(Classes).
type Forest struct {
	Variables []Variable
	Classes   []string
	Options   Options
	Trees     []*Node
}

// Train boosts a forest on d. Rows with a non-positive weight are skipped.
func Train(d *Dataset, variables, classes []string, opts Options, log *zap.Logger) (*Forest, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(classes) < 2 {
		return nil, errors.Errorf("need at least two classes, got %d", len(classes))
	}
	if len(variables) == 0 {
		return nil, errors.New("no training variables")
	}

	var (
		rows    [][]float64
		weights []float64
		labels  []int
		total   float64
	)
	seen := make([]bool, len(classes))
	for i, x := range d.Rows {
		if len(x) != len(variables) {
			return nil, errors.Errorf("row %d has %d values, want %d", i, len(x), len(variables))
		}
		c := d.Classes[i]
		if c < 0 || c >= len(classes) {
			return nil, errors.Errorf("row %d has class %d, only %d classes", i, c, len(classes))
		}
		if d.Weights[i] <= 0 {
			continue
		}
		rows = append(rows, x)
		weights = append(weights, d.Weights[i])
		labels = append(labels, c)
		seen[c] = true
		total += d.Weights[i]
	}
	for c, ok := range seen {
		if !ok {
			return nil, errors.Errorf("class %s has no training events with positive weight", classes[c])
		}
	}

	f := &Forest{
		Variables: make([]Variable, len(variables)),
		Classes:   append([]string(nil), classes...),
		Options:   opts,
	}
	for v, name := range variables {
		f.Variables[v] = Variable{Name: name, Min: math.Inf(1), Max: math.Inf(-1)}
		for _, x := range rows {
			f.Variables[v].Min = math.Min(f.Variables[v].Min, x[v])
			f.Variables[v].Max = math.Max(f.Variables[v].Max, x[v])
		}
	}

	k := len(classes)
	scores := make([][]float64, len(rows))
	for i := range scores {
		scores[i] = make([]float64, k)
	}
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	fit := &fitter{
		rows:     rows,
		weights:  weights,
		resid:    make([]float64, len(rows)),
		cutsFor:  opts.CutsFor,
		maxDepth: opts.MaxDepth,
		minNodeW: opts.MinNodeSize / 100 * total,
		nClasses: k,
	}
	probs := make([][]float64, len(rows))

	for it := 0; it < opts.NTrees; it++ {
		for i, s := range scores {
			probs[i] = softmax(s, probs[i])
		}
		for c := 0; c < k; c++ {
			for i := range rows {
				y := 0.0
				if labels[i] == c {
					y = 1
				}
				fit.resid[i] = y - probs[i][c]
			}
			tree := fit.grow(idx, 0)
			shrink(tree, opts.Shrinkage)
			for i, x := range rows {
				scores[i][c] += tree.Eval(x)
			}
			f.Trees = append(f.Trees, tree)
		}
		if (it+1)%100 == 0 {
			log.Debug("boosting", zap.Int("trees", it+1), zap.Int("of", opts.NTrees))
		}
	}
	return f, nil
}

func shrink(n *Node, s float64) {
	if n.Leaf() {
		n.Value *= s
		return
	}
	shrink(n.Left, s)
	shrink(n.Right, s)
}

func softmax(scores, dst []float64) []float64 {
	if cap(dst) < len(scores) {
		dst = make([]float64, len(scores))
	}
	dst = dst[:len(scores)]
	lse := floats.LogSumExp(scores)
	for i, s := range scores {
		dst[i] = math.Exp(s - lse)
	}
	return dst
}

// NClasses is the number of output classes.
func (f *Forest) NClasses() int {
	return len(f.Classes)
}

// Scores returns the raw boosted score of every class.
func (f *Forest) Scores(x []float64) []float64 {
	k := f.NClasses()
	out := make([]float64, k)
	for i, t := range f.Trees {
		out[i%k] += t.Eval(x)
	}
	return out
}

// Probabilities returns the class probabilities of x.
func (f *Forest) Probabilities(x []float64) []float64 {
	return softmax(f.Scores(x), nil)
}

// Response is the two class discriminant in [-1, 1]; +1 is most like
// class 0.
func (f *Forest) Response(x []float64) float64 {
	return 2*f.Probabilities(x)[0] - 1
}

// Importance is the split gain summed per variable, normalized to one.
func (f *Forest) Importance() []float64 {
	imp := make([]float64, len(f.Variables))
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Leaf() {
			return
		}
		imp[n.Var] += n.Gain
		walk(n.Left)
		walk(n.Right)
	}
	for _, t := range f.Trees {
		walk(t)
	}
	if s := floats.Sum(imp); s > 0 {
		floats.Scale(1/s, imp)
	}
	return imp
}
