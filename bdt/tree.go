package bdt

import (
	"math"
)

// Node is one node of a regression tree. Leaves have Var < 0.
type Node struct {
	Var   int
	Cut   float64
	Value float64
	Gain  float64

	// Records with x[Var] > Cut go Right.
	Left, Right *Node
}

// Leaf reports whether n is terminal.
func (n *Node) Leaf() bool {
	return n.Var < 0
}

// Eval walks x down to its leaf.
func (n *Node) Eval(x []float64) float64 {
	for !n.Leaf() {
		if x[n.Var] > n.Cut {
			n = n.Right
		} else {
			n = n.Left
		}
	}
	return n.Value
}

// Depth of the deepest leaf below n.
func (n *Node) Depth() int {
	if n.Leaf() {
		return 0
	}
	l, r := n.Left.Depth(), n.Right.Depth()
	if l > r {
		return l + 1
	}
	return r + 1
}

// fitter grows one regression tree on the gradients of one class.
type fitter struct {
	rows    [][]float64
	weights []float64
	resid   []float64

	cutsFor  func(v int) int
	maxDepth int
	minNodeW float64
	nClasses int
}

type split struct {
	v    int
	cut  float64
	gain float64
}

func (f *fitter) grow(idx []int, depth int) *Node {
	if depth < f.maxDepth {
		if s, ok := f.bestSplit(idx); ok {
			var left, right []int
			for _, i := range idx {
				if f.rows[i][s.v] > s.cut {
					right = append(right, i)
				} else {
					left = append(left, i)
				}
			}
			if len(left) > 0 && len(right) > 0 {
				return &Node{
					Var:   s.v,
					Cut:   s.cut,
					Gain:  s.gain,
					Left:  f.grow(left, depth+1),
					Right: f.grow(right, depth+1),
				}
			}
		}
	}
	return &Node{Var: -1, Value: f.leafValue(idx)}
}

// leafValue is the Newton step of the multinomial deviance.
func (f *fitter) leafValue(idx []int) float64 {
	var num, den float64
	for _, i := range idx {
		r := f.resid[i]
		num += f.weights[i] * r
		den += f.weights[i] * math.Abs(r) * (1 - math.Abs(r))
	}
	if den < 1e-12 {
		return 0
	}
	k := float64(f.nClasses)
	return (k - 1) / k * num / den
}

type cutStats struct {
	w, wr float64
}

func (f *fitter) bestSplit(idx []int) (split, bool) {
	var tot cutStats
	for _, i := range idx {
		tot.w += f.weights[i]
		tot.wr += f.weights[i] * f.resid[i]
	}
	if tot.w < 2*f.minNodeW || tot.w <= 0 {
		return split{}, false
	}
	parent := tot.wr * tot.wr / tot.w

	best := split{gain: 0}
	found := false
	nVars := len(f.rows[idx[0]])
	for v := 0; v < nVars; v++ {
		nCuts := f.cutsFor(v)
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, i := range idx {
			x := f.rows[i][v]
			lo = math.Min(lo, x)
			hi = math.Max(hi, x)
		}
		if !(hi > lo) {
			continue
		}
		step := (hi - lo) / float64(nCuts+1)

		bins := make([]cutStats, nCuts+1)
		for _, i := range idx {
			// bin b holds the values above exactly b of the cuts
			b := int(math.Ceil((f.rows[i][v]-lo)/step)) - 1
			if b < 0 {
				b = 0
			}
			if b > nCuts {
				b = nCuts
			}
			bins[b].w += f.weights[i]
			bins[b].wr += f.weights[i] * f.resid[i]
		}

		var left cutStats
		for c := 0; c < nCuts; c++ {
			left.w += bins[c].w
			left.wr += bins[c].wr
			right := cutStats{w: tot.w - left.w, wr: tot.wr - left.wr}
			if left.w < f.minNodeW || right.w < f.minNodeW || left.w <= 0 || right.w <= 0 {
				continue
			}
			gain := left.wr*left.wr/left.w + right.wr*right.wr/right.w - parent
			if gain > best.gain {
				best = split{v: v, cut: lo + float64(c+1)*step, gain: gain}
				found = true
			}
		}
	}
	return best, found
}
