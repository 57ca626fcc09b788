package mva

import (
	"github.com/pkg/errors"

	"github.com/decibelcooper/calratio/bdt"
)

// Reader evaluates a trained model on records.
type Reader[T any] struct {
	forest  *bdt.Forest
	columns []Column[T]
}

// NewReader loads weightFile. columns must provide every variable of the
// model; they are matched by name, so their order doesn't matter.
func NewReader[T any](weightFile string, columns []Column[T]) (*Reader[T], error) {
	f, err := bdt.Load(weightFile)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]Column[T], len(columns))
	for _, c := range columns {
		byName[c.Name] = c
	}
	r := &Reader[T]{forest: f, columns: make([]Column[T], len(f.Variables))}
	for i, v := range f.Variables {
		c, ok := byName[v.Name]
		if !ok {
			return nil, errors.Wrapf(ErrBadConfig, "%s needs variable %s", weightFile, v.Name)
		}
		r.columns[i] = c
	}
	return r, nil
}

// Classes lists the class names of the model, by index.
func (r *Reader[T]) Classes() []string {
	return r.forest.Classes
}

// Variables lists the model inputs, in order.
func (r *Reader[T]) Variables() []string {
	return Names(r.columns)
}

func (r *Reader[T]) row(rec T) []float64 {
	x := make([]float64, len(r.columns))
	for i, c := range r.columns {
		x[i] = c.Value(rec)
	}
	return x
}

// Value is the two class response in [-1, 1], +1 being most like class 0.
func (r *Reader[T]) Value(rec T) float64 {
	return r.forest.Response(r.row(rec))
}

// Probabilities returns the probability of every class.
func (r *Reader[T]) Probabilities(rec T) []float64 {
	return r.forest.Probabilities(r.row(rec))
}

// ClassValue returns the probability of class.
func (r *Reader[T]) ClassValue(rec T, class int) (float64, error) {
	if class < 0 || class >= r.forest.NClasses() {
		return 0, errors.Wrapf(ErrClassIndex, "class %d, model has %d", class, r.forest.NClasses())
	}
	return r.Probabilities(rec)[class], nil
}

// Func returns the probability of class as a plain function, checking the
// index once.
func (r *Reader[T]) Func(class int) (func(T) float64, error) {
	if class < 0 || class >= r.forest.NClasses() {
		return nil, errors.Wrapf(ErrClassIndex, "class %d, model has %d", class, r.forest.NClasses())
	}
	return func(rec T) float64 { return r.Probabilities(rec)[class] }, nil
}
