// Package mva drives classifier trainings on typed record streams and reads
// the trained models back.
//
// Variables are declared explicitly as named columns, so the set of inputs
// of a training is fixed when the Training is set up:
//
//	t := mva.NewTraining[training.Tree](".", log)
//	t.Signal(sig, isTrain, "LLP jets").
//		AddClass("Multijet", qcd, isTrain, "QCD").
//		UseVariables(training.Columns(vars)...)
//	t.AddMethod(mva.BDT, "BDT", "NTrees=200")
//	res, err := t.Train("JetMVAClassifier")
package mva

import (
	"fmt"

	"github.com/pkg/errors"
)

// Column is one named input of a classifier.
type Column[T any] struct {
	Name  string
	Value func(T) float64
}

// Names lists the column names in order.
func Names[T any](cols []Column[T]) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

// Kind is a classifier algorithm.
type Kind string

const BDT Kind = "BDT"

// SignalClass is the name given to samples added with Signal.
const SignalClass = "Signal"

// BackgroundClass is the name given to samples added with Background.
const BackgroundClass = "Background"

var (
	ErrAlreadyTrained = errors.New("training was already run")
	ErrNotTrained     = errors.New("training has not been run")
	ErrBadConfig      = errors.New("bad training configuration")
	ErrClassIndex     = errors.New("class index out of range")
)

// State is where a Training is in its life.
type State int

const (
	Configured State = iota
	VariablesBound
	SamplesWritten
	Trained
	Evaluated
)

func (s State) String() string {
	switch s {
	case Configured:
		return "Configured"
	case VariablesBound:
		return "VariablesBound"
	case SamplesWritten:
		return "SamplesWritten"
	case Trained:
		return "Trained"
	case Evaluated:
		return "Evaluated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}
