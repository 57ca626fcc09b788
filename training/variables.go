package training

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/decibelcooper/calratio/mva"
)

// ErrUnknown is returned for variable, preset or flattening names that
// don't exist.
var ErrUnknown = errors.New("unknown name")

// Variable is a training input. The zero value is JetPt; declaration order
// is the order variables are handed to the classifier.
type Variable int

const (
	JetPt Variable = iota
	JetPhi
	CalRatio
	JetEta
	NTracks
	SumPtOfAllTracks
	MaxTrackPt
	JetET
	JetWidth
	JetTrackDR
	EnergyDensity
	HadronicLayer1Fraction
	JetLat
	JetLong
	FirstClusterRadius
	ShowerCenter
	BIBDeltaTimingPlus
	BIBDeltaTimingMinus
	PredictedLxy
	PredictedLz
	InteractionsPerCrossing

	numVariables
)

type variableInfo struct {
	name   string
	column string // field of Tree
	value  func(Tree) float64
}

var variables = [numVariables]variableInfo{
	JetPt:                   {"JetPt", "JetPt", func(t Tree) float64 { return t.JetPt }},
	JetPhi:                  {"JetPhi", "JetPhi", func(t Tree) float64 { return t.JetPhi }},
	CalRatio:                {"CalRatio", "CalRatio", func(t Tree) float64 { return t.CalRatio }},
	JetEta:                  {"JetEta", "JetEta", func(t Tree) float64 { return t.JetEta }},
	NTracks:                 {"NTracks", "NTracks", func(t Tree) float64 { return float64(t.NTracks) }},
	SumPtOfAllTracks:        {"SumPtOfAllTracks", "SumPtOfAllTracks", func(t Tree) float64 { return t.SumPtOfAllTracks }},
	MaxTrackPt:              {"MaxTrackPt", "MaxTrackPt", func(t Tree) float64 { return t.MaxTrackPt }},
	JetET:                   {"JetET", "JetET", func(t Tree) float64 { return t.JetET }},
	JetWidth:                {"JetWidth", "JetWidth", func(t Tree) float64 { return t.JetWidth }},
	JetTrackDR:              {"JetTrackDR", "JetDRTo2GeVTrack", func(t Tree) float64 { return t.JetDRTo2GeVTrack }},
	EnergyDensity:           {"EnergyDensity", "EnergyDensity", func(t Tree) float64 { return t.EnergyDensity }},
	HadronicLayer1Fraction:  {"HadronicLayer1Fraction", "HadronicLayer1Fraction", func(t Tree) float64 { return t.HadronicLayer1Fraction }},
	JetLat:                  {"JetLat", "JetLat", func(t Tree) float64 { return t.JetLat }},
	JetLong:                 {"JetLong", "JetLong", func(t Tree) float64 { return t.JetLong }},
	FirstClusterRadius:      {"FirstClusterRadius", "FirstClusterRadius", func(t Tree) float64 { return t.FirstClusterRadius }},
	ShowerCenter:            {"ShowerCenter", "ShowerCenter", func(t Tree) float64 { return t.ShowerCenter }},
	BIBDeltaTimingPlus:      {"BIBDeltaTimingPlus", "BIBDeltaTimingP", func(t Tree) float64 { return t.BIBDeltaTimingP }},
	BIBDeltaTimingMinus:     {"BIBDeltaTimingMinus", "BIBDeltaTimingM", func(t Tree) float64 { return t.BIBDeltaTimingM }},
	PredictedLxy:            {"PredictedLxy", "PredictedLxy", func(t Tree) float64 { return t.PredictedLxy }},
	PredictedLz:             {"PredictedLz", "PredictedLz", func(t Tree) float64 { return t.PredictedLz }},
	InteractionsPerCrossing: {"InteractionsPerCrossing", "InteractionsPerCrossing", func(t Tree) float64 { return t.InteractionsPerCrossing }},
}

func (v Variable) valid() bool {
	return v >= 0 && v < numVariables
}

func (v Variable) String() string {
	if !v.valid() {
		return "Variable(" + strconv.Itoa(int(v)) + ")"
	}
	return variables[v].name
}

// Column is the name of the Tree field v reads, which is also the name
// the classifier knows it by.
func (v Variable) Column() string {
	if !v.valid() {
		return ""
	}
	return variables[v].column
}

// ParseVariable looks a variable up by name, ignoring case.
func ParseVariable(s string) (Variable, error) {
	for v, info := range variables {
		if strings.EqualFold(info.name, s) {
			return Variable(v), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknown, "training variable %q", s)
}

// UnmarshalText lets variables be used directly as command line options.
func (v *Variable) UnmarshalText(b []byte) error {
	p, err := ParseVariable(string(b))
	if err != nil {
		return err
	}
	*v = p
	return nil
}

// Preset is a named set of training variables.
type Preset int

const (
	Default5pT Preset = iota
	Default5ET
	DefaultAllpT
	DefaultAllET
	Analysis2015pT
	None
)

var presetNames = []string{"Default5pT", "Default5ET", "DefaultAllpT", "DefaultAllET", "Analysis2015pT", "None"}

var analysis2015 = []Variable{
	JetPt, JetPhi, CalRatio, NTracks, SumPtOfAllTracks, MaxTrackPt,
	JetWidth, JetTrackDR, EnergyDensity, HadronicLayer1Fraction, JetLat, JetLong,
	FirstClusterRadius, ShowerCenter, BIBDeltaTimingMinus, BIBDeltaTimingPlus,
}

func (p Preset) String() string {
	if p < 0 || int(p) >= len(presetNames) {
		return "Preset(" + strconv.Itoa(int(p)) + ")"
	}
	return presetNames[p]
}

// Variables lists the members of p.
func (p Preset) Variables() ([]Variable, error) {
	switch p {
	case Default5pT:
		return []Variable{JetPt, CalRatio, NTracks, SumPtOfAllTracks, MaxTrackPt}, nil
	case Default5ET:
		return []Variable{JetET, CalRatio, NTracks, SumPtOfAllTracks, MaxTrackPt}, nil
	case DefaultAllpT:
		return []Variable{
			JetPt, JetPhi, CalRatio, NTracks, SumPtOfAllTracks, MaxTrackPt,
			JetWidth, EnergyDensity, HadronicLayer1Fraction, JetLat, JetLong,
			FirstClusterRadius, ShowerCenter, BIBDeltaTimingMinus, BIBDeltaTimingPlus,
			PredictedLz, PredictedLxy,
		}, nil
	case Analysis2015pT:
		return append([]Variable(nil), analysis2015...), nil
	case DefaultAllET:
		out := append([]Variable(nil), analysis2015...)
		out[0] = JetET
		return out, nil
	case None:
		return nil, nil
	}
	return nil, errors.Wrapf(ErrUnknown, "preset %v", p)
}

// ParsePreset looks a preset up by name, ignoring case.
func ParsePreset(s string) (Preset, error) {
	for p, n := range presetNames {
		if strings.EqualFold(n, s) {
			return Preset(p), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknown, "variable preset %q", s)
}

func (p *Preset) UnmarshalText(b []byte) error {
	v, err := ParsePreset(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Resolve starts from preset, adds add and removes drop. A variable both
// added and dropped is dropped. The result has no duplicates and follows
// declaration order.
func Resolve(preset Preset, add, drop []Variable) ([]Variable, error) {
	base, err := preset.Variables()
	if err != nil {
		return nil, err
	}
	set := map[Variable]bool{}
	for _, vs := range [][]Variable{base, add, drop} {
		for _, v := range vs {
			if !v.valid() {
				return nil, errors.Wrapf(ErrUnknown, "training variable %d", int(v))
			}
		}
	}
	for _, v := range base {
		set[v] = true
	}
	for _, v := range add {
		set[v] = true
	}
	for _, v := range drop {
		delete(set, v)
	}

	out := make([]Variable, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Columns is the classifier schema for vars.
func Columns(vars []Variable) []mva.Column[Tree] {
	cols := make([]mva.Column[Tree], 0, len(vars))
	for _, v := range vars {
		if !v.valid() {
			continue
		}
		cols = append(cols, mva.Column[Tree]{Name: v.Column(), Value: variables[v].value})
	}
	return cols
}

// AllColumns is the schema holding every variable, used to evaluate a
// weight file whatever it was trained on.
func AllColumns() []mva.Column[Tree] {
	vars := make([]Variable, numVariables)
	for i := range vars {
		vars[i] = Variable(i)
	}
	return Columns(vars)
}
