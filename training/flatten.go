package training

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/decibelcooper/calratio/plots"
	"github.com/decibelcooper/calratio/reweight"
	"github.com/decibelcooper/calratio/stream"
)

// FlattenBy picks the spectrum a sample is made flat in before training.
type FlattenBy int

const (
	FlattenByJetPt FlattenBy = iota
	FlattenByJetET
	FlattenByNone
)

var flattenNames = []string{"JetPt", "JetET", "None"}

func (f FlattenBy) String() string {
	if f < 0 || int(f) >= len(flattenNames) {
		return fmt.Sprintf("FlattenBy(%d)", int(f))
	}
	return flattenNames[f]
}

// ParseFlattenBy looks a flattening up by name, ignoring case.
func ParseFlattenBy(s string) (FlattenBy, error) {
	for i, n := range flattenNames {
		if strings.EqualFold(n, s) {
			return FlattenBy(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknown, "flattening %q", s)
}

func (f *FlattenBy) UnmarshalText(b []byte) error {
	v, err := ParseFlattenBy(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// value returns the function giving the flattened quantity, nil for None.
func (f FlattenBy) value() (func(Tree) float64, error) {
	switch f {
	case FlattenByJetPt:
		return func(t Tree) float64 { return t.JetPt }, nil
	case FlattenByJetET:
		return func(t Tree) float64 { return t.JetET }, nil
	case FlattenByNone:
		return nil, nil
	}
	return nil, errors.Wrapf(ErrUnknown, "flattening %v", f)
}

// Flatten reweights src to be flat in the quantity picked by by, using the
// jet pT plot binning. The spectrum before and after is saved to dir of out
// as pT<prefix> and pT<prefix>flat; out may be nil. Flattening by None
// hands src back untouched.
func Flatten(src stream.Stream[Tree], by FlattenBy, out *plots.File, dir, prefix string, log *zap.Logger) (stream.Stream[Tree], error) {
	if log == nil {
		log = zap.NewNop()
	}
	value, err := by.value()
	if err != nil {
		return nil, err
	}
	if value == nil {
		log.Info("not reweighting before training", zap.String("sample", prefix))
		return src, nil
	}
	log.Info("reweighting to flatten", zap.Stringer("by", by), zap.String("sample", prefix))

	flat, before, err := reweight.ToFlat(src, plots.JetPt.Binning(), value,
		func(t Tree) float64 { return t.Weight },
		Tree.Reweight,
		reweight.Options{Name: fmt.Sprintf(plots.JetPt.Name, prefix)},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "flattening %s", prefix)
	}
	if out == nil {
		return flat, nil
	}

	after := reweight.NewHistogram(fmt.Sprintf(plots.JetPt.Name, prefix+"flat"), before.Binning)
	err = flat.Each(func(t Tree) error {
		after.Fill(value(t), t.Weight)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "histogramming flattened %s", prefix)
	}
	if err := out.Save(dir, plots.H1Ds(before, after)...); err != nil {
		return nil, err
	}
	return flat, nil
}
