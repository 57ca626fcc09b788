package calratio

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/decibelcooper/calratio/jets"
	"github.com/decibelcooper/calratio/samples"
	"github.com/decibelcooper/calratio/stream"
)

// Catalog tags of the standard samples.
var (
	SignalTags   = []string{"mc15c", "signal", "train", "hss"}
	MultijetTags = []string{"mc15c", "jz"}
)

// ErrUnknownEpoch is returned when parsing a data taking period fails.
var ErrUnknownEpoch = errors.New("unknown data epoch")

// DataEpoch is a data taking year.
type DataEpoch int

const (
	Data15 DataEpoch = iota
	Data16
)

func (e DataEpoch) String() string {
	switch e {
	case Data15:
		return "data15"
	case Data16:
		return "data16"
	}
	return "data??"
}

func (e *DataEpoch) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "data15", "15":
		*e = Data15
	case "data16", "16":
		*e = Data16
	default:
		return errors.Wrapf(ErrUnknownEpoch, "%q", b)
	}
	return nil
}

// Short is the name used for the epoch's BIB class sample, bib15 or bib16.
func (e DataEpoch) Short() string {
	return "bib" + strings.TrimPrefix(e.String(), "data")
}

// EventFilter narrows the events of a sample before jets are picked.
type EventFilter func(stream.Stream[jets.Event]) stream.Stream[jets.Event]

// Sources resolves ms and builds one stream of good jets per sample. MC
// samples get their cross-section weight when weighted is set; otherwise
// every jet starts at weight one.
func (c *Context) Sources(ctx context.Context, ms []samples.MetaData, nFiles int, weighted bool, filter EventFilter) ([]samples.Source[jets.Record], error) {
	if len(ms) == 0 {
		return nil, samples.ErrNoSources
	}
	files, err := c.Fetch(ctx, ms, nFiles)
	if err != nil {
		return nil, err
	}

	out := make([]samples.Source[jets.Record], 0, len(ms))
	for _, m := range ms {
		events := jets.Ntuple(files[m.Name]...)
		if filter != nil {
			events = filter(events)
		}
		w := 1.0
		if weighted {
			w = m.XSectionWeight(jets.Luminosity)
		}
		c.Log.Debug("sample source",
			zap.String("sample", m.NickName),
			zap.Int("files", len(files[m.Name])),
			zap.Float64("xsec_weight", w),
		)
		out = append(out, samples.Source[jets.Record]{
			Name:         m.NickName,
			CrossSection: m.CrossSection,
			Events:       jets.GoodJets(events, w, c.Cuts),
		})
	}
	return out, nil
}

func concatSources(srcs []samples.Source[jets.Record]) stream.Stream[jets.Record] {
	parts := make([]stream.Stream[jets.Record], len(srcs))
	for i, s := range srcs {
		parts[i] = s.Events
	}
	return stream.Concat(parts...)
}

// Signal builds the signal jets: samples carrying tags, jets matched to an
// LLP that decayed beyond the inner signal distance and passing cut. total
// is split evenly over the samples; a negative total keeps every jet.
func (c *Context) Signal(ctx context.Context, total int, cut jets.DecayCut, tags ...string) (stream.Stream[jets.Record], error) {
	if len(tags) == 0 {
		tags = SignalTags
	}
	ms := c.Catalog.WithTags(tags...)
	if !c.Full && len(ms) > 2 {
		ms = ms[:2]
	}
	srcs, err := c.Sources(ctx, ms, c.files(2), false, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "signal samples %v", tags)
	}
	for i := range srcs {
		srcs[i].Events = jets.FilterSignal(srcs[i].Events, jets.InnerDistanceForSignalLLPDecay)
		if !cut.IsZero() {
			srcs[i].Events = cut.Filter(srcs[i].Events)
		}
	}
	if total < 0 {
		return concatSources(srcs), nil
	}
	return samples.TakeEvenly(srcs, total, samples.EvenOptions{})
}

// Multijet builds the cross-section weighted QCD background, taking the
// same fraction of each JZ slice so that about total jets come out. A
// negative total keeps every jet. Outside full dataset mode only the
// first slice is used.
func (c *Context) Multijet(ctx context.Context, total int, tags ...string) (stream.Stream[jets.Record], error) {
	if len(tags) == 0 {
		tags = MultijetTags
	}
	ms := c.Catalog.WithTags(tags...)
	if !c.Full && len(ms) > 1 {
		ms = ms[:1]
	}
	srcs, err := c.Sources(ctx, ms, c.NFiles, true, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "multijet samples %v", tags)
	}
	if total < 0 {
		return concatSources(srcs), nil
	}
	return samples.TakeProportionally(srcs, total)
}

// maxBIBSamples caps the number of data runs read outside full mode.
const maxBIBSamples = 20

// BIB builds beam induced background jets from the data runs of epoch
// that fired the BIB trigger. total is split evenly over the runs; a
// negative total keeps every jet. Extra tags narrow the runs further.
func (c *Context) BIB(ctx context.Context, epoch DataEpoch, total int, tags ...string) (stream.Stream[jets.Record], error) {
	ms := c.Catalog.WithTags(append([]string{epoch.String()}, tags...)...)
	srcs, err := c.Sources(ctx, ms, c.files(14), false, jets.BeamHalo)
	if err != nil {
		return nil, errors.Wrapf(err, "%s samples", epoch)
	}
	if total < 0 {
		return concatSources(srcs), nil
	}
	opts := samples.EvenOptions{}
	if !c.Full {
		opts.MaxSources = maxBIBSamples
	}
	return samples.TakeEvenly(srcs, total, opts)
}

// FromFiles reads good jets straight from ntuple files, bypassing the
// catalog.
func (c *Context) FromFiles(paths ...string) stream.Stream[jets.Record] {
	return jets.GoodJets(jets.Ntuple(paths...), 1, c.Cuts)
}
