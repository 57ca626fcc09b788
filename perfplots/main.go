// Command perfplots compares signal and multijet jets in the simple cut
// variables, CalRatio and track count: spectra, cumulative efficiencies,
// ROC curves and s/sqrt(b), overall and in slices of jet pT.
package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/decibelcooper/calratio"
	"github.com/decibelcooper/calratio/jets"
	"github.com/decibelcooper/calratio/plots"
	"github.com/decibelcooper/calratio/reweight"
	"github.com/decibelcooper/calratio/samples"
	"github.com/decibelcooper/calratio/stream"
)

type args struct {
	calratio.CommonOptions

	Sample           []string `arg:"--sample" help:"signal sample nicknames; every mc15c hss signal sample when empty"`
	BackgroundEvents int      `arg:"--BackgroundEvents" help:"multijet jets to use (-1 is the default)"`

	BackRejection    []calratio.Fraction `arg:"--back-rejection" help:"background rejections to report the CalR cut for"`
	SignalEfficiency []calratio.Fraction `arg:"--sig-eff" help:"signal efficiencies to report the CalR cut for"`

	PNGDir  string `arg:"--png-dir" help:"also draw the main plots into this directory"`
	Output  string `arg:"-o,--output" help:"ROOT output file"`
	Verbose bool   `arg:"-v,--verbose" help:"debug logging"`
}

func defaultArgs() args {
	return args{
		CommonOptions:    calratio.DefaultCommonOptions(),
		BackgroundEvents: -1,
		BackRejection:    []calratio.Fraction{0.999, 0.99, 0.95, 0.9},
		SignalEfficiency: []calratio.Fraction{0.1, 0.2, 0.3, 0.4, 0.5},
		Output:           "GenericPerformancePlots.root",
	}
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
		log.Fatal("performance plots failed", zap.Error(err))
	}
}

func run(ctx context.Context, a args, log *zap.Logger) (err error) {
	c, err := calratio.NewContext(a.CommonOptions, log)
	if err != nil {
		return err
	}

	var ms []samples.MetaData
	if len(a.Sample) == 0 {
		ms = c.Catalog.WithTags("mc15c", "signal", "hss")
	} else {
		for _, name := range a.Sample {
			m, err := c.Catalog.Find(name)
			if err != nil {
				return err
			}
			ms = append(ms, m)
		}
	}
	signals, err := c.Sources(ctx, ms, c.NFiles, false, nil)
	if err != nil {
		return errors.Wrap(err, "signal samples")
	}
	background, err := c.Multijet(ctx, a.Events(a.BackgroundEvents, 20000))
	if err != nil {
		return err
	}

	out, err := plots.Create(a.Output)
	if err != nil {
		return err
	}
	defer calratio.Close(out, a.Output, &err)

	s := &study{
		out:        out,
		pngDir:     a.PNGDir,
		rejections: calratio.Floats(a.BackRejection),
		effs:       calratio.Floats(a.SignalEfficiency),
		log:        log,
	}
	for _, sig := range signals {
		if err := s.sample(sig.Name, sig.Events, background); err != nil {
			return errors.Wrapf(err, "sample %s", sig.Name)
		}
	}
	return nil
}

// variable is a single jet quantity one can cut on.
type variable struct {
	name  string
	spec  plots.Spec
	value func(jets.Record) float64
}

var (
	calR = variable{"CalR", plots.CalR, func(r jets.Record) float64 { return r.Jet.LogRatio }}
	nTrk = variable{"Ntrk", plots.NTracks, func(r jets.Record) float64 { return float64(len(r.Tracks)) }}

	jetPt  = variable{"pT", plots.JetPt, func(r jets.Record) float64 { return r.Jet.PT }}
	jetEta = variable{"eta", plots.JetEta, func(r jets.Record) float64 { return r.Jet.Eta }}
)

func weight(r jets.Record) float64 { return r.Weight() }

func and(a, b func(jets.Record) bool) func(jets.Record) bool {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(r jets.Record) bool { return a(r) && b(r) }
}

func hasLLP(r jets.Record) bool { return r.Jet.LLP != nil }

func llpInCal(r jets.Record) bool { return jets.LLPInCalorimeter(r.Jet) }

// comparison books one variable for signal and background jets.
type comparison struct {
	name string
	dir  string

	spectra   []*reweight.Histogram
	sig, back *reweight.Histogram
}

func bookComparison(sigB, backB *stream.Batch[jets.Record], dir, name string, v variable, keepSig, keepBack func(jets.Record) bool) *comparison {
	c := &comparison{name: name, dir: dir}
	for _, k := range []variable{jetPt, jetEta} {
		c.spectra = append(c.spectra,
			plots.BookWhere(sigB, k.spec, name+"_sig", keepSig, k.value, weight),
			plots.BookWhere(backB, k.spec, name+"_back", keepBack, k.value, weight),
		)
	}
	c.sig = plots.Rename(plots.BookWhere(sigB, v.spec, "eff_sig", keepSig, v.value, weight), name+"_sig")
	c.back = plots.Rename(plots.BookWhere(backB, v.spec, "eff_back", keepBack, v.value, weight), name+"_back")
	return c
}

// efficiencies are the cumulative curves of a finished comparison. The
// signal efficiency counts jets at or above a cut, the background
// rejection those below it.
type efficiencies struct {
	sig, back *reweight.Histogram
	roc       plots.Curve
}

func (c *comparison) finish(out *plots.File) (efficiencies, error) {
	e := efficiencies{
		sig:  plots.Cumulative(c.sig, c.name+"_sigrtback_sig", true),
		back: plots.Cumulative(c.back, c.name+"_sigrtback_back", false),
	}
	sb, err := plots.Significance(e.sig, e.back, c.name+"_sigrtback")
	if err != nil {
		return e, err
	}
	xys, err := plots.ROC(e.sig, e.back)
	if err != nil {
		return e, err
	}
	e.roc = plots.Curve{Name: c.name, XYs: xys}

	hs := append(append([]*reweight.Histogram(nil), c.spectra...), c.sig, c.back, e.sig, e.back, sb)
	if err := out.Save(c.dir, plots.H1Ds(hs...)...); err != nil {
		return e, err
	}
	return e, out.SaveCurve(c.dir, c.name+"_roc", "ROC for "+c.name, xys)
}

// series books a variable for all signal jets, those with an LLP and
// those whose LLP decayed in the calorimeter. The last one is the one
// cuts are quoted for.
func series(sigB, backB *stream.Batch[jets.Record], dir string, v variable, keep func(jets.Record) bool) []*comparison {
	return []*comparison{
		bookComparison(sigB, backB, dir, v.name, v, keep, keep),
		bookComparison(sigB, backB, dir, v.name+"LLPJ", v, and(keep, hasLLP), keep),
		bookComparison(sigB, backB, dir, v.name+"LLPJCal", v, and(keep, llpInCal), keep),
	}
}

func basicPlots(b *stream.Batch[jets.Record], tag string) []*reweight.Histogram {
	return []*reweight.Histogram{
		plots.Book(b, plots.JetPt, tag, jetPt.value, weight),
		plots.Book(b, plots.JetEta, tag, jetEta.value, weight),
		plots.Book(b, plots.JetPhi, tag, func(r jets.Record) float64 { return r.Jet.Phi }, weight),
		plots.Book(b, plots.CalR, tag, calR.value, weight),
		plots.Book(b, plots.NTracks, tag, nTrk.value, weight),
		plots.Book(b, plots.SumTrackPt, tag, func(r jets.Record) float64 { return sumPt(r.AllTracks) }, weight),
		plots.Book(b, plots.MaxTrackPt, tag, func(r jets.Record) float64 { return maxPt(r.AllTracks) }, weight),
	}
}

func sumPt(ts []jets.Track) float64 {
	s := 0.0
	for _, t := range ts {
		s += t.PT
	}
	return s
}

func maxPt(ts []jets.Track) float64 {
	m := 0.0
	for _, t := range ts {
		if t.PT > m {
			m = t.PT
		}
	}
	return m
}

// cutCount is the weighted fraction of jets passing jets.IsCalRatioJet.
type cutCount struct {
	all, pass float64
}

func (c *cutCount) add(r jets.Record) {
	w := r.Weight()
	c.all += w
	if jets.IsCalRatioJet(r) {
		c.pass += w
	}
}

func (c *cutCount) eff() float64 {
	if c.all == 0 {
		return 0
	}
	return c.pass / c.all
}

// study runs the comparisons of one signal sample against the background.
type study struct {
	out        *plots.File
	pngDir     string
	rejections []float64
	effs       []float64
	log        *zap.Logger
}

type region struct {
	dir  string
	pt   jets.PtRegion
	cals []*comparison
	trks []*comparison
}

func (s *study) sample(name string, signal, background stream.Stream[jets.Record]) error {
	sigB, backB := stream.NewBatch(signal), stream.NewBatch(background)

	var nSig, nBack int
	sigB.Add(func(jets.Record) { nSig++ })
	backB.Add(func(jets.Record) { nBack++ })
	sigCut, backCut := &cutCount{}, &cutCount{}
	sigB.Add(sigCut.add)
	backB.Add(backCut.add)

	basicSig := basicPlots(sigB, "all")
	basicBack := basicPlots(backB, "all")
	llp := []*reweight.Histogram{
		plots.BookWhere(sigB, plots.LLPLxy, "JetMatched", hasLLP, func(r jets.Record) float64 { return r.Jet.LLP.Lxy / 1000 }, nil),
		plots.BookWhere(sigB, plots.LLPLxy, "InCal", llpInCal, func(r jets.Record) float64 { return r.Jet.LLP.Lxy / 1000 }, nil),
	}

	cals := series(sigB, backB, name+"/sigrtbackCalR", calR, nil)
	trks := series(sigB, backB, name+"/sigrtbackNTrk", nTrk, nil)

	var regions []region
	for _, pt := range jets.PtRegions {
		pt := pt
		inRegion := func(r jets.Record) bool { return r.Jet.PT >= pt.Low && r.Jet.PT < pt.High }
		dir := fmt.Sprintf("%s/sigrtback_%g_%g", name, pt.Low, pt.High)
		regions = append(regions, region{
			dir:  dir,
			pt:   pt,
			cals: series(sigB, backB, dir, calR, inRegion),
			trks: series(sigB, backB, dir, nTrk, inRegion),
		})
	}

	if err := sigB.Run(); err != nil {
		return errors.Wrap(err, "reading signal")
	}
	if err := backB.Run(); err != nil {
		return errors.Wrap(err, "reading background")
	}
	s.log.Info("sample read",
		zap.String("sample", name),
		zap.String("signal_jets", humanize.Comma(int64(nSig))),
		zap.String("background_jets", humanize.Comma(int64(nBack))),
	)
	s.log.Info("standard CalRatio cut",
		zap.String("sample", name),
		zap.Float64("log_ratio_cut", jets.LogRatioCut),
		zap.Float64("sig_eff", sigCut.eff()),
		zap.Float64("back_eff", backCut.eff()),
	)

	if err := s.out.Save(name+"/signal", plots.H1Ds(basicSig...)...); err != nil {
		return err
	}
	if err := s.out.Save(name+"/background", plots.H1Ds(basicBack...)...); err != nil {
		return err
	}
	if err := s.out.Save(name+"/signalLLP", plots.H1Ds(llp...)...); err != nil {
		return err
	}

	var curves []plots.Curve
	for _, c := range append(cals, trks...) {
		e, err := c.finish(s.out)
		if err != nil {
			return err
		}
		curves = append(curves, e.roc)
	}
	for _, r := range regions {
		for _, c := range r.trks {
			if _, err := c.finish(s.out); err != nil {
				return err
			}
		}
		var last efficiencies
		for _, c := range r.cals {
			e, err := c.finish(s.out)
			if err != nil {
				return err
			}
			last = e
		}
		s.report(name, r.pt, last)
	}

	if s.pngDir == "" {
		return nil
	}
	base := filepath.Join(s.pngDir, name)
	if err := plots.Draw(base+"_CalR.png", "CalR for "+name, plots.CalR.XLabel, cals[0].sig, cals[0].back); err != nil {
		return err
	}
	if err := plots.Draw(base+"_Ntrk.png", "Track count for "+name, plots.NTracks.XLabel, trks[0].sig, trks[0].back); err != nil {
		return err
	}
	return plots.DrawROC(base+"_roc.png", "ROC for "+name, curves...)
}

// report logs the CalR cuts reaching the requested background rejections
// and signal efficiencies in one pT region.
func (s *study) report(name string, pt jets.PtRegion, e efficiencies) {
	log := s.log.With(zap.String("sample", name), zap.Float64("pt_low", pt.Low), zap.Float64("pt_high", pt.High))
	for _, rej := range s.rejections {
		cut, ok := plots.CutFor(e.back, rej, false)
		if !ok {
			log.Info("background rejection not reached", zap.Float64("rejection", rej))
			continue
		}
		log.Info("cut for background rejection",
			zap.Float64("rejection", rej),
			zap.Float64("cut", cut),
			zap.Float64("sig_eff", plots.ValueAt(e.sig, cut)),
		)
	}
	for _, eff := range s.effs {
		cut, ok := plots.CutFor(e.sig, eff, true)
		if !ok {
			log.Info("signal efficiency not reached", zap.Float64("sig_eff", eff))
			continue
		}
		log.Info("cut for signal efficiency",
			zap.Float64("sig_eff", eff),
			zap.Float64("cut", cut),
			zap.Float64("rejection", plots.ValueAt(e.back, cut)),
		)
	}
}
