package plots

import (
	"image/color"

	"github.com/pkg/errors"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/decibelcooper/calratio/reweight"
)

func lineColor(i int) color.Color {
	switch i % 4 {
	case 1:
		return color.RGBA{G: 255, A: 255}
	case 2:
		return color.RGBA{B: 255, A: 255}
	case 3:
		return color.RGBA{R: 255, B: 127, G: 127, A: 255}
	}
	return color.RGBA{A: 255}
}

func newPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.X.Tick.Marker = PreciseTicks{NSuggestedTicks: 5}
	p.Y.Tick.Marker = PreciseTicks{NSuggestedTicks: 5}
	return p
}

func save(p *plot.Plot, path string) error {
	return errors.Wrapf(p.Save(6*vg.Inch, 4*vg.Inch, path), "saving %s", path)
}

// Draw overlays hs on one plot and saves it to path. The format follows
// the extension (.png, .pdf, .svg, ...). A single histogram gets its
// summary box, several get a legend.
func Draw(path, title, xlabel string, hs ...*reweight.Histogram) error {
	p := newPlot(title, xlabel, "")
	for i, hist := range hs {
		h := hplot.NewH1D(hist.H1D())
		h.LineStyle.Color = lineColor(i)
		if len(hs) == 1 {
			h.Infos.Style = hplot.HInfoSummary
		} else {
			h.Infos.Style = hplot.HInfoNone
			p.Legend.Add(hist.H1D().Name(), h)
		}
		p.Add(h)
	}
	return save(p, path)
}

// Curve is a named line, e.g. one ROC.
type Curve struct {
	Name string
	XYs  plotter.XYs
}

// DrawROC draws signal efficiency against background rejection curves.
func DrawROC(path, title string, curves ...Curve) error {
	p := newPlot(title, "Fractional Signal Efficiency", "Fractional Background Rejection")
	for i, c := range curves {
		l, err := plotter.NewLine(c.XYs)
		if err != nil {
			return errors.Wrapf(err, "curve %s", c.Name)
		}
		l.LineStyle.Color = lineColor(i)
		p.Add(l)
		if len(curves) > 1 {
			p.Legend.Add(c.Name, l)
		}
	}
	return save(p, path)
}
