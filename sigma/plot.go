package sigma

import (
	"context"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// PlotOpts configures the smoothed/trimmed bar chart.
type PlotOpts struct {
	// YMax caps the y axis.  When zero, the global maximum of smoothed sigma
	// is used.
	YMax float64
	// LocalMaxBins is the number of leading bins the local maximum is taken
	// over.
	LocalMaxBins int
	Title        string
}

// DefaultPlotOpts are the historical chart settings.
var DefaultPlotOpts = PlotOpts{LocalMaxBins: 500}

// PlotScale holds the y-axis reference values of the chart.  A maximum over no
// finite value is NaN.
type PlotScale struct {
	// GlobalMax is the maximum smoothed sigma over all bins.
	GlobalMax float64
	// LocalMax is the maximum smoothed sigma over the leading bins.
	LocalMax float64
	// YMax is the y-axis cap.
	YMax float64
}

func maxFinite(values []float64) float64 {
	vals := finiteValues(values)
	if len(vals) == 0 {
		return math.NaN()
	}
	return floats.Max(vals)
}

// PlotScale computes the y-axis reference values for po.
func (r *Result) PlotScale(po PlotOpts) PlotScale {
	smoothed := make([]float64, len(r.Bins))
	for i := range r.Bins {
		smoothed[i] = r.Bins[i].Smoothed
	}
	local := smoothed
	if po.LocalMaxBins > 0 && po.LocalMaxBins < len(local) {
		local = local[:po.LocalMaxBins]
	}
	ps := PlotScale{GlobalMax: maxFinite(smoothed), LocalMax: maxFinite(local)}
	ps.YMax = ps.GlobalMax
	if po.YMax > 0 {
		ps.YMax = po.YMax
	}
	return ps
}

func barData(bins []Bin, value func(b *Bin) float64) []opts.BarData {
	data := make([]opts.BarData, len(bins))
	for i := range bins {
		v := value(&bins[i])
		if math.IsNaN(v) {
			// echarts draws "-" as a gap.
			data[i] = opts.BarData{Value: "-"}
			continue
		}
		data[i] = opts.BarData{Value: v}
	}
	return data
}

// WritePlot renders smoothed and trimmed sigma per bin as an HTML bar chart.
func WritePlot(ctx context.Context, path string, r *Result, po PlotOpts) (err error) {
	ps := r.PlotScale(po)
	yAxis := opts.YAxis{Name: "sigma", Min: 0}
	if finite(ps.YMax) {
		yAxis.Max = ps.YMax
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: po.Title, Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: po.Title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "bin"}),
		charts.WithYAxisOpts(yAxis),
	)
	x := make([]string, len(r.Bins))
	for i := range r.Bins {
		x[i] = r.Bins[i].Chrom + ":" + strconv.FormatInt(r.Bins[i].Bin, 10)
	}
	bar.SetXAxis(x).
		AddSeries("smoothed_sigma", barData(r.Bins, func(b *Bin) float64 { return b.Smoothed })).
		AddSeries("trimmed_sigma", barData(r.Bins, func(b *Bin) float64 { return b.Trimmed }))
	if finite(ps.LocalMax) {
		bar.SetSeriesOptions(charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{
			Name:  "local max",
			YAxis: ps.LocalMax,
		}))
	}

	w, finish, err := create(ctx, path, false)
	if err != nil {
		return err
	}
	defer func() {
		if e := finish(); e != nil && err == nil {
			err = errors.Wrapf(e, "close %s", path)
		}
	}()
	if err = bar.Render(w); err != nil {
		return errors.Wrapf(err, "render %s", path)
	}
	return nil
}
