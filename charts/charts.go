// Package charts renders the report datasets as standalone HTML chart files.
package charts

import (
	"io"
	"os"
	"path/filepath"

	echarts "github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"

	"github.com/commercelab/shopetl/analytics"
	"github.com/commercelab/shopetl/hbase"
	"github.com/commercelab/shopetl/mongo"
)

// Renderer writes one HTML file per chart into Dir, creating it on demand.
type Renderer struct {
	Dir string
}

func NewRenderer(dir string) (*Renderer, error) {
	if dir == "" {
		return nil, errors.New("output dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating chart dir")
	}
	return &Renderer{Dir: dir}, nil
}

// TopProducts renders a vertical bar of units sold per product.
func (r *Renderer) TopProducts(rows []mongo.ProductSales) (string, error) {
	names := make([]string, len(rows))
	data := make([]opts.BarData, len(rows))
	for i, row := range rows {
		names[i] = productLabel(row)
		data[i] = opts.BarData{Value: row.TotalQuantity}
	}

	bar := echarts.NewBar()
	bar.SetGlobalOptions(
		echarts.WithTitleOpts(opts.Title{Title: "Top Selling Products", Subtitle: "units sold, completed orders"}),
	)
	bar.SetXAxis(names).AddSeries("units", data)
	return r.render(bar, "top_products.html")
}

// RevenueByCategory renders a horizontal bar, largest revenue on top.
func (r *Renderer) RevenueByCategory(rows []mongo.CategoryRevenue) (string, error) {
	// Built in reverse so the biggest bar lands on top after the axis flip.
	names := make([]string, len(rows))
	data := make([]opts.BarData, len(rows))
	for i, row := range rows {
		j := len(rows) - 1 - i
		names[j] = categoryLabel(row)
		data[j] = opts.BarData{Value: round2(row.TotalRevenue)}
	}

	bar := echarts.NewBar()
	bar.SetGlobalOptions(
		echarts.WithTitleOpts(opts.Title{Title: "Revenue by Category"}),
	)
	bar.SetXAxis(names).AddSeries("revenue", data)
	bar.XYReversal()
	return r.render(bar, "revenue_by_category.html")
}

// Segments renders the customer segment distribution as a pie.
func (r *Renderer) Segments(rows []mongo.UserSegment) (string, error) {
	data := make([]opts.PieData, len(rows))
	for i, row := range rows {
		data[i] = opts.PieData{Name: row.Segment, Value: row.Users}
	}

	pie := echarts.NewPie()
	pie.SetGlobalOptions(
		echarts.WithTitleOpts(opts.Title{Title: "Customer Segments"}),
	)
	pie.AddSeries("users", data)
	return r.render(pie, "customer_segments.html")
}

// MonthlyRevenue renders revenue over calendar months as a line.
func (r *Renderer) MonthlyRevenue(rows []mongo.MonthRevenue) (string, error) {
	months := make([]string, len(rows))
	data := make([]opts.LineData, len(rows))
	for i, row := range rows {
		months[i] = row.Month
		data[i] = opts.LineData{Value: round2(row.Revenue)}
	}

	line := echarts.NewLine()
	line.SetGlobalOptions(
		echarts.WithTitleOpts(opts.Title{Title: "Monthly Revenue", Subtitle: "completed orders"}),
	)
	line.SetXAxis(months).AddSeries("revenue", data)
	return r.render(line, "monthly_revenue.html")
}

// Funnel renders the browse-to-buy stages.
func (r *Renderer) Funnel(f hbase.Funnel) (string, error) {
	data := []opts.FunnelData{
		{Name: "sampled", Value: f.Sampled},
		{Name: "viewed", Value: f.Viewed},
		{Name: "carted", Value: f.Carted},
		{Name: "converted", Value: f.Converted},
	}

	funnel := echarts.NewFunnel()
	funnel.SetGlobalOptions(
		echarts.WithTitleOpts(opts.Title{Title: "Conversion Funnel"}),
	)
	funnel.AddSeries("sessions", data)
	return r.render(funnel, "conversion_funnel.html")
}

// DevicePerformance renders conversion rate by device type and by referrer,
// the two dimensions of one session scan, on a single page.
func (r *Renderer) DevicePerformance(devices, referrers []hbase.ConversionStat) (string, error) {
	page := components.NewPage()
	page.AddCharts(
		conversionBar("Conversion Rate by Device", devices),
		conversionBar("Conversion Rate by Referrer", referrers),
	)
	return r.render(page, "device_referrer_performance.html")
}

func conversionBar(title string, stats []hbase.ConversionStat) *echarts.Bar {
	labels := make([]string, len(stats))
	data := make([]opts.BarData, len(stats))
	for i, s := range stats {
		labels[i] = s.Label
		data[i] = opts.BarData{Value: round2(s.Rate())}
	}

	bar := echarts.NewBar()
	bar.SetGlobalOptions(
		echarts.WithTitleOpts(opts.Title{Title: title, Subtitle: "percent of sampled sessions"}),
	)
	bar.SetXAxis(labels).AddSeries("rate", data)
	return bar
}

// All renders every chart the dashboard data supports and returns the
// written paths.
func (r *Renderer) All(products []mongo.ProductSales, categories []mongo.CategoryRevenue, segments []mongo.UserSegment, months []mongo.MonthRevenue, funnel analytics.FunnelReport, devices, referrers []hbase.ConversionStat) ([]string, error) {
	var paths []string
	steps := []func() (string, error){
		func() (string, error) { return r.TopProducts(products) },
		func() (string, error) { return r.RevenueByCategory(categories) },
		func() (string, error) { return r.Segments(segments) },
		func() (string, error) { return r.MonthlyRevenue(months) },
		func() (string, error) { return r.Funnel(funnel.Stages) },
		func() (string, error) { return r.DevicePerformance(devices, referrers) },
	}
	for _, step := range steps {
		p, err := step()
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

type renderable interface {
	Render(w io.Writer) error
}

func (r *Renderer) render(chart renderable, name string) (string, error) {
	path := filepath.Join(r.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "creating %s", name)
	}
	defer f.Close()

	if err := chart.Render(f); err != nil {
		return "", errors.Wrapf(err, "rendering %s", name)
	}
	return path, nil
}

func productLabel(p mongo.ProductSales) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ProductID
}

func categoryLabel(c mongo.CategoryRevenue) string {
	if c.Name != "" {
		return c.Name
	}
	return c.CategoryID
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}
