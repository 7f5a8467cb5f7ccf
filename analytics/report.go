// Package analytics builds the cross-store reports: lifetime value from the
// document store, funnel conversion from the session table, and the combined
// dashboard.
package analytics

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/commercelab/shopetl/hbase"
	"github.com/commercelab/shopetl/mongo"
)

// DocStore is the slice of the document store the reports read from.
type DocStore interface {
	TopSellingProducts(ctx context.Context, limit int) ([]mongo.ProductSales, error)
	RevenueByCategory(ctx context.Context) ([]mongo.CategoryRevenue, error)
	UserSegments(ctx context.Context) ([]mongo.UserSegment, error)
	MonthlyRevenue(ctx context.Context) ([]mongo.MonthRevenue, error)
	UserSpend(ctx context.Context, limit int) ([]mongo.UserSpend, error)
}

var _ DocStore = (*mongo.Store)(nil)

// SessionStore is the slice of the wide-column query layer the reports use.
type SessionStore interface {
	DeviceCounts(ctx context.Context, sampleSize int) ([]hbase.DeviceCount, int, error)
	FunnelStages(ctx context.Context, sampleSize int) (hbase.Funnel, error)
}

var _ SessionStore = (*hbase.Table)(nil)

// LifetimeValue is one customer's spending profile.
type LifetimeValue struct {
	UserID     string
	Orders     int
	TotalSpent float64
	AvgOrder   float64
	Tier       string
	FirstOrder string
	LastOrder  string
}

// Lifetime-value tier thresholds on the CLV score (avg order x order count).
const (
	tierPlatinum = 1000.0
	tierGold     = 500.0
	tierSilver   = 100.0
)

func tier(score float64) string {
	switch {
	case score >= tierPlatinum:
		return "Platinum"
	case score >= tierGold:
		return "Gold"
	case score >= tierSilver:
		return "Silver"
	default:
		return "Bronze"
	}
}

// CustomerLifetimeValue returns the top customers by completed-order spend.
func CustomerLifetimeValue(ctx context.Context, docs DocStore, topN int) ([]LifetimeValue, error) {
	spend, err := docs.UserSpend(ctx, topN)
	if err != nil {
		return nil, errors.Wrap(err, "computing lifetime value")
	}
	out := make([]LifetimeValue, len(spend))
	for i, s := range spend {
		lv := LifetimeValue{
			UserID:     s.UserID,
			Orders:     s.Orders,
			TotalSpent: s.TotalSpent,
			FirstOrder: s.FirstOrder,
			LastOrder:  s.LastOrder,
		}
		if s.Orders > 0 {
			lv.AvgOrder = s.TotalSpent / float64(s.Orders)
		}
		lv.Tier = tier(lv.AvgOrder * float64(s.Orders))
		out[i] = lv
	}
	return out, nil
}

// FunnelReport is the stage counts plus step-to-step conversion rates.
type FunnelReport struct {
	Stages hbase.Funnel

	// Rates are relative to the previous stage, in percent.
	ViewRate       float64
	CartRate       float64
	ConversionRate float64
	// OverallRate is converted over sampled, in percent.
	OverallRate float64
}

// FunnelConversion samples the session table and derives conversion rates.
func FunnelConversion(ctx context.Context, sessions SessionStore, sampleSize int) (FunnelReport, error) {
	f, err := sessions.FunnelStages(ctx, sampleSize)
	if err != nil {
		return FunnelReport{}, errors.Wrap(err, "sampling funnel")
	}
	r := FunnelReport{Stages: f}
	r.ViewRate = pct(f.Viewed, f.Sampled)
	r.CartRate = pct(f.Carted, f.Viewed)
	r.ConversionRate = pct(f.Converted, f.Carted)
	r.OverallRate = pct(f.Converted, f.Sampled)
	return r, nil
}

func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// DashboardConfig bounds the dashboard's queries.
type DashboardConfig struct {
	TopProducts  int
	TopCustomers int
	SampleSize   int
}

var DefaultDashboardConfig = DashboardConfig{
	TopProducts:  10,
	TopCustomers: 10,
	SampleSize:   10000,
}

// Dashboard writes the combined report to w: sales aggregates from the
// document store, then session behavior from the wide-column sample.
func Dashboard(ctx context.Context, docs DocStore, sessions SessionStore, cfg DashboardConfig, w io.Writer) error {
	products, err := docs.TopSellingProducts(ctx, cfg.TopProducts)
	if err != nil {
		return errors.Wrap(err, "top products")
	}
	categories, err := docs.RevenueByCategory(ctx)
	if err != nil {
		return errors.Wrap(err, "revenue by category")
	}
	segments, err := docs.UserSegments(ctx)
	if err != nil {
		return errors.Wrap(err, "user segments")
	}
	months, err := docs.MonthlyRevenue(ctx)
	if err != nil {
		return errors.Wrap(err, "monthly revenue")
	}
	clv, err := CustomerLifetimeValue(ctx, docs, cfg.TopCustomers)
	if err != nil {
		return err
	}
	devices, sampled, err := sessions.DeviceCounts(ctx, cfg.SampleSize)
	if err != nil {
		return errors.Wrap(err, "device counts")
	}
	funnel, err := FunnelConversion(ctx, sessions, cfg.SampleSize)
	if err != nil {
		return err
	}

	section(w, "TOP SELLING PRODUCTS")
	tw := newTable(w)
	fmt.Fprintln(tw, "PRODUCT\tNAME\tQTY\tREVENUE\tORDERS")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%d\n", p.ProductID, p.Name, p.TotalQuantity, p.TotalRevenue, p.Orders)
	}
	tw.Flush()

	section(w, "REVENUE BY CATEGORY")
	tw = newTable(w)
	fmt.Fprintln(tw, "CATEGORY\tNAME\tREVENUE\tUNITS")
	for _, c := range categories {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%d\n", c.CategoryID, c.Name, c.TotalRevenue, c.UnitsSold)
	}
	tw.Flush()

	section(w, "CUSTOMER SEGMENTS")
	tw = newTable(w)
	fmt.Fprintln(tw, "SEGMENT\tUSERS\tAVG SPENT\tAVG ORDERS")
	for _, s := range segments {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.1f\n", s.Segment, s.Users, s.AvgSpent, s.AvgOrders)
	}
	tw.Flush()

	section(w, "MONTHLY REVENUE")
	tw = newTable(w)
	fmt.Fprintln(tw, "MONTH\tREVENUE\tORDERS")
	for _, m := range months {
		fmt.Fprintf(tw, "%s\t%.2f\t%d\n", m.Month, m.Revenue, m.Orders)
	}
	tw.Flush()

	section(w, "TOP CUSTOMERS")
	tw = newTable(w)
	fmt.Fprintln(tw, "USER\tORDERS\tTOTAL\tAVG ORDER\tTIER")
	for _, c := range clv {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%s\n", c.UserID, c.Orders, c.TotalSpent, c.AvgOrder, c.Tier)
	}
	tw.Flush()

	section(w, fmt.Sprintf("DEVICES (sample of %d sessions)", sampled))
	tw = newTable(w)
	fmt.Fprintln(tw, "DEVICE\tSESSIONS")
	for _, d := range devices {
		fmt.Fprintf(tw, "%s\t%d\n", d.Device, d.Count)
	}
	tw.Flush()

	section(w, "CONVERSION FUNNEL")
	tw = newTable(w)
	fmt.Fprintln(tw, "STAGE\tSESSIONS\tRATE")
	fmt.Fprintf(tw, "sampled\t%d\t\n", funnel.Stages.Sampled)
	fmt.Fprintf(tw, "viewed\t%d\t%.1f%%\n", funnel.Stages.Viewed, funnel.ViewRate)
	fmt.Fprintf(tw, "carted\t%d\t%.1f%%\n", funnel.Stages.Carted, funnel.CartRate)
	fmt.Fprintf(tw, "converted\t%d\t%.1f%%\n", funnel.Stages.Converted, funnel.ConversionRate)
	tw.Flush()
	fmt.Fprintf(w, "\noverall conversion: %.2f%%\n", funnel.OverallRate)

	return nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n=== %s ===\n", title)
}
