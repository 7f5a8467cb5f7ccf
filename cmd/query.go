package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/commercelab/shopetl/analytics"
)

func init() {
	subcommandFns["query"] = newQueryCommand
}

func newQueryCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		conn   mongoFlags
		report string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run one aggregation report against the document store",
		Long: `Reports: top-products, revenue, segments, monthly, clv.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := conn.connect(ctx)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			defer tw.Flush()

			switch report {
			case "top-products":
				rows, err := store.TopSellingProducts(ctx, limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "PRODUCT\tNAME\tQTY\tREVENUE\tORDERS")
				for _, p := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%d\n", p.ProductID, p.Name, p.TotalQuantity, p.TotalRevenue, p.Orders)
				}
			case "revenue":
				rows, err := store.RevenueByCategory(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "CATEGORY\tNAME\tREVENUE\tUNITS")
				for _, c := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%.2f\t%d\n", c.CategoryID, c.Name, c.TotalRevenue, c.UnitsSold)
				}
			case "segments":
				rows, err := store.UserSegments(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "SEGMENT\tUSERS\tAVG SPENT\tAVG ORDERS\tTOTAL")
				for _, s := range rows {
					fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.1f\t%.2f\n", s.Segment, s.Users, s.AvgSpent, s.AvgOrders, s.TotalSpent)
				}
			case "monthly":
				rows, err := store.MonthlyRevenue(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "MONTH\tREVENUE\tORDERS")
				for _, m := range rows {
					fmt.Fprintf(tw, "%s\t%.2f\t%d\n", m.Month, m.Revenue, m.Orders)
				}
			case "clv":
				rows, err := analytics.CustomerLifetimeValue(ctx, store, limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "USER\tORDERS\tTOTAL\tAVG ORDER\tTIER\tFIRST\tLAST")
				for _, c := range rows {
					fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%s\t%s\t%s\n",
						c.UserID, c.Orders, c.TotalSpent, c.AvgOrder, c.Tier, c.FirstOrder, c.LastOrder)
				}
			default:
				return errors.Errorf("unknown report %q", report)
			}
			return nil
		},
	}

	conn.register(cmd.Flags())
	cmd.Flags().StringVar(&report, "report", "top-products", "which report to run")
	cmd.Flags().IntVar(&limit, "limit", 10, "result rows for ranked reports")
	return cmd
}
