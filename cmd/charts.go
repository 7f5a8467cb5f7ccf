package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/commercelab/shopetl/analytics"
	"github.com/commercelab/shopetl/charts"
	"github.com/commercelab/shopetl/hbase"
)

func init() {
	subcommandFns["charts"] = newChartsCommand
}

func newChartsCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		mconn  mongoFlags
		hconn  hbaseFlags
		outDir string
		top    int
		sample int
	)

	cmd := &cobra.Command{
		Use:   "charts",
		Short: "Render the report charts as HTML files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := mconn.connect(ctx)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			client, err := hconn.dial(ctx)
			if err != nil {
				return err
			}
			defer client.Close()
			table := hbase.NewTable(client, hbase.TableSessions)

			products, err := store.TopSellingProducts(ctx, top)
			if err != nil {
				return err
			}
			categories, err := store.RevenueByCategory(ctx)
			if err != nil {
				return err
			}
			segments, err := store.UserSegments(ctx)
			if err != nil {
				return err
			}
			months, err := store.MonthlyRevenue(ctx)
			if err != nil {
				return err
			}
			funnel, err := analytics.FunnelConversion(ctx, table, sample)
			if err != nil {
				return err
			}
			devices, referrers, err := table.ConversionPerformance(ctx, sample)
			if err != nil {
				return err
			}

			r, err := charts.NewRenderer(outDir)
			if err != nil {
				return err
			}
			paths, err := r.All(products, categories, segments, months, funnel, devices, referrers)
			for _, p := range paths {
				fmt.Fprintf(stdout, "wrote %s\n", p)
			}
			return err
		},
	}

	mconn.register(cmd.Flags())
	hconn.register(cmd.Flags())
	cmd.Flags().StringVar(&outDir, "out", "charts_output", "directory for the HTML files")
	cmd.Flags().IntVar(&top, "top", 10, "products in the top-products chart")
	cmd.Flags().IntVar(&sample, "sample", 10000, "session rows sampled for the funnel and performance charts")
	return cmd
}
