package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/commercelab/shopetl/analytics"
	"github.com/commercelab/shopetl/hbase"
)

func init() {
	subcommandFns["report"] = newReportCommand
}

func newReportCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		mconn  mongoFlags
		hconn  hbaseFlags
		top    int
		sample int
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the combined dashboard from both stores",
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

			cfg := analytics.DashboardConfig{
				TopProducts:  top,
				TopCustomers: top,
				SampleSize:   sample,
			}
			table := hbase.NewTable(client, hbase.TableSessions)
			return analytics.Dashboard(ctx, store, table, cfg, stdout)
		},
	}

	mconn.register(cmd.Flags())
	hconn.register(cmd.Flags())
	cmd.Flags().IntVar(&top, "top", 10, "rows in ranked sections")
	cmd.Flags().IntVar(&sample, "sample", 10000, "session rows sampled for behavior sections")
	return cmd
}
