package cmd

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/commercelab/shopetl/hbase"
)

func init() {
	subcommandFns["scan"] = newScanCommand
}

func newScanCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		conn    hbaseFlags
		userID  string
		rowKey  string
		devices bool
		funnel  bool
		limit   int
		sample  int
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Query the session table through the Thrift gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := conn.dial(ctx)
			if err != nil {
				return err
			}
			defer client.Close()
			table := hbase.NewTable(client, hbase.TableSessions)

			tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			defer tw.Flush()

			switch {
			case rowKey != "":
				cols, err := table.SessionDetails(ctx, rowKey)
				if err != nil {
					return err
				}
				if cols == nil {
					return errors.Errorf("no session row %q", rowKey)
				}
				keys := make([]string, 0, len(cols))
				for k := range cols {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(tw, "%s\t%s\n", k, cols[k])
				}

			case userID != "":
				sessions, err := table.UserSessions(ctx, userID, limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "SESSION\tSTART\tSTATUS\tDEVICE\tPAGES")
				for _, s := range sessions {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						s.SessionID, s.StartTime, s.ConversionStatus, s.DeviceType, s.PageViews)
				}

			case devices:
				counts, scanned, err := table.DeviceCounts(ctx, sample)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "sample of %d sessions\n", scanned)
				fmt.Fprintln(tw, "DEVICE\tSESSIONS")
				for _, d := range counts {
					fmt.Fprintf(tw, "%s\t%d\n", d.Device, d.Count)
				}

			case funnel:
				f, err := table.FunnelStages(ctx, sample)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "STAGE\tSESSIONS")
				fmt.Fprintf(tw, "sampled\t%d\n", f.Sampled)
				fmt.Fprintf(tw, "viewed\t%d\n", f.Viewed)
				fmt.Fprintf(tw, "carted\t%d\n", f.Carted)
				fmt.Fprintf(tw, "converted\t%d\n", f.Converted)

			default:
				sessions, scanned, err := table.ConvertedSessions(ctx, limit, sample)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "%d converted in %d scanned\n", len(sessions), scanned)
				fmt.Fprintln(tw, "USER\tSESSION\tSTART\tDEVICE")
				for _, s := range sessions {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.UserID, s.SessionID, s.StartTime, s.DeviceType)
				}
			}
			return nil
		},
	}

	conn.register(cmd.Flags())
	cmd.Flags().StringVar(&userID, "user", "", "list sessions of one user")
	cmd.Flags().StringVar(&rowKey, "row", "", "dump one session row by key")
	cmd.Flags().BoolVar(&devices, "devices", false, "tally device types over a sample")
	cmd.Flags().BoolVar(&funnel, "funnel", false, "count funnel stages over a sample")
	cmd.Flags().IntVar(&limit, "limit", 20, "max result rows")
	cmd.Flags().IntVar(&sample, "sample", 10000, "max rows scanned for sampled queries")
	return cmd
}
