package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/commercelab/shopetl/hbase"
	"github.com/commercelab/shopetl/ingest"
	"github.com/commercelab/shopetl/record"
	"github.com/commercelab/shopetl/source"
)

func init() {
	subcommandFns["load-sessions"] = newLoadSessionsCommand
}

func newLoadSessionsCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		conn      hbaseFlags
		pattern   string
		batchSize int
		skipBad   bool
	)

	cmd := &cobra.Command{
		Use:   "load-sessions",
		Short: "Bulk-load session files into the wide-column store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := conn.dial(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := hbase.EnsureSessionsTable(ctx, client); err != nil {
				return err
			}

			src, err := source.Glob[record.Session](pattern)
			if err != nil {
				return err
			}
			defer src.Close()
			fmt.Fprintf(stdout, "loading %d files\n", len(src.Paths()))

			sink, err := hbase.NewTableSink(client, hbase.TableSessions)
			if err != nil {
				return err
			}

			cfg := ingest.Config{
				BatchCapacity: batchSize,
				Progress: func(seq, puts, total int) {
					fmt.Fprintf(stdout, "batch %4d  %5d rows  %8d total\n", seq, puts, total)
				},
			}
			if skipBad {
				cfg.OnError = ingest.SkipAndCount
			}
			ing, err := ingest.New(cfg, hbase.SessionKey, hbase.MapSession, sink)
			if err != nil {
				return err
			}

			run := ing.Ingest(ctx, src)
			fmt.Fprintf(stdout, "read %d, wrote %d rows in %d batches, skipped %d\n",
				run.Read, run.Flushed, run.Batches, len(run.Skipped))
			for _, s := range run.Skipped {
				fmt.Fprintf(stderr, "skipped record %d (%s): %s\n", s.Pos, s.Key, s.Reason)
			}
			return run.Err
		},
	}

	conn.register(cmd.Flags())
	cmd.Flags().StringVar(&pattern, "sessions", "data/user_sessions*.json", "glob of session JSON files")
	cmd.Flags().IntVar(&batchSize, "batch-size", ingest.DefaultConfig.BatchCapacity, "rows per mutateRows batch")
	cmd.Flags().BoolVar(&skipBad, "skip-bad", false, "skip invalid records instead of aborting")
	return cmd
}
