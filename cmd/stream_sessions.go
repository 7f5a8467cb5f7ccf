package cmd

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/commercelab/shopetl/hbase"
	"github.com/commercelab/shopetl/source"
	"github.com/commercelab/shopetl/stream"
)

func init() {
	subcommandFns["stream-sessions"] = newStreamSessionsCommand
}

func newStreamSessionsCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		conn          hbaseFlags
		queueURL      string
		maxSessions   int
		flushInterval time.Duration
		leaseTimeout  int32
	)

	cmd := &cobra.Command{
		Use:   "stream-sessions",
		Short: "Continuously move queued sessions into the wide-column store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if queueURL == "" {
				return errors.New("--queue-url is required")
			}

			// Stop on SIGINT/SIGTERM; buffered sessions are drained first.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return errors.Wrap(err, "loading aws config")
			}
			src, err := source.NewSQS(ctx, sqs.NewFromConfig(awsCfg), queueURL, source.DefaultSQSConfig)
			if err != nil {
				return err
			}
			defer src.Close()

			client, err := conn.dial(ctx)
			if err != nil {
				return err
			}
			defer client.Close()
			if err := hbase.EnsureSessionsTable(ctx, client); err != nil {
				return err
			}
			sink, err := hbase.NewTableSink(client, hbase.TableSessions)
			if err != nil {
				return err
			}

			cfg := stream.DefaultConfig()
			cfg.Batch = stream.BatchConfig{MaxSessions: maxSessions, FlushInterval: flushInterval}
			cfg.LeaseTimeoutSeconds = leaseTimeout
			cfg.OnFlush = func(sessions, total int) {
				fmt.Fprintf(stdout, "flushed %4d sessions  %8d total\n", sessions, total)
			}

			st, err := stream.New(cfg, src, sink)
			if err != nil {
				return err
			}
			stats, err := st.Run(ctx)
			fmt.Fprintf(stdout, "received %d, wrote %d in %d batches, failed %d\n",
				stats.Received, stats.Written, stats.Batches, stats.Failed)
			return err
		},
	}

	conn.register(cmd.Flags())
	cmd.Flags().StringVar(&queueURL, "queue-url", "", "session queue URL")
	cmd.Flags().IntVar(&maxSessions, "batch-size", stream.DefaultBatchConfig.MaxSessions, "sessions per flush")
	cmd.Flags().DurationVar(&flushInterval, "flush-interval", stream.DefaultBatchConfig.FlushInterval, "max wait before a partial flush")
	cmd.Flags().Int32Var(&leaseTimeout, "lease-timeout", 0, "visibility lease in seconds, 0 disables renewal")
	return cmd
}
