package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/commercelab/shopetl/export"
)

func init() {
	subcommandFns["export"] = newExportCommand
}

func newExportCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		dataDir     string
		bucket      string
		prefix      string
		compression string
		datasets    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Clean the raw datasets and upload them as Parquet for the batch engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			if bucket == "" {
				return errors.New("--bucket is required")
			}
			ctx := cmd.Context()

			awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return errors.Wrap(err, "loading aws config")
			}
			s3c := s3.NewFromConfig(awsCfg)

			sink, err := export.NewObjectSink(s3c, bucket, prefix)
			if err != nil {
				return err
			}
			sink.WithUploader(transfermanager.New(s3c, transfermanager.Options{}), 0)

			e, err := export.NewExporter(sink, compression)
			if err != nil {
				return err
			}

			type exportFn func(ctx context.Context, path string) (export.Result, error)
			steps := []struct {
				name string
				file string
				fn   exportFn
			}{
				{export.DatasetTransactions, "transactions.json", e.Transactions},
				{export.DatasetUsers, "users.json", e.Users},
				{export.DatasetProducts, "products.json", e.Products},
				{export.DatasetSessions, "user_sessions.json", e.Sessions},
			}

			wanted := map[string]bool{}
			if datasets != "all" {
				for _, name := range strings.Split(datasets, ",") {
					wanted[strings.TrimSpace(name)] = true
				}
			}
			for _, s := range steps {
				if datasets != "all" && !wanted[s.name] {
					continue
				}
				res, err := s.fn(ctx, filepath.Join(dataDir, s.file))
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "%-14s %7d rows  %4d dropped  %9d bytes  s3://%s/%s\n",
					res.Dataset, res.Rows, res.Dropped, res.Bytes, bucket, res.Key)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "data", "directory holding the raw JSON files")
	cmd.Flags().StringVar(&bucket, "bucket", "", "destination bucket")
	cmd.Flags().StringVar(&prefix, "prefix", "", "key prefix inside the bucket")
	cmd.Flags().StringVar(&compression, "compression", "snappy", "parquet compression: snappy, gzip, zstd, none")
	cmd.Flags().StringVar(&datasets, "datasets", "all", "comma-separated dataset names, or all")
	return cmd
}
