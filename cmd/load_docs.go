package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/commercelab/shopetl/ingest"
	"github.com/commercelab/shopetl/mongo"
)

func init() {
	subcommandFns["load-docs"] = newLoadDocsCommand
}

func newLoadDocsCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		conn    mongoFlags
		dataDir string
		skipBad bool
	)

	cmd := &cobra.Command{
		Use:   "load-docs",
		Short: "Load the reference JSON datasets into the document store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := conn.connect(ctx)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			loader := mongo.NewLoader(store)
			if skipBad {
				loader.OnError = ingest.SkipAndCount
			}

			loads := []struct {
				name string
				fn   func(context.Context, string) (ingest.Run, error)
			}{
				{"categories.json", loader.LoadCategories},
				{"products.json", loader.LoadProducts},
				{"users.json", loader.LoadUsers},
				{"transactions.json", loader.LoadTransactions},
			}
			for _, l := range loads {
				run, err := l.fn(ctx, filepath.Join(dataDir, l.name))
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "%-18s %6d loaded  %3d skipped  %3d batches\n",
					l.name, run.Flushed, len(run.Skipped), run.Batches)
			}
			return nil
		},
	}

	conn.register(cmd.Flags())
	cmd.Flags().StringVar(&dataDir, "data-dir", "data", "directory holding the raw JSON files")
	cmd.Flags().BoolVar(&skipBad, "skip-bad", false, "skip invalid records instead of aborting")
	return cmd
}
