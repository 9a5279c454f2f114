package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/chatdb/internal/store"
)

// NewUploadCommand creates the upload command.
func NewUploadCommand(rootOpts *RootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Load a CSV or JSON file into the backend",
		Long: `Upload parses a CSV or JSON file, infers column types, and loads it
into the configured backend. The table or collection is named after the
file and replaced if it already exists.

Example:
  chatdb upload sales_data.csv
  chatdb upload --backend mongo spotify.json
  chatdb upload --name sales q3_export.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, rootOpts, args[0], name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "override the table or collection name")

	return cmd
}

func runUpload(cmd *cobra.Command, opts *RootOptions, path, name string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ds, err := store.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read file", err)
	}
	if name != "" {
		ds.Name = name
	}
	slog.Info("dataset parsed", "name", ds.Name, "columns", len(ds.Columns), "rows", len(ds.Rows))

	// Point source discovery at the dataset being written so upload does
	// not fail on databases that already hold other sources.
	connectOpts := *opts
	connectOpts.Source = ds.Name
	h, err := openBackend(ctx, &connectOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect", err)
	}
	defer h.Close(ctx)

	if err := h.Import(ctx, ds); err != nil {
		return WrapExitError(ExitFailure, "failed to import dataset", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d rows into %s (%d columns).\n",
		len(ds.Rows), ds.Name, len(ds.Columns))
	return nil
}
