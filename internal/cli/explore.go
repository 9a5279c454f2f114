package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/chatdb/internal/schema"
	"github.com/roach88/chatdb/internal/store"
	"github.com/roach88/chatdb/internal/synonym"
)

// NewExploreCommand creates the explore command.
func NewExploreCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Show how the connected source is classified",
		Long: `Explore inspects the source and prints its field classification:
numeric, categorical, and date buckets with their observed ranges, plus
the vocabulary the pattern matcher will accept.

Example:
  chatdb explore --db sales.db
  chatdb explore --backend mongo --source spotify`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(cmd, rootOpts)
		},
	}
	return cmd
}

func runExplore(cmd *cobra.Command, opts *RootOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	h, err := openBackend(ctx, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect", err)
	}
	defer h.Close(ctx)

	class, err := h.Classify(ctx, opts.Config.Thresholds)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to inspect source", err)
	}
	synonyms, _ := synonym.Build(class)

	sample, err := h.SampleRows(ctx, 5)
	if err != nil {
		slog.Debug("sample rows unavailable", "error", err)
		sample = &store.Result{}
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		return json.NewEncoder(w).Encode(exploreResponse{
			Source:      class.Source,
			Numeric:     class.Numeric,
			Categorical: class.Categorical,
			Date:        class.Date,
			Other:       class.Other,
			Defaults:    class.Defaults,
			Vocabulary:  synonyms.Known(),
			SampleCols:  sample.Columns,
			SampleRows:  sample.Rows,
		})
	}

	title := color.New(color.FgCyan, color.Bold)
	title.Fprintf(w, "Source: %s\n\n", class.Source)

	if len(class.Numeric) > 0 {
		title.Fprintln(w, "Numeric fields")
		for _, name := range sortedStatKeys(class.Numeric) {
			s := class.Numeric[name]
			fmt.Fprintf(w, "  %-24s %g .. %g\n", name, s.Min, s.Max)
		}
		fmt.Fprintln(w)
	}
	if len(class.Categorical) > 0 {
		title.Fprintln(w, "Categorical fields")
		for _, name := range sortedStatKeys(class.Categorical) {
			values := class.Categorical[name].Values
			preview := strings.Join(values, ", ")
			if len(values) > 8 {
				preview = strings.Join(values[:8], ", ") + ", ..."
			}
			fmt.Fprintf(w, "  %-24s %d values: %s\n", name, len(values), preview)
		}
		fmt.Fprintln(w)
	}
	if len(class.Date) > 0 {
		title.Fprintln(w, "Date fields")
		for _, name := range sortedStatKeys(class.Date) {
			s := class.Date[name]
			fmt.Fprintf(w, "  %-24s %s .. %s\n", name, s.Earliest, s.Latest)
		}
		fmt.Fprintln(w)
	}
	if len(class.Other) > 0 {
		title.Fprintln(w, "Other fields")
		fmt.Fprintf(w, "  %s\n\n", strings.Join(class.Other, ", "))
	}
	if len(class.Defaults) > 0 {
		title.Fprintln(w, "Defaults")
		keys := make([]string, 0, len(class.Defaults))
		for k := range class.Defaults {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %-12s -> %s\n", k, class.Defaults[k])
		}
		fmt.Fprintln(w)
	}

	title.Fprintln(w, "Vocabulary")
	fmt.Fprintf(w, "  %s\n", strings.Join(synonyms.Known(), ", "))

	if !sample.Empty() {
		fmt.Fprintln(w)
		title.Fprintln(w, "Sample rows")
		printTable(w, sample)
	}
	return nil
}

type exploreResponse struct {
	Source      string                             `json:"source"`
	Numeric     map[string]schema.NumericStats     `json:"numeric,omitempty"`
	Categorical map[string]schema.CategoricalStats `json:"categorical,omitempty"`
	Date        map[string]schema.DateStats        `json:"date,omitempty"`
	Other       []string                           `json:"other,omitempty"`
	Defaults    map[string]string                  `json:"defaults,omitempty"`
	Vocabulary  []string                           `json:"vocabulary,omitempty"`
	SampleCols  []string                           `json:"sample_columns,omitempty"`
	SampleRows  [][]any                            `json:"sample_rows,omitempty"`
}

func sortedStatKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
