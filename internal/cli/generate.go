package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/chatdb/internal/schema"
	"github.com/roach88/chatdb/internal/synonym"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	var count int
	var seed int64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate example questions for the connected source",
		Long: `Generate produces random questions the pattern matcher understands,
built from the connected source's actual fields and values. Useful for
discovering what a dataset supports.

Example:
  chatdb generate --db sales.db
  chatdb generate --count 10 --backend mongo --source spotify`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, rootOpts, count, seed)
		},
	}

	cmd.Flags().IntVar(&count, "count", 5, "number of questions to generate")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 uses the current time)")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts *RootOptions, count int, seed int64) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if count < 1 {
		return WrapExitError(ExitCommandError, "count must be at least 1", nil)
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

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	questions := generateQuestions(class, rand.New(rand.NewSource(seed)), count)

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
			"source":    class.Source,
			"questions": questions,
		})
	}
	for _, q := range questions {
		fmt.Fprintln(cmd.OutOrStdout(), "-", q)
	}
	return nil
}

// generateQuestions builds candidate templates from the classified
// buckets, then samples without repetition until it has enough (cycling
// when count exceeds the template pool).
func generateQuestions(class *schema.Classification, rng *rand.Rand, count int) []string {
	synonyms, locations := synonym.Build(class)

	var pool []string
	for _, field := range sortedStatKeys(class.Categorical) {
		pool = append(pool,
			fmt.Sprintf("total sales by %s", field),
			fmt.Sprintf("count of %s", field),
			fmt.Sprintf("list of %s", field),
			fmt.Sprintf("distinct values of %s", field),
		)
		values := class.Categorical[field].Values
		if len(values) > 0 {
			pool = append(pool, fmt.Sprintf("sales of %s", values[rng.Intn(len(values))]))
		}
	}
	for _, field := range sortedStatKeys(class.Numeric) {
		pool = append(pool,
			fmt.Sprintf("maximum value of %s", field),
			fmt.Sprintf("average value of %s", field),
		)
	}
	if dates := sortedStatKeys(class.Date); len(dates) > 0 {
		if earliest := class.Date[dates[0]].Earliest; len(earliest) >= 4 {
			pool = append(pool, fmt.Sprintf("total sales in %s", earliest[:4]))
		}
	}
	if keys := sortedStatKeys(locations); len(keys) > 0 {
		pool = append(pool, fmt.Sprintf("total revenue for the store in %s", locations[keys[0]]))
	}
	if _, ok := class.Defaults["product"]; ok {
		pool = append(pool,
			fmt.Sprintf("top %d best-selling products", 3+rng.Intn(5)),
			"most expensive product",
		)
	}
	if _, ok := synonyms["streams"]; ok {
		pool = append(pool,
			fmt.Sprintf("top %d most streamed songs", 3+rng.Intn(5)),
			"most streamed artist",
		)
	}
	if len(pool) == 0 {
		pool = []string{"count of rows"}
	}

	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	out := make([]string, 0, count)
	for len(out) < count {
		out = append(out, pool[len(out)%len(pool)])
	}
	return out
}
