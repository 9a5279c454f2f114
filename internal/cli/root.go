package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/chatdb/internal/config"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Config  *config.Config
	Verbose bool
	Format  string // "json" | "text"

	Backend  string
	Database string
	MongoURI string
	MongoDB  string
	Source   string // table or collection; discovered when empty
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ValidBackends defines the allowed backend names.
var ValidBackends = []string{"sqlite", "mongo"}

// NewRootCommand creates the root command for the chatdb CLI.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	opts := &RootOptions{Config: cfg}

	cmd := &cobra.Command{
		Use:   "chatdb",
		Short: "ChatDB - ask your data questions in plain English",
		Long: `ChatDB compiles natural-language questions into database queries.

It inspects the connected table or collection, classifies its fields,
and matches questions against a pattern catalogue to produce
parameterized SQL or aggregation pipelines.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if !contains(ValidBackends, opts.Backend) {
				return fmt.Errorf("invalid backend %q: must be one of %v", opts.Backend, ValidBackends)
			}
			configureLogging(opts)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", cfg.Backend, "backend to query (sqlite|mongo)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", cfg.SQLitePath, "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.MongoURI, "mongo-uri", cfg.MongoURI, "MongoDB connection URI")
	cmd.PersistentFlags().StringVar(&opts.MongoDB, "mongo-db", cfg.MongoDatabase, "MongoDB database name")
	cmd.PersistentFlags().StringVar(&opts.Source, "source", "", "table or collection to query (discovered when omitted)")

	cmd.AddCommand(NewAskCommand(opts))
	cmd.AddCommand(NewExploreCommand(opts))
	cmd.AddCommand(NewUploadCommand(opts))
	cmd.AddCommand(NewGenerateCommand(opts))

	return cmd
}

func configureLogging(opts *RootOptions) {
	level := opts.Config.SlogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
