package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/chatdb/internal/pattern"
)

// NewAskCommand creates the ask command.
func NewAskCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question, or start an interactive session",
		Long: `Ask compiles a natural-language question into a query and runs it.

With a question argument it answers once and exits. Without arguments it
starts an interactive loop; type 'exit' or 'quit' to leave.

Example:
  chatdb ask "total sales by category"
  chatdb ask --backend mongo --source spotify "top 5 most streamed songs"
  chatdb ask`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, rootOpts, strings.Join(args, " "))
		},
	}
	return cmd
}

func runAsk(cmd *cobra.Command, opts *RootOptions, question string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	h, err := openBackend(ctx, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect", err)
	}
	defer h.Close(ctx)

	slog.Info("inspecting source", "source", h.source, "backend", opts.Backend)
	class, err := h.Classify(ctx, opts.Config.Thresholds)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to inspect source", err)
	}

	sess := pattern.NewSession(h.kind, class, slog.Default())
	slog.Debug("session ready", "session", sess.ID, "patterns", len(sess.Entries()))

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	if question != "" {
		return answer(ctx, h, sess, out, question)
	}

	// Interactive loop. Compile failures are conversational, not fatal:
	// the loop keeps going until exit/quit or EOF.
	fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s. Ask a question, or 'exit' to leave.\n", h.source)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(cmd.OutOrStdout(), color.CyanString("You: "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if err := answer(ctx, h, sess, out, line); err != nil {
			// Execution errors surface but do not end the session.
			fmt.Fprintln(cmd.OutOrStdout(), color.RedString("Error: %v", err))
		}
	}
	return scanner.Err()
}

// askResponse is the JSON payload for a single answered question.
type askResponse struct {
	Question    string `json:"question"`
	Pattern     string `json:"pattern,omitempty"`
	Description string `json:"description"`
	Query       any    `json:"query,omitempty"`
	Columns     []any  `json:"columns,omitempty"`
	Rows        []any  `json:"rows,omitempty"`
}

func answer(ctx context.Context, h *backendHandle, sess *pattern.Session, out *OutputFormatter, question string) error {
	compiled, message := sess.Compile(question)
	if compiled == nil {
		return out.Message(question, message)
	}

	result, err := h.Exec(ctx, compiled)
	if err != nil {
		return fmt.Errorf("run %s: %w", compiled.Pattern, err)
	}
	return out.Answer(question, compiled, message, result)
}
