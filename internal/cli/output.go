package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/roach88/chatdb/internal/pattern"
	"github.com/roach88/chatdb/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Query execution failure
	ExitCommandError = 2 // Command error (bad flags, unreachable backend, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool
}

// Message prints guidance for a question that did not compile: help
// text, an unknown-field hint, or a date-format hint.
func (f *OutputFormatter) Message(question, message string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(askResponse{
			Question:    question,
			Description: message,
		})
	}
	fmt.Fprintln(f.Writer, color.YellowString(message))
	return nil
}

// Answer prints a compiled query's description and its result table.
func (f *OutputFormatter) Answer(question string, compiled *pattern.Compiled, description string, result *store.Result) error {
	if f.Format == "json" {
		resp := askResponse{
			Question:    question,
			Pattern:     compiled.Pattern,
			Description: description,
		}
		if compiled.SQL != nil {
			resp.Query = compiled.SQL.Text
		} else if compiled.Doc != nil {
			resp.Query = compiled.Doc
		}
		for _, c := range result.Columns {
			resp.Columns = append(resp.Columns, c)
		}
		for _, row := range result.Rows {
			resp.Rows = append(resp.Rows, row)
		}
		return json.NewEncoder(f.Writer).Encode(resp)
	}

	fmt.Fprintln(f.Writer, color.GreenString(description))
	if f.Verbose && compiled.SQL != nil {
		fmt.Fprintf(f.Writer, "  %s %v\n", compiled.SQL.Text, compiled.SQL.Args)
	}
	if result.Empty() {
		fmt.Fprintln(f.Writer, "No results found.")
		return nil
	}
	printTable(f.Writer, result)
	return nil
}

// printTable renders a result as an aligned text table with a colored
// header row.
func printTable(w io.Writer, result *store.Result) {
	widths := make([]int, len(result.Columns))
	for i, c := range result.Columns {
		widths[i] = len(c)
	}
	cells := make([][]string, len(result.Rows))
	for r, row := range result.Rows {
		cells[r] = make([]string, len(result.Columns))
		for i := range result.Columns {
			var text string
			if i < len(row) && row[i] != nil {
				text = fmt.Sprint(row[i])
			}
			cells[r][i] = text
			if len(text) > widths[i] {
				widths[i] = len(text)
			}
		}
	}

	header := color.New(color.FgCyan, color.Bold)
	for i, c := range result.Columns {
		if i > 0 {
			fmt.Fprint(w, "  ")
		}
		header.Fprintf(w, "%-*s", widths[i], c)
	}
	fmt.Fprintln(w)
	for i, width := range widths {
		if i > 0 {
			fmt.Fprint(w, "  ")
		}
		fmt.Fprint(w, strings.Repeat("-", width))
	}
	fmt.Fprintln(w)
	for _, row := range cells {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(w, "  ")
			}
			fmt.Fprintf(w, "%-*s", widths[i], cell)
		}
		fmt.Fprintln(w)
	}
}
