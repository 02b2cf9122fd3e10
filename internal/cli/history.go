package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/wavecap/internal/config"
	"github.com/roach88/wavecap/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// historyEntry is one capture row in the command output.
type historyEntry struct {
	ID          string `json:"id"`
	Channel     int    `json:"channel"`
	CapturedAt  string `json:"captured_at"`
	Samples     int    `json:"samples"`
	Description string `json:"description"`
	Exports     int    `json:"exports"`
}

// historyResult is the history command's output payload.
type historyResult struct {
	Entries []historyEntry `json:"entries"`
}

func (r historyResult) String() string {
	if len(r.Entries) == 0 {
		return "no captures recorded"
	}
	var b strings.Builder
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "%s  CH%d  %6d samples  %d exports  %s\n",
			e.CapturedAt, e.Channel, e.Samples, e.Exports, e.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewHistoryCommand creates the history command.
// History reads the journal only; no instrument connection is made.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List captures recorded in the journal",
		Long: `List past captures from the journal database, newest first, with the
number of exports recorded for each.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum entries to list (0 = all)")
	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if cfg.Journal.Path == "" {
		return NewExitError(ExitCommandError, "journal is disabled in configuration")
	}

	jnl, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer jnl.Close()

	entries, err := jnl.History(cmd.Context(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read capture history", err)
	}

	result := historyResult{Entries: make([]historyEntry, 0, len(entries))}
	for _, e := range entries {
		result.Entries = append(result.Entries, historyEntry{
			ID:          e.ID,
			Channel:     e.Channel,
			CapturedAt:  e.CapturedAt.UTC().Format(time.RFC3339),
			Samples:     e.SampleCount,
			Description: e.Description,
			Exports:     e.Exports,
		})
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	return formatter.Success(result)
}
