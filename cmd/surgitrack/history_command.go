package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"surgitrack/internal/history"
)

const defaultHistoryLimit = 20

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past analysis sessions",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := requireHistory(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				if entries == nil {
					entries = []history.Entry{}
				}
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No sessions recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					shortID(entry.SessionID),
					entry.FileName,
					phaseTitle(entry.Phase),
					strconv.Itoa(entry.EventCount),
					humanize.Bytes(uint64(max(entry.FileSize, 0))),
					humanize.Time(entry.RecordedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Session", "File", "Phase", "Events", "Size", "Recorded"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignCenter, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Maximum sessions to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print sessions as JSON")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one recorded session (unique id prefixes are accepted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := requireHistory(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			entry, err := store.Get(cmd.Context(), strings.TrimSpace(args[0]))
			switch {
			case errors.Is(err, history.ErrNotFound):
				return fmt.Errorf("no session matches %q", args[0])
			case errors.Is(err, history.ErrAmbiguous):
				return fmt.Errorf("session id %q is ambiguous; use more characters", args[0])
			case err != nil:
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, entry)
			}

			out := cmd.OutOrStdout()
			pal := paletteFor(out)
			fmt.Fprintf(out, "Session:  %s\n", entry.SessionID)
			fmt.Fprintf(out, "File:     %s (%s)\n", entry.FileName, humanize.Bytes(uint64(max(entry.FileSize, 0))))
			fmt.Fprintf(out, "Phase:    %s\n", phaseTitle(entry.Phase))
			if entry.JobID != "" {
				fmt.Fprintf(out, "Job:      %s\n", entry.JobID)
			}
			fmt.Fprintf(out, "Recorded: %s (%s)\n", entry.RecordedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(entry.RecordedAt))
			if entry.Error != "" {
				fmt.Fprintf(out, "Error:    %s\n", entry.Error)
			}
			fmt.Fprintln(out)
			for _, line := range renderSteps(entry.Steps, pal) {
				fmt.Fprintln(out, line)
			}
			if !entry.Events.Empty() {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTimeline(entry.Events, pal))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the session as JSON")
	return cmd
}

func requireHistory(cmd *cobra.Command, ctx *commandContext) (*history.Store, error) {
	store, err := ctx.openHistory(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if store == nil {
		return nil, errors.New("history is disabled; set [history] enabled = true")
	}
	return store, nil
}
