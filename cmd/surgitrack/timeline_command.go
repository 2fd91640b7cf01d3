package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"surgitrack/internal/progress"
	"surgitrack/internal/timeline"
)

func newTimelineCommand() *cobra.Command {
	var demo bool
	var transitions bool
	var fps float64
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "timeline [file]",
		Short:       "Render a tool-usage timeline from JSON",
		Long:        "Render a timeline from a JSON event list, from raw tracker transitions (--transitions), or the built-in demo timeline (--demo). Use - to read from stdin.",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var tl timeline.Timeline
			switch {
			case demo:
				if len(args) > 0 {
					return errors.New("--demo does not take a file")
				}
				tl = timeline.Demo()
			case len(args) == 0:
				return errors.New("a timeline file is required (or use --demo)")
			default:
				r, closeFn, err := openInput(cmd, args[0])
				if err != nil {
					return err
				}
				defer closeFn()
				tl, err = readTimeline(r, transitions, fps)
				if err != nil {
					return err
				}
			}

			if jsonOutput {
				return writeJSON(cmd, struct {
					Summary timeline.Summary  `json:"summary"`
					Events  timeline.Timeline `json:"events"`
				}{Summary: tl.Summary(), Events: tl})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTimeline(tl, paletteFor(out)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&demo, "demo", false, "Render the built-in demo timeline")
	cmd.Flags().BoolVar(&transitions, "transitions", false, "Input holds raw tracker transitions instead of events")
	cmd.Flags().Float64Var(&fps, "fps", 0, "Frame rate for --transitions when the input carries none")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the timeline as JSON")
	return cmd
}

func readTimeline(r io.Reader, transitions bool, fps float64) (timeline.Timeline, error) {
	if !transitions {
		return timeline.Decode(r)
	}
	observed, inputFPS, err := timeline.DecodeTransitions(r)
	if err != nil {
		return timeline.Timeline{}, err
	}
	if fps <= 0 {
		fps = inputFPS
	}
	if fps <= 0 {
		fps = progress.DefaultFPS
	}
	return timeline.FromTransitions(observed, fps)
}

func openInput(cmd *cobra.Command, name string) (io.Reader, func(), error) {
	if strings.TrimSpace(name) == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, func() { _ = f.Close() }, nil
}
