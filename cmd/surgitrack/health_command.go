package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"surgitrack/internal/preflight"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check local directories and the analysis service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.newClient(nil)
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg, client)
			passed := preflight.AllPassed(results)
			if jsonOutput {
				if err := writeJSON(cmd, struct {
					Healthy bool               `json:"healthy"`
					Checks  []preflight.Result `json:"checks"`
				}{Healthy: passed, Checks: results}); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				pal := paletteFor(out)
				for _, result := range results {
					b := badgeOK
					if !result.Passed {
						b = badgeError
					}
					fmt.Fprintln(out, pal.line(result.Name, b, result.Detail))
				}
			}
			if !passed {
				return errors.New("one or more health checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print check results as JSON")
	return cmd
}
