package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strategicvalueplus/scout/internal/app"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   `search "<request>"`,
		Short: "Search every enabled source once and print the merged JSON",
		Example: `  scout search "CNC machining suppliers in Ohio"
  scout search "injection molding" --location "Detroit, MI"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			text := strings.Join(args, " ")
			interp, err := a.Interpreter.Interpret(cmd.Context(), text)
			if err != nil {
				interp = a.Parser.Parse(text)
			}
			criteria := interp.Criteria()
			if location != "" {
				criteria.Location = location
			}
			logger.Debug("interpreted request", "keywords", criteria.Keywords, "location", criteria.Location, "category", criteria.Category, "method", interp.Method)

			res := a.Aggregator.Search(cmd.Context(), criteria)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("search: encode: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&location, "location", "l", "", "override the location parsed from the request")
	return cmd
}
