package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/strategicvalueplus/scout/internal/app"
	"github.com/strategicvalueplus/scout/internal/report"
	"github.com/strategicvalueplus/scout/internal/storage"
)

func newReportCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		out    string
		source string
		since  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize recorded search runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			backend, err := app.OpenStorage(cmd.Context(), cfg.Storage)
			if err != nil {
				return err
			}
			if backend == nil {
				return errors.New("report: storage.backend is none; nothing has been recorded")
			}
			defer backend.Close()

			filter := storage.Filter{Source: source}
			if since > 0 {
				t := time.Now().Add(-since)
				filter.Since = &t
			}
			runs, err := backend.Query(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("report: query: %w", err)
			}
			summary := report.GenerateSummary(runs)

			var w io.Writer = os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("report: %w", err)
				}
				defer f.Close()
				w = f
			}

			switch format {
			case "text":
				return report.WriteText(w, summary)
			case "json":
				return report.WriteJSON(w, summary)
			case "html":
				return report.WriteHTML(w, summary)
			}
			return fmt.Errorf("report: unknown format %q (text, json, html)", format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or html")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to a file instead of stdout")
	cmd.Flags().StringVar(&source, "source", "", "only runs from this source (thomasnet, connex)")
	cmd.Flags().DurationVar(&since, "since", 0, "only runs newer than this, e.g. 24h")
	return cmd
}
