package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <url>",
		Short: "Runs the detail extractor against one page and prints what it found.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.newScraper()
			if err != nil {
				return err
			}

			detail, fetchErr := s.Inspect(cmd.Context(), args[0])

			strategy := detail.Strategy
			if strategy == "" {
				strategy = "none"
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Field", "Value"})
			t.AppendRows([]table.Row{
				{"Link", args[0]},
				{"Closing Date", detail.ClosingDate.String()},
				{"Last Updated", detail.LastUpdated.String()},
				{"Strategy", strategy},
			})
			t.Render()
			return fetchErr
		},
	}
}
