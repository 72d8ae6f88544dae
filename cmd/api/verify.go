package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/campusearn/backend/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:     "verify <draft-url>",
	Short:   "Check that a deployed frontend draft URL serves the app",
	Example: "  campusearn verify https://example.com/my-app",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := verify.New().Run(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		renderReport(cmd.OutOrStdout(), rep)
		if !rep.Passed() {
			return errors.New("draft URL verification failed")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "draft URL verification passed")
		return nil
	},
}

func renderReport(out io.Writer, rep verify.Report) {
	w := table.NewWriter()
	w.SetOutputMirror(out)
	w.SetStyle(table.StyleLight)
	w.AppendHeader(table.Row{"Check", "URL", "Status", "Content-Type", "Result", "Detail"})
	for _, c := range rep.Checks {
		w.AppendRow(table.Row{c.Name, c.URL, c.Status, c.ContentType, c.Level, c.Detail})
	}
	w.Render()
}
