package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"lightbox/internal/api"
)

func newFiltersCommand(ctx *commandContext) *cobra.Command {
	filtersCmd := &cobra.Command{
		Use:   "filters",
		Short: "Filter visibility tools",
	}

	var inputPath string
	evalCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate filter visibility for a browse context",
		Long: `Evaluate filter visibility for a browse context.

The request is read as JSON from --file or stdin:
  {"filters": [{"key": "color", "category_ids": ["7"]}], "context": {"category_id": "7"}}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			var reader io.Reader = cmd.InOrStdin()
			if inputPath != "" {
				file, err := os.Open(inputPath)
				if err != nil {
					return fmt.Errorf("open request file: %w", err)
				}
				defer file.Close()
				reader = file
			}

			var req api.FilterEvalRequest
			if err := json.NewDecoder(reader).Decode(&req); err != nil {
				return fmt.Errorf("decode request: %w", err)
			}

			resp, err := client.EvaluateFilters(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(resp.Decisions))
			for _, d := range resp.Decisions {
				rows = append(rows, []string{d.Key, d.Visibility})
			}
			fmt.Fprintln(out, renderTable([]string{"Filter", "Visibility"}, rows))
			if resp.HiddenCount > 0 {
				fmt.Fprintf(out, "%d filter(s) hidden in this context\n", resp.HiddenCount)
			}
			return nil
		},
	}
	evalCmd.Flags().StringVarP(&inputPath, "file", "f", "", "Read the evaluation request from a file")

	filtersCmd.AddCommand(evalCmd)
	return filtersCmd
}
