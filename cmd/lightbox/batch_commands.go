package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"lightbox/internal/api"
	"lightbox/internal/daemonctl"
	"lightbox/internal/uploads"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Manage upload batches",
	}

	batchCmd.AddCommand(newBatchListCommand(ctx))
	batchCmd.AddCommand(newBatchShowCommand(ctx))
	batchCmd.AddCommand(newBatchCreateCommand(ctx))
	batchCmd.AddCommand(newBatchAddCommand(ctx))
	batchCmd.AddCommand(newBatchTitleCommand(ctx))
	batchCmd.AddCommand(newBatchSetCommand(ctx))
	batchCmd.AddCommand(newBatchOverrideCommand(ctx))
	batchCmd.AddCommand(newBatchCategoryCommand(ctx))
	batchCmd.AddCommand(newBatchAttachCommand(ctx))
	batchCmd.AddCommand(newBatchUploadCommand(ctx))
	batchCmd.AddCommand(newBatchFinalizeCommand(ctx))
	batchCmd.AddCommand(newBatchDeleteCommand(ctx))

	return batchCmd
}

func newBatchListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			summaries, err := client.ListBatches(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No batches")
				return nil
			}

			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				rows = append(rows, []string{
					s.ID,
					s.TenantID,
					s.CategoryID,
					yesNo(s.Finalized),
					fmt.Sprintf("%d", s.ItemCount),
					formatStatuses(s.Statuses),
					humanize.Bytes(uint64(s.SizeBytes)),
					s.UpdatedAt,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Tenant", "Category", "Finalized", "Items", "Statuses", "Size", "Updated"},
				rows, 4, 6,
			))
			return nil
		},
	}
}

func newBatchShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show one batch in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			batch, err := client.GetBatch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printBatch(cmd, batch)
			return nil
		},
	}
}

func newBatchCreateCommand(ctx *commandContext) *cobra.Command {
	var tenantID, brandID, categoryID string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			batch, err := client.CreateBatch(cmd.Context(), tenantID, brandID, categoryID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created batch %s\n", batch.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant identifier")
	cmd.Flags().StringVar(&brandID, "brand", "", "Brand identifier")
	cmd.Flags().StringVar(&categoryID, "category", "", "Category identifier")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("brand")
	return cmd
}

func newBatchAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <batch-id> <file>...",
		Short: "Add local files to a batch",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			batchID := args[0]
			var batch api.BatchView
			for _, path := range args[1:] {
				info, err := os.Stat(path)
				if err != nil {
					return fmt.Errorf("stat %s: %w", path, err)
				}
				abs, err := filepath.Abs(path)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", path, err)
				}
				batch, err = client.AddFile(cmd.Context(), batchID, filepath.Base(path), abs, info.Size())
				if err != nil {
					return err
				}
			}
			printBatch(cmd, batch)
			return nil
		},
	}
}

func newBatchTitleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "title <batch-id> <item-id> <title>",
		Short: "Set an item title",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			batch, err := client.SetTitle(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			printBatch(cmd, batch)
			return nil
		},
	}
}

func newBatchSetCommand(ctx *commandContext) *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "set <batch-id> <key> [value]",
		Short: "Set or clear a batch-wide metadata value",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var batch api.BatchView
			if clear {
				batch, err = client.ClearGlobalField(cmd.Context(), args[0], args[1])
			} else {
				if len(args) < 3 {
					return errors.New("value required unless --clear is set")
				}
				batch, err = client.SetGlobalField(cmd.Context(), args[0], args[1], args[2])
			}
			if err != nil {
				return err
			}
			printBatch(cmd, batch)
			return nil
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Clear the value instead of setting it")
	return cmd
}

func newBatchOverrideCommand(ctx *commandContext) *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "override <batch-id> <item-id> <key> [value]",
		Short: "Set or clear a per-item metadata override",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var batch api.BatchView
			if clear {
				batch, err = client.ClearOverride(cmd.Context(), args[0], args[1], args[2])
			} else {
				if len(args) < 4 {
					return errors.New("value required unless --clear is set")
				}
				batch, err = client.SetOverride(cmd.Context(), args[0], args[1], args[2], args[3])
			}
			if err != nil {
				return err
			}
			printBatch(cmd, batch)
			return nil
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Clear the override instead of setting it")
	return cmd
}

func newBatchCategoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "category <batch-id> <category-id>",
		Short: "Switch the batch category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			batch, err := client.ChangeCategory(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			printBatch(cmd, batch)
			return nil
		},
	}
}

func newBatchAttachCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <batch-id> <item-id> <file>",
		Short: "Reattach a local file to an item",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			info, err := os.Stat(args[2])
			if err != nil {
				return fmt.Errorf("stat %s: %w", args[2], err)
			}
			abs, err := filepath.Abs(args[2])
			if err != nil {
				return fmt.Errorf("resolve %s: %w", args[2], err)
			}
			batch, err := client.AttachFile(cmd.Context(), args[0], args[1], abs, info.Size())
			if err != nil {
				return err
			}
			printBatch(cmd, batch)
			return nil
		},
	}
}

func newBatchUploadCommand(ctx *commandContext) *cobra.Command {
	var sessionID, contentType string

	cmd := &cobra.Command{
		Use:   "upload <batch-id> <item-id> <signed-url>",
		Short: "Upload an item to a signed URL",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			batch, err := client.Upload(cmd.Context(), args[0], args[1], api.UploadRequest{
				SessionID:   sessionID,
				URL:         args[2],
				ContentType: contentType,
			})
			if err != nil {
				return err
			}
			printBatch(cmd, batch)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Upload session identifier")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Content type sent with the upload")
	return cmd
}

func newBatchFinalizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "finalize <batch-id>",
		Short: "Finalize a batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			batch, err := client.Finalize(cmd.Context(), args[0])
			if errors.Is(err, daemonctl.ErrFinalizeBlocked) {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Finalize blocked: required metadata is missing")
				printWarnings(cmd, batch.Warnings)
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Batch %s finalized\n", batch.ID)
			return nil
		},
		Args: cobra.ExactArgs(1),
	}
}

func newBatchDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <batch-id>",
		Short: "Delete a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.DeleteBatch(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted batch %s\n", args[0])
			return nil
		},
	}
}

func printBatch(cmd *cobra.Command, batch api.BatchView) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Batch %s (tenant %s, brand %s)\n", batch.ID, batch.TenantID, batch.BrandID)
	if batch.CategoryID != "" {
		fmt.Fprintf(out, "Category: %s\n", batch.CategoryID)
	}
	fmt.Fprintf(out, "Finalized: %s\n", yesNo(batch.Finalized))
	if len(batch.Global) > 0 {
		fmt.Fprintf(out, "Global metadata: %s\n", formatPairs(batch.Global))
	}

	if len(batch.Items) > 0 {
		rows := make([][]string, 0, len(batch.Items))
		for _, item := range batch.Items {
			errText := ""
			if item.Error != nil {
				errText = fmt.Sprintf("%s: %s", item.Error.Kind, item.Error.Message)
			}
			rows = append(rows, []string{
				item.ID,
				item.ResolvedFilename,
				item.Status,
				fmt.Sprintf("%d%%", item.Progress),
				yesNo(item.FileAttached),
				humanize.Bytes(uint64(item.SizeBytes)),
				errText,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"ID", "Filename", "Status", "Progress", "File", "Size", "Error"},
			rows, 3, 5,
		))
	}

	printWarnings(cmd, batch.Warnings)
}

func printWarnings(cmd *cobra.Command, warnings []uploads.Warning) {
	if len(warnings) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Warnings:")
	for _, w := range warnings {
		line := fmt.Sprintf("  [%s] %s", w.Type, w.Message)
		if len(w.FieldKeys) > 0 {
			line += " (fields: " + strings.Join(w.FieldKeys, ", ") + ")"
		}
		fmt.Fprintln(out, line)
	}
}

func formatStatuses(statuses map[string]int) string {
	if len(statuses) == 0 {
		return ""
	}
	keys := make([]string, 0, len(statuses))
	for key := range statuses {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", key, statuses[key]))
	}
	return strings.Join(parts, " ")
}

func formatPairs(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", key, values[key]))
	}
	return strings.Join(parts, " ")
}
