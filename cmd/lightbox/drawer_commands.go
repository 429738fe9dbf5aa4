package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lightbox/internal/api"
)

func newDrawerCommand(ctx *commandContext) *cobra.Command {
	drawerCmd := &cobra.Command{
		Use:   "drawer",
		Short: "Inspect and control the asset detail drawer",
	}

	drawerCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current drawer state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			view, err := client.DrawerView(cmd.Context())
			if err != nil {
				return err
			}
			printDrawer(cmd, view)
			return nil
		},
	})

	drawerCmd.AddCommand(&cobra.Command{
		Use:   "open <asset-id>",
		Short: "Open the drawer on an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			view, err := client.DrawerOpen(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printDrawer(cmd, view)
			return nil
		},
	})

	drawerCmd.AddCommand(&cobra.Command{
		Use:   "close",
		Short: "Close the drawer",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if _, err := client.DrawerClose(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Drawer closed")
			return nil
		},
	})

	return drawerCmd
}

func printDrawer(cmd *cobra.Command, view api.DrawerView) {
	out := cmd.OutOrStdout()
	if view.Asset == nil {
		fmt.Fprintln(out, "Drawer closed")
		return
	}
	asset := view.Asset
	fmt.Fprintf(out, "Asset: %s\n", asset.AssetID)
	if asset.MediaKind != "" {
		fmt.Fprintf(out, "Media kind: %s\n", asset.MediaKind)
	}
	fmt.Fprintf(out, "Thumbnail status: %s (version %d)\n", asset.Status, asset.Version)
	if asset.PreviewURL != "" {
		fmt.Fprintf(out, "Preview: %s\n", asset.PreviewURL)
	}
	if asset.FinalURL != "" {
		fmt.Fprintf(out, "Final: %s\n", asset.FinalURL)
	}
	if asset.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", asset.Error)
	}
	fmt.Fprintf(out, "Polling: %s\n", yesNo(view.Polling))
}
