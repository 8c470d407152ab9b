package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/spf13/cobra"
)

var (
	mediaPage     int
	mediaPageSize int
	mediaFilter   string
)

var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Browse and manage the media library",
}

var mediaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List media, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := api.ListMedia(cmd.Context(), mediaPage, mediaPageSize, mediaFilter)
		if err != nil {
			return err
		}
		if len(page.Media) == 0 {
			fmt.Println(formatInfo("No media found"))
			return nil
		}

		rows := make([]table.Row, 0, len(page.Media))
		for _, m := range page.Media {
			tag := ""
			if m.UsedElsewhere != nil {
				tag = *m.UsedElsewhere
			}
			rows = append(rows, table.Row{
				m.MediaID,
				truncate(m.OriginalFileName, 28),
				m.FileType,
				humanSize(m.FileSize),
				tag,
				truncate(m.Description, 30),
			})
		}
		fmt.Println(renderTable([]table.Column{
			{Title: "ID", Width: 36},
			{Title: "File", Width: 28},
			{Title: "Type", Width: 12},
			{Title: "Size", Width: 9},
			{Title: "Used", Width: 14},
			{Title: "Description", Width: 30},
		}, rows))
		fmt.Println(formatMuted(fmt.Sprintf("page %d, %d of %d item(s)", page.Page, len(page.Media), page.Total)))
		return nil
	},
}

var mediaDeleteCmd = &cobra.Command{
	Use:   "delete <media-id>",
	Short: "Delete an asset and its stored files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.DeleteMedia(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println(formatSuccess("Media deleted successfully"))
		return nil
	},
}

var mediaDescribeCmd = &cobra.Command{
	Use:   "describe <media-id> <description...>",
	Short: "Set the description of one of your assets",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := api.DescribeMedia(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Println(formatSuccess("Description updated"))
		fmt.Println(formatMuted(m.Description))
		return nil
	},
}

func init() {
	mediaListCmd.Flags().IntVar(&mediaPage, "page", 1, "page number")
	mediaListCmd.Flags().IntVar(&mediaPageSize, "page-size", 50, "items per page")
	mediaListCmd.Flags().StringVar(&mediaFilter, "filter", "standard", "standard, all, or a used_elsewhere tag")

	mediaCmd.AddCommand(mediaListCmd)
	mediaCmd.AddCommand(mediaDeleteCmd)
	mediaCmd.AddCommand(mediaDescribeCmd)
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}
