package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/beamdash/backend/internal/client"
	"github.com/beamdash/backend/internal/pkg/media"
	"github.com/spf13/cobra"
)

var (
	uploadWebP          bool
	uploadMaxSide       int
	uploadThumbSide     int
	uploadUsedElsewhere string
	uploadRetries       int
	uploadMagick        string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <files...>",
	Short: "Upload photos and videos to the media library",
	Long: "Upload one or more files concurrently. HEIC/HEIF stills are converted\n" +
		"to JPEG first; files over 50 MB are rejected before upload.",
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadWebP, "webp", true, "convert images to WebP on the server")
	uploadCmd.Flags().IntVar(&uploadMaxSide, "max", 0, "limit the longest image side (0 keeps the config value)")
	uploadCmd.Flags().IntVar(&uploadThumbSide, "thumb", 0, "limit the longest thumbnail side")
	uploadCmd.Flags().StringVar(&uploadUsedElsewhere, "used-elsewhere", "", "tag the upload, e.g. profile_image or blog")
	uploadCmd.Flags().IntVar(&uploadRetries, "retry", 0, "retry failed uploads this many times")
	uploadCmd.Flags().StringVar(&uploadMagick, "magick", "magick", "ImageMagick binary used for HEIC conversion")
}

func runUpload(cmd *cobra.Command, args []string) error {
	opts := appConfig.Upload.Options()
	if cmd.Flags().Changed("webp") {
		opts.ConvertImagesToWebp = uploadWebP
	}
	if uploadMaxSide > 0 {
		opts.LimitMaxWidthHeight = uploadMaxSide
	}
	if uploadThumbSide > 0 {
		opts.ThumbnailMaxWidthHeight = uploadThumbSide
	}
	if uploadUsedElsewhere != "" {
		opts.UsedElsewhere = uploadUsedElsewhere
	}

	bar := newProgressBar(40)
	var mu sync.Mutex
	render := func(s client.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		counts := map[client.State]int{}
		for _, f := range s.Files {
			counts[f.State]++
		}
		fmt.Printf("\r%s %3d%%  %s",
			bar.ViewAs(float64(s.Total)/100),
			s.Total,
			formatMuted(fmt.Sprintf("%d uploading, %d processing, %d done, %d failed",
				counts[client.StateUploading]+counts[client.StatePending],
				counts[client.StateProcessing],
				counts[client.StateCompleted],
				len(s.Failed))),
		)
	}

	uploader := client.NewUploader(api, media.NewMagickConverter(uploadMagick, media.DefaultJPEGQuality), client.UploaderOptions{
		Upload:   opts,
		OnChange: render,
		OnRefresh: func() {
			mu.Lock()
			defer mu.Unlock()
			fmt.Println()
			fmt.Println(formatSuccess("All uploads finished, media library refreshed"))
		},
	})

	fmt.Println(styleHeader.Render(fmt.Sprintf("Uploading %d file(s)", len(args))))
	if err := uploader.Add(cmd.Context(), args...); err != nil {
		return err
	}
	for attempt := 0; attempt < uploadRetries; attempt++ {
		failed := uploader.Snapshot().Failed
		if len(failed) == 0 {
			break
		}
		fmt.Println()
		fmt.Println(formatInfo(fmt.Sprintf("Retrying %d failed upload(s)", len(failed))))
		for _, f := range failed {
			if err := uploader.Retry(cmd.Context(), f.Name); err != nil {
				return err
			}
		}
	}
	fmt.Println()

	snap := uploader.Snapshot()
	for _, f := range snap.Files {
		fmt.Println(formatSuccess(f.Name))
	}
	if len(snap.Failed) == 0 {
		return nil
	}
	fmt.Println()
	fmt.Println(styleError.Render("Failed uploads"))
	for _, f := range snap.Failed {
		fmt.Printf("  %s %s\n", f.Name, formatMuted(f.Reason))
	}
	fmt.Println(formatMuted("Retry with: beamctl upload --retry 1 " + strings.Join(failedPaths(snap.Failed), " ")))
	return fmt.Errorf("%d upload(s) failed", len(snap.Failed))
}

func failedPaths(failed []client.Failure) []string {
	paths := make([]string, len(failed))
	for i, f := range failed {
		paths[i] = f.Path
	}
	return paths
}
