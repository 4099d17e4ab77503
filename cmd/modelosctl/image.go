package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rodstewart/modelosctl/internal/imagecache"
)

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Manage entry images",
}

var imageUploadCmd = &cobra.Command{
	Use:   "upload <id> <file>",
	Short: "Upload the image of an entry",
	Long: `Upload an image file and attach it to an entry, replacing any previous image.

Examples:
  modelosctl image upload 42 celula.png`,
	Args: cobra.ExactArgs(2),
	RunE: runImageUpload,
}

var imageDownloadCmd = &cobra.Command{
	Use:   "download <id>...",
	Short: "Download the images of one or more entries",
	Long: `Download the image attached to an entry.

With several IDs the images are fetched in parallel and written to the
--output directory as modelo-<id> with the image extension. Entries
without an image are reported and skipped.

Examples:
  modelosctl image download 42
  modelosctl image download 42 -o celula.png
  modelosctl image download 42 43 44 -o imagens`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImageDownload,
}

var imageOutput string

func init() {
	rootCmd.AddCommand(imageCmd)
	imageCmd.AddCommand(imageUploadCmd)
	imageCmd.AddCommand(imageDownloadCmd)

	imageDownloadCmd.Flags().StringVarP(&imageOutput, "output", "o", "", "output file, or directory with several IDs (default: modelo-<id> with the image extension)")
}

func runImageUpload(cmd *cobra.Command, args []string) error {
	id, path := args[0], args[1]

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = file.Close() }()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requireSession(); err != nil {
		return err
	}

	uploaded, err := a.client.UploadImage(cmd.Context(), id, filepath.Base(path), file)
	if err != nil {
		return err
	}
	a.invalidateLists(cmd.Context())

	if jsonOutput {
		return outputJSON(uploaded)
	}
	fmt.Printf("✓ Image uploaded for entry %s\n", uploaded.ID)
	return nil
}

func runImageDownload(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if len(args) > 1 {
		return downloadImages(cmd.Context(), a, args)
	}

	id := args[0]
	data, contentType, err := a.client.GetImage(cmd.Context(), id)
	if err != nil {
		return err
	}

	path := imageOutput
	if path == "" {
		path = "modelo-" + id + imageExtension(contentType)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}

	if jsonOutput {
		return outputJSON(map[string]interface{}{"file": path, "bytes": len(data)})
	}
	fmt.Fprintf(os.Stderr, "Image saved to %s\n", path)
	return nil
}

func imageExtension(contentType string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	return ""
}

// downloadImages fetches several images through a scoped image cache and
// copies them into the output directory
func downloadImages(ctx context.Context, a *app, ids []string) error {
	dir := imageOutput
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	images, err := imagecache.New(a.client, a.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := images.Close(); err != nil {
			a.log.Warn("failed to close image cache", zap.Error(err))
		}
	}()

	cached, err := images.Prefetch(ctx, ids)
	defer func() {
		for id := range cached {
			images.Release(id)
		}
	}()
	if err != nil {
		return err
	}

	files := []string{}
	missing := []string{}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		src, ok := cached[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("failed to read cached image %s: %w", id, err)
		}
		path := filepath.Join(dir, "modelo-"+id+filepath.Ext(src))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write image: %w", err)
		}
		files = append(files, path)
	}

	if jsonOutput {
		if err := outputJSON(map[string]interface{}{"files": files, "missing": missing}); err != nil {
			return err
		}
	} else {
		for _, path := range files {
			fmt.Fprintf(os.Stderr, "Image saved to %s\n", path)
		}
		for _, id := range missing {
			fmt.Fprintf(os.Stderr, "No image for entry %s\n", id)
		}
	}

	if len(files) == 0 {
		return fmt.Errorf("no images downloaded")
	}
	return nil
}
