package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/koios/frame-renderer/internal/assets"
	"github.com/koios/frame-renderer/internal/engine"
	"github.com/koios/frame-renderer/internal/handlers"
	"github.com/koios/frame-renderer/internal/metrics"
	"github.com/koios/frame-renderer/internal/raster"
)

var (
	renderConfig  string
	renderAvatar  string
	renderQuality string
	renderOut     string
	renderTimeout time.Duration
)

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a frame config to PNG",
	Long: `Render a frame config to a PNG file. The avatar may be an http(s) URL,
a data URL or a local path. Asset failures are reported but do not stop the
render; an invalid config renders the default frame.

For example:

framer render --config frame.json --avatar me.png --quality export --out frame.png
`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger()
		defer logger.Sync()

		s, err := sizes()
		if err != nil {
			exitf("%s", err)
		}

		quality, err := raster.ParseQuality(renderQuality)
		if err != nil {
			exitf("%s", err)
		}

		body, err := readInput(renderConfig)
		if err != nil {
			exitf("failed to read config: %s", err)
		}
		cfg, resp, err := handlers.ParseConfig(body, s)
		if err != nil {
			exitf("%s", err)
		}
		for _, e := range resp.Errors {
			fmt.Fprintf(os.Stderr, "invalid %s: %s\n", e.Field, e.Message)
		}

		avatar, err := avatarURL(renderAvatar)
		if err != nil {
			exitf("%s", err)
		}

		exporter, err := raster.NewExporter()
		if err != nil {
			exitf("%s", err)
		}
		// local paths are the common case here
		opts := assets.DefaultOptions()
		opts.AllowFile = true
		eng, err := engine.New(s, assets.NewLoader(opts, logger), exporter, metrics.New(), logger)
		if err != nil {
			exitf("%s", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), renderTimeout)
		defer cancel()

		result, err := eng.Render(ctx, engine.Request{
			Target:    "cli",
			Config:    cfg,
			AvatarURL: avatar,
			Quality:   quality,
		})
		if err != nil {
			exitf("render failed: %s", err)
		}

		for _, f := range result.Output.Failures {
			logger.Warn("Asset failed", zap.String("element", f.Element), zap.String("error", f.Error))
			fmt.Fprintf(os.Stderr, "asset %s failed: %s\n", f.Element, f.Error)
		}

		if err := os.WriteFile(renderOut, result.Output.PNG, 0o644); err != nil {
			exitf("failed to write %s: %s", renderOut, err)
		}
		fmt.Printf("wrote %s (%dx%d)\n", renderOut, result.Output.Image.Bounds().Dx(), result.Output.Image.Bounds().Dy())
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderConfig, "config", "c", "-", "frame config JSON file (- for stdin)")
	renderCmd.Flags().StringVarP(&renderAvatar, "avatar", "a", "", "avatar image URL or path")
	renderCmd.Flags().StringVarP(&renderQuality, "quality", "q", "export", "preview or export")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "frame.png", "output PNG file")
	renderCmd.Flags().DurationVar(&renderTimeout, "timeout", 60*time.Second, "render timeout")
}

// avatarURL turns a local path into a file URL and passes URLs through.
func avatarURL(ref string) (string, error) {
	if ref == "" || strings.Contains(ref, ":") {
		return ref, nil
	}
	abs, err := filepath.Abs(ref)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}
