package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/koios/frame-renderer/pkg/models"
)

var development bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "framer",
	Short: "Framer composes and exports avatar frames",
	Long: `Framer composes avatar frames from a JSON frame config and exports
them as PNG. It can also convert configs to and from remix codes.

Render sizes are read from the environment:
  FRAMER_DISPLAY_SIZE  editor preview size (default 320)
  FRAMER_CANVAS_SIZE   export size (default 1024)
  FRAMER_DRAFTS_DIR    draft directory (default $HOME/.framer/drafts)
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVar(&development, "dev", false, "development logging")
}

// initConfig reads ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("FRAMER")
	viper.AutomaticEnv()
	viper.SetDefault("display_size", models.DisplaySize)
	viper.SetDefault("canvas_size", models.CanvasSize)
	viper.SetDefault("drafts_dir", "")
}

func sizes() (models.RenderSizes, error) {
	s := models.RenderSizes{
		Display: viper.GetInt("display_size"),
		Canvas:  viper.GetInt("canvas_size"),
	}
	return s, s.Check()
}

func newLogger() *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		logger, err = cfg.Build()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func exitf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
