package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/koios/frame-renderer/internal/handlers"
)

var validateConfig string

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a frame config",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := sizes()
		if err != nil {
			exitf("%s", err)
		}
		body, err := readInput(validateConfig)
		if err != nil {
			exitf("failed to read config: %s", err)
		}
		_, resp, err := handlers.ParseConfig(body, s)
		if err != nil {
			exitf("%s", err)
		}
		if resp.Valid {
			fmt.Println("valid")
			return
		}
		for _, e := range resp.Errors {
			fmt.Printf("%s [%s]: %s\n", e.Field, e.Code, e.Message)
		}
		os.Exit(2)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&validateConfig, "config", "c", "-", "frame config JSON file (- for stdin)")
}
