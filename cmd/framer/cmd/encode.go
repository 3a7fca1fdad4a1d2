package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koios/frame-renderer/internal/handlers"
	"github.com/koios/frame-renderer/internal/remix"
)

var encodeConfig string

// encodeCmd represents the encode command
var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode a frame config as a remix code",
	Long: `Encode a valid frame config as a compact remix code that can be shared
and later restored with decode.

For example:

framer encode --config frame.json
`,
	Run: func(cmd *cobra.Command, args []string) {
		s, err := sizes()
		if err != nil {
			exitf("%s", err)
		}
		body, err := readInput(encodeConfig)
		if err != nil {
			exitf("failed to read config: %s", err)
		}
		cfg, resp, err := handlers.ParseConfig(body, s)
		if err != nil {
			exitf("%s", err)
		}
		if !resp.Valid {
			for _, e := range resp.Errors {
				fmt.Printf("%s: %s\n", e.Field, e.Message)
			}
			exitf("config is invalid")
		}
		code, err := remix.Encode(cfg)
		if err != nil {
			exitf("%s", err)
		}
		fmt.Println(code)
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.Flags().StringVarP(&encodeConfig, "config", "c", "-", "frame config JSON file (- for stdin)")
}
