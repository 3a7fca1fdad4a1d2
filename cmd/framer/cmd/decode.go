package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koios/frame-renderer/internal/remix"
)

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode <code>",
	Short: "Decode a remix code into a frame config",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := sizes()
		if err != nil {
			exitf("%s", err)
		}
		cfg, err := remix.Decode(args[0], s)
		if err != nil {
			var perr *remix.ConfigParseError
			if errors.As(err, &perr) {
				exitf("remix code rejected at %s: %s", perr.Stage, perr.Err)
			}
			exitf("%s", err)
		}
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			exitf("%s", err)
		}
		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}
