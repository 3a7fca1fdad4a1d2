package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/koios/frame-renderer/internal/handlers"
	"github.com/koios/frame-renderer/internal/remix"
	"github.com/koios/frame-renderer/internal/store"
)

var draftConfig string

// draftCmd represents the draft command
var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Save and restore frame drafts on disk",
	Long: `Save and restore frame drafts in a local directory, set with
FRAMER_DRAFTS_DIR (default $HOME/.framer/drafts).

For example:

framer draft save --config frame.json
framer draft restore 0b7c...
`,
}

var draftSaveCmd = &cobra.Command{
	Use:   "save [key]",
	Short: "Save a config as a draft, printing its key",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := sizes()
		if err != nil {
			exitf("%s", err)
		}
		body, err := readInput(draftConfig)
		if err != nil {
			exitf("failed to read config: %s", err)
		}
		cfg, resp, err := handlers.ParseConfig(body, s)
		if err != nil {
			exitf("%s", err)
		}
		if !resp.Valid {
			exitf("config is invalid")
		}

		key := remix.NewKey()
		if len(args) == 1 {
			key = args[0]
		}
		if err := drafts().Save(context.Background(), key, cfg); err != nil {
			exitf("%s", err)
		}
		fmt.Println(key)
	},
}

var draftRestoreCmd = &cobra.Command{
	Use:   "restore <key>",
	Short: "Print a saved draft as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := drafts().Restore(context.Background(), args[0])
		if errors.Is(err, remix.ErrNoDraft) {
			exitf("no draft %s", args[0])
		}
		if err != nil {
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
	rootCmd.AddCommand(draftCmd)
	draftCmd.AddCommand(draftSaveCmd, draftRestoreCmd)
	draftSaveCmd.Flags().StringVarP(&draftConfig, "config", "c", "-", "frame config JSON file (- for stdin)")
}

func drafts() *remix.Drafts {
	s, err := sizes()
	if err != nil {
		exitf("%s", err)
	}
	dir := viper.GetString("drafts_dir")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			exitf("set FRAMER_DRAFTS_DIR: %s", err)
		}
		dir = filepath.Join(home, ".framer", "drafts")
	}
	kv, err := store.NewFileKV(dir)
	if err != nil {
		exitf("%s", err)
	}
	return &remix.Drafts{KV: kv, Sizes: s}
}
