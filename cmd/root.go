package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nutrilog-ai/nutrilog/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "nutrilog",
	Short: "AI meal analysis with a content-addressed inference cache",
	Long:  "Analyzes meals (text, voice transcript, or photo) into structured nutrition via a two-provider AI chain, deduplicating repeat queries through the Smart Saver fingerprint cache.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
