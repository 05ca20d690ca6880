package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nutrilog-ai/nutrilog/internal/analyzer"
)

var (
	analyzeImagePath  string
	analyzeTranscript string
	analyzeMealType   string
	analyzeNoCache    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [meal description]",
	Short: "Analyze a single meal from text, transcript, and/or photo",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, st, err := initAnalyzer(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		req := analyzer.Request{
			AudioTranscript: analyzeTranscript,
			MealType:        analyzeMealType,
			SkipCache:       analyzeNoCache,
		}
		if len(args) > 0 {
			req.Text = args[0]
		}
		if analyzeImagePath != "" {
			data, err := os.ReadFile(analyzeImagePath)
			if err != nil {
				return eris.Wrap(err, "read image")
			}
			req.ImageBytes = data
			req.ImageMime = mimeForPath(analyzeImagePath)
		}

		out := a.Analyze(ctx, req)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
		if !out.Success {
			return fmt.Errorf("%s", out.Message)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeImagePath, "image", "", "path to a meal photo")
	analyzeCmd.Flags().StringVar(&analyzeTranscript, "transcript", "", "voice note transcript")
	analyzeCmd.Flags().StringVar(&analyzeMealType, "meal-type", "", "meal type hint (breakfast, lunch, dinner, snack)")
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "bypass the inference cache")
	rootCmd.AddCommand(analyzeCmd)
}

func mimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
