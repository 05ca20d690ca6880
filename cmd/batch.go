package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nutrilog-ai/nutrilog/internal/analyzer"
)

var batchConcurrency int

// batchResult pairs one input line with its analysis outcome.
type batchResult struct {
	Query   string           `json:"query"`
	Outcome analyzer.Outcome `json:"outcome"`
}

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze a file of meal descriptions, one per line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrap(err, "open batch file")
		}
		defer f.Close()

		var queries []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" && !strings.HasPrefix(line, "#") {
				queries = append(queries, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return eris.Wrap(err, "read batch file")
		}
		if len(queries) == 0 {
			return eris.New("batch file contains no queries")
		}

		a, st, err := initAnalyzer(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrent
		}

		results := make([]batchResult, len(queries))
		var mu sync.Mutex
		var hits, failures int

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for i, q := range queries {
			g.Go(func() error {
				out := a.Analyze(gctx, analyzer.Request{Text: q})
				mu.Lock()
				results[i] = batchResult{Query: q, Outcome: out}
				if out.CacheHit {
					hits++
				}
				if !out.Success {
					failures++
				}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, res := range results {
			if err := enc.Encode(res); err != nil {
				return err
			}
		}

		zap.L().Info("batch complete",
			zap.Int("queries", len(queries)),
			zap.Int("cache_hits", hits),
			zap.Int("failures", failures),
		)
		if failures > 0 {
			return fmt.Errorf("%d of %d queries failed", failures, len(queries))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max concurrent analyses (overrides config)")
	rootCmd.AddCommand(batchCmd)
}
