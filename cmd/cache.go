package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var cacheSearchLimit int

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the inference cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry and hit totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "entries: %d\ntotal hits: %d\n", stats.Entries, stats.TotalHits)
		return nil
	},
}

var cacheSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search cached meals by text, most popular first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		// Raw store here, not fail-open: a broken cache should be
		// visible to an operator running this by hand.
		recs, err := st.FindSimilar(ctx, args[0], cacheSearchLimit)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no matches")
			return nil
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	},
}

func init() {
	cacheSearchCmd.Flags().IntVar(&cacheSearchLimit, "limit", 10, "max results")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheSearchCmd)
	rootCmd.AddCommand(cacheCmd)
}
