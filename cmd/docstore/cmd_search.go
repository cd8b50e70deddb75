package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var searchLimit int

// searchCmd represents the search command. It runs the substring
// scan_text operation (spec.md §4.6); it takes no query vector and does
// no ranking.
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search node content",
	Long: `Search for nodes whose content contains the given text.

Examples:
  docstore search "quarterly report" --limit 10`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSearch(args[0])
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(query string) {
	store, err := loadStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	nodes, err := store.ScanText(context.Background(), query, searchLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	printNodeList(nodes)
}
