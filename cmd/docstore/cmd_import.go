package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mycelicmemory/docstore/internal/importer"
)

// importCmd represents the import command (spec.md §6 legacy importer).
var importCmd = &cobra.Command{
	Use:   "import <export-dir>",
	Short: "Import an exported legacy corpus",
	Long: `Read a manifest-driven legacy export directory and map each
record into the store's Node model.

Examples:
  docstore import ./legacy-export`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runImport(args[0])
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(dir string) {
	store, err := loadStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	stats, err := importer.Import(context.Background(), store, dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("imported %d/%d records\n", stats.ImportedRecords, stats.TotalRecords)
	for table, count := range stats.ByTable {
		fmt.Printf("  %s: %d\n", table, count)
	}
	if len(stats.Errors) > 0 {
		fmt.Fprintf(os.Stderr, "%d errors:\n", len(stats.Errors))
		for _, e := range stats.Errors {
			fmt.Fprintf(os.Stderr, "  %s\n", e)
		}
		os.Exit(1)
	}
}
