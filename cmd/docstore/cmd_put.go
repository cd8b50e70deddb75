package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mycelicmemory/docstore/internal/schema"
)

var (
	putParentID string
	putRootID   string
	putID       string
)

// putCmd represents the put command.
var putCmd = &cobra.Command{
	Use:   "put <type> <content...>",
	Short: "Store a node",
	Long: `Store a node of the given type with the given content.

Examples:
  docstore put text "Go channels are like pipes between goroutines"
  docstore put task "Write the quarterly report" --parent proj-123
  docstore put project "Q3 planning" --id proj-123`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runPut(args[0], strings.Join(args[1:], " "))
	},
}

func init() {
	putCmd.Flags().StringVar(&putParentID, "parent", "", "parent node id")
	putCmd.Flags().StringVar(&putRootID, "root", "", "root node id (caller-maintained denormalization)")
	putCmd.Flags().StringVar(&putID, "id", "", "explicit node id (generated if omitted)")
	rootCmd.AddCommand(putCmd)
}

func runPut(nodeType, content string) {
	store, err := loadStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	id, err := store.Store(context.Background(), schema.Node{
		ID:       putID,
		Type:     nodeType,
		Content:  content,
		ParentID: putParentID,
		RootID:   putRootID,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(id)
}
