package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mycelicmemory/docstore/internal/schema"
)

var rootType string

// childrenCmd represents the children command.
var childrenCmd = &cobra.Command{
	Use:   "children <parent-id>",
	Short: "List the immediate children of a node",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runChildren(args[0])
	},
}

// rootQueryCmd is named to avoid colliding with the cobra rootCmd; it
// implements spec.md's find_by_root / find_by_root_and_type.
var rootQueryCmd = &cobra.Command{
	Use:   "root <root-id>",
	Short: "List every node sharing a root id",
	Long: `List every node sharing a root id, optionally filtered by type.

Examples:
  docstore root proj-123
  docstore root proj-123 --type task`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runRootQuery(args[0])
	},
}

func init() {
	rootQueryCmd.Flags().StringVar(&rootType, "type", "", "filter by node type")
	rootCmd.AddCommand(childrenCmd)
	rootCmd.AddCommand(rootQueryCmd)
}

func runChildren(parentID string) {
	store, err := loadStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	children, err := store.FindChildren(context.Background(), parentID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	printNodeList(children)
}

func runRootQuery(rootID string) {
	store, err := loadStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	var nodes []schema.Node
	if rootType != "" {
		nodes, err = store.FindByRootAndType(ctx, rootID, rootType)
	} else {
		nodes, err = store.FindByRoot(ctx, rootID)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	printNodeList(nodes)
}

func printNodeList(nodes []schema.Node) {
	if len(nodes) == 0 {
		fmt.Println("no nodes found")
		return
	}
	for _, n := range nodes {
		fmt.Printf("%s\t%s\t%v\n", n.ID, n.Type, n.Content)
	}
}
