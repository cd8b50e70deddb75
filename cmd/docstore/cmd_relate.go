package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mycelicmemory/docstore/internal/relationship"
)

var (
	relateType     string
	relateStrength float64
	relateContext  string
)

// relateCmd represents the relate command. It sets the parent/child
// hierarchy link (spec.md §4.3 set_relationship).
var relateCmd = &cobra.Command{
	Use:   "relate <parent-id> <child-id>",
	Short: "Link a child under a parent",
	Long: `Set the hierarchy parent/child link between two nodes.

Examples:
  docstore relate proj-123 task-456`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runRelate(args[0], args[1])
	},
}

// edgeCmd represents the edge command, a typed-graph-edge supplement
// separate from the hierarchy link (SPEC_FULL.md §4).
var edgeCmd = &cobra.Command{
	Use:   "edge <source-id> <target-id>",
	Short: "Create a typed relationship edge between two nodes",
	Long: `Create a typed relationship edge between two nodes, independent
of the hierarchy parent/child model.

Examples:
  docstore edge node-1 node-2 --type references --strength 0.8`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runEdge(args[0], args[1])
	},
}

func init() {
	edgeCmd.Flags().StringVar(&relateType, "type", "references", "relationship type")
	edgeCmd.Flags().Float64Var(&relateStrength, "strength", 0.5, "relationship strength in [0,1]")
	edgeCmd.Flags().StringVar(&relateContext, "context", "", "free-form context note")
	rootCmd.AddCommand(relateCmd)
	rootCmd.AddCommand(edgeCmd)
}

func runRelate(parentID, childID string) {
	store, err := loadStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.SetRelationship(context.Background(), parentID, childID); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("related")
}

func runEdge(sourceID, targetID string) {
	store, err := loadStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	edge, err := store.Relationships().Create(context.Background(), &relationship.CreateOptions{
		SourceMemoryID:   sourceID,
		TargetMemoryID:   targetID,
		RelationshipType: relateType,
		Strength:         relateStrength,
		Context:          relateContext,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(edge.ID)
}
