package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// getCmd represents the get command.
var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a node by id",
	Long: `Retrieve a single node by its id.

Examples:
  docstore get proj-123`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runGet(args[0])
	},
}

// deleteCmd represents the delete command.
var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a node by id",
	Long: `Delete a single node by its id. Rows that referenced it as a
parent are left with a dangling parent_id, as permitted by the store's
invariants.

Examples:
  docstore delete proj-123`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runDelete(args[0])
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runGet(id string) {
	store, err := loadStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	n, ok, err := store.Get(context.Background(), id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Fprintf(os.Stderr, "not found: %s\n", id)
		os.Exit(1)
	}
	fmt.Printf("id:           %s\n", n.ID)
	fmt.Printf("type:         %s\n", n.Type)
	fmt.Printf("content:      %v\n", n.Content)
	fmt.Printf("parent_id:    %s\n", n.ParentID)
	fmt.Printf("root_id:      %s\n", n.RootID)
	fmt.Printf("children_ids: %v\n", n.ChildrenIDs)
	fmt.Printf("created_at:   %s\n", n.CreatedAt)
	fmt.Printf("updated_at:   %s\n", n.UpdatedAt)
}

func runDelete(id string) {
	store, err := loadStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Delete(context.Background(), id); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("deleted")
}
