package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mycelicmemory/docstore/internal/columnar"
	"github.com/mycelicmemory/docstore/pkg/config"
)

// doctorCmd represents the doctor command.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check store configuration and health",
	Long:  `Run a check to verify the configuration loads and the table opens cleanly.`,
	Run: func(cmd *cobra.Command, args []string) {
		runDoctor()
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor() {
	fmt.Println("docstore System Check")
	fmt.Println("======================")
	fmt.Println()

	allOk := true

	fmt.Print("Configuration... ")
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		allOk = false
	} else if err := cfg.Validate(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		allOk = false
	} else {
		fmt.Println("OK")
	}

	fmt.Print("Table... ")
	if cfg != nil {
		if _, err := os.Stat(cfg.Store.Path); os.IsNotExist(err) {
			fmt.Println("NOT INITIALIZED (will be created on first use)")
		} else {
			table, err := columnar.Open(cfg.Store.Path, cfg.Store.VectorDimension, cfg.Store.DefaultBatchSize)
			if err != nil {
				fmt.Printf("ERROR: %v\n", err)
				allOk = false
			} else {
				rows, err := table.Scan(context.Background(), columnar.All(), 0)
				if err != nil {
					fmt.Printf("ERROR: %v\n", err)
					allOk = false
				} else {
					fmt.Printf("OK (%d nodes)\n", len(rows))
				}
				table.Close()
			}
		}
		fmt.Printf("  Path: %s\n", cfg.Store.Path)
		fmt.Printf("  Vector dimension: %d\n", cfg.Store.VectorDimension)
	}

	fmt.Println()
	if allOk {
		fmt.Println("All systems operational.")
	} else {
		fmt.Println("Some issues detected. Please review the errors above.")
	}

	fmt.Println()
	fmt.Println("Configuration:")
	if cfg != nil {
		fmt.Printf("  Config dir: %s\n", config.ConfigPath())
	}
}
