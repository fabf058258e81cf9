package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/techmatters/terraso-go/pkg/db"
	gormstore "github.com/techmatters/terraso-go/pkg/server/store/gorm"
)

var hardDeleteCmd = &cobra.Command{
	Use:   "harddelete",
	Short: "Permanently remove soft deleted rows",
	Long: `Permanently remove rows that were soft deleted more than --days days ago.

Dependent rows are removed before the rows they reference, in one transaction.

Example:
  terrasoctl harddelete --days 30
  terrasoctl harddelete --days 30 --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if days < 1 {
			return fmt.Errorf("--days must be at least 1")
		}
		cutoff := time.Now().UTC().AddDate(0, 0, -days)

		if dryRun {
			fmt.Printf("Would remove rows deleted before %s\n", cutoff.Format(time.RFC3339))
			return nil
		}

		database, err := db.Connect(db.Config{})
		if err != nil {
			return err
		}
		removed, err := gormstore.NewMaintenanceStore(database).HardDelete(cmd.Context(), cutoff)
		if err != nil {
			return fmt.Errorf("hard delete failed: %w", err)
		}
		printRemoved(cmd, removed)
		return nil
	},
}

func printRemoved(cmd *cobra.Command, removed map[string]int64) {
	tables := make([]string, 0, len(removed))
	for t := range removed {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		fmt.Fprintf(cmd.OutOrStdout(), "%-24s %d\n", t, removed[t])
	}
}

func init() {
	rootCmd.AddCommand(hardDeleteCmd)
	hardDeleteCmd.Flags().Int("days", 30, "Remove rows deleted more than this many days ago")
	hardDeleteCmd.Flags().Bool("dry-run", false, "Print the cutoff without deleting")
}
