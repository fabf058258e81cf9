package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "terrasoctl",
	Short: "Run and operate the Terraso API server",
	Long: `terrasoctl runs the Terraso API server and the operator tasks around it:
schema migrations, configuration inspection, backups and data retention.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
