package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/techmatters/terraso-go/pkg/server"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(server.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
