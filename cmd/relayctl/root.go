package main

import (
	"log"

	"github.com/spf13/cobra"

	"relaymesh/pkg/version"
)

var rootCmd = cobra.Command{
	Use:  "relayctl",
	Long: "Operator CLI for the relaymesh routing platform.",
}

var versionCmd = cobra.Command{
	Use:   "version",
	Short: "Prints the build identifier",
	Run: func(_ *cobra.Command, _ []string) {
		log.Printf("relayctl version=%s", version.Build)
	},
}

func init() {
	rootCmd.AddCommand(&createCmd)
	rootCmd.AddCommand(&versionCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
