package cmd

import (
	"fmt"
	"log"
	"os"

	"autodj/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "autodj",
	Short: "AutoDJ is a QR-driven song request and auto mixing kiosk.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting AutoDJ server...")
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
