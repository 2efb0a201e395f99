// Package main provides the outreach_agent command line: hunting leads, managing the
// lead table, dispatching drafted emails and serving the HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "outreach_agent",
	Short: "Outreach lead pipeline",
	Long: `Outreach Agent discovers prospective clients through web search, qualifies each one with a
language model that drafts a personalized cold email, stores the results, and sends the drafts over SMTP.`,
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
