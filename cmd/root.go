// Package cmd defines and implements the CLI commands for the
// advisorycrawler executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advisorycrawler",
		Short: "Crawls a public advisory site and stores the product/vulnerability/CVE graph.",
		Long: `advisorycrawler discovers the vulnerabilities a public advisory site
lists for a named product, resolves each one to its CVE identifiers, and
persists the resulting graph into an embedded relational database with
duplicate-safe semantics.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults + ADVISORY_* env)")

	cmd.AddCommand(newCrawlCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
