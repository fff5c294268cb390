// coactl is a CLI tool for querying and feeding the Coa issues API.
//
// Installation:
//
//	go build -o coactl ./cmd/coactl
//	mv coactl /usr/local/bin/
//
// Usage:
//
//	coactl issues list security my-namespace
//	coactl issues submit -f findings.yaml
//	coactl namespaces
//	coactl status
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:3000"

var (
	version   = "dev"
	outputFmt string
	serverURL string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "coactl",
		Short: "Query and submit Kubernetes object issues",
		Long: `coactl is a CLI tool for interacting with the Coa API service.

It lists the issues recorded against the objects of a namespace, by
category, and submits batches of issues found by scanners.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv("COA_SERVER")
	if server == "" {
		server = defaultServer
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", server, "Coa API base URL (env COA_SERVER)")

	rootCmd.AddCommand(issuesCmd())
	rootCmd.AddCommand(namespacesCmd())
	rootCmd.AddCommand(statusCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
