package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func namespacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "namespaces",
		Short: "List the cluster's namespaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newAPIClient(serverURL).Namespaces(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list namespaces: %w", err)
			}
			return outputResult(cmd.OutOrStdout(), NamespacesResult{Namespaces: resp.Namespaces}, outputFmt)
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the API service's cluster and readiness",
		Long: `Show which cluster the API service serves and whether its database is reachable.

Examples:
  # Show status
  coactl status

  # Output as JSON
  coactl status -o json`,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL)
	ctx := context.Background()

	cluster, err := client.Cluster(ctx)
	if err != nil {
		return fmt.Errorf("failed to get cluster: %w", err)
	}
	ready, err := client.Ready(ctx)
	if err != nil {
		return fmt.Errorf("failed to check readiness: %w", err)
	}

	return outputResult(cmd.OutOrStdout(), StatusResult{
		Server:  serverURL,
		Cluster: cluster.Name,
		Ready:   ready,
	}, outputFmt)
}
