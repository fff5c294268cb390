package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/nerzhul/coa/internal/api"
	"github.com/nerzhul/coa/internal/types"
)

var (
	submitFile string
)

func issuesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "List or submit issues",
	}
	cmd.AddCommand(issuesListCmd())
	cmd.AddCommand(issuesSubmitCmd())
	return cmd
}

func issuesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <category> <namespace>",
		Short: "List objects with issues of a category in a namespace",
		Long: `List the objects of a namespace carrying issues of one category.

Categories: ` + categoryNames() + `.

Examples:
  # Security issues in team-alpha
  coactl issues list security team-alpha

  # Output as YAML
  coactl issues list reliability team-alpha -o yaml`,
		Args: cobra.ExactArgs(2),
		RunE: runIssuesList,
	}
}

func categoryNames() string {
	names := make([]string, 0, len(types.AllIssueCategories()))
	for _, c := range types.AllIssueCategories() {
		names = append(names, c.String())
	}
	return strings.Join(names, ", ")
}

func runIssuesList(cmd *cobra.Command, args []string) error {
	category, err := types.ParseIssueCategory(args[0])
	if err != nil {
		return err
	}
	namespace := args[1]

	resp, err := newAPIClient(serverURL).ListIssues(context.Background(), category, namespace)
	if err != nil {
		return fmt.Errorf("failed to list issues: %w", err)
	}

	result := ListResult{
		Namespace: namespace,
		Category:  category.String(),
		Objects:   resp.Issues,
	}
	for _, o := range resp.Issues {
		result.Total += len(o.Issues)
	}
	return outputResult(cmd.OutOrStdout(), result, outputFmt)
}

func issuesSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a batch of issues from a YAML or JSON file",
		Long: `Submit a batch of issues. The file holds {"issues": [...]} in YAML or JSON.

Submission stops at the first failing issue; issues before it stay stored.

Examples:
  # Submit scanner findings
  coactl issues submit -f findings.yaml`,
		RunE: runIssuesSubmit,
	}

	cmd.Flags().StringVarP(&submitFile, "filename", "f", "", "Issue batch file (required)")
	cmd.MarkFlagRequired("filename")

	return cmd
}

func runIssuesSubmit(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(submitFile)
	if err != nil {
		return fmt.Errorf("failed to read batch: %w", err)
	}
	var req api.SubmitRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("failed to parse batch: %w", err)
	}

	resp, err := newAPIClient(serverURL).SubmitIssues(context.Background(), req.Issues)
	result := SubmitResult{Submitted: len(req.Issues), Stored: resp.Stored, Status: resp.Status}
	if err != nil {
		result.Status = "error"
		_ = outputResult(cmd.OutOrStdout(), result, outputFmt)
		return fmt.Errorf("failed to submit issues: %w", err)
	}
	return outputResult(cmd.OutOrStdout(), result, outputFmt)
}
