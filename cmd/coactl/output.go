package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"sigs.k8s.io/yaml"

	"github.com/nerzhul/coa/internal/types"
)

// ListResult is the result of an issues list command.
type ListResult struct {
	Namespace string                   `json:"namespace"`
	Category  string                   `json:"category"`
	Objects   []types.ObjectWithIssues `json:"objects"`
	Total     int                      `json:"total"`
}

// SubmitResult is the result of an issues submit command.
type SubmitResult struct {
	Status    string `json:"status"`
	Submitted int    `json:"submitted"`
	Stored    int    `json:"stored"`
}

// NamespacesResult is the result of a namespaces command.
type NamespacesResult struct {
	Namespaces []string `json:"namespaces"`
}

// StatusResult is the result of a status command.
type StatusResult struct {
	Server  string `json:"server"`
	Cluster string `json:"cluster"`
	Ready   bool   `json:"ready"`
}

// outputResult outputs the result in the specified format.
func outputResult(out io.Writer, result interface{}, format string) error {
	switch format {
	case "json":
		return outputJSON(out, result)
	case "yaml":
		return outputYAML(out, result)
	default:
		return outputTable(out, result)
	}
}

func outputJSON(out io.Writer, result interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputYAML(out io.Writer, result interface{}) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func outputTable(out io.Writer, result interface{}) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	switch r := result.(type) {
	case ListResult:
		return outputListTable(w, r)
	case SubmitResult:
		fmt.Fprintf(w, "STATUS\t%s\n", r.Status)
		fmt.Fprintf(w, "STORED\t%d/%d\n", r.Stored, r.Submitted)
		return nil
	case NamespacesResult:
		fmt.Fprintln(w, "NAMESPACE")
		for _, ns := range r.Namespaces {
			fmt.Fprintln(w, ns)
		}
		return nil
	case StatusResult:
		fmt.Fprintf(w, "SERVER\t%s\n", r.Server)
		fmt.Fprintf(w, "CLUSTER\t%s\n", r.Cluster)
		fmt.Fprintf(w, "READY\t%t\n", r.Ready)
		return nil
	default:
		// Fall back to JSON for unknown types
		return outputJSON(out, result)
	}
}

func outputListTable(w *tabwriter.Writer, r ListResult) error {
	fmt.Fprintf(w, "NAMESPACE\t%s\n", r.Namespace)
	fmt.Fprintf(w, "CATEGORY\t%s\n", r.Category)
	fmt.Fprintf(w, "TOTAL\t%d\n\n", r.Total)

	fmt.Fprintln(w, "KIND\tNAME\tSEVERITY\tID\tMESSAGE")
	for _, o := range r.Objects {
		if len(o.Issues) == 0 {
			fmt.Fprintf(w, "%s\t%s\t-\t-\t(linked)\n", o.Metadata.ObjectType, o.Metadata.ObjectName)
			continue
		}
		for _, i := range o.Issues {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				o.Metadata.ObjectType, o.Metadata.ObjectName, i.Severity, i.IssueTechID, i.IssueMessage)
		}
	}
	return nil
}
