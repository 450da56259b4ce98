package commands

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/nixdead/pkg/pipeline"
)

// RefsResult is the JSON output of the refs command.
type RefsResult struct {
	File         string   `json:"file"`
	Category     string   `json:"category"`
	EntryPoint   bool     `json:"entry_point"`
	Reachable    bool     `json:"reachable"`
	Depth        *int     `json:"depth,omitempty"`
	References   []string `json:"references"`
	ReferencedBy []string `json:"referenced_by"`
}

// refsCmd represents the refs command
var refsCmd = &cobra.Command{
	Use:   "refs <file>",
	Short: "Show references to and from one file",
	Long: `Lists the files a module references and the files that reference it,
along with its depth from the nearest entry point. Useful to check why a file
is reported as used or unused.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, _ := cmd.Flags().GetString("root")
		_, _, analyzer, err := setup(cmd, root)
		if err != nil {
			return err
		}
		res, err := analyzer.Run(root)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		id, err := nodeID(res.Root, args[0])
		if err != nil {
			return err
		}
		out, err := lookupRefs(res, id)
		if err != nil {
			return err
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, titleStyle.Render(out.File))
		fmt.Fprintln(w, row("Category", out.Category))
		fmt.Fprintln(w, row("Entry point", out.EntryPoint))
		if out.Reachable {
			fmt.Fprintln(w, row("Reachable", goodStyle.Render(fmt.Sprintf("yes (depth %d)", *out.Depth))))
		} else {
			fmt.Fprintln(w, row("Reachable", warnStyle.Render("no")))
		}
		printList(cmd, "References", out.References)
		printList(cmd, "Referenced by", out.ReferencedBy)
		return nil
	},
}

func printList(cmd *cobra.Command, title string, items []string) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\n%s (%d)\n", titleStyle.Render(title), len(items))
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
}

// nodeID turns a user-supplied path into a repository-relative node id.
// Relative paths are taken relative to root.
func nodeID(root, file string) (string, error) {
	if !filepath.IsAbs(file) {
		return filepath.ToSlash(filepath.Clean(strings.TrimPrefix(file, "./"))), nil
	}
	rel, err := filepath.Rel(root, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the repository %s", file, root)
	}
	return filepath.ToSlash(rel), nil
}

func lookupRefs(res *pipeline.Result, id string) (*RefsResult, error) {
	node, ok := res.Graph.Node(id)
	if !ok {
		return nil, fmt.Errorf("%s is not a module file of the repository", id)
	}

	out := &RefsResult{
		File:         id,
		Category:     string(node.Category),
		EntryPoint:   res.EntryPoints.Has(id),
		Reachable:    res.Reachable.Has(id),
		References:   res.Graph.Targets(id),
		ReferencedBy: res.Graph.Sources(id),
	}
	if d, ok := res.Depths.Lookup(id); ok {
		out.Depth = &d
	}
	return out, nil
}

func init() {
	refsCmd.Flags().String("root", ".", "Repository root")
	refsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(refsCmd)
}
