package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/agentic-research/lina/api"
	"github.com/agentic-research/lina/internal/document"
	"github.com/agentic-research/lina/internal/engine"
	"github.com/agentic-research/lina/internal/extract"
	"github.com/agentic-research/lina/internal/ingest"
	"github.com/agentic-research/lina/internal/query"
	"github.com/agentic-research/lina/internal/tree"
	"github.com/spf13/cobra"
)

// errValidationFailed makes validate exit non-zero without an error message.
var errValidationFailed = errors.New("validation failed")

var (
	groupsPath string
	specPath   string
	selector   string
	strict     bool
)

var findCmd = &cobra.Command{
	Use:   "find [snapshot|source-file]",
	Short: "Print the nodes matching each query group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := loadTree(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		groups, err := api.LoadQueryGroups(groupsPath)
		if err != nil {
			return err
		}
		return writeDocument(cmd, engine.FindDocuments(root, groups))
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [snapshot|source-file]",
	Short: "Check that every query group matches at least one node",
	Long:  "Prints true or false. Exits 1 when validation fails.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := loadTree(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		groups, err := api.LoadQueryGroups(groupsPath)
		if err != nil {
			return err
		}
		ok := query.Validate(root, groups)
		fmt.Fprintln(cmd.OutOrStdout(), ok)
		if !ok {
			return errValidationFailed
		}
		return nil
	},
}

var serializeCmd = &cobra.Command{
	Use:   "serialize [snapshot|source-file]",
	Short: "Serialize a tree into a document",
	Long: `Serialize a JSON snapshot, or a source file parsed with tree-sitter
(.go, .py, .js, .html, .hcl, .tf, .yaml), into {className, content, children}.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := loadTree(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if src, ok := root.(*ingest.SitterNode); ok {
			if errs := src.SyntaxErrors(args[0]); len(errs) > 0 {
				for i := range errs {
					logger.Warn("source has syntax errors", "error", errs[i].Error())
				}
				if strict {
					return &errs[0]
				}
			}
		}
		return writeDocument(cmd, document.Serialize(root))
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract [document.json]",
	Short: "Run an extraction config against a serialized document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}
		doc, err := document.ParseJSON(data)
		if err != nil {
			return err
		}
		spec, err := api.LoadExtraction(specPath)
		if err != nil {
			return err
		}
		return writeDocument(cmd, extract.Extract(doc, spec))
	},
}

func init() {
	for _, c := range []*cobra.Command{findCmd, validateCmd, serializeCmd} {
		c.Flags().StringVar(&selector, "selector", "", "JSONPath to the root element (default: snapshot.root_selector)")
	}
	for _, c := range []*cobra.Command{findCmd, validateCmd} {
		c.Flags().StringVarP(&groupsPath, "groups", "g", "", "Query group config file (JSON or YAML)")
		_ = c.MarkFlagRequired("groups")
	}
	serializeCmd.Flags().BoolVar(&strict, "strict", false, "Fail when a source file has syntax errors")
	extractCmd.Flags().StringVarP(&specPath, "spec", "s", "", "Extraction config file (JSON or YAML)")
	_ = extractCmd.MarkFlagRequired("spec")

	rootCmd.AddCommand(findCmd, validateCmd, serializeCmd, extractCmd)
}

// loadTree reads a source file through tree-sitter or a JSON snapshot.
func loadTree(ctx context.Context, path string) (tree.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if ingest.IsSource(path) {
		node, err := ingest.ParseSource(ctx, path, data)
		if err != nil {
			return nil, err
		}
		return node, nil
	}
	sel := selector
	if sel == "" {
		sel = cfg.Snapshot.RootSelector
	}
	el, err := ingest.ParseSnapshot(data, sel)
	if err != nil {
		return nil, err
	}
	return el, nil
}

func writeDocument(cmd *cobra.Command, d document.Document) error {
	raw, err := document.MarshalIndent(d)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return err
}
