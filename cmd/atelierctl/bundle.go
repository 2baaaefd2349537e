package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"atelier/internal/models"
)

// bundle is the export file: every document keyed by resource name, with
// the stored JSON field names.
type bundle map[string]any

func newExportCmd(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all five documents to one YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			docs := make([]any, len(models.Resources))

			g, ctx := errgroup.WithContext(cmd.Context())
			for i, r := range models.Resources {
				g.Go(func() error {
					raw, err := c.GetRaw(ctx, r)
					if err != nil {
						return fmt.Errorf("%s: %w", r, err)
					}
					return json.Unmarshal(raw, &docs[i])
				})
			}
			if err := g.Wait(); err != nil {
				return fmt.Errorf("export: %w", err)
			}

			b := bundle{}
			for i, r := range models.Resources {
				b[r.String()] = docs[i]
			}
			data, err := yaml.Marshal(b)
			if err != nil {
				return fmt.Errorf("encode bundle: %w", err)
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default standard output)")
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import -f <bundle.yaml>",
		Short: "Replace documents with the ones in an export file",
		Long: `Replace documents with the ones in an export file. Only the
resources present in the file are replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if file == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}

			var b bundle
			if err := yaml.Unmarshal(data, &b); err != nil {
				return fmt.Errorf("decode %s: %w", file, err)
			}
			for name := range b {
				if _, err := parseResource(name); err != nil {
					return err
				}
			}

			c := opts.client()
			for _, r := range models.Resources {
				doc, ok := b[r.String()]
				if !ok {
					continue
				}
				raw, err := json.Marshal(doc)
				if err != nil {
					return fmt.Errorf("encode %s: %w", r, err)
				}
				if err := c.PutRaw(cmd.Context(), r, raw, nil); err != nil {
					return fmt.Errorf("import %s: %w", r, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s replaced\n", r)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "export file to read")
	cmd.MarkFlagRequired("file")
	return cmd
}
