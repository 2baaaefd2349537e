package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"atelier/internal/editor"
	"atelier/internal/models"
)

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := opts.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", h["status"], h["message"])
			return nil
		},
	}
}

func newGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "get <resource>",
		Short:     "Print a document as JSON",
		Args:      cobra.ExactArgs(1),
		ValidArgs: resourceNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseResource(args[0])
			if err != nil {
				return err
			}
			raw, err := opts.client().GetRaw(cmd.Context(), r)
			if err != nil {
				return err
			}
			var out bytes.Buffer
			if err := json.Indent(&out, raw, "", "  "); err != nil {
				return fmt.Errorf("format %s: %w", r, err)
			}
			out.WriteByte('\n')
			_, err = out.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
}

func newPutCmd(opts *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "put <resource> -f <file>",
		Short: "Replace a document with the JSON in a file",
		Long: `Replace a whole document. The file must hold an object for hero,
about and contact, and an array of objects for projects and services.
Use "-f -" to read from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseResource(args[0])
			if err != nil {
				return err
			}
			var data []byte
			if file == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			if !json.Valid(data) {
				return fmt.Errorf("%s does not contain valid JSON", file)
			}
			if err := opts.client().PutRaw(cmd.Context(), r, data, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s replaced\n", r)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file to upload")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newSetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set <hero|about|contact> key=value...",
		Short: "Change fields of a singleton document",
		Example: `  atelierctl set hero title="Light, then walls" subtitle=Istanbul
  atelierctl set about projects_count=150+ satisfaction_rate=%98`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseResource(args[0])
			if err != nil {
				return err
			}
			if r.IsList() {
				return fmt.Errorf("%s is a list; use \"atelierctl %s save\"", r, noun(r))
			}
			pairs, err := parsePairs(args[1:])
			if err != nil {
				return err
			}

			ed, err := opts.loadedEditor(cmd.Context())
			if err != nil {
				return err
			}
			snap := ed.Snapshot()

			switch r {
			case models.ResourceHero:
				v := snap.Hero
				if err := applyPairs(&v, pairs); err != nil {
					return err
				}
				_, err = ed.SaveHero(cmd.Context(), v)
			case models.ResourceAbout:
				v := snap.About
				if err := applyPairs(&v, pairs); err != nil {
					return err
				}
				_, err = ed.SaveAbout(cmd.Context(), v)
			case models.ResourceContact:
				v := snap.Contact
				if err := applyPairs(&v, pairs); err != nil {
					return err
				}
				_, err = ed.SaveContact(cmd.Context(), v)
			}
			return saved(cmd, r, err)
		},
	}
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the server state and unsynced local edits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "server:    %s", opts.api)
			if _, err := opts.client().Health(cmd.Context()); err != nil {
				fmt.Fprintf(out, " (unreachable: %v)\n", err)
			} else {
				fmt.Fprintln(out, " (ok)")
			}
			fmt.Fprintf(out, "state dir: %s\n", opts.stateDir)

			ed, err := opts.editor()
			if err != nil {
				return err
			}
			unsynced := ed.Unsynced()
			if len(unsynced) == 0 {
				fmt.Fprintln(out, "unsynced:  none")
				return nil
			}
			names := make([]string, len(unsynced))
			for i, r := range unsynced {
				names[i] = r.String()
			}
			fmt.Fprintf(out, "unsynced:  %s (run \"atelierctl sync\")\n", strings.Join(names, ", "))
			return nil
		},
	}
}

func newSyncCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push unsynced local edits to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := opts.editor()
			if err != nil {
				return err
			}
			pending := ed.Unsynced()
			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to sync")
				return nil
			}
			if err := ed.Retry(cmd.Context()); err != nil {
				return fmt.Errorf("sync incomplete: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d document(s)\n", len(pending))
			return nil
		},
	}
}

// saved reports the outcome of an editor mutation.
func saved(cmd *cobra.Command, r models.Resource, err error) error {
	if errors.Is(err, editor.ErrUnsynced) {
		return fmt.Errorf("%s kept locally but the server did not accept it; run \"atelierctl sync\" once it is reachable: %w", r, err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s saved\n", r)
	return nil
}

func parseResource(name string) (models.Resource, error) {
	r, ok := models.ParseResource(name)
	if !ok {
		return "", fmt.Errorf("unknown resource %q (want one of %s)", name, strings.Join(resourceNames(), ", "))
	}
	return r, nil
}

func resourceNames() []string {
	names := make([]string, len(models.Resources))
	for i, r := range models.Resources {
		names[i] = r.String()
	}
	return names
}

func parsePairs(args []string) (map[string]string, error) {
	pairs := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		pairs[k] = v
	}
	return pairs, nil
}

// applyPairs sets the JSON fields named by pairs on v, a pointer to a
// singleton model. Only existing string fields can be set.
func applyPairs(v any, pairs map[string]string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	editable := editableFields(fields)
	for k, val := range pairs {
		if !slices.Contains(editable, k) {
			return fmt.Errorf("unknown field %q (want one of %s)", k, strings.Join(editable, ", "))
		}
		fields[k] = val
	}

	data, err = json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func editableFields(fields map[string]any) []string {
	var out []string
	for k := range fields {
		switch k {
		case "id", "created_at", "updated_at":
			continue
		}
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func noun(r models.Resource) string {
	if r == models.ResourceServices {
		return "service"
	}
	return "project"
}
