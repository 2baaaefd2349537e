package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"atelier/internal/client"
	"atelier/internal/editor"
	"atelier/internal/store"
)

// options are the global flags shared by every command.
type options struct {
	api      string
	token    string
	stateDir string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "atelierctl",
		Short: "Edit the Atelier site content from the command line",
		Long: `atelierctl reads and edits the five site documents (hero, projects,
about, services, contact) through the server's JSON API.

Every edit is also written to a local state directory. When the server
cannot be reached the edit stays there, marked unsynced, until
"atelierctl sync" pushes it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.stateDir == "" {
				dir, err := defaultStateDir()
				if err != nil {
					return err
				}
				opts.stateDir = dir
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.api, "api", envOrDefault("ATELIER_API", "http://localhost:8080"), "server base URL (env ATELIER_API)")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("ATELIER_TOKEN"), "API token for writes (env ATELIER_TOKEN)")
	root.PersistentFlags().StringVar(&opts.stateDir, "state-dir", os.Getenv("ATELIER_STATE_DIR"), "local state directory (env ATELIER_STATE_DIR)")

	root.AddCommand(
		newHealthCmd(opts),
		newGetCmd(opts),
		newPutCmd(opts),
		newSetCmd(opts),
		newProjectCmd(opts),
		newServiceCmd(opts),
		newStatusCmd(opts),
		newSyncCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newAdminCmd(),
	)
	return root
}

func (o *options) client() *client.Client {
	var copts []client.Option
	if o.token != "" {
		copts = append(copts, client.WithToken(o.token))
	}
	return client.New(o.api, copts...)
}

// editor opens the local state without contacting the server.
func (o *options) editor() (*editor.Editor, error) {
	local, err := store.NewFileDocumentStore(o.stateDir)
	if err != nil {
		return nil, err
	}
	return editor.New(o.client(), local)
}

// loadedEditor opens the local state and loads all five documents.
func (o *options) loadedEditor(ctx context.Context) (*editor.Editor, error) {
	ed, err := o.editor()
	if err != nil {
		return nil, err
	}
	if _, err := ed.Load(ctx); err != nil {
		return nil, fmt.Errorf("%w\nIs the server running at %s?", err, o.api)
	}
	return ed, nil
}

// defaultStateDir follows XDG_DATA_HOME, falling back to
// ~/.local/share/atelier.
func defaultStateDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "atelier"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "atelier"), nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
