package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"atelier/internal/models"
	"atelier/internal/slug"
)

func newProjectCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Add, change or remove portfolio projects",
	}
	cmd.AddCommand(newProjectListCmd(opts), newProjectSaveCmd(opts), newProjectDeleteCmd(opts))
	return cmd
}

func newProjectListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects in stored order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := opts.client().Projects(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range projects {
				star := " "
				if p.Featured {
					star = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-26s %-30s %s\n", star, p.ID, p.Slug, p.Title)
			}
			return nil
		},
	}
}

func newProjectSaveCmd(opts *options) *cobra.Command {
	var (
		p       models.Project
		fullMD  string
		gallery []string
		upload  string
	)
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create a project, or update the one named by --id",
		Long: `Create a project, or update the one named by --id. When updating,
only the flags you pass are changed. The slug is generated from the title
when left empty.`,
		Example: `  atelierctl project save --title "Moda Loft" --category Residential --featured
  atelierctl project save --id 01J... --year 2026 --upload ./loft.jpg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ed, err := opts.loadedEditor(ctx)
			if err != nil {
				return err
			}

			target := models.Project{ID: p.ID}
			if p.ID != "" {
				projects := ed.Snapshot().Projects
				if i := slices.IndexFunc(projects, func(x models.Project) bool { return x.ID == p.ID }); i >= 0 {
					target = projects[i]
				}
			}

			flags := cmd.Flags()
			set := func(name string, dst *string, val string) {
				if flags.Changed(name) {
					*dst = strings.TrimSpace(val)
				}
			}
			set("title", &target.Title, p.Title)
			set("slug", &target.Slug, p.Slug)
			set("category", &target.Category, p.Category)
			set("description", &target.Description, p.Description)
			set("full-description", &target.FullDescription, p.FullDescription)
			set("location", &target.Location, p.Location)
			set("year", &target.Year, p.Year)
			set("area", &target.Area, p.Area)
			set("main-image", &target.MainImage, p.MainImage)
			if flags.Changed("featured") {
				target.Featured = p.Featured
			}
			if flags.Changed("gallery") {
				target.GalleryImages = gallery
			}
			if fullMD != "" {
				data, err := os.ReadFile(fullMD)
				if err != nil {
					return fmt.Errorf("read %s: %w", fullMD, err)
				}
				target.FullDescription = string(data)
			}
			if upload != "" {
				url, err := uploadFile(cmd, opts, upload)
				if err != nil {
					return err
				}
				target.MainImage = url
			}

			if strings.TrimSpace(target.Title) == "" {
				return fmt.Errorf("a project needs a --title")
			}
			target.Slug = slug.Generate(target.Slug)
			if target.Slug == "" {
				target.Slug = slug.Generate(target.Title)
			}

			out, err := ed.SaveProject(ctx, target)
			if err := saved(cmd, models.ResourceProjects, err); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "id %s, /project/%s\n", out.ID, out.Slug)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&p.ID, "id", "", "id of the project to update")
	f.StringVar(&p.Title, "title", "", "title")
	f.StringVar(&p.Slug, "slug", "", "URL slug (generated from the title when empty)")
	f.StringVar(&p.Category, "category", "", "category, e.g. Residential")
	f.StringVar(&p.Description, "description", "", "short description")
	f.StringVar(&p.FullDescription, "full-description", "", "full description (Markdown)")
	f.StringVar(&fullMD, "full-description-file", "", "read the full description from a Markdown file")
	f.StringVar(&p.Location, "location", "", "location")
	f.StringVar(&p.Year, "year", "", "year")
	f.StringVar(&p.Area, "area", "", `area, e.g. "240 m²"`)
	f.StringVar(&p.MainImage, "main-image", "", "main image URL")
	f.StringVar(&upload, "upload", "", "upload this image file and use it as the main image")
	f.StringSliceVar(&gallery, "gallery", nil, "gallery image URLs (comma separated or repeated)")
	f.BoolVar(&p.Featured, "featured", false, "show on the homepage")
	return cmd
}

func newProjectDeleteCmd(opts *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ed, err := opts.loadedEditor(ctx)
			if err != nil {
				return err
			}
			projects := ed.Snapshot().Projects
			i := slices.IndexFunc(projects, func(x models.Project) bool { return x.ID == args[0] })
			if i < 0 {
				return fmt.Errorf("no project with id %q", args[0])
			}
			if !yes && !confirm(cmd, fmt.Sprintf("Delete project %q?", projects[i].Title)) {
				fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
				return nil
			}
			return saved(cmd, models.ResourceProjects, ed.DeleteProject(ctx, args[0]))
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newServiceCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Add, change or remove services",
	}
	cmd.AddCommand(newServiceListCmd(opts), newServiceSaveCmd(opts), newServiceDeleteCmd(opts))
	return cmd
}

func newServiceListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List services in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.client().Services(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range models.SortServices(services) {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d %-26s %s\n", s.OrderIndex, s.ID, s.Title)
			}
			return nil
		},
	}
}

func newServiceSaveCmd(opts *options) *cobra.Command {
	var s models.Service
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create a service, or update the one named by --id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ed, err := opts.loadedEditor(ctx)
			if err != nil {
				return err
			}

			target := models.Service{ID: s.ID}
			if s.ID != "" {
				services := ed.Snapshot().Services
				if i := slices.IndexFunc(services, func(x models.Service) bool { return x.ID == s.ID }); i >= 0 {
					target = services[i]
				}
			}
			flags := cmd.Flags()
			if flags.Changed("title") {
				target.Title = strings.TrimSpace(s.Title)
			}
			if flags.Changed("description") {
				target.Description = strings.TrimSpace(s.Description)
			}
			if flags.Changed("order") {
				target.OrderIndex = s.OrderIndex
			}
			if strings.TrimSpace(target.Title) == "" {
				return fmt.Errorf("a service needs a --title")
			}

			out, err := ed.SaveService(ctx, target)
			if err := saved(cmd, models.ResourceServices, err); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "id %s\n", out.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&s.ID, "id", "", "id of the service to update")
	f.StringVar(&s.Title, "title", "", "title")
	f.StringVar(&s.Description, "description", "", "description")
	f.IntVar(&s.OrderIndex, "order", 0, "display order, lower first")
	return cmd
}

func newServiceDeleteCmd(opts *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ed, err := opts.loadedEditor(ctx)
			if err != nil {
				return err
			}
			services := ed.Snapshot().Services
			i := slices.IndexFunc(services, func(x models.Service) bool { return x.ID == args[0] })
			if i < 0 {
				return fmt.Errorf("no service with id %q", args[0])
			}
			if !yes && !confirm(cmd, fmt.Sprintf("Delete service %q?", services[i].Title)) {
				fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
				return nil
			}
			return saved(cmd, models.ResourceServices, ed.DeleteService(ctx, args[0]))
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func uploadFile(cmd *cobra.Command, opts *options, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	m, err := opts.client().UploadMedia(cmd.Context(), filepath.Base(path), f)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s (%s)\n", m.URL, m.HumanSize())
	return m.URL, nil
}
