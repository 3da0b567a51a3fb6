package cli

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	app "github.com/docforge/backend/internal/application/printing"
	"github.com/docforge/backend/internal/domain/printing"
	infra "github.com/docforge/backend/internal/infrastructure/printing"
)

func newTemplateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"templates", "tpl"},
		Short:   "Manage versioned document templates",
	}

	cmd.AddCommand(newTemplateCreateCommand(rootOpts))
	cmd.AddCommand(newTemplateListCommand(rootOpts))
	cmd.AddCommand(newTemplateShowCommand(rootOpts))
	cmd.AddCommand(newTemplateUpdateCommand(rootOpts))
	cmd.AddCommand(newTemplateVersionCommand(rootOpts))
	cmd.AddCommand(newTemplateDuplicateCommand(rootOpts))
	cmd.AddCommand(newTemplateStatusCommand(rootOpts, "activate"))
	cmd.AddCommand(newTemplateStatusCommand(rootOpts, "deactivate"))
	cmd.AddCommand(newTemplateImportCommand(rootOpts))

	return cmd
}

// =============================================================================
// create
// =============================================================================

// TemplateCreateOptions holds flags for template create.
type TemplateCreateOptions struct {
	*RootOptions
	Name          string
	Title         string
	Description   string
	DocumentType  string
	HTMLFile      string
	CSSFile       string
	BrandingFile  string
	MetadataFile  string
	VariablesFile string
}

func newTemplateCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TemplateCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create version 1 of a new template",
		Long: `Create version 1 of a new template.

The markup is compiled before anything is stored, so syntax errors and unknown
filters are reported here rather than at generation time.

Example:
  docgen template create --name invoice-acme --type invoice --html-file invoice.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplateCreate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "unique template name (required)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "display title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.DocumentType, "type", "", "document type (required, see `docgen types`)")
	cmd.Flags().StringVar(&opts.HTMLFile, "html-file", "", "HTML template file (required)")
	cmd.Flags().StringVar(&opts.CSSFile, "css-file", "", "stylesheet file")
	cmd.Flags().StringVar(&opts.BrandingFile, "branding", "", "branding file (.json or .yaml)")
	cmd.Flags().StringVar(&opts.MetadataFile, "metadata", "", "default metadata file")
	cmd.Flags().StringVar(&opts.VariablesFile, "variables", "", "variable declarations file (list of {name, required, example})")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("html-file")

	return cmd
}

func runTemplateCreate(cmd *cobra.Command, opts *TemplateCreateOptions) error {
	req := app.CreateTemplateRequest{
		Name:         opts.Name,
		Title:        opts.Title,
		Description:  opts.Description,
		DocumentType: opts.DocumentType,
	}
	var err error
	if req.HTMLContent, err = readTextFile(opts.HTMLFile); err != nil {
		return err
	}
	if req.CSSContent, err = readTextFile(opts.CSSFile); err != nil {
		return err
	}
	if req.DefaultMetadata, err = readDataFile(opts.MetadataFile, cmd.InOrStdin()); err != nil {
		return err
	}
	if opts.BrandingFile != "" {
		req.Branding = &printing.BrandingConfig{}
		if err := decodeFile(opts.BrandingFile, cmd.InOrStdin(), req.Branding); err != nil {
			return err
		}
	}
	if opts.VariablesFile != "" {
		if err := decodeFile(opts.VariablesFile, cmd.InOrStdin(), &req.Variables); err != nil {
			return err
		}
	}

	return runWithApp(cmd, opts.RootOptions, true, func(a *App) error {
		tmpl, err := a.Service.CreateTemplate(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printTemplate(cmd, opts.RootOptions, "Created", tmpl)
	})
}

// =============================================================================
// list / show
// =============================================================================

// TemplateListOptions holds flags for template list.
type TemplateListOptions struct {
	*RootOptions
	DocumentType string
	Status       string
	Search       string
	Page         int
	PageSize     int
	AllVersions  bool
}

func newTemplateListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TemplateListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List templates, newest version of each by default",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplateList(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DocumentType, "type", "", "only this document type")
	cmd.Flags().StringVar(&opts.Status, "status", "all", "all|active|inactive")
	cmd.Flags().StringVar(&opts.Search, "search", "", "match name, title or description")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 20, "templates per page (max 100)")
	cmd.Flags().BoolVar(&opts.AllVersions, "all-versions", false, "list every version, not only the newest")

	return cmd
}

func runTemplateList(cmd *cobra.Command, opts *TemplateListOptions) error {
	req := app.ListTemplatesRequest{
		Page:         opts.Page,
		PageSize:     opts.PageSize,
		Search:       opts.Search,
		DocumentType: opts.DocumentType,
		LatestOnly:   !opts.AllVersions,
	}
	switch opts.Status {
	case "all", "":
	case "active", "inactive":
		active := opts.Status == "active"
		req.IsActive = &active
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid status %q: must be all, active or inactive", opts.Status))
	}

	return runWithApp(cmd, opts.RootOptions, true, func(a *App) error {
		list, err := a.Service.ListTemplates(cmd.Context(), req)
		if err != nil {
			return err
		}
		p := newPrinter(opts.RootOptions, cmd.OutOrStdout())
		return p.success(list, func(w io.Writer) {
			if len(list.Items) == 0 {
				fmt.Fprintln(w, "No templates found")
				return
			}
			p.table(templateHeader, templateRows(list.Items))
			fmt.Fprintf(w, "\nPage %d, %d of %d templates\n", list.Page, len(list.Items), list.Total)
		})
	})
}

// TemplateShowOptions holds flags for template show.
type TemplateShowOptions struct {
	*RootOptions
	Versions bool
}

func newTemplateShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TemplateShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <template-id>",
		Short: "Show a template version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("template", args[0])
			if err != nil {
				return err
			}
			return runWithApp(cmd, opts.RootOptions, true, func(a *App) error {
				if opts.Versions {
					versions, err := a.Service.ListVersions(cmd.Context(), id)
					if err != nil {
						return err
					}
					p := newPrinter(opts.RootOptions, cmd.OutOrStdout())
					return p.success(versions, func(w io.Writer) {
						p.table(templateHeader, templateRows(versions))
					})
				}
				tmpl, err := a.Service.GetTemplate(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printTemplate(cmd, opts.RootOptions, "", tmpl)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Versions, "versions", false, "list every version of the template family")

	return cmd
}

// =============================================================================
// update / version / duplicate
// =============================================================================

func newTemplateUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "update <template-id>",
		Short: "Change the title or description of a version in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("template", args[0])
			if err != nil {
				return err
			}
			var req app.UpdateTemplateRequest
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if req.Title == nil && req.Description == nil {
				return NewExitError(ExitCommandError, "nothing to update: pass --title or --description")
			}
			return runWithApp(cmd, rootOpts, true, func(a *App) error {
				tmpl, err := a.Service.UpdateTemplate(cmd.Context(), id, req)
				if err != nil {
					return err
				}
				return printTemplate(cmd, rootOpts, "Updated", tmpl)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")

	return cmd
}

// TemplateVersionOptions holds flags for template version.
type TemplateVersionOptions struct {
	*RootOptions
	HTMLFile      string
	CSSFile       string
	BrandingFile  string
	MetadataFile  string
	VariablesFile string
}

func newTemplateVersionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TemplateVersionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "version <parent-id>",
		Short: "Create the next version of a template",
		Long: `Create the next version of a template.

Only the newest version can be the parent. Anything not passed is inherited
from the parent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplateVersion(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.HTMLFile, "html-file", "", "HTML template file")
	cmd.Flags().StringVar(&opts.CSSFile, "css-file", "", "stylesheet file")
	cmd.Flags().StringVar(&opts.BrandingFile, "branding", "", "branding file (.json or .yaml)")
	cmd.Flags().StringVar(&opts.MetadataFile, "metadata", "", "default metadata file")
	cmd.Flags().StringVar(&opts.VariablesFile, "variables", "", "variable declarations file")

	return cmd
}

func runTemplateVersion(cmd *cobra.Command, opts *TemplateVersionOptions, arg string) error {
	id, err := parseID("template", arg)
	if err != nil {
		return err
	}
	var req app.NewVersionRequest
	if opts.HTMLFile != "" {
		html, err := readTextFile(opts.HTMLFile)
		if err != nil {
			return err
		}
		req.HTMLContent = &html
	}
	if opts.CSSFile != "" {
		css, err := readTextFile(opts.CSSFile)
		if err != nil {
			return err
		}
		req.CSSContent = &css
	}
	if req.DefaultMetadata, err = readDataFile(opts.MetadataFile, cmd.InOrStdin()); err != nil {
		return err
	}
	if opts.BrandingFile != "" {
		req.Branding = &printing.BrandingConfig{}
		if err := decodeFile(opts.BrandingFile, cmd.InOrStdin(), req.Branding); err != nil {
			return err
		}
	}
	if opts.VariablesFile != "" {
		if err := decodeFile(opts.VariablesFile, cmd.InOrStdin(), &req.Variables); err != nil {
			return err
		}
	}

	return runWithApp(cmd, opts.RootOptions, true, func(a *App) error {
		tmpl, err := a.Service.CreateVersion(cmd.Context(), id, req)
		if err != nil {
			return err
		}
		return printTemplate(cmd, opts.RootOptions, "Created", tmpl)
	})
}

func newTemplateDuplicateCommand(rootOpts *RootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "duplicate <template-id>",
		Short: "Copy a template version into a new template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("template", args[0])
			if err != nil {
				return err
			}
			return runWithApp(cmd, rootOpts, true, func(a *App) error {
				tmpl, err := a.Service.DuplicateTemplate(cmd.Context(), id, app.DuplicateTemplateRequest{Name: name})
				if err != nil {
					return err
				}
				return printTemplate(cmd, rootOpts, "Created", tmpl)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "name of the copy (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newTemplateStatusCommand(rootOpts *RootOptions, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <template-id>",
		Short: "Mark a template version " + map[string]string{"activate": "active", "deactivate": "inactive"}[action],
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("template", args[0])
			if err != nil {
				return err
			}
			return runWithApp(cmd, rootOpts, true, func(a *App) error {
				change := a.Service.ActivateTemplate
				verb := "Activated"
				if action == "deactivate" {
					change = a.Service.DeactivateTemplate
					verb = "Deactivated"
				}
				tmpl, err := change(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printTemplate(cmd, rootOpts, verb, tmpl)
			})
		},
	}
}

// =============================================================================
// import
// =============================================================================

// TemplateImportOptions holds flags for template import.
type TemplateImportOptions struct {
	*RootOptions
	Starters bool
	Types    []string
}

func newTemplateImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TemplateImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import [file|-]",
		Short: "Create templates from a YAML manifest",
		Long: `Create templates from a YAML manifest.

The manifest holds one template per YAML document in the format of
template create. Import stops at the first template that fails; the ones
before it stay created.

--starters imports the bundled starter templates instead of a file.

Examples:
  docgen template import templates.yaml
  docgen template import --starters --type invoice --type receipt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplateImport(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Starters, "starters", false, "import the bundled starter templates")
	cmd.Flags().StringSliceVar(&opts.Types, "type", nil, "with --starters, only these document types")

	return cmd
}

func runTemplateImport(cmd *cobra.Command, opts *TemplateImportOptions, args []string) error {
	var manifest []byte
	switch {
	case opts.Starters && len(args) > 0:
		return NewExitError(ExitCommandError, "pass either a manifest file or --starters, not both")
	case opts.Starters:
		types := make([]printing.DocType, len(opts.Types))
		for i, t := range opts.Types {
			types[i] = printing.DocType(t)
		}
		var err error
		if manifest, err = infra.StarterManifest(types...); err != nil {
			return err
		}
	case len(args) == 1:
		var err error
		if manifest, err = readInput(args[0], cmd.InOrStdin()); err != nil {
			return err
		}
	default:
		return NewExitError(ExitCommandError, "a manifest file or --starters is required")
	}

	return runWithApp(cmd, opts.RootOptions, true, func(a *App) error {
		created, err := a.Service.ImportTemplates(cmd.Context(), bytes.NewReader(manifest))
		if err != nil {
			return err
		}
		p := newPrinter(opts.RootOptions, cmd.OutOrStdout())
		return p.success(created, func(w io.Writer) {
			fmt.Fprintf(w, "Imported %d templates\n\n", len(created))
			p.table(templateHeader, templateRows(created))
		})
	})
}

// =============================================================================
// output
// =============================================================================

var templateHeader = []string{"ID", "NAME", "TYPE", "VERSION", "ACTIVE", "TITLE"}

func templateRows(items []app.TemplateResponse) [][]string {
	rows := make([][]string, len(items))
	for i, t := range items {
		rows[i] = []string{t.ID, t.Name, t.DocumentType, strconv.Itoa(t.Version), strconv.FormatBool(t.IsActive), t.Title}
	}
	return rows
}

func printTemplate(cmd *cobra.Command, opts *RootOptions, verb string, t *app.TemplateResponse) error {
	return newPrinter(opts, cmd.OutOrStdout()).success(t, func(w io.Writer) {
		if verb != "" {
			fmt.Fprintf(w, "%s template %s version %d\n", verb, t.Name, t.Version)
		}
		fmt.Fprintf(w, "  id:          %s\n", t.ID)
		fmt.Fprintf(w, "  family:      %s\n", t.FamilyID)
		if t.ParentID != "" {
			fmt.Fprintf(w, "  parent:      %s\n", t.ParentID)
		}
		fmt.Fprintf(w, "  name:        %s\n", t.Name)
		fmt.Fprintf(w, "  title:       %s\n", t.Title)
		fmt.Fprintf(w, "  type:        %s\n", t.DocumentType)
		fmt.Fprintf(w, "  version:     %d\n", t.Version)
		fmt.Fprintf(w, "  active:      %t\n", t.IsActive)
		if t.AssetCount != nil {
			fmt.Fprintf(w, "  assets:      %d\n", *t.AssetCount)
		}
		for _, v := range t.Variables {
			marker := ""
			if v.Required {
				marker = " (required)"
			}
			fmt.Fprintf(w, "  variable:    %s%s\n", v.Name, marker)
		}
	})
}
