package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/geogenie-go/internal/application/contextbuilder"
	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/infrastructure/credentials"
	"github.com/doeshing/geogenie-go/internal/pkg/filesystem"
)

func newValidateCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <operation> [KEY=VALUE...]",
		Short: "Validate and normalise parameters for an operation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := s.mustContainer()
			if err != nil {
				return err
			}
			params, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			result := container.Validator.Validate(cmd.Context(), args[0], params)
			RenderValidation(cmd.OutOrStdout(), result)
			if !result.Confirmable() {
				return fmt.Errorf("parameters for %s are not valid", args[0])
			}
			return nil
		},
	}
}

func newSuggestCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <operation> [KEY=VALUE...]",
		Short: "Suggest missing parameters and candidate layers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := s.mustContainer()
			if err != nil {
				return err
			}
			params, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			suggestions := container.Validator.Suggest(cmd.Context(), args[0], params)
			RenderSuggestions(cmd.OutOrStdout(), args[0], suggestions)
			return nil
		},
	}
}

func newCatalogCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the supported operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := s.mustContainer()
			if err != nil {
				return err
			}
			RenderCatalog(cmd.OutOrStdout(), container.Catalog.All())
			return nil
		},
	}
}

func newContextCommand(s *session) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Show the workspace context sent to the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := s.mustContainer()
			if err != nil {
				return err
			}
			snapshot := container.Context.Build(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, contextbuilder.Summary(snapshot))
			if !full {
				return nil
			}
			fmt.Fprintln(out)
			for _, layer := range snapshot.ActiveLayers {
				fmt.Fprintf(out, "%s [%s] crs=%s extent=%s\n", labelStyle.Render(layer.Name), layer.Type, layer.CRS, layer.Extent)
				if layer.GeometryType != "" {
					fmt.Fprintf(out, "  %s, %d features, fields: %s\n", layer.GeometryType, layer.FeatureCount, strings.Join(layer.Fields, ", "))
				}
			}
			fmt.Fprintf(out, "Canvas: %s\n", snapshot.CanvasExtent)
			fmt.Fprintf(out, "Operations: %s\n", strings.Join(snapshot.AvailableOperations, ", "))
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Include per-layer details")
	return cmd
}

func newLayersCommand(s *session) *cobra.Command {
	layersCmd := &cobra.Command{
		Use:   "layers",
		Short: "Inspect workspace layers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listLayers(cmd, s)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List layers in tree order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listLayers(cmd, s)
		},
	}

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Create missing spatial indexes for visible vector layers",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := s.mustContainer()
			if err != nil {
				return err
			}
			results := container.Context.EnsureSpatialIndexes(cmd.Context())
			names := sortedKeys(results)
			for _, name := range names {
				status := okStyle.Render("indexed")
				if !results[name] {
					status = errorStyle.Render("failed")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", name, status)
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to index.")
			}
			return nil
		},
	}

	var name string
	addCmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Add a GeoPackage or raster file to the workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := s.mustContainer()
			if err != nil {
				return err
			}
			path, err := filepath.Abs(filesystem.ExpandPath(args[0]))
			if err != nil {
				return err
			}
			if name == "" {
				name = layerNameFromPath(path)
			}
			id, err := container.Workspace.Attach(cmd.Context(), domain.AttachRequest{
				Name: name,
				Path: path,
				Kind: kindFromPath(path),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s as %s\n", name, id)
			return nil
		},
	}
	addCmd.Flags().StringVar(&name, "name", "", "Layer name (default: file name)")

	layersCmd.AddCommand(listCmd, indexCmd, addCmd)
	return layersCmd
}

func listLayers(cmd *cobra.Command, s *session) error {
	container, err := s.mustContainer()
	if err != nil {
		return err
	}
	layers, err := container.Workspace.Layers(cmd.Context())
	if err != nil {
		return err
	}
	RenderLayers(cmd.OutOrStdout(), layers)
	return nil
}

func newKeysCommand(s *session) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored API keys",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show which providers have a stored key",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := s.mustContainer()
			if err != nil {
				return err
			}
			for _, provider := range credentials.Providers() {
				key, err := container.Credentials.Read(provider)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s %s\n", provider, credentials.Mask(key), mutedStyle.Render(container.Credentials.Path(provider)))
			}
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <provider> <key>",
		Short: "Store an API key (empty key removes it)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := s.mustContainer()
			if err != nil {
				return err
			}
			provider := domain.ParseProviderKind(args[0])
			key := ""
			if len(args) == 2 {
				key = args[1]
			}
			if err := container.Credentials.Write(provider, key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s key %s\n", provider, credentials.Mask(strings.TrimSpace(key)))
			return nil
		},
	}

	keysCmd.AddCommand(showCmd, setCmd)
	return keysCmd
}
