package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/geogenie-go/internal/app"
	"github.com/doeshing/geogenie-go/internal/pkg/metrics"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// session builds the container once the persistent flags are parsed.
type session struct {
	opts      app.Options
	metrics   string
	container *app.Container
}

func (s *session) open(ctx context.Context) error {
	if s.container != nil {
		return nil
	}
	container, err := app.BuildContainer(ctx, s.opts)
	if err != nil {
		return err
	}
	s.container = container

	listen := s.metrics
	if listen == "" {
		listen = container.Config.Metrics.Listen
	}
	if listen != "" {
		go func() {
			if err := metrics.Serve(listen); err != nil {
				container.Logger.Error("metrics endpoint stopped", err, map[string]interface{}{"listen": listen})
			}
		}()
		container.Logger.Info("metrics endpoint listening", map[string]interface{}{"listen": listen})
	}
	return nil
}

func (s *session) close() {
	if s.container != nil {
		s.container.Close()
	}
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, error) {
	s := &session{opts: app.Options{Verbose: opts.Verbose}}

	runCmd := newRunCommand(s)

	root := &cobra.Command{
		Use:   "geogenie [request]",
		Short: "GeoGenie - natural-language geoprocessing",
		Long:  "GeoGenie turns natural-language requests into validated, confirmed processing runs against a GIS workspace.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipsContainer(cmd) {
				return nil
			}
			return s.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			s.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runRequest(cmd, s, strings.Join(args, " "), runFlags{})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&s.opts.ConfigPath, "config", "", "Config file (default ~/.geogenie/config.yaml)")
	flags.StringVarP(&s.opts.Model, "model", "m", "", "Override model name (default from config)")
	flags.BoolVar(&s.opts.Offline, "offline", false, "Use the offline keyword extractor instead of a language model")
	flags.BoolVarP(&s.opts.Verbose, "verbose", "v", opts.Verbose, "Enable debug logging")
	flags.StringVar(&s.metrics, "metrics", "", "Serve prometheus metrics on this address (e.g. :9090)")

	root.AddCommand(runCmd)
	root.AddCommand(newValidateCommand(s))
	root.AddCommand(newSuggestCommand(s))
	root.AddCommand(newCatalogCommand(s))
	root.AddCommand(newContextCommand(s))
	root.AddCommand(newLayersCommand(s))
	root.AddCommand(newKeysCommand(s))
	root.AddCommand(newDoctorCommand(s))
	root.AddCommand(newVersionCommand())
	return root, nil
}

func skipsContainer(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion":
		return true
	}
	return cmd.HasParent() && cmd.Parent().Name() == "completion"
}

func (s *session) mustContainer() (*app.Container, error) {
	if s.container == nil {
		return nil, fmt.Errorf("container not initialized")
	}
	return s.container, nil
}
