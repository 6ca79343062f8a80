package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show GeoGenie version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return displayVersionInformation(cmd.OutOrStdout())
		},
	}
}

func displayVersionInformation(out io.Writer) error {
	fmt.Fprintln(out, titleStyle.Render("GeoGenie "+version.Version))
	rows := [][2]string{
		{"commit", version.Commit},
		{"built", version.BuildDate},
		{"go", runtime.Version()},
		{"platform", runtime.GOOS + "/" + runtime.GOARCH},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-9s", row[0])), row[1])
	}
	return nil
}

func newDoctorCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose environment setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := s.mustContainer()
			if err != nil {
				return err
			}
			report, err := container.DoctorService.Run(cmd.Context())
			renderDoctorReport(cmd.OutOrStdout(), report)
			if err != nil {
				return fmt.Errorf("diagnostics completed with errors: %w", err)
			}
			if report.Worst() == domain.HealthError {
				return fmt.Errorf("diagnostics found errors")
			}
			return nil
		},
	}
}

func layerNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func kindFromPath(path string) domain.DataKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff", ".vrt", ".asc", ".img", ".nc":
		return domain.DataRaster
	default:
		return domain.DataVector
	}
}
