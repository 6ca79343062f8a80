package workspace

import (
	"context"
	"fmt"
	"strings"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/ports"
)

// GeoPackageProbe reopens GeoPackage outputs to summarise them.
type GeoPackageProbe struct{}

func (GeoPackageProbe) Probe(ctx context.Context, source string, kind domain.DataKind) (domain.OutputStats, error) {
	if kind != domain.DataVector {
		return domain.OutputStats{}, fmt.Errorf("statistics for %s outputs are not supported", kind)
	}
	if strings.HasPrefix(source, "memory:") {
		return domain.OutputStats{}, fmt.Errorf("in-memory output %s cannot be reopened", source)
	}

	path, table := splitSource(source)
	db, err := openGeoPackage(path)
	if err != nil {
		return domain.OutputStats{}, err
	}
	defer db.Close()

	if table == "" {
		if table, err = firstFeatureTable(ctx, db); err != nil {
			return domain.OutputStats{}, err
		}
	}
	t, err := describeTable(ctx, db, table)
	if err != nil {
		return domain.OutputStats{}, err
	}
	return domain.OutputStats{
		FeatureCount: t.Count,
		GeometryType: string(t.GeometryType),
		CRS:          t.CRS,
		Extent:       t.Extent.String(),
	}, nil
}

var _ ports.OutputProbe = GeoPackageProbe{}
