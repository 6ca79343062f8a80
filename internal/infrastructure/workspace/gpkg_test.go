package workspace

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/pkg/logger"
)

func le64(v float64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return b
}

// envelopeBlob builds a little-endian GeoPackage geometry with an XY envelope.
func envelopeBlob(minx, maxx, miny, maxy float64) []byte {
	blob := []byte{'G', 'P', 0, 0x03, 0xE6, 0x10, 0, 0}
	for _, v := range []float64{minx, maxx, miny, maxy} {
		blob = append(blob, le64(v)...)
	}
	// empty linestring body, never parsed
	return append(blob, 0x01, 0x02, 0, 0, 0, 0, 0, 0, 0)
}

// pointBlob builds a GeoPackage point without a header envelope.
func pointBlob(x, y float64) []byte {
	blob := []byte{'G', 'P', 0, 0x01, 0xE6, 0x10, 0, 0, 0x01, 0x01, 0, 0, 0}
	blob = append(blob, le64(x)...)
	return append(blob, le64(y)...)
}

// wkbPolygon encodes a little-endian single-ring polygon.
func wkbPolygon(ring ...[2]float64) []byte {
	wkb := []byte{0x01, 0x03, 0, 0, 0, 0x01, 0, 0, 0}
	wkb = binary.LittleEndian.AppendUint32(wkb, uint32(len(ring)))
	for _, pt := range ring {
		wkb = append(wkb, le64(pt[0])...)
		wkb = append(wkb, le64(pt[1])...)
	}
	return wkb
}

// gpkgBlob wraps WKB in a GeoPackage header without an envelope.
func gpkgBlob(wkb []byte) []byte {
	return append([]byte{'G', 'P', 0, 0x01, 0xE6, 0x10, 0, 0}, wkb...)
}

func createGeoPackage(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	stmts := []string{
		`CREATE TABLE gpkg_spatial_ref_sys (srs_name TEXT, srs_id INTEGER PRIMARY KEY, organization TEXT, organization_coordsys_id INTEGER, definition TEXT, description TEXT)`,
		`INSERT INTO gpkg_spatial_ref_sys VALUES ('WGS 84', 4326, 'epsg', 4326, '', '')`,
		`CREATE TABLE gpkg_contents (table_name TEXT PRIMARY KEY, data_type TEXT, identifier TEXT, description TEXT, last_change TEXT, min_x DOUBLE, min_y DOUBLE, max_x DOUBLE, max_y DOUBLE, srs_id INTEGER)`,
		`CREATE TABLE gpkg_geometry_columns (table_name TEXT, column_name TEXT, geometry_type_name TEXT, srs_id INTEGER, z TINYINT, m TINYINT)`,
		`CREATE TABLE roads (fid INTEGER PRIMARY KEY AUTOINCREMENT, geom BLOB, name TEXT, lanes INTEGER, width REAL)`,
		`INSERT INTO gpkg_contents VALUES ('roads', 'features', 'roads', '', '', 0, 0, 10, 5, 4326)`,
		`INSERT INTO gpkg_geometry_columns VALUES ('roads', 'geom', 'MULTILINESTRING', 4326, 0, 0)`,
		`CREATE TABLE wells (fid INTEGER PRIMARY KEY AUTOINCREMENT, geom BLOB, depth DOUBLE)`,
		`INSERT INTO gpkg_contents VALUES ('wells', 'features', 'wells', '', '', NULL, NULL, NULL, NULL, 4326)`,
		`INSERT INTO gpkg_geometry_columns VALUES ('wells', 'geom', 'POINT', 4326, 0, 0)`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	_, err = db.Exec(`INSERT INTO roads (geom, name, lanes, width) VALUES (?, 'Main', 2, 7.5), (?, 'High', 4, 12)`,
		envelopeBlob(0, 4, 0, 2), envelopeBlob(3, 10, 1, 5))
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO wells (geom, depth) VALUES (?, 30)`, pointBlob(1.5, 2.5))
	require.NoError(t, err)
}

func testProject(t *testing.T) (*Project, string) {
	t.Helper()
	dir := t.TempDir()
	gpkg := filepath.Join(dir, "city.gpkg")
	createGeoPackage(t, gpkg)
	dem := filepath.Join(dir, "dem.tif")
	require.NoError(t, os.WriteFile(dem, []byte("tif"), 0o644))

	project := `title: City
crs: EPSG:4326
layers:
  - id: roads_1
    name: Roads
    source: ` + gpkg + `|layername=roads
    group: Transport
  - id: wells_1
    name: Wells
    source: ` + gpkg + `|layername=wells
    hidden: true
  - id: dem_1
    name: DEM
    kind: raster
    source: ` + dem + `
    bands: 1
    width: 100
    height: 80
    pixel_size_x: 30
    pixel_size_y: 30
  - id: lost_1
    name: Lost
    source: ` + filepath.Join(dir, "missing.gpkg") + `
`
	path := filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte(project), 0o644))

	p, err := OpenProject(path, logger.NewTest(t))
	require.NoError(t, err)
	return p, gpkg
}

func TestProject_Layers(t *testing.T) {
	p, _ := testProject(t)
	ctx := context.Background()

	layers, err := p.Layers(ctx)
	require.NoError(t, err)
	require.Len(t, layers, 4)

	roads := layers[0]
	assert.True(t, roads.Valid)
	assert.Equal(t, domain.GeometryLine, roads.Geometry)
	assert.Equal(t, int64(2), roads.FeatureCount)
	assert.Equal(t, "EPSG:4326", roads.CRS)
	assert.Equal(t, domain.Extent{XMin: 0, YMin: 0, XMax: 10, YMax: 5}, roads.Extent)
	assert.False(t, roads.HasSpatialIndex)
	require.Len(t, roads.Fields, 3)
	assert.Equal(t, "name", roads.Fields[0].Name)
	assert.False(t, roads.Fields[0].Numeric)
	assert.True(t, roads.Fields[1].Numeric)
	assert.True(t, roads.Fields[2].Numeric)

	wells := layers[1]
	assert.Equal(t, domain.GeometryPoint, wells.Geometry)
	assert.False(t, wells.Visible)

	dem := layers[2]
	assert.True(t, dem.Valid)
	assert.Equal(t, domain.DataRaster, dem.Kind)
	assert.Equal(t, 100, dem.Width)

	assert.False(t, layers[3].Valid)

	info, err := p.Project(ctx)
	require.NoError(t, err)
	assert.Equal(t, "City", info.Title)
	assert.Equal(t, 4, info.LayerCount)

	tree, err := p.Tree(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.GroupInfo{{Name: "Transport", IsVisible: true, LayerCount: 1}}, tree.Groups)
	assert.Len(t, tree.LayerOrder, 4)

	canvas, err := p.CanvasExtent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10.0, canvas.XMax)
}

func TestProject_CreateSpatialIndex(t *testing.T) {
	p, gpkg := testProject(t)
	ctx := context.Background()

	require.NoError(t, p.CreateSpatialIndex(ctx, "roads_1"))
	require.NoError(t, p.CreateSpatialIndex(ctx, "roads_1"))
	require.NoError(t, p.CreateSpatialIndex(ctx, "wells_1"))

	layer, ok, err := p.LayerByID(ctx, "roads_1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, layer.HasSpatialIndex)

	db, err := sql.Open("sqlite", gpkg)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM rtree_roads_geom`).Scan(&n))
	assert.Equal(t, 2, n)

	var minx, maxx float64
	require.NoError(t, db.QueryRow(`SELECT minx, maxx FROM rtree_wells_geom`).Scan(&minx, &maxx))
	assert.InDelta(t, 1.5, minx, 1e-6)
	assert.InDelta(t, 1.5, maxx, 1e-6)

	assert.ErrorIs(t, p.CreateSpatialIndex(ctx, "nope"), domain.ErrLayerNotFound)
	assert.Error(t, p.CreateSpatialIndex(ctx, "dem_1"))
}

func TestProject_AttachPersists(t *testing.T) {
	p, gpkg := testProject(t)
	ctx := context.Background()

	id, err := p.Attach(ctx, domain.AttachRequest{Name: "GeoGenie_buffer_10_101500", Path: gpkg + "|layername=roads", Kind: domain.DataVector})
	require.NoError(t, err)

	_, err = p.Attach(ctx, domain.AttachRequest{Name: "tmp", Path: "memory:tmp"})
	assert.Error(t, err)

	reopened, err := OpenProject(p.path, logger.NewNop())
	require.NoError(t, err)
	layer, ok, err := reopened.LayerByID(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "GeoGenie_buffer_10_101500", layer.Name)
	assert.True(t, layer.Valid)
}

func TestOpenProject_MissingFileIsEmpty(t *testing.T) {
	p, err := OpenProject(filepath.Join(t.TempDir(), "none.yaml"), logger.NewNop())
	require.NoError(t, err)
	layers, err := p.Layers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, layers)
}

func TestGeoPackageProbe(t *testing.T) {
	_, gpkg := testProject(t)

	stats, err := GeoPackageProbe{}.Probe(context.Background(), gpkg+"|layername=roads", domain.DataVector)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.FeatureCount)
	assert.Equal(t, "Line", stats.GeometryType)
	assert.Equal(t, "EPSG:4326", stats.CRS)
	assert.Equal(t, "0.0000,0.0000 : 10.0000,5.0000", stats.Extent)

	_, err = GeoPackageProbe{}.Probe(context.Background(), "memory:x", domain.DataVector)
	assert.Error(t, err)
	_, err = GeoPackageProbe{}.Probe(context.Background(), filepath.Join(t.TempDir(), "nope.gpkg"), domain.DataVector)
	assert.Error(t, err)
}

func TestSplitSource(t *testing.T) {
	path, table := splitSource("/data/a.gpkg|layername=roads")
	assert.Equal(t, "/data/a.gpkg", path)
	assert.Equal(t, "roads", table)

	path, table = splitSource("/data/a.gpkg")
	assert.Equal(t, "/data/a.gpkg", path)
	assert.Empty(t, table)
}

// addParcels registers a polygon table whose geometries carry no header envelope.
func addParcels(t *testing.T, db *sql.DB, blobs ...any) {
	t.Helper()
	for _, stmt := range []string{
		`CREATE TABLE parcels (fid INTEGER PRIMARY KEY AUTOINCREMENT, geom BLOB)`,
		`INSERT INTO gpkg_contents VALUES ('parcels', 'features', 'parcels', '', '', NULL, NULL, NULL, NULL, 4326)`,
		`INSERT INTO gpkg_geometry_columns VALUES ('parcels', 'geom', 'GEOMETRY', 4326, 0, 0)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	for _, blob := range blobs {
		_, err := db.Exec(`INSERT INTO parcels (geom) VALUES (?)`, blob)
		require.NoError(t, err)
	}
}

func TestCreateRTree_IndexesEveryGeometryAndTracksEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parcels.gpkg")
	createGeoPackage(t, path)
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	addParcels(t, db,
		pointBlob(1, 1),
		gpkgBlob(wkbPolygon([2]float64{2, 3}, [2]float64{8, 3}, [2]float64{8, 9}, [2]float64{2, 3})),
		nil,
	)
	table, err := describeTable(ctx, db, "parcels")
	require.NoError(t, err)
	require.NoError(t, createRTree(ctx, db, table))

	count := func() int {
		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM rtree_parcels_geom`).Scan(&n))
		return n
	}
	assert.Equal(t, 2, count())

	var minx, maxx, miny, maxy float64
	require.NoError(t, db.QueryRow(`SELECT minx, maxx, miny, maxy FROM rtree_parcels_geom WHERE id = 2`).Scan(&minx, &maxx, &miny, &maxy))
	assert.InDelta(t, 2.0, minx, 1e-4)
	assert.InDelta(t, 8.0, maxx, 1e-4)
	assert.InDelta(t, 3.0, miny, 1e-4)
	assert.InDelta(t, 9.0, maxy, 1e-4)

	var triggers int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'trigger' AND tbl_name = 'parcels'`).Scan(&triggers))
	assert.Equal(t, 6, triggers)

	var registered int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM gpkg_extensions WHERE table_name = 'parcels' AND extension_name = 'gpkg_rtree_index'`).Scan(&registered))
	assert.Equal(t, 1, registered)

	_, err = db.Exec(`INSERT INTO parcels (geom) VALUES (?)`, gpkgBlob(wkbPolygon([2]float64{20, 20}, [2]float64{30, 20}, [2]float64{30, 25}, [2]float64{20, 20})))
	require.NoError(t, err)
	assert.Equal(t, 3, count())

	_, err = db.Exec(`UPDATE parcels SET geom = ? WHERE fid = 1`, pointBlob(-5, -6))
	require.NoError(t, err)
	require.NoError(t, db.QueryRow(`SELECT minx, miny FROM rtree_parcels_geom WHERE id = 1`).Scan(&minx, &miny))
	assert.InDelta(t, -5.0, minx, 1e-4)
	assert.InDelta(t, -6.0, miny, 1e-4)

	_, err = db.Exec(`DELETE FROM parcels WHERE fid = 2`)
	require.NoError(t, err)
	assert.Equal(t, 2, count())
}

func TestCreateRTree_UnreadableGeometryLeavesNoIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parcels.gpkg")
	createGeoPackage(t, path)
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	circular := []byte{0x01, 0x08, 0, 0, 0, 0, 0, 0, 0}
	addParcels(t, db, pointBlob(1, 1), gpkgBlob(circular))
	table, err := describeTable(ctx, db, "parcels")
	require.NoError(t, err)

	assert.Error(t, createRTree(ctx, db, table))

	exists, err := tableExists(ctx, db, "rtree_parcels_geom")
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = tableExists(ctx, db, "gpkg_extensions")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGpkgEnvelope(t *testing.T) {
	// ISO MultiPolygon Z holding one triangle with z values.
	multiZ := []byte{0x01, 0xEE, 0x03, 0, 0, 0x01, 0, 0, 0, 0x01, 0xEB, 0x03, 0, 0, 0x01, 0, 0, 0, 0x04, 0, 0, 0}
	for _, pt := range [][3]float64{{0, 0, 9}, {4, 0, 9}, {0, -3, 9}, {0, 0, 9}} {
		for _, v := range pt {
			multiZ = append(multiZ, le64(v)...)
		}
	}
	// extended WKB point with Z and an SRID
	ewkb := []byte{0x01, 0x01, 0, 0, 0xA0, 0xE6, 0x10, 0, 0}
	ewkb = append(append(append(ewkb, le64(7)...), le64(8)...), le64(100)...)

	tests := []struct {
		name    string
		blob    []byte
		want    geomEnvelope
		wantErr bool
	}{
		{name: "header envelope", blob: envelopeBlob(0, 4, 1, 2), want: geomEnvelope{MinX: 0, MaxX: 4, MinY: 1, MaxY: 2}},
		{name: "point", blob: pointBlob(1.5, 2.5), want: geomEnvelope{MinX: 1.5, MaxX: 1.5, MinY: 2.5, MaxY: 2.5}},
		{name: "polygon", blob: gpkgBlob(wkbPolygon([2]float64{2, 3}, [2]float64{8, 3}, [2]float64{8, 9})), want: geomEnvelope{MinX: 2, MaxX: 8, MinY: 3, MaxY: 9}},
		{name: "multipolygon z", blob: gpkgBlob(multiZ), want: geomEnvelope{MinX: 0, MaxX: 4, MinY: -3, MaxY: 0}},
		{name: "ewkb point z", blob: gpkgBlob(ewkb), want: geomEnvelope{MinX: 7, MaxX: 7, MinY: 8, MaxY: 8}},
		{name: "empty flag", blob: []byte{'G', 'P', 0, 0x11, 0, 0, 0, 0}, want: geomEnvelope{Empty: true}},
		{name: "empty point", blob: pointBlob(math.NaN(), math.NaN()), want: geomEnvelope{Empty: true}},
		{name: "truncated", blob: gpkgBlob([]byte{0x01, 0x03, 0, 0, 0, 0x01, 0, 0, 0, 0x04, 0, 0, 0}), wantErr: true},
		{name: "curve", blob: gpkgBlob([]byte{0x01, 0x08, 0, 0, 0, 0, 0, 0, 0}), wantErr: true},
		{name: "not a geopackage blob", blob: []byte("hello world"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gpkgEnvelope(tt.blob)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
