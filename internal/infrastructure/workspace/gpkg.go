package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/doeshing/geogenie-go/internal/domain"
)

const rtreeExtension = "gpkg_rtree_index"

// gpkgTable is what a GeoPackage feature table reveals about itself.
type gpkgTable struct {
	Name         string
	GeomColumn   string
	PKColumn     string
	GeometryType domain.GeometryType
	CRS          string
	Extent       domain.Extent
	Count        int64
	Fields       []domain.Field
	HasIndex     bool
}

// openGeoPackage refuses missing files so a typo never creates an empty database.
func openGeoPackage(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// splitSource separates "file.gpkg|layername=roads" into path and table.
func splitSource(source string) (string, string) {
	path, options, found := strings.Cut(source, "|")
	if !found {
		return source, ""
	}
	for _, opt := range strings.Split(options, "|") {
		if key, value, ok := strings.Cut(opt, "="); ok && strings.EqualFold(key, "layername") {
			return path, value
		}
	}
	return path, ""
}

func firstFeatureTable(ctx context.Context, db *sql.DB) (string, error) {
	var name string
	err := db.QueryRowContext(ctx,
		`SELECT table_name FROM gpkg_contents WHERE data_type = 'features' ORDER BY table_name LIMIT 1`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.New("geopackage has no feature tables")
	}
	return name, err
}

func describeTable(ctx context.Context, db *sql.DB, table string) (gpkgTable, error) {
	t := gpkgTable{Name: table, PKColumn: "fid"}

	var geomType string
	var srsID sql.NullInt64
	var minX, minY, maxX, maxY sql.NullFloat64
	err := db.QueryRowContext(ctx, `
		SELECT g.column_name, g.geometry_type_name, g.srs_id, c.min_x, c.min_y, c.max_x, c.max_y
		FROM gpkg_geometry_columns g
		JOIN gpkg_contents c ON c.table_name = g.table_name
		WHERE g.table_name = ?`, table).Scan(&t.GeomColumn, &geomType, &srsID, &minX, &minY, &maxX, &maxY)
	if err != nil {
		return gpkgTable{}, fmt.Errorf("describe %s: %w", table, err)
	}
	t.GeometryType = normalizeGeometry(geomType)
	if minX.Valid && minY.Valid && maxX.Valid && maxY.Valid {
		t.Extent = domain.Extent{XMin: minX.Float64, YMin: minY.Float64, XMax: maxX.Float64, YMax: maxY.Float64}
	}

	if srsID.Valid {
		var org string
		var code int64
		if err := db.QueryRowContext(ctx,
			`SELECT organization, organization_coordsys_id FROM gpkg_spatial_ref_sys WHERE srs_id = ?`, srsID.Int64).Scan(&org, &code); err == nil {
			t.CRS = fmt.Sprintf("%s:%d", strings.ToUpper(org), code)
		}
	}

	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+quoteIdent(table)).Scan(&t.Count); err != nil {
		return gpkgTable{}, fmt.Errorf("count %s: %w", table, err)
	}

	rows, err := db.QueryContext(ctx, `PRAGMA table_info(`+quoteIdent(table)+`)`)
	if err != nil {
		return gpkgTable{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return gpkgTable{}, err
		}
		if pk > 0 {
			t.PKColumn = name
			continue
		}
		if name == t.GeomColumn {
			continue
		}
		t.Fields = append(t.Fields, domain.Field{Name: name, Type: colType, Numeric: isNumericType(colType)})
	}
	if err := rows.Err(); err != nil {
		return gpkgTable{}, err
	}

	t.HasIndex, err = tableExists(ctx, db, rtreeName(t.Name, t.GeomColumn))
	if err != nil {
		return gpkgTable{}, err
	}
	return t, nil
}

// rtreeTriggers keep the index in step with edits, per the GeoPackage 1.2
// R-tree extension. {t} is the table, {c} the geometry column, {i} the key
// and {r} the index.
var rtreeTriggers = []string{
	`CREATE TRIGGER {r_insert} AFTER INSERT ON {t}
	WHEN (new.{c} NOT NULL AND NOT ST_IsEmpty(NEW.{c}))
	BEGIN
		INSERT OR REPLACE INTO {r} VALUES (NEW.{i}, ST_MinX(NEW.{c}), ST_MaxX(NEW.{c}), ST_MinY(NEW.{c}), ST_MaxY(NEW.{c}));
	END`,
	`CREATE TRIGGER {r_update1} AFTER UPDATE OF {c} ON {t}
	WHEN OLD.{i} = NEW.{i} AND (NEW.{c} NOTNULL AND NOT ST_IsEmpty(NEW.{c}))
	BEGIN
		INSERT OR REPLACE INTO {r} VALUES (NEW.{i}, ST_MinX(NEW.{c}), ST_MaxX(NEW.{c}), ST_MinY(NEW.{c}), ST_MaxY(NEW.{c}));
	END`,
	`CREATE TRIGGER {r_update2} AFTER UPDATE OF {c} ON {t}
	WHEN OLD.{i} = NEW.{i} AND (NEW.{c} ISNULL OR ST_IsEmpty(NEW.{c}))
	BEGIN
		DELETE FROM {r} WHERE id = OLD.{i};
	END`,
	`CREATE TRIGGER {r_update3} AFTER UPDATE ON {t}
	WHEN OLD.{i} != NEW.{i} AND (NEW.{c} NOTNULL AND NOT ST_IsEmpty(NEW.{c}))
	BEGIN
		DELETE FROM {r} WHERE id = OLD.{i};
		INSERT OR REPLACE INTO {r} VALUES (NEW.{i}, ST_MinX(NEW.{c}), ST_MaxX(NEW.{c}), ST_MinY(NEW.{c}), ST_MaxY(NEW.{c}));
	END`,
	`CREATE TRIGGER {r_update4} AFTER UPDATE ON {t}
	WHEN OLD.{i} != NEW.{i} AND (NEW.{c} ISNULL OR ST_IsEmpty(NEW.{c}))
	BEGIN
		DELETE FROM {r} WHERE id IN (OLD.{i}, NEW.{i});
	END`,
	`CREATE TRIGGER {r_delete} AFTER DELETE ON {t}
	WHEN old.{c} NOT NULL
	BEGIN
		DELETE FROM {r} WHERE id = OLD.{i};
	END`,
}

// createRTree builds the GeoPackage R-tree extension for t. Existing indexes
// are left alone. A geometry whose envelope cannot be read aborts the whole
// build, so the extension is only registered for a complete index.
func createRTree(ctx context.Context, db *sql.DB, t gpkgTable) error {
	if t.HasIndex {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	index := rtreeName(t.Name, t.GeomColumn)
	if _, err := tx.ExecContext(ctx, `CREATE VIRTUAL TABLE `+quoteIdent(index)+` USING rtree(id, minx, maxx, miny, maxy)`); err != nil {
		return fmt.Errorf("create %s: %w", index, err)
	}

	table, geom, pk := quoteIdent(t.Name), quoteIdent(t.GeomColumn), quoteIdent(t.PKColumn)
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO `+quoteIdent(index)+`
		SELECT `+pk+`, ST_MinX(`+geom+`), ST_MaxX(`+geom+`), ST_MinY(`+geom+`), ST_MaxY(`+geom+`)
		FROM `+table+` WHERE `+geom+` NOT NULL AND NOT ST_IsEmpty(`+geom+`)`); err != nil {
		return fmt.Errorf("populate %s: %w", index, err)
	}

	names := strings.NewReplacer(
		"{r_insert}", quoteIdent(index+"_insert"),
		"{r_update1}", quoteIdent(index+"_update1"),
		"{r_update2}", quoteIdent(index+"_update2"),
		"{r_update3}", quoteIdent(index+"_update3"),
		"{r_update4}", quoteIdent(index+"_update4"),
		"{r_delete}", quoteIdent(index+"_delete"),
		"{r}", quoteIdent(index),
		"{t}", table,
		"{c}", geom,
		"{i}", pk,
	)
	for _, trigger := range rtreeTriggers {
		if _, err := tx.ExecContext(ctx, names.Replace(trigger)); err != nil {
			return fmt.Errorf("trigger on %s: %w", index, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS gpkg_extensions (
		table_name TEXT, column_name TEXT, extension_name TEXT NOT NULL,
		definition TEXT NOT NULL, scope TEXT NOT NULL,
		CONSTRAINT ge_tce UNIQUE (table_name, column_name, extension_name))`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO gpkg_extensions VALUES (?, ?, ?, ?, 'write-only')`,
		t.Name, t.GeomColumn, rtreeExtension, "http://www.geopackage.org/spec120/#extension_rtree"); err != nil {
		return err
	}
	return tx.Commit()
}

func tableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE name = ?`, name).Scan(&n)
	return n > 0, err
}

func rtreeName(table, column string) string {
	return "rtree_" + table + "_" + column
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func normalizeGeometry(name string) domain.GeometryType {
	upper := strings.ToUpper(name)
	switch {
	case strings.Contains(upper, "POINT"):
		return domain.GeometryPoint
	case strings.Contains(upper, "POLYGON"), strings.Contains(upper, "SURFACE"):
		return domain.GeometryPolygon
	case strings.Contains(upper, "LINE"), strings.Contains(upper, "CURVE"):
		return domain.GeometryLine
	default:
		return domain.GeometryUnknown
	}
}

func isNumericType(colType string) bool {
	upper := strings.ToUpper(colType)
	for _, prefix := range []string{"INT", "TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT", "REAL", "DOUBLE", "FLOAT", "NUMERIC", "DECIMAL"} {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}
