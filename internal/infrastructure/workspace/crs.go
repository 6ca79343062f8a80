package workspace

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/doeshing/geogenie-go/internal/ports"
)

var (
	authorityCode = regexp.MustCompile(`^(?i)(EPSG|ESRI|IGNF|OGC|IAU_2015)\s*:\s*([A-Za-z0-9_]+)$`)
	ogcURN        = regexp.MustCompile(`^(?i)urn:ogc:def:crs:([A-Za-z0-9_]+):[^:]*:([A-Za-z0-9_]+)$`)
	ogcURL        = regexp.MustCompile(`^(?i)https?://www\.opengis\.net/def/crs/([A-Za-z0-9_]+)/[^/]+/([A-Za-z0-9_]+)$`)
)

var crsAliases = map[string]string{
	"wgs84":           "EPSG:4326",
	"wgs 84":          "EPSG:4326",
	"crs84":           "OGC:CRS84",
	"web mercator":    "EPSG:3857",
	"webmercator":     "EPSG:3857",
	"pseudo-mercator": "EPSG:3857",
	"etrs89":          "EPSG:4258",
	"nad83":           "EPSG:4269",
}

// CRSResolver canonicalises identifiers to authority:code.
type CRSResolver struct {
	// Known restricts EPSG codes when non-nil, e.g. to the codes of a
	// GeoPackage's gpkg_spatial_ref_sys table.
	Known map[string]bool
}

func NewCRSResolver() *CRSResolver {
	return &CRSResolver{}
}

func (r *CRSResolver) Resolve(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if alias, ok := crsAliases[strings.ToLower(s)]; ok {
		return alias, true
	}

	var authority, code string
	switch {
	case authorityCode.MatchString(s):
		m := authorityCode.FindStringSubmatch(s)
		authority, code = m[1], m[2]
	case ogcURN.MatchString(s):
		m := ogcURN.FindStringSubmatch(s)
		authority, code = m[1], m[2]
	case ogcURL.MatchString(s):
		m := ogcURL.FindStringSubmatch(s)
		authority, code = m[1], m[2]
	default:
		if _, err := strconv.Atoi(s); err != nil {
			return "", false
		}
		authority, code = "EPSG", s
	}

	authority = strings.ToUpper(authority)
	if authority == "EPSG" {
		n, err := strconv.Atoi(code)
		if err != nil || n <= 0 {
			return "", false
		}
		code = strconv.Itoa(n)
	}
	if authority == "OGC" {
		code = strings.ToUpper(code)
	}

	canonical := authority + ":" + code
	if r.Known != nil && authority == "EPSG" && !r.Known[canonical] {
		return "", false
	}
	return canonical, true
}

var _ ports.CRSResolver = (*CRSResolver)(nil)
