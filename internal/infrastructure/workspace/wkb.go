package workspace

import (
	"database/sql/driver"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"modernc.org/sqlite"
)

var errShortGeometry = errors.New("geometry blob truncated")

// maxGeometryDepth bounds nested collections.
const maxGeometryDepth = 32

// The R-tree triggers call these, so every connection this process opens
// can maintain an index after edits.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("ST_MinX", 1, envelopeFunc(func(e geomEnvelope) float64 { return e.MinX }))
	sqlite.MustRegisterDeterministicScalarFunction("ST_MaxX", 1, envelopeFunc(func(e geomEnvelope) float64 { return e.MaxX }))
	sqlite.MustRegisterDeterministicScalarFunction("ST_MinY", 1, envelopeFunc(func(e geomEnvelope) float64 { return e.MinY }))
	sqlite.MustRegisterDeterministicScalarFunction("ST_MaxY", 1, envelopeFunc(func(e geomEnvelope) float64 { return e.MaxY }))
	sqlite.MustRegisterDeterministicScalarFunction("ST_IsEmpty", 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		if args[0] == nil {
			return nil, nil
		}
		env, err := envelopeArg(args[0])
		if err != nil {
			return nil, err
		}
		if env.Empty {
			return int64(1), nil
		}
		return int64(0), nil
	})
}

func envelopeFunc(pick func(geomEnvelope) float64) func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error) {
	return func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		if args[0] == nil {
			return nil, nil
		}
		env, err := envelopeArg(args[0])
		if err != nil || env.Empty {
			return nil, err
		}
		return pick(env), nil
	}
}

func envelopeArg(v driver.Value) (geomEnvelope, error) {
	blob, ok := v.([]byte)
	if !ok {
		return geomEnvelope{}, fmt.Errorf("geometry must be a blob, got %T", v)
	}
	return gpkgEnvelope(blob)
}

// geomEnvelope is the XY bounding box of a geometry.
type geomEnvelope struct {
	MinX, MaxX, MinY, MaxY float64
	Empty                  bool
}

func (e *geomEnvelope) extend(x, y float64) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return
	}
	if e.Empty {
		*e = geomEnvelope{MinX: x, MaxX: x, MinY: y, MaxY: y}
		return
	}
	e.MinX = math.Min(e.MinX, x)
	e.MaxX = math.Max(e.MaxX, x)
	e.MinY = math.Min(e.MinY, y)
	e.MaxY = math.Max(e.MaxY, y)
}

// gpkgEnvelope reads the bounding box of a GeoPackage geometry blob, from the
// header envelope when present and from the WKB body otherwise.
func gpkgEnvelope(blob []byte) (geomEnvelope, error) {
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return geomEnvelope{}, errors.New("not a geopackage geometry")
	}
	flags := blob[3]
	if flags&0x10 != 0 {
		return geomEnvelope{Empty: true}, nil
	}
	var order binary.ByteOrder = binary.BigEndian
	if flags&0x01 == 1 {
		order = binary.LittleEndian
	}

	var size int
	switch (flags >> 1) & 0x07 {
	case 0:
	case 1:
		size = 32
	case 2, 3:
		size = 48
	case 4:
		size = 64
	default:
		return geomEnvelope{}, fmt.Errorf("invalid envelope indicator %d", (flags>>1)&0x07)
	}
	if len(blob) < 8+size {
		return geomEnvelope{}, errShortGeometry
	}
	if size > 0 {
		read := func(at int) float64 { return math.Float64frombits(order.Uint64(blob[8+at:])) }
		return geomEnvelope{MinX: read(0), MaxX: read(8), MinY: read(16), MaxY: read(24)}, nil
	}
	return wkbEnvelope(blob[8:])
}

// wkbEnvelope walks ISO and extended WKB. Curve types are rejected since
// their control points do not bound the arc.
func wkbEnvelope(wkb []byte) (geomEnvelope, error) {
	r := &wkbReader{buf: wkb}
	env := geomEnvelope{Empty: true}
	if err := r.geometry(&env, 0); err != nil {
		return geomEnvelope{}, err
	}
	return env, nil
}

type wkbReader struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
}

func (r *wkbReader) readUint32() (uint32, error) {
	if len(r.buf)-r.pos < 4 {
		return 0, errShortGeometry
	}
	v := r.order.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *wkbReader) readFloat() (float64, error) {
	if len(r.buf)-r.pos < 8 {
		return 0, errShortGeometry
	}
	v := math.Float64frombits(r.order.Uint64(r.buf[r.pos:]))
	r.pos += 8
	return v, nil
}

func (r *wkbReader) points(env *geomEnvelope, dims int) error {
	n, err := r.readUint32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		if err := r.point(env, dims); err != nil {
			return err
		}
	}
	return nil
}

func (r *wkbReader) point(env *geomEnvelope, dims int) error {
	x, err := r.readFloat()
	if err != nil {
		return err
	}
	y, err := r.readFloat()
	if err != nil {
		return err
	}
	for i := 2; i < dims; i++ {
		if _, err := r.readFloat(); err != nil {
			return err
		}
	}
	env.extend(x, y)
	return nil
}

func (r *wkbReader) geometry(env *geomEnvelope, depth int) error {
	if depth > maxGeometryDepth {
		return errors.New("geometry nested too deeply")
	}
	if r.pos >= len(r.buf) {
		return errShortGeometry
	}
	switch r.buf[r.pos] {
	case 0:
		r.order = binary.BigEndian
	case 1:
		r.order = binary.LittleEndian
	default:
		return fmt.Errorf("invalid wkb byte order %d", r.buf[r.pos])
	}
	r.pos++

	raw, err := r.readUint32()
	if err != nil {
		return err
	}
	dims := 2
	if raw&0x80000000 != 0 {
		dims++
	}
	if raw&0x40000000 != 0 {
		dims++
	}
	if raw&0x20000000 != 0 {
		if _, err := r.readUint32(); err != nil {
			return err
		}
	}
	code := raw & 0x0FFFFFFF
	switch code / 1000 {
	case 0:
	case 1, 2:
		dims++
	case 3:
		dims += 2
	default:
		return fmt.Errorf("unsupported wkb type %d", code)
	}

	switch code % 1000 {
	case 1:
		return r.point(env, dims)
	case 2:
		return r.points(env, dims)
	case 3:
		rings, err := r.readUint32()
		if err != nil {
			return err
		}
		for i := uint32(0); i < rings; i++ {
			if err := r.points(env, dims); err != nil {
				return err
			}
		}
		return nil
	case 4, 5, 6, 7:
		parts, err := r.readUint32()
		if err != nil {
			return err
		}
		for i := uint32(0); i < parts; i++ {
			if err := r.geometry(env, depth+1); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported wkb type %d", code)
	}
}
