package domain

import "fmt"

// Extent is an axis-aligned bounding rectangle in layer units.
type Extent struct {
	XMin float64 `yaml:"xmin"`
	YMin float64 `yaml:"ymin"`
	XMax float64 `yaml:"xmax"`
	YMax float64 `yaml:"ymax"`
}

// IsEmpty reports a zero or inverted rectangle.
func (e Extent) IsEmpty() bool {
	return e.XMax <= e.XMin || e.YMax <= e.YMin
}

// String renders "xmin,ymin : xmax,ymax".
func (e Extent) String() string {
	if e == (Extent{}) {
		return "Empty"
	}
	return fmt.Sprintf("%.4f,%.4f : %.4f,%.4f", e.XMin, e.YMin, e.XMax, e.YMax)
}

// CanvasString renders the form used for the canvas extent in prompts.
func (e Extent) CanvasString() string {
	return fmt.Sprintf("X: %.2f - %.2f, Y: %.2f - %.2f", e.XMin, e.XMax, e.YMin, e.YMax)
}

// Union grows e to include o.
func (e Extent) Union(o Extent) Extent {
	if e == (Extent{}) {
		return o
	}
	if o == (Extent{}) {
		return e
	}
	if o.XMin < e.XMin {
		e.XMin = o.XMin
	}
	if o.YMin < e.YMin {
		e.YMin = o.YMin
	}
	if o.XMax > e.XMax {
		e.XMax = o.XMax
	}
	if o.YMax > e.YMax {
		e.YMax = o.YMax
	}
	return e
}
