package raster

import (
	"errors"
	"math"

	"github.com/airbusgeo/godal"
)

const transformEpsilon = 1e-6

// ReferenceGrid is the common 10m target grid every band is aligned to before
// masking and index computation. It is derived once per scene from the
// designated reference band (B03) and treated as immutable afterwards.
type ReferenceGrid struct {
	GeoTransform [6]float64
	Width        int
	Height       int
	Projection   string
}

// ResolveReferenceGrid reads the georeferencing of the reference band file.
func ResolveReferenceGrid(path string) (ReferenceGrid, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return ReferenceGrid{}, &GridResolutionError{Path: path, Err: err}
	}
	defer ds.Close()

	gt, err := ds.GeoTransform()
	if err != nil {
		return ReferenceGrid{}, &GridResolutionError{Path: path, Err: err}
	}
	if gt[1] == 0 || gt[5] == 0 {
		return ReferenceGrid{}, &GridResolutionError{Path: path, Err: errors.New("degenerate geotransform")}
	}
	proj := ds.Projection()
	if proj == "" {
		return ReferenceGrid{}, &GridResolutionError{Path: path, Err: errors.New("missing projection")}
	}

	st := ds.Structure()
	return ReferenceGrid{
		GeoTransform: gt,
		Width:        st.SizeX,
		Height:       st.SizeY,
		Projection:   proj,
	}, nil
}

func (g ReferenceGrid) Pixels() int { return g.Width * g.Height }

func (g ReferenceGrid) PixelWidth() float64  { return g.GeoTransform[1] }
func (g ReferenceGrid) PixelHeight() float64 { return g.GeoTransform[5] }

// Bounds returns the grid extent as minX, minY, maxX, maxY in grid coordinates.
func (g ReferenceGrid) Bounds() (float64, float64, float64, float64) {
	minX := g.GeoTransform[0]
	maxY := g.GeoTransform[3]
	maxX := minX + g.GeoTransform[1]*float64(g.Width)
	minY := maxY + g.GeoTransform[5]*float64(g.Height)
	return minX, minY, maxX, maxY
}

// SameTransform reports whether gt places pixels exactly like this grid does,
// within a small epsilon to absorb float round-trips through file metadata.
func (g ReferenceGrid) SameTransform(gt [6]float64) bool {
	for i := range gt {
		if math.Abs(gt[i]-g.GeoTransform[i]) > transformEpsilon {
			return false
		}
	}
	return true
}

// PixelWindow is a rectangular region of the reference grid, in pixels.
type PixelWindow struct {
	X, Y          int
	Width, Height int
}

// Crop returns a sub-grid covering only the given window. The window is
// clamped to the grid first; an empty intersection yields a zero-size grid.
func (g ReferenceGrid) Crop(w PixelWindow) ReferenceGrid {
	if w.X < 0 {
		w.Width += w.X
		w.X = 0
	}
	if w.Y < 0 {
		w.Height += w.Y
		w.Y = 0
	}
	if w.X+w.Width > g.Width {
		w.Width = g.Width - w.X
	}
	if w.Y+w.Height > g.Height {
		w.Height = g.Height - w.Y
	}
	if w.Width < 0 {
		w.Width = 0
	}
	if w.Height < 0 {
		w.Height = 0
	}

	gt := g.GeoTransform
	gt[0] += float64(w.X) * g.GeoTransform[1]
	gt[3] += float64(w.Y) * g.GeoTransform[5]
	return ReferenceGrid{
		GeoTransform: gt,
		Width:        w.Width,
		Height:       w.Height,
		Projection:   g.Projection,
	}
}
