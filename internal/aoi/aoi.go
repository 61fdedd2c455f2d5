package aoi

import (
	"fmt"
	"math"
	"os"

	"github.com/airbusgeo/godal"
	"github.com/basin-watch/basin-watch-api-poc/internal/raster"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadBound reads an area-of-interest GeoJSON file (WGS84 lon/lat) and
// returns the union bound of its features.
func LoadBound(path string) (orb.Bound, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return orb.Bound{}, fmt.Errorf("failed to read AOI file: %v", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		// a bare geometry or single feature is also acceptable
		if f, ferr := geojson.UnmarshalFeature(data); ferr == nil {
			return f.Geometry.Bound(), nil
		}
		return orb.Bound{}, fmt.Errorf("failed to parse AOI geojson: %v", err)
	}
	if len(fc.Features) == 0 {
		return orb.Bound{}, fmt.Errorf("AOI file %s contains no features", path)
	}

	bound := fc.Features[0].Geometry.Bound()
	for _, f := range fc.Features[1:] {
		bound = bound.Union(f.Geometry.Bound())
	}
	return bound, nil
}

// Window projects a WGS84 bound into the grid's CRS and returns the pixel
// window it covers, clamped to the grid.
func Window(b orb.Bound, grid raster.ReferenceGrid) (raster.PixelWindow, error) {
	wgs84, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return raster.PixelWindow{}, fmt.Errorf("failed to build WGS84 reference: %v", err)
	}
	defer wgs84.Close()

	dst, err := godal.NewSpatialRefFromWKT(grid.Projection)
	if err != nil {
		return raster.PixelWindow{}, fmt.Errorf("failed to parse grid projection: %v", err)
	}
	defer dst.Close()

	trn, err := godal.NewTransform(wgs84, dst)
	if err != nil {
		return raster.PixelWindow{}, fmt.Errorf("failed to build AOI transform: %v", err)
	}
	defer trn.Close()

	// corners, not just min/max: the projected box can rotate
	xs := []float64{b.Min.Lon(), b.Min.Lon(), b.Max.Lon(), b.Max.Lon()}
	ys := []float64{b.Min.Lat(), b.Max.Lat(), b.Min.Lat(), b.Max.Lat()}
	zs := make([]float64, len(xs))
	oks := make([]bool, len(xs))
	if err := trn.TransformEx(xs, ys, zs, oks); err != nil {
		return raster.PixelWindow{}, fmt.Errorf("failed to project AOI bounds: %v", err)
	}
	for i, ok := range oks {
		if !ok {
			return raster.PixelWindow{}, fmt.Errorf("failed to project AOI corner %d into the scene CRS", i)
		}
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i := range xs {
		minX = math.Min(minX, xs[i])
		maxX = math.Max(maxX, xs[i])
		minY = math.Min(minY, ys[i])
		maxY = math.Max(maxY, ys[i])
	}
	return windowFromProjected(minX, minY, maxX, maxY, grid)
}

// windowFromProjected converts a bound already in grid coordinates into a
// clamped pixel window.
func windowFromProjected(minX, minY, maxX, maxY float64, grid raster.ReferenceGrid) (raster.PixelWindow, error) {
	gt := grid.GeoTransform
	x0 := int(math.Floor((minX - gt[0]) / gt[1]))
	x1 := int(math.Ceil((maxX - gt[0]) / gt[1]))
	// pixel height is negative in north-up rasters
	y0 := int(math.Floor((maxY - gt[3]) / gt[5]))
	y1 := int(math.Ceil((minY - gt[3]) / gt[5]))

	w := raster.PixelWindow{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
	if w.X < 0 {
		w.Width += w.X
		w.X = 0
	}
	if w.Y < 0 {
		w.Height += w.Y
		w.Y = 0
	}
	if w.X+w.Width > grid.Width {
		w.Width = grid.Width - w.X
	}
	if w.Y+w.Height > grid.Height {
		w.Height = grid.Height - w.Y
	}
	if w.Width <= 0 || w.Height <= 0 {
		return raster.PixelWindow{}, fmt.Errorf("AOI does not intersect the scene extent")
	}
	return w, nil
}
