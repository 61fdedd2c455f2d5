package raster

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"
)

func TestWriteIndexGeoTIFFRoundTrip(t *testing.T) {
	grid := ReferenceGrid{GeoTransform: [6]float64{600000, 10, 0, 5000000, 0, -10}, Width: 2, Height: 2, Projection: utmWKT(t)}
	nan := float32(math.NaN())
	idx := SpectralIndex{ID: NDVI, Grid: grid, Data: []float32{0.5, 0, -0.25, nan}}

	path := filepath.Join(t.TempDir(), "out", "ndvi.tif")
	if err := WriteIndexGeoTIFF(path, idx); err != nil {
		t.Fatalf("WriteIndexGeoTIFF failed: %v", err)
	}

	ds, err := godal.Open(path)
	if err != nil {
		t.Fatalf("failed to reopen export: %v", err)
	}
	defer ds.Close()

	st := ds.Structure()
	if st.SizeX != 2 || st.SizeY != 2 || st.NBands != 1 {
		t.Errorf("exported structure = %dx%d/%d bands, want 2x2/1", st.SizeX, st.SizeY, st.NBands)
	}
	gt, err := ds.GeoTransform()
	if err != nil {
		t.Fatalf("exported file has no geotransform: %v", err)
	}
	if !grid.SameTransform(gt) {
		t.Errorf("exported transform = %v, want %v", gt, grid.GeoTransform)
	}
	if ds.Projection() == "" {
		t.Error("exported file lost the projection")
	}

	band := ds.Bands()[0]
	nodata, ok := band.NoData()
	if !ok || !math.IsNaN(nodata) {
		t.Errorf("declared nodata = %v (set=%v), want NaN", nodata, ok)
	}

	readBack := make([]float32, 4)
	if err := band.Read(0, 0, readBack, 2, 2); err != nil {
		t.Fatalf("failed to read exported values: %v", err)
	}
	want := []float32{0.5, 0, -0.25}
	for i := range want {
		if readBack[i] != want[i] {
			t.Errorf("pixel %d = %v, want %v", i, readBack[i], want[i])
		}
	}
	if !math.IsNaN(float64(readBack[3])) {
		t.Errorf("nodata pixel read back as %v, want NaN", readBack[3])
	}
}

func TestWriteIndexGeoTIFFIdempotent(t *testing.T) {
	grid := ReferenceGrid{GeoTransform: [6]float64{600000, 10, 0, 5000000, 0, -10}, Width: 3, Height: 3, Projection: utmWKT(t)}
	data := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, float32(math.NaN())}
	idx := SpectralIndex{ID: NDWI, Grid: grid, Data: data}

	dir := t.TempDir()
	first := filepath.Join(dir, "a.tif")
	second := filepath.Join(dir, "b.tif")
	if err := WriteIndexGeoTIFF(first, idx); err != nil {
		t.Fatalf("first export failed: %v", err)
	}
	if err := WriteIndexGeoTIFF(second, idx); err != nil {
		t.Fatalf("second export failed: %v", err)
	}

	a, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(second)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical inputs produced different output bytes")
	}
}

func TestWriteIndexGeoTIFFLeavesNoPartialFile(t *testing.T) {
	grid := ReferenceGrid{GeoTransform: [6]float64{600000, 10, 0, 5000000, 0, -10}, Width: 2, Height: 2, Projection: utmWKT(t)}
	// wrong sample count triggers a failure after directory creation
	idx := SpectralIndex{ID: NDVI, Grid: grid, Data: make([]float32, 3)}

	path := filepath.Join(t.TempDir(), "bad.tif")
	err := WriteIndexGeoTIFF(path, idx)
	var exportErr *ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("got %T (%v), want *ExportError", err, err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("failed export left a file behind")
	}
	if _, statErr := os.Stat(path + ".tmp"); !os.IsNotExist(statErr) {
		t.Error("failed export left a temp file behind")
	}
}

func TestWriteRGBGeoTIFF(t *testing.T) {
	grid := ReferenceGrid{GeoTransform: [6]float64{600000, 10, 0, 5000000, 0, -10}, Width: 2, Height: 1, Projection: utmWKT(t)}
	rgb := RGBComposite{
		R:    []uint8{255, 10},
		G:    []uint8{128, 20},
		B:    []uint8{0, 30},
		Grid: grid,
	}

	path := filepath.Join(t.TempDir(), "rgb.tif")
	if err := WriteRGBGeoTIFF(path, rgb); err != nil {
		t.Fatalf("WriteRGBGeoTIFF failed: %v", err)
	}

	ds, err := godal.Open(path)
	if err != nil {
		t.Fatalf("failed to reopen export: %v", err)
	}
	defer ds.Close()

	if ds.Structure().NBands != 3 {
		t.Fatalf("exported %d bands, want 3", ds.Structure().NBands)
	}
	for i, want := range [][]uint8{{255, 10}, {128, 20}, {0, 30}} {
		got := make([]uint8, 2)
		if err := ds.Bands()[i].Read(0, 0, got, 2, 1); err != nil {
			t.Fatalf("failed to read band %d: %v", i+1, err)
		}
		if got[0] != want[0] || got[1] != want[1] {
			t.Errorf("band %d = %v, want %v", i+1, got, want)
		}
	}
}
